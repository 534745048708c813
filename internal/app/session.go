package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fpt/cobrowse/internal/tool"
	"github.com/fpt/cobrowse/pkg/agent/domain"
	"github.com/fpt/cobrowse/pkg/agent/events"
	"github.com/fpt/cobrowse/pkg/agent/state"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

// User-facing canned replies.
const (
	ModelErrorReply   = "An error occurred. Please try again."
	GenericErrorReply = "Sorry, I encountered an error. Please try again."
)

var (
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrChatUnavailable means the session has no model; tools still work.
	ErrChatUnavailable = errors.New("chat is not available")
)

// Reply is the outcome of one query.
type Reply struct {
	Text       string
	Invocation *message.ToolInvocation // nil when the model proposed no valid call
	Actions    []string
	Message    message.Message // the stored assistant turn; nil on model error
}

// QuickAction is a canned query offered to visitors.
type QuickAction struct {
	Label string
	Query string
}

// Session is one visitor's conversation with the assistant. It owns the
// history, the page tools and a single in-flight slot: concurrent queries
// wait their turn and are answered in submission order.
type Session struct {
	id                string
	owner             string
	llm               domain.LLM
	systemInstruction string
	tools             *tool.BrowserToolManager
	history           domain.History
	emitter           *events.SimpleEventEmitter
	logger            *pkgLogger.Logger

	slot chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// SessionConfig carries what NewSession needs besides the page.
type SessionConfig struct {
	ID                string
	Owner             string
	SystemInstruction string
	// LLM may be nil; ProcessQuery then fails with ErrChatUnavailable
	LLM domain.LLM
}

// NewSession creates a session acting on page.
func NewSession(cfg SessionConfig, page tool.Page) *Session {
	return &Session{
		id:                cfg.ID,
		owner:             cfg.Owner,
		llm:               cfg.LLM,
		systemInstruction: cfg.SystemInstruction,
		tools:             tool.NewBrowserToolManager(page),
		history:           state.NewMessageState(),
		emitter:           events.NewSimpleEventEmitter(cfg.ID),
		logger:            pkgLogger.NewComponentLogger("session").WithSession(cfg.ID),
		slot:              make(chan struct{}, 1),
	}
}

func (s *Session) ID() string { return s.id }

// ChatAvailable reports whether a model is configured.
func (s *Session) ChatAvailable() bool { return s.llm != nil }

// Tools exposes the session's executor.
func (s *Session) Tools() *tool.BrowserToolManager { return s.tools }

// AddEventHandler subscribes to session events; call the result to unsubscribe.
func (s *Session) AddEventHandler(h events.EventHandler) func() {
	return s.emitter.AddHandler(h)
}

// ProcessQuery sends query to the model and returns its reply with at most
// one validated tool invocation. pageContext overrides the page digest when
// non-empty. Model failures produce ModelErrorReply and leave no assistant
// turn behind. The only errors are ErrSessionClosed, ErrChatUnavailable and
// ctx's error when the caller gives up while waiting for the slot.
func (s *Session) ProcessQuery(ctx context.Context, query, pageContext string) (Reply, error) {
	if s.isClosed() {
		return Reply{}, ErrSessionClosed
	}
	if s.llm == nil {
		return Reply{}, ErrChatUnavailable
	}

	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
	defer func() { <-s.slot }()
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Reply{}, ErrSessionClosed
	}
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	s.emit(ctx, events.EventTypeQueryStart, events.QueryStartData{Query: query})
	s.history.Append(message.NewUserMessage(query))

	if pageContext == "" {
		pageContext = s.pageSummary(runCtx)
	}
	prompt := BuildPrompt(pageContext, query, tool.Catalogue(), s.history.Recent(recentTurns))

	start := time.Now()
	resp, err := s.llm.Chat(runCtx, []message.Message{
		message.NewSystemMessage(s.systemInstruction),
		message.NewUserMessage(prompt),
	})
	if err != nil {
		s.logger.WarnWithIntention(pkgLogger.IntentionWarning, "Model call failed",
			"model", s.llm.ModelID(), "error", err, "elapsed", time.Since(start))
		s.emit(ctx, events.EventTypeError, events.ErrorData{Error: err, Context: "model"})
		return Reply{Text: ModelErrorReply}, nil
	}
	s.logger.DebugWithIntention(pkgLogger.IntentionModel, "Model replied",
		"model", s.llm.ModelID(), "elapsed", time.Since(start), "tokens", resp.TotalTokens())

	raw := resp.Content()
	parsed := message.ExtractToolCall(raw)
	inv := s.validate(ctx, parsed)

	text := strings.TrimSpace(raw)
	var reply Reply
	if inv != nil {
		text = parsed.Strip(raw)
		if text == "" {
			text = DefaultResponseForTool(*inv)
		}
		reply.Invocation = inv
		reply.Actions = []string{string(inv.Name)}
		s.emit(ctx, events.EventTypeToolProposed, events.ToolProposedData{Invocation: *inv})
	}

	var turn *message.ChatMessage
	if inv != nil {
		turn = message.NewAssistantMessage(text, *inv)
	} else {
		turn = message.NewAssistantMessage(text)
	}
	turn.SetTokenUsage(resp.InputTokens(), resp.OutputTokens(), resp.TotalTokens())
	s.history.Append(turn)
	s.history.Truncate()

	reply.Text = text
	reply.Message = turn
	s.emit(ctx, events.EventTypeResponse, events.ResponseData{Message: turn})
	return reply, nil
}

// validate turns a parse result into an invocation, or nil when the response
// carries no usable call. Rejections are only logged.
func (s *Session) validate(ctx context.Context, parsed message.ParsedToolCall) *message.ToolInvocation {
	if parsed.Additional > 0 {
		s.logger.DebugWithIntention(pkgLogger.IntentionDebug, "Ignoring extra brace regions",
			"count", parsed.Additional)
	}

	status, reason := parsed.Status.String(), ""
	switch {
	case parsed.Status == message.ParseNoRegion:
		return nil
	case !parsed.Found():
		if parsed.Err != nil {
			reason = parsed.Err.Error()
		}
	case !tool.Known(parsed.Invocation.Name):
		status, reason = "unknown_tool", fmt.Sprintf("tool %q is not in the catalogue", parsed.Invocation.Name)
	default:
		inv := parsed.Invocation
		return &inv
	}

	s.logger.DebugWithIntention(pkgLogger.IntentionDebug, "Discarding tool proposal",
		"status", status, "reason", reason)
	s.emit(ctx, events.EventTypeToolRejected, events.ToolRejectedData{Status: status, Reason: reason})
	return nil
}

// emit tags the event with the query id carried by ctx.
func (s *Session) emit(ctx context.Context, t events.EventType, data any) {
	s.emitter.EmitQueryEvent(events.QueryIDFrom(ctx), t, data)
}

func (s *Session) pageSummary(ctx context.Context) string {
	snap, err := s.tools.Page().Snapshot(ctx)
	if err != nil {
		s.logger.WarnWithIntention(pkgLogger.IntentionWarning, "Page snapshot failed", "error", err)
		return ""
	}
	return tool.PageSummary(snap)
}

// Execute runs inv against the session page.
func (s *Session) Execute(ctx context.Context, inv message.ToolInvocation) (message.ActionOutcome, error) {
	if s.isClosed() {
		return message.ActionOutcome{}, ErrSessionClosed
	}
	start := time.Now()
	outcome := s.tools.Execute(ctx, inv)
	s.emit(ctx, events.EventTypeToolResult, events.ToolResultData{
		Invocation: inv,
		Outcome:    outcome,
		Duration:   time.Since(start),
	})
	if outcome.Success {
		s.logger.InfoWithIntention(pkgLogger.IntentionTool, "Tool succeeded", "tool", inv.Name, "message", outcome.Message)
	} else {
		s.logger.WarnWithIntention(pkgLogger.IntentionTool, "Tool failed", "tool", inv.Name, "message", outcome.Message)
	}
	return outcome, nil
}

// Cancel aborts the model call in flight, if any. The aborted query answers
// with ModelErrorReply.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Clear empties the history and restores highlighted elements.
func (s *Session) Clear() {
	s.history.Clear()
	s.tools.Highlighter().Reset()
	s.emitter.EmitEvent(events.EventTypeCleared, nil)
}

// History returns a copy of the retained turns, oldest first.
func (s *Session) History() []message.Message {
	return s.history.Messages()
}

// TokenUsage sums the token usage over the retained turns.
func (s *Session) TokenUsage() (input, output, total int) {
	return s.history.TotalTokenUsage()
}

// Close cancels any running query and restores the page. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.tools.Close()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Greeting is the assistant's opening line.
func (s *Session) Greeting() string {
	return fmt.Sprintf("Hi! I'm your co-browsing assistant for %s's portfolio. "+
		"I can help you navigate the site, answer questions about their experience and skills, "+
		"highlight sections, and more. How can I assist you today?", s.owner)
}

// QuickActions lists the canned queries offered next to the input.
func (s *Session) QuickActions() []QuickAction {
	return []QuickAction{
		{Label: "Show Skills", Query: fmt.Sprintf("What are %s's technical skills?", s.owner)},
		{Label: "View Experience", Query: "Show me the experience section"},
		{Label: "Highlight Testimonials", Query: "Highlight the testimonials section"},
		{Label: "About Me", Query: fmt.Sprintf("Tell me about %s's background", s.owner)},
	}
}

// DefaultResponseForTool is the reply used when the model sent only a tool call.
func DefaultResponseForTool(inv message.ToolInvocation) string {
	switch inv.Name {
	case tool.ToolScrollToSection:
		return fmt.Sprintf("Scrolling to the %v section.", inv.Parameters["sectionId"])
	case tool.ToolHighlightElement:
		return "Highlighting the requested element."
	case tool.ToolClickElement:
		return "Clicking the specified element."
	case tool.ToolExtractContent:
		return "Extracting content from the page."
	case tool.ToolFillForm:
		return fmt.Sprintf("Filling the %v field.", inv.Parameters["field"])
	case tool.ToolNavigateTo:
		return "Navigating to the requested page."
	default:
		return "Done."
	}
}

// FailureMessage is the extra assistant line shown for a failed action.
func FailureMessage(outcome message.ActionOutcome) string {
	return "I couldn't complete that action: " + outcome.Message
}
