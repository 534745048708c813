package connectrpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fpt/cobrowse/internal/app"
	"github.com/fpt/cobrowse/internal/tool"
	"github.com/fpt/cobrowse/pkg/agent/domain"
	"github.com/fpt/cobrowse/pkg/agent/events"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// ServerOptions carries what every new session is built from.
type ServerOptions struct {
	Owner             string
	SystemInstruction string
	// LLM may be nil; SendMessage then fails with Unconfigured
	LLM          domain.LLM
	Unconfigured string
	Pages        app.PageFactory
}

// CobrowseServer hosts co-browsing sessions over Connect.
type CobrowseServer struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	opts   ServerOptions
	logger *pkgLogger.Logger
}

type sessionState struct {
	session *app.Session
	release func()
}

// NewCobrowseServer creates the service implementation.
func NewCobrowseServer(opts ServerOptions, logger *pkgLogger.Logger) *CobrowseServer {
	return &CobrowseServer{
		sessions: make(map[string]*sessionState),
		opts:     opts,
		logger:   logger.WithComponent("connect-server"),
	}
}

// NewHandler mounts every procedure of the service. Mount the handler on the
// returned path prefix.
func NewHandler(s *CobrowseServer, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(StartSessionProcedure, connect.NewUnaryHandler(StartSessionProcedure, s.StartSession, opts...))
	mux.Handle(SendMessageProcedure, connect.NewUnaryHandler(SendMessageProcedure, s.SendMessage, opts...))
	mux.Handle(InvokeProcedure, connect.NewServerStreamHandler(InvokeProcedure, s.Invoke, opts...))
	mux.Handle(ExecuteToolProcedure, connect.NewUnaryHandler(ExecuteToolProcedure, s.ExecuteTool, opts...))
	mux.Handle(CancelQueryProcedure, connect.NewUnaryHandler(CancelQueryProcedure, s.CancelQuery, opts...))
	mux.Handle(ClearSessionProcedure, connect.NewUnaryHandler(ClearSessionProcedure, s.ClearSession, opts...))
	mux.Handle(GetHistoryProcedure, connect.NewUnaryHandler(GetHistoryProcedure, s.GetHistory, opts...))
	mux.Handle(ListToolsProcedure, connect.NewUnaryHandler(ListToolsProcedure, s.ListTools, opts...))
	mux.Handle(CloseSessionProcedure, connect.NewUnaryHandler(CloseSessionProcedure, s.CloseSession, opts...))
	return "/" + ServiceName + "/", mux
}

func (s *CobrowseServer) StartSession(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	page, release, err := s.opts.Pages(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("failed to open page: %w", err))
	}

	sessionID := uuid.NewString()
	session := app.NewSession(app.SessionConfig{
		ID:                sessionID,
		Owner:             s.opts.Owner,
		SystemInstruction: s.opts.SystemInstruction,
		LLM:               s.opts.LLM,
	}, page)

	s.mu.Lock()
	s.sessions[sessionID] = &sessionState{session: session, release: release}
	s.mu.Unlock()

	s.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Session started", "session_id", sessionID)

	resp := StartSessionResponse{
		SessionID:     sessionID,
		Greeting:      session.Greeting(),
		ChatAvailable: session.ChatAvailable(),
	}
	for _, qa := range session.QuickActions() {
		resp.QuickActions = append(resp.QuickActions, QuickAction{Label: qa.Label, Query: qa.Query})
	}
	return respond(resp)
}

func (s *CobrowseServer) SendMessage(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in SendMessageRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	state, err := s.getSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	reply, err := state.session.ProcessQuery(ctx, in.Text, in.PageContext)
	if err != nil {
		return nil, s.queryError(err)
	}

	out := SendMessageResponse{Text: reply.Text, Invocation: reply.Invocation, Actions: reply.Actions}
	if out.Actions == nil {
		out.Actions = []string{}
	}
	if in.Execute && reply.Invocation != nil {
		outcome, err := state.session.Execute(ctx, *reply.Invocation)
		if err != nil {
			return nil, s.queryError(err)
		}
		out.Outcome = &outcome
	}
	return respond(out)
}

// Invoke answers a query as a stream: started, the proposed tool call and
// its result when executed, the final text, completed.
func (s *CobrowseServer) Invoke(ctx context.Context, req *connect.Request[structpb.Struct], stream *connect.ServerStream[structpb.Struct]) error {
	var in SendMessageRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	state, err := s.getSession(in.SessionID)
	if err != nil {
		return err
	}
	if !state.session.ChatAvailable() {
		return s.queryError(app.ErrChatUnavailable)
	}

	// connect streams take one writer at a time
	var sendMu sync.Mutex
	send := func(ev InvokeEvent) {
		msg, err := toStruct(ev)
		if err != nil {
			s.logger.WarnWithIntention(pkgLogger.IntentionTransport, "Dropping stream event", "error", err)
			return
		}
		sendMu.Lock()
		defer sendMu.Unlock()
		_ = stream.Send(msg)
	}

	send(InvokeEvent{Type: InvokeEventStatus, State: InvokeStateStarted})

	// only this call's events: other RPCs on the session use other ids
	queryID := uuid.NewString()
	ctx = events.WithQueryID(ctx, queryID)
	unsubscribe := state.session.AddEventHandler(func(event events.SessionEvent) {
		if event.QueryID != queryID {
			return
		}
		if ev := translateEvent(event); ev != nil {
			send(*ev)
		}
	})
	defer unsubscribe()

	reply, err := state.session.ProcessQuery(ctx, in.Text, in.PageContext)
	if err != nil {
		send(InvokeEvent{Type: InvokeEventError, Error: err.Error()})
		return nil
	}
	if in.Execute && reply.Invocation != nil {
		// the tool_result event reaches the stream through the handler
		_, _ = state.session.Execute(ctx, *reply.Invocation)
	}

	send(InvokeEvent{Type: InvokeEventFinal, Text: reply.Text, Invocation: reply.Invocation})
	send(InvokeEvent{Type: InvokeEventStatus, State: InvokeStateCompleted})
	return nil
}

func (s *CobrowseServer) ExecuteTool(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in ExecuteToolRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	state, err := s.getSession(in.SessionID)
	if err != nil {
		return nil, err
	}
	outcome, err := state.session.Execute(ctx, in.Invocation)
	if err != nil {
		return nil, s.queryError(err)
	}
	return respond(outcome)
}

func (s *CobrowseServer) CancelQuery(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	state, err := s.sessionFromRequest(req)
	if err != nil {
		return nil, err
	}
	cancelled := state.session.Cancel()
	s.logger.InfoWithIntention(pkgLogger.IntentionCancel, "Cancel requested",
		"session_id", state.session.ID(), "cancelled", cancelled)
	return respond(CancelQueryResponse{Cancelled: cancelled})
}

func (s *CobrowseServer) ClearSession(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	state, err := s.sessionFromRequest(req)
	if err != nil {
		return nil, err
	}
	state.session.Clear()
	s.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Session cleared", "session_id", state.session.ID())
	return respond(struct{}{})
}

func (s *CobrowseServer) GetHistory(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	state, err := s.sessionFromRequest(req)
	if err != nil {
		return nil, err
	}
	out := GetHistoryResponse{Messages: []HistoryEntry{}}
	for _, msg := range state.session.History() {
		out.Messages = append(out.Messages, HistoryEntry{Role: msg.Type().String(), Content: msg.Content()})
	}
	_, _, out.TotalTokens = state.session.TokenUsage()
	return respond(out)
}

func (s *CobrowseServer) ListTools(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var out ListToolsResponse
	for _, def := range tool.Catalogue() {
		out.Tools = append(out.Tools, ToolInfo{
			Name:        string(def.Name),
			Description: string(def.Description),
			Parameters:  def.ParametersJSON(),
		})
	}
	return respond(out)
}

func (s *CobrowseServer) CloseSession(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in SessionRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	s.mu.Lock()
	state, ok := s.sessions[in.SessionID]
	delete(s.sessions, in.SessionID)
	s.mu.Unlock()
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", in.SessionID))
	}
	state.close()
	s.logger.InfoWithIntention(pkgLogger.IntentionStatus, "Session closed", "session_id", in.SessionID)
	return respond(struct{}{})
}

// Close ends every open session.
func (s *CobrowseServer) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*sessionState)
	s.mu.Unlock()
	for _, state := range sessions {
		state.close()
	}
}

// SessionCount reports how many sessions are open.
func (s *CobrowseServer) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (st *sessionState) close() {
	st.session.Close()
	if st.release != nil {
		st.release()
	}
}

func (s *CobrowseServer) getSession(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", sessionID))
	}
	return session, nil
}

func (s *CobrowseServer) sessionFromRequest(req *connect.Request[structpb.Struct]) (*sessionState, error) {
	var in SessionRequest
	if err := fromStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return s.getSession(in.SessionID)
}

// queryError maps session errors onto Connect codes.
func (s *CobrowseServer) queryError(err error) error {
	switch {
	case errors.Is(err, app.ErrChatUnavailable):
		msg := s.opts.Unconfigured
		if msg == "" {
			msg = err.Error()
		}
		return connect.NewError(connect.CodeFailedPrecondition, errors.New(msg))
	case errors.Is(err, app.ErrSessionClosed):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func respond(v any) (*connect.Response[structpb.Struct], error) {
	msg, err := toStruct(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// translateEvent converts a session event to a stream event.
func translateEvent(event events.SessionEvent) *InvokeEvent {
	switch event.Type {
	case events.EventTypeToolProposed:
		if data, ok := event.Data.(events.ToolProposedData); ok {
			inv := data.Invocation
			return &InvokeEvent{Type: InvokeEventToolCall, Invocation: &inv}
		}

	case events.EventTypeToolResult:
		if data, ok := event.Data.(events.ToolResultData); ok {
			inv, outcome := data.Invocation, data.Outcome
			return &InvokeEvent{Type: InvokeEventToolResult, Invocation: &inv, Outcome: &outcome}
		}

	case events.EventTypeError:
		if data, ok := event.Data.(events.ErrorData); ok && data.Error != nil {
			return &InvokeEvent{Type: InvokeEventError, Error: data.Error.Error()}
		}
	}
	return nil
}
