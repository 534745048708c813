package message

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ChatMessage is the backend-neutral chat turn.
type ChatMessage struct {
	id          string
	typ         MessageType
	content     string
	invocations []ToolInvocation
	timestamp   time.Time
	tokenUsage  TokenUsage
}

// NewChatMessage creates a turn stamped with the current time.
func NewChatMessage(msgType MessageType, content string) *ChatMessage {
	return &ChatMessage{
		id:        generateMessageID(),
		typ:       msgType,
		content:   content,
		timestamp: time.Now(),
	}
}

func NewUserMessage(content string) *ChatMessage {
	return NewChatMessage(MessageTypeUser, content)
}

func NewSystemMessage(content string) *ChatMessage {
	return NewChatMessage(MessageTypeSystem, content)
}

// NewAssistantMessage creates an assistant turn with the invocations it proposed.
func NewAssistantMessage(content string, invocations ...ToolInvocation) *ChatMessage {
	m := NewChatMessage(MessageTypeAssistant, content)
	if len(invocations) > 0 {
		m.invocations = append([]ToolInvocation(nil), invocations...)
	}
	return m
}

func (c *ChatMessage) ID() string {
	return c.id
}

func (c *ChatMessage) Type() MessageType {
	return c.typ
}

func (c *ChatMessage) Content() string {
	return c.content
}

func (c *ChatMessage) Timestamp() time.Time {
	return c.timestamp
}

func (c *ChatMessage) Invocations() []ToolInvocation {
	return c.invocations
}

func (c *ChatMessage) String() string {
	tokens := ""
	if c.tokenUsage.TotalTokens > 0 {
		tokens = fmt.Sprintf(", Tokens: %d (in:%d out:%d)",
			c.tokenUsage.TotalTokens, c.tokenUsage.InputTokens, c.tokenUsage.OutputTokens)
	}
	return fmt.Sprintf("Message(ID: %s, Type: %s, Content: %q, Tools: %d, Timestamp: %s%s)",
		c.id, c.typ, c.content, len(c.invocations), c.timestamp.Format(time.RFC3339), tokens)
}

// TruncatedString returns a one-line preview for /history and transcripts.
func (c *ChatMessage) TruncatedString() string {
	content := truncate(c.content, 200)
	switch c.typ {
	case MessageTypeUser:
		return fmt.Sprintf("👤 You: %s", content)
	case MessageTypeAssistant:
		line := fmt.Sprintf("🤖 Assistant: %s", content)
		for _, inv := range c.invocations {
			line += fmt.Sprintf("\n   ↳ 🔧 %s", inv.Name)
		}
		return line
	default:
		return ""
	}
}

func (c *ChatMessage) InputTokens() int {
	return c.tokenUsage.InputTokens
}

func (c *ChatMessage) OutputTokens() int {
	return c.tokenUsage.OutputTokens
}

func (c *ChatMessage) TotalTokens() int {
	return c.tokenUsage.TotalTokens
}

func (c *ChatMessage) SetTokenUsage(inputTokens, outputTokens, totalTokens int) {
	c.tokenUsage = TokenUsage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  totalTokens,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var messageSeq atomic.Uint64

// generateMessageID returns a process-unique id. The sequence suffix keeps
// ids distinct when two turns land on the same clock tick.
func generateMessageID() string {
	return fmt.Sprintf("msg_%d_%d", time.Now().UnixNano(), messageSeq.Add(1))
}
