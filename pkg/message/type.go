package message

import "time"

// TokenUsage holds token accounting reported by the model backend.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// MessageType is the role of a chat turn.
type MessageType int

const (
	MessageTypeUser MessageType = iota
	MessageTypeAssistant
	MessageTypeSystem
)

// String returns the role name used in prompts and transcripts.
func (m MessageType) String() string {
	switch m {
	case MessageTypeUser:
		return "user"
	case MessageTypeAssistant:
		return "assistant"
	case MessageTypeSystem:
		return "system"
	default:
		return "unknown"
	}
}

// ParseMessageType is the inverse of String. Unknown roles map to system.
func ParseMessageType(role string) MessageType {
	switch role {
	case "user":
		return MessageTypeUser
	case "assistant", "model":
		return MessageTypeAssistant
	default:
		return MessageTypeSystem
	}
}

// Message is one turn of a conversation.
type Message interface {
	// ID returns the unique identifier of the message
	ID() string

	// Type returns the role of the message
	Type() MessageType

	// Content returns the text shown to the user
	Content() string

	// Timestamp returns the time when the message was created
	Timestamp() time.Time

	// Invocations returns the tool invocations attached to this turn
	Invocations() []ToolInvocation

	String() string

	// TruncatedString returns a short preview for transcripts
	TruncatedString() string

	InputTokens() int
	OutputTokens() int
	TotalTokens() int
	SetTokenUsage(inputTokens, outputTokens, totalTokens int)
}
