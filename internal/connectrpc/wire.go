package connectrpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/fpt/cobrowse/pkg/message"
)

// ServiceName is the fully-qualified name of the co-browsing service.
const ServiceName = "cobrowse.v1.CobrowseService"

// Procedure paths. Every message travels as a google.protobuf.Struct whose
// fields mirror the JSON tags of the types below.
const (
	StartSessionProcedure = "/" + ServiceName + "/StartSession"
	SendMessageProcedure  = "/" + ServiceName + "/SendMessage"
	InvokeProcedure       = "/" + ServiceName + "/Invoke"
	ExecuteToolProcedure  = "/" + ServiceName + "/ExecuteTool"
	CancelQueryProcedure  = "/" + ServiceName + "/CancelQuery"
	ClearSessionProcedure = "/" + ServiceName + "/ClearSession"
	GetHistoryProcedure   = "/" + ServiceName + "/GetHistory"
	ListToolsProcedure    = "/" + ServiceName + "/ListTools"
	CloseSessionProcedure = "/" + ServiceName + "/CloseSession"
)

type QuickAction struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

type StartSessionResponse struct {
	SessionID     string        `json:"session_id"`
	Greeting      string        `json:"greeting"`
	QuickActions  []QuickAction `json:"quick_actions"`
	ChatAvailable bool          `json:"chat_available"`
}

// SessionRequest addresses an existing session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type SendMessageRequest struct {
	SessionID   string `json:"session_id"`
	Text        string `json:"text"`
	PageContext string `json:"page_context,omitempty"`
	// Execute runs the proposed tool on the session page before replying
	Execute bool `json:"execute,omitempty"`
}

type SendMessageResponse struct {
	Text       string                  `json:"text"`
	Invocation *message.ToolInvocation `json:"invocation,omitempty"`
	Actions    []string                `json:"actions"`
	Outcome    *message.ActionOutcome  `json:"outcome,omitempty"`
}

type ExecuteToolRequest struct {
	SessionID  string                 `json:"session_id"`
	Invocation message.ToolInvocation `json:"invocation"`
}

type CancelQueryResponse struct {
	Cancelled bool `json:"cancelled"`
}

type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GetHistoryResponse struct {
	Messages    []HistoryEntry `json:"messages"`
	TotalTokens int            `json:"total_tokens"`
}

type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  string `json:"parameters"`
}

type ListToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
}

// Invoke stream event types.
const (
	InvokeEventStatus     = "status"
	InvokeEventToolCall   = "tool_call"
	InvokeEventToolResult = "tool_result"
	InvokeEventFinal      = "final"
	InvokeEventError      = "error"
)

// Invoke stream states.
const (
	InvokeStateStarted   = "started"
	InvokeStateCompleted = "completed"
)

// InvokeEvent is one message on the Invoke stream.
type InvokeEvent struct {
	Type       string                  `json:"type"`
	State      string                  `json:"state,omitempty"`
	Text       string                  `json:"text,omitempty"`
	Invocation *message.ToolInvocation `json:"invocation,omitempty"`
	Outcome    *message.ActionOutcome  `json:"outcome,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// toStruct converts a JSON-tagged value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return structpb.NewStruct(fields)
}

// fromStruct fills v from s.
func fromStruct(s *structpb.Struct, v any) error {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}
