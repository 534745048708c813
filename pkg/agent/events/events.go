package events

import (
	"context"
	"sync"
	"time"

	"github.com/fpt/cobrowse/pkg/message"
)

// EventType identifies what happened inside a conversation session.
type EventType string

const (
	EventTypeQueryStart   EventType = "query_start"
	EventTypeToolProposed EventType = "tool_proposed"
	EventTypeToolRejected EventType = "tool_rejected"
	EventTypeToolResult   EventType = "tool_result"
	EventTypeResponse     EventType = "response"
	EventTypeError        EventType = "error"
	EventTypeCleared      EventType = "cleared"
)

// SessionEvent is one structured event from a session.
type SessionEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	// QueryID ties the event to the request that caused it
	QueryID   string    `json:"query_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type QueryStartData struct {
	Query string `json:"query"`
}

// ToolProposedData carries the invocation the model asked for.
type ToolProposedData struct {
	Invocation message.ToolInvocation `json:"invocation"`
}

// ToolRejectedData explains why a proposed call was treated as absent.
type ToolRejectedData struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type ToolResultData struct {
	Invocation message.ToolInvocation `json:"invocation"`
	Outcome    message.ActionOutcome  `json:"outcome"`
	Duration   time.Duration          `json:"duration"`
}

type ResponseData struct {
	Message message.Message `json:"message"`
}

type ErrorData struct {
	Error   error  `json:"error"`
	Context string `json:"context,omitempty"`
}

type queryIDKey struct{}

// WithQueryID marks ctx so events emitted on behalf of the request carry id.
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey{}, id)
}

// QueryIDFrom returns the id set by WithQueryID, or "".
func QueryIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(queryIDKey{}).(string)
	return id
}

// EventHandler processes session events. Handlers run synchronously on the
// emitting goroutine and must not block.
type EventHandler func(event SessionEvent)

// EventEmitter delivers events to subscribers.
type EventEmitter interface {
	EmitEvent(eventType EventType, data any)
	EmitQueryEvent(queryID string, eventType EventType, data any)
	// AddHandler subscribes and returns a function that unsubscribes
	AddHandler(handler EventHandler) func()
}

// SimpleEventEmitter is a mutex-guarded EventEmitter.
type SimpleEventEmitter struct {
	mu        sync.RWMutex
	sessionID string
	nextID    int
	handlers  map[int]EventHandler
	order     []int
}

// NewSimpleEventEmitter creates an emitter that stamps events with sessionID.
func NewSimpleEventEmitter(sessionID string) *SimpleEventEmitter {
	return &SimpleEventEmitter{
		sessionID: sessionID,
		handlers:  make(map[int]EventHandler),
	}
}

func (e *SimpleEventEmitter) EmitEvent(eventType EventType, data any) {
	e.EmitQueryEvent("", eventType, data)
}

func (e *SimpleEventEmitter) EmitQueryEvent(queryID string, eventType EventType, data any) {
	event := SessionEvent{
		Type:      eventType,
		SessionID: e.sessionID,
		QueryID:   queryID,
		Timestamp: time.Now(),
		Data:      data,
	}

	e.mu.RLock()
	handlers := make([]EventHandler, 0, len(e.order))
	for _, id := range e.order {
		handlers = append(handlers, e.handlers[id])
	}
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (e *SimpleEventEmitter) AddHandler(handler EventHandler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = handler
	e.order = append(e.order, id)

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.handlers[id]; !ok {
			return
		}
		delete(e.handlers, id)
		for i, v := range e.order {
			if v == id {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
	}
}
