package state

import (
	"sync"

	"github.com/fpt/cobrowse/pkg/message"
)

// DefaultCapacity is the number of turns a conversation retains.
const DefaultCapacity = 20

// MessageState is an in-memory conversation log capped at a fixed number of
// turns. Appending never drops turns; Truncate does, so the owner decides
// when the cap is enforced.
type MessageState struct {
	mu       sync.RWMutex
	messages []message.Message
	capacity int
}

// NewMessageState creates a state holding at most DefaultCapacity turns after truncation.
func NewMessageState() *MessageState {
	return NewMessageStateWithCapacity(DefaultCapacity)
}

// NewMessageStateWithCapacity creates a state with a custom cap; values below 1 use DefaultCapacity.
func NewMessageStateWithCapacity(capacity int) *MessageState {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &MessageState{
		messages: make([]message.Message, 0, capacity+1),
		capacity: capacity,
	}
}

func (c *MessageState) Append(msg message.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Truncate drops the oldest turns so at most Capacity remain.
func (c *MessageState) Truncate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if over := len(c.messages) - c.capacity; over > 0 {
		kept := make([]message.Message, c.capacity, c.capacity+1)
		copy(kept, c.messages[over:])
		c.messages = kept
	}
}

// Recent returns up to n of the newest turns in chronological order.
func (c *MessageState) Recent(n int) []message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(c.messages) - n
	if start < 0 {
		start = 0
	}
	return append([]message.Message(nil), c.messages[start:]...)
}

// Messages returns a copy of all retained turns.
func (c *MessageState) Messages() []message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]message.Message(nil), c.messages...)
}

func (c *MessageState) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

func (c *MessageState) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]message.Message, 0, c.capacity+1)
}

// TotalTokenUsage sums token usage across retained turns.
func (c *MessageState) TotalTokenUsage() (inputTokens, outputTokens, totalTokens int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.messages {
		inputTokens += m.InputTokens()
		outputTokens += m.OutputTokens()
		totalTokens += m.TotalTokens()
	}
	return
}
