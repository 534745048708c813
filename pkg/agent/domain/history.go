package domain

import "github.com/fpt/cobrowse/pkg/message"

// History is a bounded, chronologically ordered conversation log.
type History interface {
	// Append adds a turn at the end
	Append(msg message.Message)
	// Truncate drops the oldest turns until at most Capacity remain
	Truncate()
	// Recent returns up to n of the newest turns, oldest first
	Recent(n int) []message.Message
	// Messages returns a copy of every retained turn
	Messages() []message.Message
	Len() int
	Clear()
	// TotalTokenUsage sums the usage recorded on retained turns
	TotalTokenUsage() (inputTokens, outputTokens, totalTokens int)
}
