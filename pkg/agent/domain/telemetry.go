package domain

import (
	"github.com/fpt/cobrowse/pkg/message"
)

// TokenUsageProvider is an optional extension that LLM clients implement to
// expose token accounting from the most recent Chat call.
//
// Implementations return (usage, true) when the backend reported usage and
// (message.TokenUsage{}, false) otherwise. Treat it as best effort.
type TokenUsageProvider interface {
	LastTokenUsage() (message.TokenUsage, bool)
}

// ContextWindowProvider is implemented by clients that know the model's input
// token capacity. /status uses it together with TokenUsageProvider.
type ContextWindowProvider interface {
	MaxContextTokens() int
}
