package domain

import (
	"context"

	"github.com/fpt/cobrowse/pkg/message"
)

// LLM is a text-in, text-out chat model. A leading system message, if any,
// is passed to the backend as its system instruction.
type LLM interface {
	// Chat sends the conversation and returns the model's reply
	Chat(ctx context.Context, messages []message.Message) (message.Message, error)
	// ModelID returns a stable identifier for the underlying model
	ModelID() string
}
