package ollama

import (
	"github.com/ollama/ollama/api"

	"github.com/fpt/cobrowse/pkg/message"
)

// toOllamaMessages converts neutral messages to Ollama format
func toOllamaMessages(messages []message.Message) []api.Message {
	ollamaMessages := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		ollamaMessages = append(ollamaMessages, api.Message{
			Role:    msg.Type().String(),
			Content: msg.Content(),
		})
	}
	return ollamaMessages
}
