package openai

import (
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"

	"github.com/fpt/cobrowse/pkg/message"
)

// Model constants
const (
	modelGPT5      = "gpt-5"
	modelGPT5Mini  = "gpt-5-mini"
	modelGPT5Nano  = "gpt-5-nano"
	modelGPT4o     = shared.ChatModelGPT4o
	modelGPT4oMini = shared.ChatModelGPT4oMini
)

// getOpenAIModel maps user-friendly model names to actual OpenAI model identifiers
func getOpenAIModel(model string) string {
	// Normalize the model name
	switch model {
	case modelGPT5:
		return modelGPT5
	case modelGPT5Mini:
		return modelGPT5Mini
	case modelGPT5Nano:
		return modelGPT5Nano
	case modelGPT4o:
		return modelGPT4o
	case modelGPT4oMini:
		return modelGPT4oMini

	default:
		// If it's already a valid OpenAI model name, return as-is
		if isValidOpenAIModel(model) {
			return model
		}
		// Default to GPT-5 Mini for unknown models (most versatile option)
		return modelGPT5Mini
	}
}

// isValidOpenAIModel checks if a model name is a valid OpenAI model
func isValidOpenAIModel(model string) bool {
	validModels := map[string]bool{
		"gpt-5":       true,
		"gpt-5-mini":  true,
		"gpt-5-nano":  true,
		"gpt-4o":      true,
		"gpt-4o-mini": true,
	}
	return validModels[model]
}

// ModelCapabilities holds the per-model limits this client needs
type ModelCapabilities struct {
	SupportsThinking bool // Reasoning models accept a reasoning effort
	// MaxTokens configures default max output tokens (per-generation limit)
	MaxTokens int
	// MaxContextWindow is the model's approximate input context window size
	MaxContextWindow int
}

var modelCapabilities = map[string]ModelCapabilities{
	modelGPT5:      {SupportsThinking: true, MaxTokens: 16384, MaxContextWindow: 128000},
	modelGPT5Mini:  {SupportsThinking: true, MaxTokens: 16384, MaxContextWindow: 128000},
	modelGPT5Nano:  {SupportsThinking: true, MaxTokens: 8192, MaxContextWindow: 128000},
	modelGPT4o:     {SupportsThinking: false, MaxTokens: 8192, MaxContextWindow: 128000},
	modelGPT4oMini: {SupportsThinking: false, MaxTokens: 4096, MaxContextWindow: 128000},
}

// getModelCapabilities returns the capabilities of a specific OpenAI model
func getModelCapabilities(model string) ModelCapabilities {
	if caps, ok := modelCapabilities[model]; ok {
		return caps
	}
	// Default to GPT-5 Mini for unknown models (most versatile option)
	return modelCapabilities[modelGPT5Mini]
}

// toResponsesInput converts the conversation into Responses API input items.
func toResponsesInput(messages []message.Message) responses.ResponseInputParam {
	var inputItems responses.ResponseInputParam
	for _, msg := range messages {
		role := responses.EasyInputMessageRoleUser
		switch msg.Type() {
		case message.MessageTypeAssistant:
			role = responses.EasyInputMessageRoleAssistant
		case message.MessageTypeSystem:
			role = responses.EasyInputMessageRoleSystem
		}
		inputItems = append(inputItems, responses.ResponseInputItemParamOfMessage(msg.Content(), role))
	}
	return inputItems
}
