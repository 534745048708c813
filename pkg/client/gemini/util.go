package gemini

import (
	"strings"

	"google.golang.org/genai"

	"github.com/fpt/cobrowse/pkg/message"
)

// Google Gemini models
// https://ai.google.dev/gemini-api/docs/models

const (
	modelGemini3FlashPreview = "gemini-3-flash-preview"
	modelGemini25Pro         = "gemini-2.5-pro"
	modelGemini25Flash       = "gemini-2.5-flash"
	modelGemini25FlashLite   = "gemini-2.5-flash-lite"
)

// getGeminiModel maps user-friendly model names to Gemini model identifiers.
// Any other "gemini-" name passes through unchanged.
func getGeminiModel(model string) string {
	switch model {
	case "", "gemini-3-flash", "gemini-flash", "flash":
		return modelGemini3FlashPreview
	case "gemini-pro", "pro":
		return modelGemini25Pro
	case "gemini-lite", "lite":
		return modelGemini25FlashLite
	}
	if strings.HasPrefix(model, "gemini-") {
		return model
	}
	return modelGemini3FlashPreview
}

// ModelCapabilities represents the limits of a Gemini model
type ModelCapabilities struct {
	MaxTokens        int
	MaxContextWindow int
}

// getModelCapabilities returns the token limits of a Gemini model. Current
// models share a 65,536 output and 1,048,576 input window.
func getModelCapabilities(model string) ModelCapabilities {
	switch model {
	case modelGemini3FlashPreview, modelGemini25Pro, modelGemini25Flash, modelGemini25FlashLite:
		return ModelCapabilities{MaxTokens: 65536, MaxContextWindow: 1048576}
	default:
		return ModelCapabilities{MaxTokens: 8192, MaxContextWindow: 1048576}
	}
}

// toGeminiContents converts the conversation. System messages become the
// system instruction; the last one wins.
func toGeminiContents(messages []message.Message) ([]*genai.Content, *genai.Content) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemInstruction *genai.Content

	for _, msg := range messages {
		switch msg.Type() {
		case message.MessageTypeUser:
			contents = append(contents, genai.NewContentFromText(msg.Content(), genai.RoleUser))
		case message.MessageTypeAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content(), genai.RoleModel))
		case message.MessageTypeSystem:
			systemInstruction = genai.NewContentFromText(msg.Content(), genai.RoleUser)
		}
	}
	return contents, systemInstruction
}
