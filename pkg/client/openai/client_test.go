package openai

import (
	"testing"

	"github.com/openai/openai-go/v2/responses"

	"github.com/fpt/cobrowse/pkg/message"
)

func TestGetOpenAIModel(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"gpt-4o", "gpt-4o"},
		{"gpt-4o-mini", "gpt-4o-mini"},
		{"gpt-5", "gpt-5"},
		{"gpt-5-mini", "gpt-5-mini"},
		{"unknown-model", "gpt-5-mini"}, // default fallback
	}

	for _, tc := range testCases {
		result := getOpenAIModel(tc.input)
		if result != tc.expected {
			t.Errorf("getOpenAIModel(%q) = %q, expected %q", tc.input, result, tc.expected)
		}
	}
}

func TestGetModelCapabilities(t *testing.T) {
	testCases := []struct {
		model            string
		expectedThinking bool
		expectedMax      int
	}{
		{"gpt-4o", false, 8192},
		{"gpt-4o-mini", false, 4096},
		{"gpt-5", true, 16384},
		{"unknown-model", true, 16384}, // default capabilities (gpt-5-mini)
	}

	for _, tc := range testCases {
		caps := getModelCapabilities(tc.model)
		if caps.SupportsThinking != tc.expectedThinking {
			t.Errorf("Model %s thinking support: got %v, expected %v", tc.model, caps.SupportsThinking, tc.expectedThinking)
		}
		if caps.MaxTokens != tc.expectedMax {
			t.Errorf("Model %s max tokens: got %d, expected %d", tc.model, caps.MaxTokens, tc.expectedMax)
		}
	}
}

func TestToResponsesInput(t *testing.T) {
	items := toResponsesInput([]message.Message{
		message.NewSystemMessage("persona"),
		message.NewUserMessage("hello"),
		message.NewAssistantMessage("hi"),
	})
	if len(items) != 3 {
		t.Fatalf("expected 3 input items, got %d", len(items))
	}

	wantRoles := []responses.EasyInputMessageRole{
		responses.EasyInputMessageRoleSystem,
		responses.EasyInputMessageRoleUser,
		responses.EasyInputMessageRoleAssistant,
	}
	for i, item := range items {
		if item.OfMessage == nil {
			t.Fatalf("item %d is not a message", i)
		}
		if item.OfMessage.Role != wantRoles[i] {
			t.Errorf("item %d role = %s, want %s", i, item.OfMessage.Role, wantRoles[i])
		}
	}
}
