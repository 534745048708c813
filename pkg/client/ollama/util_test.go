package ollama

import (
	"testing"

	"github.com/fpt/cobrowse/pkg/message"
)

func TestToOllamaMessages(t *testing.T) {
	msgs := toOllamaMessages([]message.Message{
		message.NewSystemMessage("persona"),
		message.NewUserMessage("hello"),
		message.NewAssistantMessage("hi"),
	})

	want := []string{"system", "user", "assistant"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, m := range msgs {
		if m.Role != want[i] {
			t.Errorf("message %d role = %q, want %q", i, m.Role, want[i])
		}
	}
	if msgs[0].Content != "persona" {
		t.Errorf("unexpected system content %q", msgs[0].Content)
	}
}

func TestGetModelContextWindow(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"gpt-oss:latest", 128000},
		{"GEMMA3:latest", 8192},
		{"qwen3:8b", 40960},
		{"mistral:7b", 0},
	}
	for _, tt := range tests {
		if got := GetModelContextWindow(tt.model); got != tt.want {
			t.Errorf("GetModelContextWindow(%q) = %d, want %d", tt.model, got, tt.want)
		}
	}
}
