package message

import (
	"strings"
	"testing"
)

func TestTokenUsage(t *testing.T) {
	msg := NewChatMessage(MessageTypeUser, "Hello, world!")

	if msg.InputTokens() != 0 || msg.OutputTokens() != 0 || msg.TotalTokens() != 0 {
		t.Fatalf("Expected zero token usage, got %d/%d/%d", msg.InputTokens(), msg.OutputTokens(), msg.TotalTokens())
	}

	msg.SetTokenUsage(100, 50, 150)

	if msg.InputTokens() != 100 {
		t.Errorf("Expected InputTokens to be 100, got %d", msg.InputTokens())
	}
	if msg.OutputTokens() != 50 {
		t.Errorf("Expected OutputTokens to be 50, got %d", msg.OutputTokens())
	}
	if msg.TotalTokens() != 150 {
		t.Errorf("Expected TotalTokens to be 150, got %d", msg.TotalTokens())
	}
	if !strings.Contains(msg.String(), "Tokens: 150") {
		t.Errorf("Expected String() to include token usage, got %s", msg.String())
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewUserMessage("x").ID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestAssistantMessageCopiesInvocations(t *testing.T) {
	invs := []ToolInvocation{NewToolInvocation("scroll_to_section", ToolArgumentValues{"sectionId": "about"})}
	msg := NewAssistantMessage("Scrolling", invs...)
	invs[0].Name = "mutated"

	if got := msg.Invocations()[0].Name; got != "scroll_to_section" {
		t.Fatalf("invocations aliased caller slice: %s", got)
	}
	if !strings.Contains(msg.TruncatedString(), "🔧 scroll_to_section") {
		t.Errorf("preview should list the tool, got %q", msg.TruncatedString())
	}
}

func TestMessageTypeRoundTrip(t *testing.T) {
	for _, typ := range []MessageType{MessageTypeUser, MessageTypeAssistant, MessageTypeSystem} {
		if got := ParseMessageType(typ.String()); got != typ {
			t.Errorf("ParseMessageType(%q) = %v", typ.String(), got)
		}
	}
	if ParseMessageType("model") != MessageTypeAssistant {
		t.Error("model role should map to assistant")
	}
}

func TestTruncatedStringLimitsLength(t *testing.T) {
	msg := NewUserMessage(strings.Repeat("a", 500))
	if got := msg.TruncatedString(); len(got) > 230 || !strings.HasSuffix(got, "...") {
		t.Errorf("unexpected preview %q", got)
	}
	if NewSystemMessage("hidden").TruncatedString() != "" {
		t.Error("system messages should not be previewed")
	}
}
