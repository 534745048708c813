package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fpt/cobrowse/pkg/message"
)

func newTestREPL(t *testing.T, llm *fakeLLM) (*REPL, *bytes.Buffer) {
	t.Helper()
	s := newTestSession(t, llm)
	var buf bytes.Buffer
	if llm == nil {
		return NewREPL(s, nil, "API key not configured. Please set GEMINI_API_KEY in your environment variables.", &buf), &buf
	}
	return NewREPL(s, llm, "", &buf), &buf
}

func TestREPLSlashCommands(t *testing.T) {
	tests := []struct {
		input    string
		wantExit bool
		want     string
	}{
		{"/help", false, "/sections"},
		{"/tools", false, "scroll_to_section"},
		{"/sections", false, "about"},
		{"/summary", false, "Page summary generated"},
		{"/history", false, "No conversation history found."},
		{"/clear", false, "Conversation history cleared."},
		{"/status", false, "Session Status"},
		{`/run {"name":"scroll_to_section","parameters":{"sectionId":"contact"}}`, false, "Scrolled to contact section"},
		{`/run {"name":"scroll_to_section","parameters":{"sectionId":"nope"}}`, false, `I couldn't complete that action: Section "nope" not found`},
		{"/run nonsense", false, "Usage: /run"},
		{"/bogus", false, "Unknown command: /bogus"},
		{"/quit", true, "Goodbye!"},
		{"/exit", true, "Goodbye!"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, buf := newTestREPL(t, &fakeLLM{})
			if exit := r.HandleLine(context.Background(), tt.input); exit != tt.wantExit {
				t.Errorf("exit: want %v, got %v", tt.wantExit, exit)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestREPLAskRunsProposedTool(t *testing.T) {
	llm := &fakeLLM{replies: []string{`Here you go. {"name":"scroll_to_section","parameters":{"sectionId":"skills"}}`}}
	r, buf := newTestREPL(t, llm)

	r.HandleLine(context.Background(), "show skills")

	out := buf.String()
	for _, want := range []string{"cobrowse (fake)", "Here you go.", "Scrolled to skills section"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	r.HandleLine(context.Background(), "/history")
	if !strings.Contains(buf.String(), "show skills") {
		t.Errorf("expected history to list the query:\n%s", buf.String())
	}
}

func TestREPLWithoutModel(t *testing.T) {
	r, buf := newTestREPL(t, nil)

	r.HandleLine(context.Background(), "hello")
	if !strings.Contains(buf.String(), "API key not configured. Please set GEMINI_API_KEY") {
		t.Errorf("expected unconfigured notice:\n%s", buf.String())
	}

	buf.Reset()
	r.HandleLine(context.Background(), "/summary")
	if !strings.Contains(buf.String(), "Page summary generated") {
		t.Errorf("tools must still work:\n%s", buf.String())
	}
}

func TestContextDisplay(t *testing.T) {
	cd := NewContextDisplay()
	if cur, max, pct := cd.CalculateUsageDetails(nil, &fakeLLM{}); cur != 0 || max != 0 || pct != 0 {
		t.Errorf("expected zeros for empty history, got %d %d %d", cur, max, pct)
	}

	history := []message.Message{message.NewUserMessage(strings.Repeat("a", 400))}
	cur, max, _ := cd.CalculateUsageDetails(history, &fakeLLM{})
	if cur != 108 || max != 32000 {
		t.Errorf("expected 108/32000, got %d/%d", cur, max)
	}
	if line := cd.FormatContextUsage(history, &fakeLLM{}); !strings.Contains(line, "Context: 108/32000") {
		t.Errorf("unexpected line %q", line)
	}
}
