package anthropic

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fpt/cobrowse/pkg/message"
)

// Anthropic models
// https://docs.anthropic.com/en/docs/about-claude/models/overview

// getAnthropicModel passes Claude model names through and maps anything else
// to Claude Sonnet 4.5.
func getAnthropicModel(model string) anthropic.Model {
	switch model {
	case "opus":
		return anthropic.ModelClaudeOpus4_20250514
	case "haiku":
		return anthropic.ModelClaudeHaiku4_5
	case "sonnet":
		return anthropic.ModelClaudeSonnet4_5
	}
	if strings.HasPrefix(model, "claude-") {
		return anthropic.Model(model)
	}
	return anthropic.ModelClaudeSonnet4_5
}

// getModelContextWindow returns a conservative approximation of the
// model's context window (input token capacity).
func getModelContextWindow(string) int {
	return 200000
}

// toAnthropicMessages converts the conversation. System messages are lifted
// into the separate system prompt; consecutive turns of the same role are
// merged because the API requires alternation.
func toAnthropicMessages(messages []message.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var out []anthropic.MessageParam
	var system []anthropic.TextBlockParam

	for _, msg := range messages {
		var role anthropic.MessageParamRole
		switch msg.Type() {
		case message.MessageTypeSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content()})
			continue
		case message.MessageTypeUser:
			role = anthropic.MessageParamRoleUser
		case message.MessageTypeAssistant:
			role = anthropic.MessageParamRoleAssistant
		default:
			continue
		}
		if msg.Content() == "" {
			continue
		}

		block := anthropic.NewTextBlock(msg.Content())
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, block)
			continue
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: []anthropic.ContentBlockParamUnion{block}})
	}
	return out, system
}
