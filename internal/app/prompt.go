package app

import (
	"fmt"
	"strings"

	"github.com/fpt/cobrowse/internal/tool"
	"github.com/fpt/cobrowse/pkg/message"
)

// recentTurns is how much history the prompt carries.
const recentTurns = 5

// BuildPrompt composes the single user prompt sent to the model: the page
// digest, the query, one line per tool and the recent turns.
func BuildPrompt(pageContext, query string, tools []tool.Definition, recent []message.Message) string {
	var b strings.Builder
	b.WriteString("\nCurrent Page Context:\n")
	b.WriteString(pageContext)
	b.WriteString("\n\nUser Query:\n")
	b.WriteString(`"` + query + `"` + "\n")
	b.WriteString("\nAvailable Tools:\n")
	b.WriteString(formatTools(tools))
	b.WriteString("\n\nChat History:\n")
	b.WriteString(formatHistory(recent))
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Generate a tool call only when interaction is needed\n")
	b.WriteString("- Otherwise respond normally\n")
	b.WriteString(`- Tool JSON format: {"name":"tool","parameters":{}}` + "\n")
	b.WriteString("\nResponse:\n")
	return b.String()
}

func formatTools(tools []tool.Definition) string {
	lines := make([]string, 0, len(tools))
	for _, d := range tools {
		lines = append(lines, fmt.Sprintf("%s: %s (params: %s)", d.Name, d.Description, d.ParametersJSON()))
	}
	return strings.Join(lines, "\n")
}

func formatHistory(recent []message.Message) string {
	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Type(), m.Content()))
	}
	return strings.Join(lines, "\n")
}
