package ollama

import "strings"

// contextWindows maps model name prefixes to their input capacity. Models
// not listed report 0 and /status omits the percentage.
var contextWindows = []struct {
	prefix string
	tokens int
}{
	{"gpt-oss", 128000},
	{"gemma3", 8192},
	{"llama3.2", 131072},
	{"qwen3", 40960},
}

// GetModelContextWindow returns the known context window for model, or 0.
func GetModelContextWindow(model string) int {
	model = strings.ToLower(model)
	for _, w := range contextWindows {
		if strings.HasPrefix(model, w.prefix) {
			return w.tokens
		}
	}
	return 0
}
