package app

import (
	"fmt"
	"math"
	"strings"

	"github.com/fpt/cobrowse/pkg/agent/domain"
	"github.com/fpt/cobrowse/pkg/message"
)

// ContextDisplay handles context window usage visualization
type ContextDisplay struct{}

// NewContextDisplay creates a new context display instance
func NewContextDisplay() *ContextDisplay {
	return &ContextDisplay{}
}

// CalculateUsageDetails estimates how much of the model's context window the
// retained history would take up.
func (cd *ContextDisplay) CalculateUsageDetails(history []message.Message, llmClient domain.LLM) (currentTokens, maxTokens, percentage int) {
	if len(history) == 0 {
		return 0, 0, 0
	}

	for _, msg := range history {
		// ~4 chars per token + small per-message overhead
		currentTokens += int(math.Ceil(float64(len(msg.Content()))/4.0)) + 8
	}

	maxTokens = cd.estimateContextWindow(llmClient)
	if maxTokens <= 0 {
		return 0, 0, 0
	}

	percentage = int(math.Round(float64(currentTokens) * 100.0 / float64(maxTokens)))
	if percentage > 100 {
		percentage = 100
	}
	return currentTokens, maxTokens, percentage
}

// estimateContextWindow prefers the client's own figure and falls back to a
// guess from the client type.
func (cd *ContextDisplay) estimateContextWindow(llmClient domain.LLM) int {
	if p, ok := llmClient.(domain.ContextWindowProvider); ok && p.MaxContextTokens() > 0 {
		return p.MaxContextTokens()
	}
	clientType := fmt.Sprintf("%T", llmClient)

	switch {
	case strings.Contains(clientType, "anthropic"):
		return 200000
	case strings.Contains(clientType, "openai"):
		return 128000
	case strings.Contains(clientType, "gemini"):
		return 1000000
	default:
		return 32000 // Conservative fallback
	}
}

// FormatContextUsage renders a color-coded "Context: n/max (p%)" line.
func (cd *ContextDisplay) FormatContextUsage(history []message.Message, llmClient domain.LLM) string {
	currentTokens, maxTokens, percentage := cd.CalculateUsageDetails(history, llmClient)

	var colorCode string
	resetCode := "\033[0m"
	switch {
	case percentage < 50:
		colorCode = "\033[32m" // Green - low usage
	case percentage < 80:
		colorCode = "\033[33m" // Yellow - moderate usage
	default:
		colorCode = "\033[31m" // Red - high usage
	}
	return fmt.Sprintf("%sContext: %d/%d (%.1f%%)%s", colorCode, currentTokens, maxTokens, float64(percentage), resetCode)
}
