package client

import (
	"fmt"
	"os"

	"github.com/fpt/cobrowse/internal/config"
	"github.com/fpt/cobrowse/pkg/agent/domain"
	"github.com/fpt/cobrowse/pkg/client/anthropic"
	"github.com/fpt/cobrowse/pkg/client/gemini"
	"github.com/fpt/cobrowse/pkg/client/ollama"
	"github.com/fpt/cobrowse/pkg/client/openai"
)

// NewLLMClient creates an LLM client based on settings. A backend whose
// credential is missing from the environment fails with config.ErrAPIKeyMissing.
func NewLLMClient(settings config.LLMSettings) (domain.LLM, error) {
	if env := config.APIKeyEnv(settings.Backend); env != "" && os.Getenv(env) == "" {
		return nil, fmt.Errorf("%w: set %s environment variable", config.ErrAPIKeyMissing, env)
	}

	switch settings.Backend {
	case "anthropic", "claude":
		return anthropic.NewAnthropicClientWithTokens(settings.Model, settings.MaxTokens)
	case "openai":
		return openai.NewOpenAIClient(settings.Model, settings.MaxTokens, settings.BaseURL)
	case "gemini":
		return gemini.NewGeminiClientWithTokens(settings.Model, settings.MaxTokens)
	case "ollama":
		return ollama.NewOllamaClient(settings.Model, settings.MaxTokens, settings.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", settings.Backend)
	}
}
