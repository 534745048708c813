package ollama

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"

	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

const temperature = 0.1 // Default temperature for Ollama chat requests

var logger = pkgLogger.NewComponentLogger("ollama-client")

// OllamaClient is a text-only client for a local Ollama server.
type OllamaClient struct {
	client    *api.Client
	model     string
	maxTokens int

	mu        sync.Mutex
	lastUsage message.TokenUsage
}

// NewOllamaClient creates a client for model. An empty baseURL uses
// OLLAMA_HOST or the default local address.
func NewOllamaClient(model string, maxTokens int, baseURL string) (*OllamaClient, error) {
	var client *api.Client
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid Ollama base URL")
		}
		client = api.NewClient(u, http.DefaultClient)
	} else {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Ollama client")
		}
		client = c
	}

	if maxTokens <= 0 {
		maxTokens = 4096 // Default for Ollama models
	}

	return &OllamaClient{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// ModelID implements domain.LLM
func (c *OllamaClient) ModelID() string { return c.model }

// MaxContextTokens implements domain.ContextWindowProvider
func (c *OllamaClient) MaxContextTokens() int {
	return GetModelContextWindow(c.model)
}

// LastTokenUsage implements domain.TokenUsageProvider
func (c *OllamaClient) LastTokenUsage() (message.TokenUsage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastUsage.InputTokens != 0 || c.lastUsage.OutputTokens != 0 {
		return c.lastUsage, true
	}
	return message.TokenUsage{}, false
}

// Chat streams the reply and returns the accumulated content. Thinking
// tokens are dropped.
func (c *OllamaClient) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: toOllamaMessages(messages),
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": c.maxTokens,
		},
	}

	var content strings.Builder
	var usage message.TokenUsage
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			// prompt_eval_count / eval_count may be zero if the backend doesn't supply them
			usage.InputTokens = int(resp.PromptEvalCount)
			usage.OutputTokens = int(resp.EvalCount)
			usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "ollama chat error")
	}

	c.mu.Lock()
	c.lastUsage = usage
	c.mu.Unlock()
	logger.DebugWithIntention(pkgLogger.IntentionModel, "Ollama usage",
		"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens, "model", c.model)

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, errors.New("empty response from Ollama")
	}
	reply := message.NewAssistantMessage(text)
	reply.SetTokenUsage(usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	return reply, nil
}
