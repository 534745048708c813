package gemini

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

var geminiLogger = pkgLogger.NewComponentLogger("gemini-client")

// GeminiClient is a text-only Gemini chat client.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int

	mu        sync.Mutex
	lastUsage message.TokenUsage
}

// NewGeminiClient creates a new Gemini client with the specified model
func NewGeminiClient(model string) (*GeminiClient, error) {
	return NewGeminiClientWithTokens(model, 0) // 0 = use default
}

// NewGeminiClientWithTokens creates a new Gemini client with configurable maxTokens
func NewGeminiClientWithTokens(model string, maxTokens int) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	geminiModel := getGeminiModel(model)
	if maxTokens <= 0 {
		maxTokens = getModelCapabilities(geminiModel).MaxTokens
	}

	return &GeminiClient{
		client:    client,
		model:     geminiModel,
		maxTokens: maxTokens,
	}, nil
}

// ModelID implements domain.LLM
func (c *GeminiClient) ModelID() string { return c.model }

// MaxContextTokens implements domain.ContextWindowProvider
func (c *GeminiClient) MaxContextTokens() int {
	return getModelCapabilities(c.model).MaxContextWindow
}

// LastTokenUsage implements domain.TokenUsageProvider
func (c *GeminiClient) LastTokenUsage() (message.TokenUsage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastUsage.TotalTokens != 0 || c.lastUsage.InputTokens != 0 {
		return c.lastUsage, true
	}
	return message.TokenUsage{}, false
}

// Chat sends the conversation and returns the reply text
func (c *GeminiClient) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	contents, systemInstruction := toGeminiContents(messages)

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, errors.Wrap(err, "Gemini API call failed")
	}

	var usage message.TokenUsage
	if resp.UsageMetadata != nil {
		usage = message.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
		c.mu.Lock()
		c.lastUsage = usage
		c.mu.Unlock()

		geminiLogger.DebugWithIntention(pkgLogger.IntentionModel, "Gemini API usage",
			"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens, "total_tokens", usage.TotalTokens, "model", c.model)
		if pct := float64(usage.OutputTokens) / float64(c.maxTokens) * 100; pct > 90 {
			geminiLogger.Warn("Very high token usage - potential truncation risk!", "percent", fmt.Sprintf("%.1f", pct))
		}
	}

	if len(resp.Candidates) == 0 {
		return nil, errors.New("no response from Gemini")
	}
	text := resp.Text()
	if text == "" {
		return nil, errors.New("empty response from Gemini")
	}

	reply := message.NewAssistantMessage(text)
	reply.SetTokenUsage(usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	return reply, nil
}
