package anthropic

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

const (
	defaultMaxTokens = 8192
)

var anthropicLogger = pkgLogger.NewComponentLogger("anthropic-client")

// AnthropicClient handles communication with Claude models
type AnthropicClient struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int

	mu        sync.Mutex
	lastUsage message.TokenUsage
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(model string) (*AnthropicClient, error) {
	return NewAnthropicClientWithTokens(model, 0) // 0 = use default
}

// NewAnthropicClientWithTokens creates a new Anthropic client with configurable maxTokens
func NewAnthropicClientWithTokens(model string, maxTokens int) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicClient{
		client:    &client,
		model:     getAnthropicModel(model),
		maxTokens: maxTokens,
	}, nil
}

// ModelID implements domain.LLM
func (c *AnthropicClient) ModelID() string { return string(c.model) }

// MaxContextTokens implements domain.ContextWindowProvider
func (c *AnthropicClient) MaxContextTokens() int {
	return getModelContextWindow(string(c.model))
}

// LastTokenUsage implements domain.TokenUsageProvider
func (c *AnthropicClient) LastTokenUsage() (message.TokenUsage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastUsage.InputTokens != 0 || c.lastUsage.OutputTokens != 0 {
		return c.lastUsage, true
	}
	return message.TokenUsage{}, false
}

// Chat streams a reply and returns the accumulated text
func (c *AnthropicClient) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	anthropicMessages, system := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Messages:  anthropicMessages,
		Model:     c.model,
		System:    system,
	}

	stream := c.client.Messages.NewStreaming(ctx, params)

	// Use Message.Accumulate pattern for proper streaming handling
	var acc anthropic.Message
	for stream.Next() {
		if err := acc.Accumulate(stream.Current()); err != nil {
			return nil, errors.Wrap(err, "failed to accumulate streaming event")
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrap(err, "anthropic streaming error")
	}

	var content strings.Builder
	for _, block := range acc.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}
	if content.Len() == 0 {
		return nil, errors.New("no text content in Anthropic response")
	}

	usage := message.TokenUsage{
		InputTokens:  int(acc.Usage.InputTokens),
		OutputTokens: int(acc.Usage.OutputTokens),
		TotalTokens:  int(acc.Usage.InputTokens + acc.Usage.OutputTokens),
	}
	c.mu.Lock()
	c.lastUsage = usage
	c.mu.Unlock()
	anthropicLogger.DebugWithIntention(pkgLogger.IntentionModel, "Anthropic API usage",
		"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens, "model", c.model)

	reply := message.NewAssistantMessage(content.String())
	reply.SetTokenUsage(usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	return reply, nil
}
