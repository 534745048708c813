package openai

import (
	"context"
	"os"
	"sync"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkg/errors"

	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

const defaultReasoningEffort = shared.ReasoningEffortLow // Default reasoning effort for OpenAI models

var openaiLogger = pkgLogger.NewComponentLogger("openai-client")

// OpenAIClient is a text-only client on the Responses API.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int

	mu        sync.Mutex
	lastUsage message.TokenUsage
}

// NewOpenAIClient creates a new OpenAI client with configurable maxTokens
// maxTokens = 0 means default. baseURL overrides OPENAI_BASE_URL when set.
func NewOpenAIClient(model string, maxTokens int, baseURL string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}

	// Support custom base URL (for Azure OpenAI, etc.)
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	openaiModel := getOpenAIModel(model)
	if maxTokens <= 0 {
		maxTokens = getModelCapabilities(openaiModel).MaxTokens
	}

	return &OpenAIClient{
		client:    &client,
		model:     openaiModel,
		maxTokens: maxTokens,
	}, nil
}

// ModelID implements domain.LLM
func (c *OpenAIClient) ModelID() string { return c.model }

// MaxContextTokens implements domain.ContextWindowProvider
func (c *OpenAIClient) MaxContextTokens() int {
	return getModelCapabilities(c.model).MaxContextWindow
}

// LastTokenUsage implements domain.TokenUsageProvider
func (c *OpenAIClient) LastTokenUsage() (message.TokenUsage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastUsage.InputTokens != 0 || c.lastUsage.OutputTokens != 0 || c.lastUsage.TotalTokens != 0 {
		return c.lastUsage, true
	}
	return message.TokenUsage{}, false
}

// Chat sends the conversation to the Responses API and returns the output text
func (c *OpenAIClient) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	params := responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: toResponsesInput(messages),
		},
		Model: shared.ChatModel(c.model),
	}
	if c.maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(c.maxTokens))
	}
	if getModelCapabilities(c.model).SupportsThinking {
		params.Reasoning = shared.ReasoningParam{
			Effort: defaultReasoningEffort,
		}
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "Responses API call failed")
	}

	usage := message.TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	c.mu.Lock()
	c.lastUsage = usage
	c.mu.Unlock()
	openaiLogger.DebugWithIntention(pkgLogger.IntentionModel, "OpenAI API usage",
		"input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens, "model", c.model)

	outputText := resp.OutputText()
	if outputText == "" {
		return nil, errors.Errorf("empty response from Responses API (response %s, %d output items)", resp.ID, len(resp.Output))
	}

	reply := message.NewAssistantMessage(outputText)
	reply.SetTokenUsage(usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	return reply, nil
}
