package llm

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIProvider creates a new OpenAI provider. OPENAI_API_BASE
// overrides the endpoint for compatible gateways.
func NewOpenAIProvider(options ProviderOptions) (Provider, error) {
	if options.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required")
	}

	model := options.Model
	if model == "" {
		model = openai.GPT4o
	}
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &OpenAIProvider{
		client:    newOpenAIClient(options.APIKey),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends a single-turn chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	params := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	var resp openai.ChatCompletionResponse
	err := completeWithRetry(ctx, p.Name(), openaiRetryable, func() error {
		var apiErr error
		resp, apiErr = p.client.CreateChatCompletion(ctx, params)
		return apiErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai completion failed")
	}

	if len(resp.Choices) == 0 {
		return nil, errors.Wrap(ErrInvalidOutput, "openai returned no choices")
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func newOpenAIClient(apiKey string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_API_BASE"); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func openaiRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}
