package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(options ProviderOptions) (Provider, error) {
	if options.APIKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable is required")
	}

	model := options.Model
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(option.WithAPIKey(options.APIKey)),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete sends a single-turn request to Claude.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	var resp *anthropic.Message
	err := completeWithRetry(ctx, p.Name(), anthropicRetryable, func() error {
		var apiErr error
		resp, apiErr = p.client.Messages.New(ctx, params)
		return apiErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "anthropic completion failed")
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	return &Response{
		Content: content.String(),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

func anthropicRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}
	return false
}
