package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// GoogleProvider implements the Provider interface for Google Gemini.
type GoogleProvider struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGoogleProvider creates a new Gemini provider. With an empty API key
// the client falls back to application default credentials.
func NewGoogleProvider(ctx context.Context, options ProviderOptions) (Provider, error) {
	clientConfig := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  options.APIKey,
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Google GenAI client")
	}

	model := options.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &GoogleProvider{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the provider identifier.
func (p *GoogleProvider) Name() string { return "google" }

// Complete sends a single-turn request to Gemini.
func (p *GoogleProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	var resp *genai.GenerateContentResponse
	err := completeWithRetry(ctx, p.Name(), googleRetryable, func() error {
		var apiErr error
		resp, apiErr = p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
		return apiErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "gemini completion failed")
	}

	var content strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				content.WriteString(part.Text)
			}
		}
		break
	}

	response := &Response{Content: content.String()}
	if resp.UsageMetadata != nil {
		response.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return response, nil
}

func googleRetryable(err error) bool {
	// The SDK surfaces APIError both as a value and behind a pointer
	// depending on the call path.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableStatus(apiErrPtr.Code)
	}
	return false
}
