// Package llm provides a provider-agnostic interface for the LLM calls
// the media actions make: speaker identification, paragraph breaking,
// concept extraction, summaries, and audio transcription.
package llm

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jlevy/kash-media/pkg/logger"
)

// ErrInvalidOutput indicates the model returned output the caller could
// not use (unparseable JSON, empty completion, wrong shape).
var ErrInvalidOutput = errors.New("invalid model output")

// Request is a single-turn completion request.
type Request struct {
	System    string
	Prompt    string
	Model     string // overrides the provider default when set
	MaxTokens int    // overrides the provider default when > 0
}

// Usage tracks token consumption for a completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the model's completion.
type Response struct {
	Content string
	Usage   Usage
}

// Provider defines the interface for LLM provider implementations.
type Provider interface {
	// Name returns the provider identifier ("anthropic", "openai", "google").
	Name() string

	// Complete sends a single-turn request and returns the completion.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ProviderOptions contains configuration options for LLM providers.
type ProviderOptions struct {
	Model     string
	MaxTokens int
	APIKey    string
}

// NewProvider creates a provider by name.
func NewProvider(ctx context.Context, providerName string, options ProviderOptions) (Provider, error) {
	switch strings.ToLower(providerName) {
	case "anthropic":
		return NewAnthropicProvider(options)
	case "openai":
		return NewOpenAIProvider(options)
	case "google", "gemini":
		return NewGoogleProvider(ctx, options)
	default:
		return nil, errors.Errorf("unsupported provider: %s", providerName)
	}
}

// FromConfig builds the configured provider from viper settings
// (llm.provider, llm.model, llm.max_tokens) and provider API key
// environment variables.
func FromConfig(ctx context.Context) (Provider, error) {
	providerName := viper.GetString("llm.provider")
	if providerName == "" {
		providerName = "anthropic"
	}
	options := ProviderOptions{
		Model:     viper.GetString("llm.model"),
		MaxTokens: viper.GetInt("llm.max_tokens"),
		APIKey:    apiKeyFor(providerName),
	}
	return NewProvider(ctx, providerName, options)
}

func apiKeyFor(providerName string) string {
	switch strings.ToLower(providerName) {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "google", "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}

const (
	retryAttempts     = 3
	retryInitialDelay = 500 * time.Millisecond
	retryMaxDelay     = 8 * time.Second
)

// completeWithRetry runs an API call with exponential backoff, retrying
// only errors retryIf classifies as transient (rate limits, 5xx).
func completeWithRetry(ctx context.Context, providerName string, retryIf retry.RetryIfFunc, fn func() error) error {
	return retry.Do(
		fn,
		retry.RetryIf(retryIf),
		retry.Attempts(retryAttempts),
		retry.Delay(retryInitialDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("provider", providerName).
				WithField("attempt", n+1).
				Warn("retrying LLM API call")
		}),
	)
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(statusCode int) bool {
	return statusCode == 429 || statusCode >= 500
}
