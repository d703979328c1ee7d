// Package gateway sends prompts to hosted language models.
//
// A Gateway is bound at construction to one provider, one model, one
// temperature and one credential. It performs exactly one upstream call per
// Generate and never retries; callers decide what a failure means.
package gateway

import (
	"context"
	"fmt"
	"strings"

	telem "github.com/timvw/joke-bot/internal/otel"
	"go.opentelemetry.io/otel"
)

// Gateway sends a prompt to a language model and returns the generated text.
type Gateway interface {
	// Generate sends the prompt and returns the model's text response.
	Generate(ctx context.Context, prompt string) (string, error)

	// Provider returns the provider name (e.g., "groq", "anthropic").
	Provider() string

	// Model returns the model identifier.
	Model() string
}

// ModelLister is implemented by gateways that can list the models visible to
// their credential. Listing is the cheapest authenticated call every provider
// offers, so it doubles as a credential check.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Supported providers.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

const defaultMaxTokens = 1024

// Settings configures one Gateway.
type Settings struct {
	// Provider is one of the Provider* constants.
	Provider string
	// Model is the model identifier.
	Model string
	// Temperature is the sampling temperature in [0, 1].
	Temperature float64
	// APIKey is passed through to the provider untouched.
	APIKey string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// MaxTokens caps the response length. Zero means 1024.
	MaxTokens int64
	// ExtraHeaders are additional HTTP headers (e.g., "api-key" for Azure).
	ExtraHeaders map[string]string
	// Metrics receives token and call counters; nil disables them.
	Metrics *telem.Metrics
}

var tracer = otel.Tracer("joke-bot/gateway")

// New builds the Gateway for s.Provider. It fails with ErrUnsupportedModel
// when the model is not recognized for the provider and with
// ErrInvalidTemperature when the temperature is outside [0, 1].
func New(s Settings) (Gateway, error) {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if !KnownProvider(s.Provider) {
		return nil, fmt.Errorf("unknown provider %q (supported: %s)", s.Provider, strings.Join(Providers(), ", "))
	}
	if !(s.Temperature >= 0 && s.Temperature <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemperature, s.Temperature)
	}
	if !Supported(s.Provider, s.Model) {
		return nil, &UnsupportedModelError{Provider: s.Provider, Model: s.Model}
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultMaxTokens
	}

	switch s.Provider {
	case ProviderGroq:
		if s.BaseURL == "" {
			s.BaseURL = GroqBaseURL
		}
		return NewOpenAI(s), nil
	case ProviderOpenAI:
		return NewOpenAI(s), nil
	case ProviderAnthropic:
		return NewAnthropic(s), nil
	default:
		return NewGemini(s)
	}
}
