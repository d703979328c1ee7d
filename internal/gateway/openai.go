package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	telem "github.com/timvw/joke-bot/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OpenAI generates text through an OpenAI-compatible Chat Completions API.
// Works with OpenAI, Groq, Azure OpenAI and any compatible endpoint.
type OpenAI struct {
	client      openai.Client
	provider    string
	model       string
	temperature float64
	maxTokens   int64
	metrics     *telem.Metrics
}

// NewOpenAI creates an OpenAI-compatible gateway. Use New to get provider
// defaults and model validation.
func NewOpenAI(s Settings) *OpenAI {
	opts := []option.RequestOption{option.WithMaxRetries(0)}

	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	if s.APIKey != "" {
		opts = append(opts, option.WithAPIKey(s.APIKey))
	}
	for k, v := range s.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	provider := s.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		provider:    provider,
		model:       s.Model,
		temperature: s.Temperature,
		maxTokens:   maxTokens,
		metrics:     s.Metrics,
	}
}

// Provider returns the provider name ("openai" or "groq").
func (g *OpenAI) Provider() string {
	return g.provider
}

// Model returns the model name.
func (g *OpenAI) Model() string {
	return g.model
}

// Generate sends prompt as a single user message and returns the reply.
func (g *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	// GenAI generation span, "{operation} {model}".
	ctx, span := tracer.Start(ctx, "chat "+g.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", g.provider),
			attribute.String("gen_ai.request.model", g.model),
			attribute.Int64("gen_ai.request.max_tokens", g.maxTokens),
			attribute.Float64("gen_ai.request.temperature", g.temperature),

			// Langfuse-specific: ensure this shows as a "generation"
			attribute.String("langfuse.observation.type", "generation"),
		),
	)
	defer span.End()

	recordInput(span, prompt)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(g.temperature),
		MaxCompletionTokens: openai.Int(g.maxTokens),
	})
	if err != nil {
		err = classify(g.provider, err)
		span.SetAttributes(attribute.String("error.type", resultLabel(err)))
		g.metrics.RecordCall(ctx, g.provider, g.model, resultLabel(err))
		return "", err
	}

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		g.metrics.RecordCall(ctx, g.provider, g.model, "transient")
		return "", fmt.Errorf("%s API returned empty response: %w", g.provider, ErrTransient)
	}

	text := resp.Choices[0].Message.Content

	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.String("gen_ai.response.id", resp.ID),
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
	)
	if resp.Choices[0].FinishReason != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{string(resp.Choices[0].FinishReason)}))
	}
	recordOutput(span, text)

	g.metrics.RecordCall(ctx, g.provider, g.model, "ok")
	g.metrics.RecordTokens(ctx, g.provider, g.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return text, nil
}

// ListModels returns the model IDs visible to the configured API key.
func (g *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	page, err := g.client.Models.List(ctx)
	if err != nil {
		return nil, classify(g.provider, err)
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// recordInput attaches the prompt as gen_ai.input.messages.
func recordInput(span trace.Span, prompt string) {
	msgs := []map[string]string{{"role": "user", "content": prompt}}
	if b, err := json.Marshal(msgs); err == nil {
		span.SetAttributes(attribute.String("gen_ai.input.messages", string(b)))
	}
}

// recordOutput attaches the reply as gen_ai.output.messages.
func recordOutput(span trace.Span, text string) {
	msgs := []map[string]string{{"role": "assistant", "content": text}}
	if b, err := json.Marshal(msgs); err == nil {
		span.SetAttributes(attribute.String("gen_ai.output.messages", string(b)))
	}
}
