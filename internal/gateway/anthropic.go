package gateway

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	telem "github.com/timvw/joke-bot/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Anthropic generates text using the Anthropic Messages API.
// Works with both direct Anthropic API and Azure AI Foundry.
type Anthropic struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
	metrics     *telem.Metrics
}

// NewAnthropic creates an Anthropic gateway.
func NewAnthropic(s Settings) *Anthropic {
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

	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		model:       s.Model,
		temperature: s.Temperature,
		maxTokens:   maxTokens,
		metrics:     s.Metrics,
	}
}

// Provider returns "anthropic".
func (g *Anthropic) Provider() string {
	return ProviderAnthropic
}

// Model returns the model name.
func (g *Anthropic) Model() string {
	return g.model
}

// Generate sends prompt as a single user message and returns the text of
// the first content block.
func (g *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "chat "+g.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", ProviderAnthropic),
			attribute.String("gen_ai.request.model", g.model),
			attribute.Int64("gen_ai.request.max_tokens", g.maxTokens),
			attribute.Float64("gen_ai.request.temperature", g.temperature),
			attribute.String("langfuse.observation.type", "generation"),
		),
	)
	defer span.End()

	recordInput(span, prompt)

	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(g.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		err = classify(ProviderAnthropic, err)
		span.SetAttributes(attribute.String("error.type", resultLabel(err)))
		g.metrics.RecordCall(ctx, ProviderAnthropic, g.model, resultLabel(err))
		return "", err
	}

	if len(resp.Content) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		g.metrics.RecordCall(ctx, ProviderAnthropic, g.model, "transient")
		return "", fmt.Errorf("anthropic API returned empty response: %w", ErrTransient)
	}

	text := resp.Content[0].Text

	span.SetAttributes(
		attribute.String("gen_ai.response.model", string(resp.Model)),
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)
	if string(resp.StopReason) != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{string(resp.StopReason)}))
	}
	recordOutput(span, text)

	g.metrics.RecordCall(ctx, ProviderAnthropic, g.model, "ok")
	g.metrics.RecordTokens(ctx, ProviderAnthropic, g.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	return text, nil
}

// ListModels returns the model IDs visible to the configured API key.
func (g *Anthropic) ListModels(ctx context.Context) ([]string, error) {
	page, err := g.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, classify(ProviderAnthropic, err)
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
