package gateway

import (
	"context"
	"fmt"
	"net/http"

	telem "github.com/timvw/joke-bot/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// Gemini generates text using Google's Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int64
	metrics     *telem.Metrics
}

// NewGemini creates a Gemini gateway.
func NewGemini(s Settings) (*Gemini, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w: API key is required", ErrAuthentication)
	}

	cfg := &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = s.BaseURL
	}
	if len(s.ExtraHeaders) > 0 {
		cfg.HTTPOptions.Headers = http.Header{}
		for k, v := range s.ExtraHeaders {
			cfg.HTTPOptions.Headers.Set(k, v)
		}
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Gemini{
		client:      client,
		model:       s.Model,
		temperature: s.Temperature,
		maxTokens:   maxTokens,
		metrics:     s.Metrics,
	}, nil
}

// Provider returns "gemini".
func (g *Gemini) Provider() string {
	return ProviderGemini
}

// Model returns the model name.
func (g *Gemini) Model() string {
	return g.model
}

// Generate sends prompt as a single user turn.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "generate_content "+g.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "generate_content"),
			attribute.String("gen_ai.provider.name", ProviderGemini),
			attribute.String("gen_ai.request.model", g.model),
			attribute.Int64("gen_ai.request.max_tokens", g.maxTokens),
			attribute.Float64("gen_ai.request.temperature", g.temperature),
			attribute.String("langfuse.observation.type", "generation"),
		),
	)
	defer span.End()

	recordInput(span, prompt)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.temperature)),
		MaxOutputTokens: int32(g.maxTokens),
	})
	if err != nil {
		err = classify(ProviderGemini, err)
		span.SetAttributes(attribute.String("error.type", resultLabel(err)))
		g.metrics.RecordCall(ctx, ProviderGemini, g.model, resultLabel(err))
		return "", err
	}

	text := resp.Text()
	if text == "" {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		g.metrics.RecordCall(ctx, ProviderGemini, g.model, "transient")
		return "", fmt.Errorf("gemini API returned empty response: %w", ErrTransient)
	}

	var input, output int64
	if u := resp.UsageMetadata; u != nil {
		input = int64(u.PromptTokenCount)
		output = int64(u.CandidatesTokenCount)
	}
	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.ModelVersion),
		attribute.Int64("gen_ai.usage.input_tokens", input),
		attribute.Int64("gen_ai.usage.output_tokens", output),
	)
	recordOutput(span, text)

	g.metrics.RecordCall(ctx, ProviderGemini, g.model, "ok")
	g.metrics.RecordTokens(ctx, ProviderGemini, g.model, input, output)

	return text, nil
}

// ListModels returns the model names visible to the configured API key.
func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	page, err := g.client.Models.List(ctx, &genai.ListModelsConfig{})
	if err != nil {
		return nil, classify(ProviderGemini, err)
	}
	names := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		names = append(names, m.Name)
	}
	return names, nil
}
