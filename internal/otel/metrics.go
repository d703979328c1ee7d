package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "joke-bot"

// Metrics holds all OTEL metric instruments for joke-bot.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// LLM token counters (partitioned by provider + model via attributes)
	InputTokens  metric.Int64Counter
	OutputTokens metric.Int64Counter

	// LLM call counters (partitioned by role + result)
	ModelCalls metric.Int64Counter

	// Writer-critic loop counters
	Jokes     metric.Int64Counter // by outcome: approved, exhausted
	Critiques metric.Int64Counter // by verdict: approved, rejected
	Failures  metric.Int64Counter // by stage: setup, writing, critiquing

	// Critic evaluations needed per joke
	CritiquesPerJoke metric.Int64Histogram
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	// --- LLM token counters ---

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total LLM input tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total LLM output tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.ModelCalls, err = meter.Int64Counter("llm.calls",
		metric.WithDescription("LLM calls partitioned by provider, model and result"))
	if err != nil {
		return nil, err
	}

	// --- Loop counters ---

	m.Jokes, err = meter.Int64Counter("jokes.generated",
		metric.WithDescription("Jokes returned, partitioned by outcome (approved, exhausted)"))
	if err != nil {
		return nil, err
	}

	m.Critiques, err = meter.Int64Counter("jokes.critiques",
		metric.WithDescription("Critic evaluations, partitioned by verdict (approved, rejected)"))
	if err != nil {
		return nil, err
	}

	m.Failures, err = meter.Int64Counter("jokes.failures",
		metric.WithDescription("Aborted generations, partitioned by stage (setup, writing, critiquing)"))
	if err != nil {
		return nil, err
	}

	m.CritiquesPerJoke, err = meter.Int64Histogram("jokes.critiques_per_joke",
		metric.WithDescription("Critic evaluations needed before a joke was returned"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTokens records LLM token usage on the metric counters.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
}

// RecordCall records one LLM call. result is "ok" or an error class.
func (m *Metrics) RecordCall(ctx context.Context, provider, model, result string) {
	if m == nil {
		return
	}
	m.ModelCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
		attribute.String("llm.result", result),
	))
}

// RecordCritique records one critic verdict.
func (m *Metrics) RecordCritique(ctx context.Context, approved bool) {
	if m == nil {
		return
	}
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	m.Critiques.Add(ctx, 1, metric.WithAttributes(
		attribute.String("critique.verdict", verdict),
	))
}

// RecordJoke records a finished loop with its outcome and critique count.
func (m *Metrics) RecordJoke(ctx context.Context, outcome string, critiques int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("joke.outcome", outcome))
	m.Jokes.Add(ctx, 1, attrs)
	m.CritiquesPerJoke.Record(ctx, int64(critiques), attrs)
}

// RecordFailure records an aborted generation at the given stage.
func (m *Metrics) RecordFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.Failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("joke.stage", stage),
	))
}
