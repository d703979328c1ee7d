package jokes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timvw/joke-bot/internal/gateway"
	telem "github.com/timvw/joke-bot/internal/otel"
	"github.com/timvw/joke-bot/internal/prompt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("joke-bot/jokes")

// LoopConfig holds the dependencies of a Loop.
type LoopConfig struct {
	// Writer drafts jokes; Critic judges them. Both are required.
	Writer gateway.Gateway
	Critic gateway.Gateway
	// Templates are the writer and critic prompt configs.
	Templates prompt.Templates
	// MaxCritiques lowers the critique cap. Zero or anything above
	// MaxCritiques means MaxCritiques.
	MaxCritiques int
	// Logger receives step and outcome logs; nil disables logging.
	Logger *zap.Logger
	// Metrics receives joke counters; nil disables them.
	Metrics *telem.Metrics
}

// Loop runs the writer-critic state machine. A Loop holds no per-run state
// and is safe for concurrent use.
type Loop struct {
	writer    gateway.Gateway
	critic    gateway.Gateway
	templates prompt.Templates
	limit     int
	logger    *zap.Logger
	metrics   *telem.Metrics
}

// NewLoop creates a Loop from cfg.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Writer == nil || cfg.Critic == nil {
		return nil, errors.New("jokes: writer and critic gateways are required")
	}
	limit := cfg.MaxCritiques
	if limit <= 0 || limit > MaxCritiques {
		limit = MaxCritiques
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		writer:    cfg.Writer,
		critic:    cfg.Critic,
		templates: cfg.Templates,
		limit:     limit,
		logger:    logger,
		metrics:   cfg.Metrics,
	}, nil
}

// WriterPrompt builds the writer prompt for category and language.
func WriterPrompt(cfg prompt.TemplateConfig, category, language string) string {
	return prompt.Assemble(cfg, "") +
		fmt.Sprintf("\n\nGenerate a Joke of category %s & in language %s.", category, language)
}

// CriticPrompt builds the critic prompt judging draft.
func CriticPrompt(cfg prompt.TemplateConfig, draft string) string {
	return prompt.Assemble(cfg, draft)
}

// Run drafts and critiques jokes until the critic approves or the critique
// cap is reached. Any gateway failure aborts the run with *GenerationFailed.
func (l *Loop) Run(ctx context.Context, category, language string) (Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "joke.generate",
		trace.WithAttributes(
			attribute.String("joke.category", category),
			attribute.String("joke.language", language),
			attribute.String("joke.writer.model", l.writer.Model()),
			attribute.String("joke.critic.model", l.critic.Model()),
		),
	)
	defer span.End()

	log := l.logger.With(zap.String("category", category), zap.String("language", language))
	state := LoopState{Category: category, Language: language}

	step := Writing
	for !step.Terminal() {
		stage, run := StageWriting, l.write
		if step == Critiquing {
			stage, run = StageCritiquing, l.critique
		}
		if err := run(ctx, &state); err != nil {
			failed := &GenerationFailed{Stage: stage, Attempt: state.RetryCount + 1, Err: err}
			span.RecordError(failed)
			span.SetStatus(codes.Error, failed.Error())
			l.metrics.RecordFailure(ctx, string(stage))
			log.Warn("joke generation failed",
				zap.String("stage", string(stage)),
				zap.Int("attempt", failed.Attempt),
				zap.Error(err),
			)
			return Result{}, failed
		}
		if step == Writing {
			step = Critiquing
		} else {
			step = route(state, l.limit)
		}
	}

	outcome := OutcomeExhausted
	if step == Approved {
		outcome = OutcomeApproved
	}
	res := Result{
		Joke: Joke{
			Text:     state.LatestOutput,
			Category: state.Category,
			Language: state.Language,
		},
		Outcome:     outcome,
		Critiques:   state.RetryCount,
		WriterModel: l.writer.Model(),
		CriticModel: l.critic.Model(),
		GeneratedAt: time.Now(),
		DurationMs:  time.Since(start).Milliseconds(),
	}

	span.SetAttributes(
		attribute.String("joke.outcome", string(outcome)),
		attribute.Int("joke.critiques", res.Critiques),
	)
	l.metrics.RecordJoke(ctx, string(outcome), res.Critiques)
	log.Info("joke generated",
		zap.String("outcome", string(outcome)),
		zap.Int("critiques", res.Critiques),
		zap.Int64("duration_ms", res.DurationMs),
	)
	return res, nil
}

func (l *Loop) write(ctx context.Context, s *LoopState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "joke.write",
		trace.WithAttributes(attribute.Int("joke.attempt", s.RetryCount+1)))
	defer span.End()

	text, err := l.writer.Generate(ctx, WriterPrompt(l.templates.Writer, s.Category, s.Language))
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.LatestOutput = text
	l.logger.Debug("draft written",
		zap.String("stage", string(StageWriting)),
		zap.Int("attempt", s.RetryCount+1),
		zap.Int("length", len(text)),
	)
	return nil
}

func (l *Loop) critique(ctx context.Context, s *LoopState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "joke.critique",
		trace.WithAttributes(attribute.Int("joke.attempt", s.RetryCount+1)))
	defer span.End()

	decision, err := l.critic.Generate(ctx, CriticPrompt(l.templates.Critic, s.LatestOutput))
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.Approved = IsApproved(decision)
	s.RetryCount++

	span.SetAttributes(attribute.Bool("joke.approved", s.Approved))
	l.metrics.RecordCritique(ctx, s.Approved)
	l.logger.Debug("draft critiqued",
		zap.String("stage", string(StageCritiquing)),
		zap.Int("attempt", s.RetryCount),
		zap.Bool("approved", s.Approved),
	)
	return nil
}
