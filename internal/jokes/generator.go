package jokes

import (
	"context"
	"fmt"
	"strings"

	"github.com/timvw/joke-bot/internal/gateway"
	"github.com/timvw/joke-bot/internal/logging"
	telem "github.com/timvw/joke-bot/internal/otel"
	"github.com/timvw/joke-bot/internal/prompt"
	"go.uber.org/zap"
)

// Defaults applied to empty Request fields.
const (
	DefaultCategory = "general"
	DefaultLanguage = "English"
)

// GatewayFactory builds a Gateway from settings. gateway.New is the
// production factory.
type GatewayFactory func(s gateway.Settings) (gateway.Gateway, error)

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	// Factory builds the writer and critic gateways per request. Nil means
	// gateway.New.
	Factory GatewayFactory
	// Templates are handed to every Loop.
	Templates prompt.Templates

	Provider    string
	BaseURL     string
	MaxTokens   int64
	WriterModel string
	CriticModel string
	// APIKey is used when a Request carries none.
	APIKey string

	MaxCritiques int
	Logger       *zap.Logger
	Metrics      *telem.Metrics
}

// Generator implements the inbound call contract: one Request in, one
// Result out. Each call builds fresh gateways and a fresh Loop, so
// concurrent calls share nothing mutable.
type Generator struct {
	cfg GeneratorConfig
}

// NewGenerator creates a Generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Factory == nil {
		cfg.Factory = gateway.New
	}
	if cfg.Provider == "" {
		cfg.Provider = gateway.ProviderGroq
	}
	if cfg.WriterModel == "" {
		cfg.WriterModel = gateway.DefaultModel
	}
	if cfg.CriticModel == "" {
		cfg.CriticModel = cfg.WriterModel
	}
	cfg.Logger = logging.OrNop(cfg.Logger)
	return &Generator{cfg: cfg}
}

// Generate runs one writer-critic loop for req. Invalid requests fail with
// *ConfigurationError; gateway construction and call failures fail with
// *GenerationFailed.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	req, err := g.normalize(req)
	if err != nil {
		return Result{}, err
	}

	writer, err := g.cfg.Factory(g.settings(req.WriterModel, req.WriterTemperature, req.APIKey))
	if err != nil {
		g.cfg.Metrics.RecordFailure(ctx, string(StageSetup))
		return Result{}, &GenerationFailed{Stage: StageSetup, Err: fmt.Errorf("writer gateway: %w", err)}
	}
	critic, err := g.cfg.Factory(g.settings(req.CriticModel, req.CriticTemperature, req.APIKey))
	if err != nil {
		g.cfg.Metrics.RecordFailure(ctx, string(StageSetup))
		return Result{}, &GenerationFailed{Stage: StageSetup, Err: fmt.Errorf("critic gateway: %w", err)}
	}

	loop, err := NewLoop(LoopConfig{
		Writer:       writer,
		Critic:       critic,
		Templates:    g.cfg.Templates,
		MaxCritiques: g.cfg.MaxCritiques,
		Logger:       g.cfg.Logger,
		Metrics:      g.cfg.Metrics,
	})
	if err != nil {
		return Result{}, &GenerationFailed{Stage: StageSetup, Err: err}
	}
	return loop.Run(ctx, req.Category, req.Language)
}

func (g *Generator) normalize(req Request) (Request, error) {
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		req.Category = DefaultCategory
	}
	req.Language = strings.TrimSpace(req.Language)
	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	if !validTemperature(req.WriterTemperature) {
		return req, &ConfigurationError{Field: "writer_temperature", Reason: fmt.Sprintf("%v is outside [0, 1]", req.WriterTemperature)}
	}
	if !validTemperature(req.CriticTemperature) {
		return req, &ConfigurationError{Field: "critic_temperature", Reason: fmt.Sprintf("%v is outside [0, 1]", req.CriticTemperature)}
	}
	if req.WriterModel == "" {
		req.WriterModel = g.cfg.WriterModel
	}
	if req.CriticModel == "" {
		req.CriticModel = g.cfg.CriticModel
	}
	if req.APIKey == "" {
		req.APIKey = g.cfg.APIKey
	}
	return req, nil
}

func (g *Generator) settings(model string, temperature float64, apiKey string) gateway.Settings {
	return gateway.Settings{
		Provider:    g.cfg.Provider,
		Model:       model,
		Temperature: temperature,
		APIKey:      apiKey,
		BaseURL:     g.cfg.BaseURL,
		MaxTokens:   g.cfg.MaxTokens,
		Metrics:     g.cfg.Metrics,
	}
}

func validTemperature(t float64) bool {
	return t >= 0 && t <= 1
}
