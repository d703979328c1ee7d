package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/timvw/joke-bot/internal/config"
	"github.com/timvw/joke-bot/internal/gateway"
	"github.com/timvw/joke-bot/internal/jokes"
	"github.com/timvw/joke-bot/internal/logging"
	telem "github.com/timvw/joke-bot/internal/otel"
	"github.com/timvw/joke-bot/internal/prompt"
	"go.uber.org/zap"
)

// Version is injected by the linker.
var Version = "dev"

var (
	// Global flags.
	flagProvider    string
	flagWriterModel string
	flagCriticModel string
	flagBaseURL     string
	flagAPIKey      string
	flagMaxTokens   int64
	flagPrompts     string
	flagLogLevel    string
	flagLogFormat   string
	flagVerbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "joke-bot",
	Short: "Writer-critic joke generator backed by hosted language models",
	Long: `joke-bot asks one language model to write a joke for a category and a
language, and a second call to judge whether it is funny. Rejected drafts
are rewritten up to five times; the last draft is returned either way.

Run a single generation with "joke", many with "batch", or serve the web
front end with "serve". "tui" opens the interactive terminal version.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider: groq, openai, anthropic, gemini (default: groq)")
	rootCmd.PersistentFlags().StringVar(&flagWriterModel, "writer-model", "", "model that writes jokes (default: "+gateway.DefaultModel+")")
	rootCmd.PersistentFlags().StringVar(&flagCriticModel, "critic-model", "", "model that judges jokes (default: the writer model)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override LLM API base URL")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "override LLM API key")
	rootCmd.PersistentFlags().Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens per call (default: 512)")
	rootCmd.PersistentFlags().StringVar(&flagPrompts, "prompts", "", "YAML file with writer and critic templates (default: built-in)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console, json")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "shorthand for --log-level=debug")
}

// loadConfig reads the config file and environment, then applies flags that
// were set explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = flagProvider
		// The key found for the configured provider rarely works for another.
		if !flags.Changed("api-key") && os.Getenv("JOKE_BOT_API_KEY") == "" {
			cfg.APIKey = config.ProviderAPIKey(cfg.Provider)
		}
	}
	if flags.Changed("writer-model") {
		cfg.WriterModel = flagWriterModel
		if !flags.Changed("critic-model") {
			cfg.CriticModel = flagWriterModel
		}
	}
	if flags.Changed("critic-model") {
		cfg.CriticModel = flagCriticModel
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = flagBaseURL
	}
	if flags.Changed("api-key") {
		cfg.APIKey = flagAPIKey
	}
	if flags.Changed("max-tokens") {
		cfg.MaxTokens = flagMaxTokens
	}
	if flags.Changed("prompts") {
		cfg.PromptsFile = flagPrompts
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app bundles what every generating command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	tel    *telem.Telemetry
	gen    *jokes.Generator
}

// setup loads configuration and builds the logger, telemetry and generator.
// adjust runs on the loaded config before anything is built. Callers must
// defer close.
func setup(cmd *cobra.Command, adjust ...func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	for _, fn := range adjust {
		fn(cfg)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	if cfg.ConfigFile != "" {
		logger.Debug("loaded config", zap.String("file", cfg.ConfigFile))
	}

	templates, err := prompt.LoadTemplates(cfg.PromptsFile)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	telem.Version = Version
	tel, err := telem.Init(cmd.Context(), telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	if tel.Enabled() {
		logger.Info("exporting telemetry", zap.String("endpoint", cfg.OTELEndpoint))
	}

	gen := jokes.NewGenerator(jokes.GeneratorConfig{
		Factory:      gatewayFactory,
		Templates:    templates,
		Provider:     cfg.Provider,
		BaseURL:      cfg.BaseURL,
		MaxTokens:    cfg.MaxTokens,
		WriterModel:  cfg.WriterModel,
		CriticModel:  cfg.CriticModel,
		APIKey:       cfg.APIKey,
		MaxCritiques: cfg.MaxCritiques,
		Logger:       logger,
		Metrics:      tel.Metrics,
	})

	return &app{cfg: cfg, logger: logger, tel: tel, gen: gen}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.tel.Shutdown(ctx)
	_ = a.logger.Sync()
}

// request builds a generation request from the configured defaults.
func (a *app) request(category, language string) jokes.Request {
	return jokes.Request{
		Category:          category,
		Language:          language,
		WriterTemperature: a.cfg.WriterTemperature,
		CriticTemperature: a.cfg.CriticTemperature,
	}
}

// gatewayFactory is gateway.New plus the Azure "api-key" header. Azure AI
// Foundry wants it next to the SDK's own auth header.
func gatewayFactory(s gateway.Settings) (gateway.Gateway, error) {
	if s.APIKey != "" && config.IsAzureEndpoint(s.BaseURL) {
		headers := make(map[string]string, len(s.ExtraHeaders)+1)
		for k, v := range s.ExtraHeaders {
			headers[k] = v
		}
		headers["api-key"] = s.APIKey
		s.ExtraHeaders = headers
	}
	return gatewayFactoryFunc(s)
}

// gatewayFactoryFunc is swapped in tests.
var gatewayFactoryFunc = gateway.New

// keyValidator checks a key by listing the writer model's provider models.
func (a *app) keyValidator() func(ctx context.Context, apiKey string) error {
	return func(ctx context.Context, apiKey string) error {
		gw, err := gatewayFactory(gateway.Settings{
			Provider: a.cfg.Provider,
			Model:    a.cfg.WriterModel,
			APIKey:   apiKey,
			BaseURL:  a.cfg.BaseURL,
			Metrics:  a.tel.Metrics,
		})
		if err != nil {
			return err
		}
		lister, ok := gw.(gateway.ModelLister)
		if !ok {
			return fmt.Errorf("provider %s cannot validate keys", gw.Provider())
		}
		_, err = lister.ListModels(ctx)
		return err
	}
}
