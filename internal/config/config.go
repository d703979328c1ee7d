// Package config loads joke-bot configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (JOKE_BOT_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. $JOKE_BOT_CONFIG, when set
//  2. .joke-bot.yaml in current directory
//  3. ~/.config/joke-bot/config.yaml
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/timvw/joke-bot/internal/gateway"
	"gopkg.in/yaml.v3"
)

// Config holds all joke-bot configuration.
type Config struct {
	// LLM settings
	Provider    string `yaml:"provider"`
	WriterModel string `yaml:"writer_model"`
	CriticModel string `yaml:"critic_model"`
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	MaxTokens   int64  `yaml:"max_tokens"`

	// Writer-critic loop
	WriterTemperature float64 `yaml:"writer_temperature"`
	CriticTemperature float64 `yaml:"critic_temperature"`
	MaxCritiques      int     `yaml:"max_critiques"`
	PromptsFile       string  `yaml:"prompts_file"` // empty uses the embedded templates

	// Serving
	RequestTimeout string `yaml:"request_timeout"` // Go duration string, e.g. "60s"
	SessionTTL     string `yaml:"session_ttl"`     // Go duration string, e.g. "30m"
	ServerAddr     string `yaml:"server_addr"`

	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // console or json

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	RequestTimeoutDuration time.Duration `yaml:"-"`
	SessionTTLDuration     time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Provider:          gateway.ProviderGroq,
		WriterModel:       gateway.DefaultModel,
		CriticModel:       gateway.DefaultModel,
		MaxTokens:         512,
		WriterTemperature: 0.8,
		CriticTemperature: 0.3,
		MaxCritiques:      5,
		RequestTimeout:    "60s",
		SessionTTL:        "30m",
		ServerAddr:        ":8501",
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	path, data, err := findConfigFile()
	switch {
	case err == nil:
		if err := decodeFile(cfg, data); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
	case !errors.Is(err, errNoConfigFile):
		return nil, err
	}

	// Environment variables override everything
	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.RequestTimeoutDuration, err = parseDurationOrDisable(cfg.RequestTimeout, 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid request timeout %q: %w", cfg.RequestTimeout, err)
	}
	cfg.SessionTTLDuration, err = parseDurationOrDisable(cfg.SessionTTL, 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid session TTL %q: %w", cfg.SessionTTL, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. Load calls it; callers that modify a Config
// afterwards (e.g., from flags) should call it again.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if !gateway.KnownProvider(c.Provider) {
		return fmt.Errorf("unknown provider %q (supported: %s)", c.Provider, strings.Join(gateway.Providers(), ", "))
	}
	if !validTemperature(c.WriterTemperature) {
		return fmt.Errorf("writer_temperature %v is outside [0, 1]", c.WriterTemperature)
	}
	if !validTemperature(c.CriticTemperature) {
		return fmt.Errorf("critic_temperature %v is outside [0, 1]", c.CriticTemperature)
	}
	if c.MaxCritiques < 1 || c.MaxCritiques > 5 {
		return fmt.Errorf("max_critiques %d is outside [1, 5]", c.MaxCritiques)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// validTemperature also rejects NaN.
func validTemperature(t float64) bool {
	return t >= 0 && t <= 1
}

var errNoConfigFile = errors.New("no config file found")

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Explicit path
	if path := os.Getenv("JOKE_BOT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("reading config file: %w", err)
		}
		return path, data, nil
	}

	// 2. Current directory
	if data, err := os.ReadFile(".joke-bot.yaml"); err == nil {
		return ".joke-bot.yaml", data, nil
	}

	// 3. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "joke-bot", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, errNoConfigFile
}

// decodeFile overlays the keys present in data onto cfg. Absent keys keep
// their current value, so an explicit zero temperature is honored. Unknown
// keys are rejected.
func decodeFile(cfg *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"JOKE_BOT_PROVIDER", &cfg.Provider},
		{"JOKE_BOT_WRITER_MODEL", &cfg.WriterModel},
		{"JOKE_BOT_CRITIC_MODEL", &cfg.CriticModel},
		{"JOKE_BOT_BASE_URL", &cfg.BaseURL},
		{"JOKE_BOT_API_KEY", &cfg.APIKey},
		{"JOKE_BOT_PROMPTS_FILE", &cfg.PromptsFile},
		{"JOKE_BOT_REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"JOKE_BOT_SESSION_TTL", &cfg.SessionTTL},
		{"JOKE_BOT_SERVER_ADDR", &cfg.ServerAddr},
		{"JOKE_BOT_LOG_LEVEL", &cfg.LogLevel},
		{"JOKE_BOT_LOG_FORMAT", &cfg.LogFormat},
		{"OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTELEndpoint},
		{"OTEL_EXPORTER_OTLP_HEADERS", &cfg.OTELHeaders},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("JOKE_BOT_MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid JOKE_BOT_MAX_TOKENS %q: %w", v, err)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv("JOKE_BOT_MAX_CRITIQUES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid JOKE_BOT_MAX_CRITIQUES %q: %w", v, err)
		}
		cfg.MaxCritiques = n
	}
	if v := os.Getenv("JOKE_BOT_WRITER_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid JOKE_BOT_WRITER_TEMPERATURE %q: %w", v, err)
		}
		cfg.WriterTemperature = f
	}
	if v := os.Getenv("JOKE_BOT_CRITIC_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid JOKE_BOT_CRITIC_TEMPERATURE %q: %w", v, err)
		}
		cfg.CriticTemperature = f
	}

	// API key fallbacks
	if cfg.APIKey == "" {
		cfg.APIKey = ProviderAPIKey(cfg.Provider)
	}

	// Azure base URL fallback
	if cfg.BaseURL == "" {
		if rn := os.Getenv("AZURE_RESOURCE_NAME"); rn != "" {
			switch cfg.Provider {
			case gateway.ProviderAnthropic:
				cfg.BaseURL = fmt.Sprintf("https://%s.services.ai.azure.com/anthropic/", rn)
			case gateway.ProviderOpenAI:
				cfg.BaseURL = fmt.Sprintf("https://%s.openai.azure.com/openai/v1", rn)
			}
		}
	}
	return nil
}

// providerKeyEnv lists the conventional API key variables per provider, in
// lookup order.
var providerKeyEnv = map[string][]string{
	gateway.ProviderGroq:      {"GROQ_API_KEY"},
	gateway.ProviderOpenAI:    {"AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"},
	gateway.ProviderAnthropic: {"AZURE_OPENAI_API_KEY", "ANTHROPIC_API_KEY"},
	gateway.ProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// ProviderAPIKey returns the first non-empty conventional API key variable
// for provider, or "".
func ProviderAPIKey(provider string) string {
	for _, key := range providerKeyEnv[strings.ToLower(provider)] {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// IsAzureEndpoint returns true if the URL is an Azure endpoint.
func IsAzureEndpoint(url string) bool {
	return strings.Contains(url, ".azure.com") || strings.Contains(url, ".azure.us")
}
