package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"JOKE_BOT_CONFIG", "JOKE_BOT_PROVIDER", "JOKE_BOT_WRITER_MODEL", "JOKE_BOT_CRITIC_MODEL",
	"JOKE_BOT_BASE_URL", "JOKE_BOT_API_KEY", "JOKE_BOT_MAX_TOKENS", "JOKE_BOT_MAX_CRITIQUES",
	"JOKE_BOT_WRITER_TEMPERATURE", "JOKE_BOT_CRITIC_TEMPERATURE", "JOKE_BOT_PROMPTS_FILE",
	"JOKE_BOT_REQUEST_TIMEOUT", "JOKE_BOT_SESSION_TTL", "JOKE_BOT_SERVER_ADDR",
	"JOKE_BOT_LOG_LEVEL", "JOKE_BOT_LOG_FORMAT",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
	"GROQ_API_KEY", "AZURE_OPENAI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	"GEMINI_API_KEY", "GOOGLE_API_KEY", "AZURE_RESOURCE_NAME",
}

// isolate clears every variable Load reads and moves into an empty working
// directory with an empty home, so no stray config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".joke-bot.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Provider != "groq" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "groq")
	}
	if cfg.WriterModel != "llama-3.1-8b-instant" || cfg.CriticModel != "llama-3.1-8b-instant" {
		t.Errorf("models: got %q/%q", cfg.WriterModel, cfg.CriticModel)
	}
	if cfg.WriterTemperature != 0.8 {
		t.Errorf("WriterTemperature: got %v, want 0.8", cfg.WriterTemperature)
	}
	if cfg.CriticTemperature != 0.3 {
		t.Errorf("CriticTemperature: got %v, want 0.3", cfg.CriticTemperature)
	}
	if cfg.MaxCritiques != 5 {
		t.Errorf("MaxCritiques: got %d, want 5", cfg.MaxCritiques)
	}
	if cfg.ServerAddr != ":8501" {
		t.Errorf("ServerAddr: got %q, want %q", cfg.ServerAddr, ":8501")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile: got %q, want empty", cfg.ConfigFile)
	}
	if cfg.RequestTimeoutDuration != 60*time.Second {
		t.Errorf("RequestTimeoutDuration: got %v, want 60s", cfg.RequestTimeoutDuration)
	}
	if cfg.SessionTTLDuration != 30*time.Minute {
		t.Errorf("SessionTTLDuration: got %v, want 30m", cfg.SessionTTLDuration)
	}
}

func TestParseDurationOrDisable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMs  int64
		wantErr bool
	}{
		{"empty returns fallback", "", 5000, false},
		{"zero disables", "0", 0, false},
		{"off disables", "off", 0, false},
		{"disable disables", "disable", 0, false},
		{"valid duration", "30s", 30000, false},
		{"valid short duration", "500ms", 500, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationOrDisable(tt.input, 5*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationOrDisable(%q): error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Milliseconds() != tt.wantMs {
				t.Errorf("parseDurationOrDisable(%q) = %v, want %dms", tt.input, got, tt.wantMs)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `provider: openai
writer_model: gpt-4o-mini
critic_model: gpt-4o
api_key: test-key-123
max_tokens: 1024
writer_temperature: 0.9
critic_temperature: 0
max_critiques: 3
request_timeout: "10s"
session_ttl: "off"
log_format: json
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ConfigFile != ".joke-bot.yaml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "openai")
	}
	if cfg.WriterModel != "gpt-4o-mini" || cfg.CriticModel != "gpt-4o" {
		t.Errorf("models: got %q/%q", cfg.WriterModel, cfg.CriticModel)
	}
	if cfg.APIKey != "test-key-123" {
		t.Errorf("APIKey: got %q, want %q", cfg.APIKey, "test-key-123")
	}
	if cfg.MaxTokens != 1024 {
		t.Errorf("MaxTokens: got %d, want %d", cfg.MaxTokens, 1024)
	}
	if cfg.WriterTemperature != 0.9 {
		t.Errorf("WriterTemperature: got %v, want 0.9", cfg.WriterTemperature)
	}
	if cfg.CriticTemperature != 0 {
		t.Errorf("CriticTemperature: got %v, want explicit 0", cfg.CriticTemperature)
	}
	if cfg.MaxCritiques != 3 {
		t.Errorf("MaxCritiques: got %d, want 3", cfg.MaxCritiques)
	}
	if cfg.RequestTimeoutDuration != 10*time.Second {
		t.Errorf("RequestTimeoutDuration: got %v", cfg.RequestTimeoutDuration)
	}
	if cfg.SessionTTLDuration != 0 {
		t.Errorf("SessionTTLDuration: got %v, want disabled", cfg.SessionTTLDuration)
	}
	// Keys absent from the file keep their defaults.
	if cfg.ServerAddr != ":8501" || cfg.LogLevel != "info" {
		t.Errorf("defaults lost: addr=%q level=%q", cfg.ServerAddr, cfg.LogLevel)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("server_addr: \":9000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JOKE_BOT_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ServerAddr != ":9000" || cfg.ConfigFile != path {
		t.Errorf("got addr=%q file=%q", cfg.ServerAddr, cfg.ConfigFile)
	}

	t.Setenv("JOKE_BOT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "writer_temp: 0.5\n")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "writer_temp") {
		t.Errorf("Load() error = %v, want unknown key error", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `provider: openai
writer_model: gpt-4o-mini
api_key: file-key
writer_temperature: 0.2
`)

	t.Setenv("JOKE_BOT_PROVIDER", "anthropic")
	t.Setenv("JOKE_BOT_WRITER_MODEL", "claude-haiku-4-5")
	t.Setenv("JOKE_BOT_API_KEY", "env-key")
	t.Setenv("JOKE_BOT_WRITER_TEMPERATURE", "0.6")
	t.Setenv("JOKE_BOT_MAX_CRITIQUES", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider: got %q, want %q (env should override file)", cfg.Provider, "anthropic")
	}
	if cfg.WriterModel != "claude-haiku-4-5" {
		t.Errorf("WriterModel: got %q (env should override file)", cfg.WriterModel)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey: got %q, want %q (env should override file)", cfg.APIKey, "env-key")
	}
	if cfg.WriterTemperature != 0.6 {
		t.Errorf("WriterTemperature: got %v, want 0.6", cfg.WriterTemperature)
	}
	if cfg.MaxCritiques != 2 {
		t.Errorf("MaxCritiques: got %d, want 2", cfg.MaxCritiques)
	}
}

func TestAPIKeyFallback(t *testing.T) {
	tests := []struct {
		provider string
		env      map[string]string
		want     string
	}{
		{"groq", map[string]string{"GROQ_API_KEY": "gsk", "OPENAI_API_KEY": "sk"}, "gsk"},
		{"openai", map[string]string{"GROQ_API_KEY": "gsk", "OPENAI_API_KEY": "sk"}, "sk"},
		{"openai", map[string]string{"AZURE_OPENAI_API_KEY": "az", "OPENAI_API_KEY": "sk"}, "az"},
		{"anthropic", map[string]string{"ANTHROPIC_API_KEY": "ant"}, "ant"},
		{"gemini", map[string]string{"GOOGLE_API_KEY": "goog"}, "goog"},
		{"groq", map[string]string{"OPENAI_API_KEY": "sk"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.want, func(t *testing.T) {
			isolate(t)
			t.Setenv("JOKE_BOT_PROVIDER", tt.provider)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.APIKey != tt.want {
				t.Errorf("APIKey: got %q, want %q", cfg.APIKey, tt.want)
			}
		})
	}
}

func TestInvalidEnv(t *testing.T) {
	for _, kv := range [][2]string{
		{"JOKE_BOT_MAX_TOKENS", "lots"},
		{"JOKE_BOT_MAX_CRITIQUES", "five"},
		{"JOKE_BOT_WRITER_TEMPERATURE", "warm"},
		{"JOKE_BOT_CRITIC_TEMPERATURE", "cold"},
		{"JOKE_BOT_REQUEST_TIMEOUT", "soon"},
	} {
		t.Run(kv[0], func(t *testing.T) {
			isolate(t)
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", kv[0], kv[1])
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{"unknown provider", func(c *Config) { c.Provider = "watson" }, "unknown provider"},
		{"writer temperature", func(c *Config) { c.WriterTemperature = 1.1 }, "writer_temperature"},
		{"critic temperature", func(c *Config) { c.CriticTemperature = -0.1 }, "critic_temperature"},
		{"NaN writer temperature", func(c *Config) { c.WriterTemperature = math.NaN() }, "writer_temperature"},
		{"NaN critic temperature", func(c *Config) { c.CriticTemperature = math.NaN() }, "critic_temperature"},
		{"too many critiques", func(c *Config) { c.MaxCritiques = 6 }, "max_critiques"},
		{"no critiques", func(c *Config) { c.MaxCritiques = 0 }, "max_critiques"},
		{"negative tokens", func(c *Config) { c.MaxTokens = -1 }, "max_tokens"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errSub)
			}
		})
	}

	cfg := Defaults()
	cfg.Provider = " Gemini "
	if err := cfg.Validate(); err != nil || cfg.Provider != "gemini" {
		t.Errorf("provider should normalize: %q, %v", cfg.Provider, err)
	}
}

func TestAzureBaseURLFallback(t *testing.T) {
	isolate(t)
	t.Setenv("JOKE_BOT_PROVIDER", "openai")
	t.Setenv("AZURE_RESOURCE_NAME", "contoso")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BaseURL != "https://contoso.openai.azure.com/openai/v1" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
	if !IsAzureEndpoint(cfg.BaseURL) {
		t.Error("IsAzureEndpoint should recognize the fallback URL")
	}
}

func TestIsAzureEndpoint(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://myresource.openai.azure.com/openai/v1", true},
		{"https://myresource.services.ai.azure.com/anthropic/", true},
		{"https://myresource.azure.us/foo", true},
		{"https://api.groq.com/openai/v1", false},
		{"https://api.openai.com/v1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := IsAzureEndpoint(tt.url)
			if got != tt.want {
				t.Errorf("IsAzureEndpoint(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}
