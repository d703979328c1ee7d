package gateway

import "slices"

// allowedModels restricts providers whose model catalog is known up front.
// Providers without an entry accept any non-empty model identifier and leave
// the final word to the upstream API (a 404 maps to ErrUnsupportedModel).
var allowedModels = map[string][]string{
	ProviderGroq: {
		"llama-3.1-8b-instant",
		"llama-3.3-70b-versatile",
		"meta-llama/llama-4-scout-17b-16e-instruct",
		"meta-llama/llama-4-maverick-17b-128e-instruct",
		"openai/gpt-oss-20b",
		"openai/gpt-oss-120b",
	},
	ProviderOpenAI:    nil,
	ProviderAnthropic: nil,
	ProviderGemini:    nil,
}

// DefaultModel is the model used when none is configured.
const DefaultModel = "llama-3.1-8b-instant"

// Providers returns the supported provider names in a stable order.
func Providers() []string {
	return []string{ProviderGroq, ProviderOpenAI, ProviderAnthropic, ProviderGemini}
}

// KnownProvider reports whether provider is supported.
func KnownProvider(provider string) bool {
	_, ok := allowedModels[provider]
	return ok
}

// Supported reports whether model is recognized for provider.
func Supported(provider, model string) bool {
	allowed, ok := allowedModels[provider]
	if !ok || model == "" {
		return false
	}
	if allowed == nil {
		return true
	}
	return slices.Contains(allowed, model)
}

// Models returns the allow-list for provider, or nil when any model is accepted.
func Models(provider string) []string {
	return slices.Clone(allowedModels[provider])
}
