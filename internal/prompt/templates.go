package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Template names in a templates file.
const (
	WriterKey = "joke_writer_config"
	CriticKey = "joke_critic_config"
)

// DefaultTemplates is the built-in templates file.
//
//go:embed prompts/templates.yaml
var DefaultTemplates []byte

// Templates holds the writer and critic template configs.
type Templates struct {
	Writer TemplateConfig `yaml:"joke_writer_config"`
	Critic TemplateConfig `yaml:"joke_critic_config"`
}

// ConfigurationError reports a malformed template or request field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// LoadTemplates reads a templates file. An empty path loads DefaultTemplates.
func LoadTemplates(path string) (Templates, error) {
	if path == "" {
		return ParseTemplates(DefaultTemplates)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, fmt.Errorf("reading templates %s: %w", path, err)
	}
	t, err := ParseTemplates(data)
	if err != nil {
		return Templates{}, fmt.Errorf("parsing templates %s: %w", path, err)
	}
	return t, nil
}

// ParseTemplates decodes a templates document. Both the writer and the critic
// entries must be present.
func ParseTemplates(data []byte) (Templates, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return Templates{}, cfgErr
		}
		return Templates{}, &ConfigurationError{Reason: err.Error()}
	}

	var t Templates
	for _, entry := range []struct {
		key string
		dst *TemplateConfig
	}{
		{WriterKey, &t.Writer},
		{CriticKey, &t.Critic},
	} {
		node, ok := raw[entry.key]
		if !ok {
			return Templates{}, &ConfigurationError{Field: entry.key, Reason: "missing template"}
		}
		if node.Kind != yaml.MappingNode {
			return Templates{}, &ConfigurationError{Field: entry.key, Reason: "template must be a mapping"}
		}
		if err := node.Decode(entry.dst); err != nil {
			var cfgErr *ConfigurationError
			if errors.As(err, &cfgErr) {
				return Templates{}, &ConfigurationError{Field: entry.key + " (" + cfgErr.Field + ")", Reason: cfgErr.Reason}
			}
			return Templates{}, &ConfigurationError{Field: entry.key, Reason: err.Error()}
		}
	}
	return t, nil
}
