package prompt

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lines is a template field written either as a single string or as a list
// of strings. A list renders as one "- item" line per entry; a single string
// renders verbatim.
type Lines struct {
	Items  []string
	IsList bool
}

// Text returns a single-string Lines value.
func Text(s string) Lines {
	if s == "" {
		return Lines{}
	}
	return Lines{Items: []string{s}}
}

// List returns a list-valued Lines. Blank items are dropped.
func List(items ...string) Lines {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return Lines{}
	}
	return Lines{Items: kept, IsList: true}
}

// Empty reports whether the field contributes no section.
func (l Lines) Empty() bool {
	if l.IsList {
		return len(l.Items) == 0
	}
	return len(l.Items) == 0 || strings.TrimSpace(l.Items[0]) == ""
}

// String renders the field body.
func (l Lines) String() string {
	if !l.IsList {
		if len(l.Items) == 0 {
			return ""
		}
		return l.Items[0]
	}
	bullets := make([]string, len(l.Items))
	for i, item := range l.Items {
		bullets[i] = "- " + item
	}
	return strings.Join(bullets, "\n")
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (l *Lines) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = Lines{}
			return nil
		}
		*l = Text(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return &ConfigurationError{Field: fieldPath(node), Reason: "list items must be strings"}
		}
		*l = List(items...)
		return nil
	default:
		return &ConfigurationError{Field: fieldPath(node), Reason: "expected a string or a list of strings"}
	}
}

// MarshalYAML writes a single string as a scalar and a list as a sequence.
func (l Lines) MarshalYAML() (any, error) {
	if l.IsList {
		return l.Items, nil
	}
	if len(l.Items) == 0 {
		return nil, nil
	}
	return l.Items[0], nil
}

// IsZero lets yaml omitempty skip absent fields.
func (l Lines) IsZero() bool {
	return len(l.Items) == 0
}

func fieldPath(node *yaml.Node) string {
	return fmt.Sprintf("line %d", node.Line)
}
