// Package prompt assembles model prompts from declarative template configs.
//
// A TemplateConfig names up to seven optional sections (role, instruction,
// context, constraints, tone, output format, goal). Assemble renders the
// present ones in a fixed order, optionally followed by a delimited content
// block, and always ends with ClosingDirective.
package prompt

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ClosingDirective is the last line of every assembled prompt.
const ClosingDirective = "Now perform the task as instructed above."

// Section lead-ins, in render order.
const (
	leadInstruction = "Your task is as follows:"
	leadConstraints = "Ensure your response follows these rules:"
	leadTone        = "Follow these style and tone guidelines in your response:"
	leadFormat      = "Structure your response as follows:"
	leadGoal        = "Your goal is to achieve the following outcome:"
	leadContent     = "Here is the content you need to work with:"
)

// Content delimiters wrapped around input data.
const (
	BeginContent = "<<<BEGIN CONTENT>>>"
	EndContent   = "<<<END CONTENT>>>"
)

// TemplateConfig describes the sections of a prompt. Every field is optional.
type TemplateConfig struct {
	// Role is a persona description, rendered as "You are <role>.".
	Role string `yaml:"role,omitempty"`
	// Instruction is the task, as a sentence or a list of steps.
	Instruction Lines `yaml:"instruction,omitempty"`
	// Context is free-form background text rendered verbatim.
	Context string `yaml:"context,omitempty"`
	// OutputConstraints are the rules the response must follow.
	OutputConstraints Lines `yaml:"output_constraints,omitempty"`
	// StyleOrTone are style and tone guidelines.
	StyleOrTone Lines `yaml:"style_or_tone,omitempty"`
	// OutputFormat describes how the response is structured.
	OutputFormat Lines `yaml:"output_format,omitempty"`
	// Goal is the desired outcome.
	Goal string `yaml:"goal,omitempty"`
}

// Assemble builds the prompt for cfg. When input is non-blank it is trimmed
// and appended inside a fenced block between BeginContent and EndContent.
func Assemble(cfg TemplateConfig, input string) string {
	var parts []string

	if role := strings.TrimSpace(cfg.Role); role != "" {
		parts = append(parts, "You are "+lowerFirst(role)+".")
	}
	if !cfg.Instruction.Empty() {
		parts = append(parts, section(leadInstruction, cfg.Instruction))
	}
	if strings.TrimSpace(cfg.Context) != "" {
		parts = append(parts, cfg.Context)
	}
	if !cfg.OutputConstraints.Empty() {
		parts = append(parts, section(leadConstraints, cfg.OutputConstraints))
	}
	if !cfg.StyleOrTone.Empty() {
		parts = append(parts, section(leadTone, cfg.StyleOrTone))
	}
	if !cfg.OutputFormat.Empty() {
		parts = append(parts, section(leadFormat, cfg.OutputFormat))
	}
	if strings.TrimSpace(cfg.Goal) != "" {
		parts = append(parts, leadGoal+"\n"+cfg.Goal)
	}
	if content := strings.TrimSpace(input); content != "" {
		parts = append(parts, contentBlock(content))
	}

	parts = append(parts, ClosingDirective)
	return strings.Join(parts, "\n\n")
}

func section(leadIn string, body Lines) string {
	return leadIn + "\n" + body.String()
}

func contentBlock(content string) string {
	var b strings.Builder
	b.WriteString(leadContent)
	b.WriteString("\n")
	b.WriteString(BeginContent)
	b.WriteString("\n```\n")
	b.WriteString(content)
	b.WriteString("\n```\n")
	b.WriteString(EndContent)
	return b.String()
}

// lowerFirst lower-cases the first rune of s.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
