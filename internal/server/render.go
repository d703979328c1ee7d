package server

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in model output is dropped by goldmark unless WithUnsafe is set.
var markdown = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))

// renderMarkdown converts joke text to HTML. On a conversion error the text
// is returned as an escaped paragraph.
func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "<p>" + template.HTMLEscapeString(text) + "</p>"
	}
	return buf.String()
}
