package style

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders markdown for the terminal with glamour. It
// satisfies the help topics Renderer.
type MarkdownRenderer struct {
	Style string // "auto", "dark", "light", "notty" or a style file path
	Width int    // word wrap width, 0 for glamour's default
}

// NewMarkdownRenderer creates a renderer that detects the terminal style
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{Style: "auto"}
}

// Render converts markdown content. Other formats, and content glamour
// fails on, are returned as-is.
func (r *MarkdownRenderer) Render(content string, format string) string {
	if format != ".md" {
		return content
	}
	return r.Markdown(content)
}

// Markdown renders content as markdown
func (r *MarkdownRenderer) Markdown(content string) string {
	var options []glamour.TermRendererOption
	switch r.Style {
	case "", "auto":
		options = append(options, glamour.WithAutoStyle())
	case "dark", "light", "notty", "dracula", "pink", "ascii":
		options = append(options, glamour.WithStandardStyle(r.Style))
	default:
		options = append(options, glamour.WithStylePath(r.Style))
	}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// Caveats renders recipe caveats as markdown, trimmed of glamour's
// surrounding blank lines
func Caveats(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return strings.Trim(NewMarkdownRenderer().Markdown(text), "\n")
}
