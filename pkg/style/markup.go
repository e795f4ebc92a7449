package style

import (
	"io"
	"regexp"

	"github.com/charmbracelet/lipgloss"
	"github.com/valyala/fasttemplate"
)

type tagStyle struct {
	pattern *regexp.Regexp
	style   lipgloss.Style
}

// MarkupParser renders [tag]text[/tag] markup used by CLI messages
type MarkupParser struct {
	styles map[string]tagStyle
}

// NewMarkupParser creates a new markup parser with default styles
func NewMarkupParser() *MarkupParser {
	p := &MarkupParser{styles: map[string]tagStyle{}}
	for tag, style := range map[string]lipgloss.Style{
		"title":    TitleStyle,
		"subtitle": SubtitleStyle,
		"success":  SuccessStyle,
		"error":    ErrorStyle,
		"warning":  WarningStyle,
		"info":     InfoStyle,
		"code":     CodeStyle,
		"path":     PathStyle,
		"muted":    MutedStyle,
		"bold":     lipgloss.NewStyle().Bold(true),

		"package": PackageStyle,
		"version": VersionStyle,
		"link":    LinkStyle,
		"stage":   StageStyle,
	} {
		p.AddStyle(tag, style)
	}
	return p
}

// Render processes markup text and returns styled output. Nested tags are
// rendered innermost first.
func (p *MarkupParser) Render(text string) string {
	result := text
	for {
		previous := result
		for _, ts := range p.styles {
			result = ts.pattern.ReplaceAllStringFunc(result, func(match string) string {
				submatch := ts.pattern.FindStringSubmatch(match)
				return ts.style.Render(submatch[1])
			})
		}
		if result == previous {
			return result
		}
	}
}

// AddStyle registers or replaces the style of tag
func (p *MarkupParser) AddStyle(tag string, style lipgloss.Style) {
	quoted := regexp.QuoteMeta(tag)
	p.styles[tag] = tagStyle{
		pattern: regexp.MustCompile(`\[` + quoted + `\]((?:[^\[]|\[[^/])*?)\[/` + quoted + `\]`),
		style:   style,
	}
}

// RenderTemplate substitutes {{key}} placeholders and then renders markup.
// Unknown placeholders are left in place.
func (p *MarkupParser) RenderTemplate(template string, vars map[string]string) string {
	t, err := fasttemplate.NewTemplate(template, "{{", "}}")
	if err != nil {
		return p.Render(template)
	}
	substituted := t.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if value, ok := vars[tag]; ok {
			return w.Write([]byte(value))
		}
		return w.Write([]byte("{{" + tag + "}}"))
	})
	return p.Render(substituted)
}

var defaultParser = NewMarkupParser()

// Render is a convenience function using the default parser
func Render(text string) string {
	return defaultParser.Render(text)
}

// RenderTemplate is a convenience function using the default parser
func RenderTemplate(template string, vars map[string]string) string {
	return defaultParser.RenderTemplate(template, vars)
}
