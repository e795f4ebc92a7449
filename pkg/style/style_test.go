// pkg/style/style_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test markup rendering, tables, output formats and caveats

package style_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/arthur-debert/tapkit/pkg/style"
	"github.com/stretchr/testify/assert"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string {
	return ansi.ReplaceAllString(s, "")
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no markup", "installed", "installed"},
		{"single tag", "[package]maiass[/package] installed", "maiass installed"},
		{"two tags", "[package]maiass[/package] [version]4.6.3[/version]", "maiass 4.6.3"},
		{"nested", "[bold][path]bin/maiass[/path][/bold]", "bin/maiass"},
		{"unknown tag kept", "[nope]x[/nope]", "[nope]x[/nope]"},
		{"unclosed tag kept", "[error]oops", "[error]oops"},
		{"brackets in text", "[info]step [1/2][/info]", "step [1/2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, plain(style.Render(tt.input)))
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	out := style.RenderTemplate("[package]{{name}}[/package] {{version}} {{missing}}", map[string]string{
		"name":    "maiass",
		"version": "4.6.3",
	})
	assert.Equal(t, "maiass 4.6.3 {{missing}}", plain(out))
}

func TestMarkupParser_AddStyle(t *testing.T) {
	p := style.NewMarkupParser()
	p.AddStyle("alias", style.LinkStyle)
	assert.Equal(t, "myass", plain(p.Render("[alias]myass[/alias]")))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "maiass 4.6.3", plain(style.Package("maiass", "4.6.3")))
	assert.Equal(t, "maiass", plain(style.Package("maiass", "")))
	assert.Equal(t, "bin/myass -> maiass", plain(style.Link("bin/myass", "maiass")))
	assert.Contains(t, plain(style.Stage("Fetching")), "Fetching")
	assert.Equal(t, "Hello", plain(style.Bold("Hello")))
}

func TestDetails(t *testing.T) {
	details := map[string]interface{}{
		"recipe":  "maiass",
		"stage":   "Fetching",
		"ignored": true,
	}
	out := plain(style.Details(details, []string{"recipe", "version", "stage"}))
	assert.Equal(t, "recipe: maiass\nstage: Fetching", out)
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "Hello", plain(style.Indent("Hello", 0)))
	assert.Equal(t, "    Hello", plain(style.Indent("Hello", 2)))
}

func TestMarkdownRenderer(t *testing.T) {
	r := &style.MarkdownRenderer{Style: "notty", Width: 60}

	assert.Equal(t, "plain *text*", r.Render("plain *text*", ".txt"))

	out := plain(r.Render("# Caveats\n\nRun `maiass --help` to start.", ".md"))
	assert.Contains(t, out, "Caveats")
	assert.Contains(t, out, "maiass --help")
}

func TestCaveats(t *testing.T) {
	assert.Empty(t, style.Caveats("  \n"))
	out := plain(style.Caveats("Add `~/.local/bin` to your PATH."))
	assert.Contains(t, out, "~/.local/bin")
	assert.False(t, strings.HasPrefix(out, "\n"))
}

func TestTable(t *testing.T) {
	out := plain(style.Table(
		[]string{"NAME", "VERSION"},
		[][]string{{"maiass", "4.6.3"}, {"jq", "1.7.1"}},
	))
	for _, want := range []string{"NAME", "VERSION", "maiass", "4.6.3", "jq", "1.7.1"} {
		assert.Contains(t, out, want)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected style.Format
		wantErr  bool
	}{
		{"", style.FormatAuto, false},
		{"auto", style.FormatAuto, false},
		{"term", style.FormatTerminal, false},
		{"Terminal", style.FormatTerminal, false},
		{"plain", style.FormatText, false},
		{"json", style.FormatJSON, false},
		{"xml", style.FormatAuto, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := style.ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
	assert.Equal(t, "json", style.FormatJSON.String())
	assert.Equal(t, "unknown", style.Format(42).String())
}

func TestApply(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, style.FormatText, style.Apply(style.FormatAuto, os.Stdout))
	assert.Equal(t, style.FormatJSON, style.Apply(style.FormatJSON, os.Stdout))
	assert.Equal(t, "plain", style.SuccessStyle.Render("plain"))
}
