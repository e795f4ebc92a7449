package style

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// fg is a foreground-only style, optionally bold
func fg(c lipgloss.TerminalColor, bold bool) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(bold)
}

// Text styles, also reachable as markup tags
var (
	TitleStyle    = fg(HeadingColor, true).MarginBottom(1)
	SubtitleStyle = fg(HeadingColor, true)
	MutedStyle    = fg(MutedColor, false)
	SuccessStyle  = fg(SuccessColor, true)
	ErrorStyle    = fg(ErrorColor, true)
	WarningStyle  = fg(WarningColor, true)
	InfoStyle     = fg(InfoColor, false)
	PathStyle     = fg(SecondaryColor, false).Italic(true)
	CodeStyle     = fg(PrimaryColor, false).Background(SurfaceColor).Padding(0, 1)

	// BoxStyle frames caveats under an install report
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)
)

// Install report styles
var (
	PackageStyle = fg(PackageColor, true)
	VersionStyle = fg(VersionColor, false)
	LinkStyle    = fg(LinkColor, false)
	StageStyle   = fg(StageColor, true)
)

var (
	SuccessIndicator  = SuccessStyle.Render("✓")
	ErrorIndicator    = ErrorStyle.Render("✗")
	WarningIndicator  = WarningStyle.Render("!")
	ProgressIndicator = InfoStyle.Render("⟳")
)

// Package renders "name version"; an empty version renders the name alone
func Package(name, version string) string {
	out := PackageStyle.Render(name)
	if version != "" {
		out += " " + VersionStyle.Render(version)
	}
	return out
}

// Link renders "alias -> target"
func Link(alias, target string) string {
	return strings.Join([]string{PathStyle.Render(alias), LinkStyle.Render("->"), PathStyle.Render(target)}, " ")
}

// Stage renders the progress line printed when an install enters a stage
func Stage(name string) string {
	return ProgressIndicator + " " + StageStyle.Render(name)
}

// Details renders "key: value" lines for the keys present in details,
// in the order of keys.
func Details(details map[string]interface{}, keys []string) string {
	var b strings.Builder
	for _, key := range keys {
		value, ok := details[key]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %v", MutedStyle.Render(key+":"), value)
	}
	return b.String()
}

// Indent pads every line of s by two spaces per level
func Indent(s string, level int) string {
	return lipgloss.NewStyle().PaddingLeft(level * 2).Render(s)
}

func Bold(s string) string {
	return lipgloss.NewStyle().Bold(true).Render(s)
}
