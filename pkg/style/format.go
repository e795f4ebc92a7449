package style

import (
	"os"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format is the output format of the CLI
type Format int

const (
	// FormatAuto picks FormatTerminal or FormatText from the output
	FormatAuto Format = iota
	// FormatTerminal is styled output with colors
	FormatTerminal
	// FormatText is the same output without styling
	FormatText
	// FormatJSON is machine-readable output for list and info
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatTerminal:
		return "term"
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat parses a --format value
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return FormatAuto, nil
	case "term", "terminal":
		return FormatTerminal, nil
	case "text", "plain":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatAuto, errors.Newf(errors.ErrInvalidInput, "unknown format %q (auto, term, text, json)", s)
	}
}

// DetectFormat chooses between terminal and text output for out
func DetectFormat(out *os.File) Format {
	if os.Getenv("NO_COLOR") != "" {
		return FormatText
	}
	if !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()) {
		return FormatText
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return FormatText
	}
	return FormatTerminal
}

// Apply resolves FormatAuto against out and sets the lipgloss color
// profile to match. It returns the resolved format.
func Apply(f Format, out *os.File) Format {
	if f == FormatAuto {
		f = DetectFormat(out)
	}
	switch f {
	case FormatTerminal:
		profile := termenv.ColorProfile()
		if profile == termenv.Ascii {
			profile = termenv.ANSI256
		}
		lipgloss.SetColorProfile(profile)
	default:
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return f
}
