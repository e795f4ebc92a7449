package style

import (
	"github.com/charmbracelet/lipgloss"
)

// adaptive picks a color for light and dark terminal backgrounds
func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Base palette
var (
	PrimaryColor   = adaptive("#0969DA", "#58A6FF") // blue
	SecondaryColor = adaptive("#57606A", "#8B949E") // slate

	SuccessColor = adaptive("#1A7F37", "#3FB950")
	ErrorColor   = adaptive("#CF222E", "#F85149")
	WarningColor = adaptive("#9A6700", "#D29922")
	InfoColor    = adaptive("#0550AE", "#79C0FF")

	HeadingColor = adaptive("#1F2328", "#F0F6FC")
	MutedColor   = adaptive("#6E7781", "#8B949E")

	SurfaceColor = adaptive("#F6F8FA", "#161B22")
	BorderColor  = adaptive("#D0D7DE", "#30363D")
)

// Package, version, link and stage colors
var (
	PackageColor = adaptive("#116329", "#56D364") // green
	VersionColor = adaptive("#8250DF", "#BC8CFF") // purple
	LinkColor    = adaptive("#0A3069", "#A5D6FF") // light blue
	StageColor   = adaptive("#BC4C00", "#FFA657") // orange
)
