package version

import "fmt"

// Build information set by ldflags
var (
	Version = "dev"     // Set by goreleaser: -X github.com/arthur-debert/tapkit/internal/version.Version={{.Version}}
	Commit  = "unknown" // Set by goreleaser: -X github.com/arthur-debert/tapkit/internal/version.Commit={{.Commit}}
	Date    = "unknown" // Set by goreleaser: -X github.com/arthur-debert/tapkit/internal/version.Date={{.Date}}
)

// String returns the multi-line version report of `tapkit version`
func String() string {
	return fmt.Sprintf("tapkit version %s\nCommit: %s\nBuilt:  %s\n", Version, Commit, Date)
}

// UserAgent is sent with every download request
func UserAgent() string {
	return "tapkit/" + Version
}
