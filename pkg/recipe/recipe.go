package recipe

import (
	"runtime"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/arthur-debert/tapkit/pkg/actions"
	"github.com/arthur-debert/tapkit/pkg/errors"
)

// AnyPlatform is the source key that matches every platform
const AnyPlatform = "any"

// Source is one downloadable artifact and its expected digest
type Source struct {
	URL    string
	SHA256 string
}

// Test is the post-install check: run Command with Args and look for
// Expect in the combined output.
type Test struct {
	Command string
	Args    []string
	Expect  string
}

// Recipe is a validated install recipe
type Recipe struct {
	Name          string
	Desc          string
	Homepage      string
	Version       *semver.Version
	License       string
	DependsOn     []string
	ConflictsWith []string
	Caveats       string
	Sources       map[string]Source
	Install       []actions.Action
	Test          *Test

	// Origin is the path or URL the recipe was loaded from
	Origin string
}

// VersionString returns the version as written in the recipe
func (r *Recipe) VersionString() string {
	if r == nil || r.Version == nil {
		return ""
	}
	return r.Version.Original()
}

// Platform identifies a host by operating system and architecture
type Platform struct {
	OS   string
	Arch string
}

// HostPlatform returns the platform tapkit is running on
func HostPlatform() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// String returns the os/arch key of the platform
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Keys returns the source keys that match p, most specific first
func (p Platform) Keys() []string {
	return []string{p.String(), p.OS, AnyPlatform}
}

// Resolved is the source selected for a platform
type Resolved struct {
	Key    string
	Source Source
}

// Resolve selects exactly one source for p: an exact os/arch entry, then an
// os entry, then "any".
func (r *Recipe) Resolve(p Platform) (Resolved, error) {
	for _, key := range p.Keys() {
		if src, ok := r.Sources[key]; ok {
			return Resolved{Key: key, Source: src}, nil
		}
	}
	return Resolved{}, errors.Newf(errors.ErrUnsupportedPlatform,
		"%s has no source for %s", r.Name, p).
		WithDetail(errors.DetailRecipe, r.Name).
		WithDetail(errors.DetailVersion, r.VersionString()).
		WithDetail("platform", p.String()).
		WithDetail("available", strings.Join(r.SourceKeys(), ", "))
}

// SourceKeys returns the platform keys of the source table, sorted
func (r *Recipe) SourceKeys() []string {
	keys := make([]string, 0, len(r.Sources))
	for k := range r.Sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
