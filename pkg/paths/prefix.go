package paths

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
)

// Managed prefix subdirectories. Nothing is ever written outside these.
const (
	BinDir   = "bin"
	LibDir   = "lib"
	ShareDir = "share"
)

// ManagedDirs lists the prefix subdirectories tapkit may write into
var ManagedDirs = []string{BinDir, LibDir, ShareDir}

// Prefix is the root directory under which all package files are placed
type Prefix struct {
	Root string
}

// NewPrefix normalizes root (home expansion, absolute, clean)
func NewPrefix(root string) (Prefix, error) {
	if root == "" {
		root = DefaultPrefix()
	}
	abs, err := filepath.Abs(ExpandHome(root))
	if err != nil {
		return Prefix{}, errors.Wrapf(err, errors.ErrInvalidInput, "failed to get absolute path for prefix %s", root)
	}
	return Prefix{Root: filepath.Clean(abs)}, nil
}

func (p Prefix) Bin() string   { return filepath.Join(p.Root, BinDir) }
func (p Prefix) Lib() string   { return filepath.Join(p.Root, LibDir) }
func (p Prefix) Share() string { return filepath.Join(p.Root, ShareDir) }

// PackageShare returns the shared data directory of a package
func (p Prefix) PackageShare(name string) string {
	return filepath.Join(p.Share(), name)
}

// Resolve validates a prefix-relative path and returns its absolute form
func (p Prefix) Resolve(rel string) (string, error) {
	if err := ValidateRelPath(rel); err != nil {
		return "", err
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel)), nil
}

// Rel converts an absolute path inside the prefix back to its relative,
// slash-separated form
func (p Prefix) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.ErrInvalidInput, "path %s is outside prefix %s", abs, p.Root)
	}
	return filepath.ToSlash(rel), nil
}

// Contains reports whether abs lies inside one of the managed directories
func (p Prefix) Contains(abs string) bool {
	rel, err := p.Rel(filepath.Clean(abs))
	if err != nil {
		return false
	}
	return ValidateRelPath(rel) == nil
}

// ValidateRelPath checks that rel is a clean, relative path below one of
// the managed prefix directories (and not the directory itself).
func ValidateRelPath(rel string) error {
	if rel == "" {
		return errors.New(errors.ErrInvalidInput, "path cannot be empty")
	}
	if strings.Contains(rel, "\x00") {
		return errors.New(errors.ErrInvalidInput, "path contains null bytes")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return errors.Newf(errors.ErrInvalidInput, "path %q must be relative to the prefix", rel)
	}

	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))
	parts := strings.Split(clean, "/")
	for _, part := range parts {
		if part == ".." {
			return errors.Newf(errors.ErrInvalidInput, "path %q escapes the prefix", rel)
		}
	}

	if len(parts) < 2 || !isManagedDir(parts[0]) {
		return errors.Newf(errors.ErrInvalidInput,
			"path %q must be inside one of %s", rel, strings.Join(ManagedDirs, ", "))
	}
	return nil
}

// ValidateRelDir is ValidateRelPath that also accepts a managed directory
// itself ("lib", "share"). Used for directory copies.
func ValidateRelDir(rel string) error {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))
	if isManagedDir(clean) {
		return nil
	}
	return ValidateRelPath(rel)
}

// ResolveDir is Resolve for directory destinations
func (p Prefix) ResolveDir(rel string) (string, error) {
	if err := ValidateRelDir(rel); err != nil {
		return "", err
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel)), nil
}

func isManagedDir(name string) bool {
	for _, d := range ManagedDirs {
		if d == name {
			return true
		}
	}
	return false
}

// ValidatePackageName ensures a package name is usable as a file name
func ValidatePackageName(name string) error {
	if name == "" {
		return errors.New(errors.ErrInvalidInput, "package name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.New(errors.ErrInvalidInput, "package name cannot contain path separators")
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return errors.Newf(errors.ErrInvalidInput, "package name %q cannot start with '.'", name)
	}
	if strings.ContainsAny(name, ":*?\"<>| ") {
		return errors.Newf(errors.ErrInvalidInput, "package name %q contains invalid characters", name)
	}
	for _, r := range name {
		if r < 32 {
			return errors.New(errors.ErrInvalidInput, "package name contains control characters")
		}
	}
	return nil
}
