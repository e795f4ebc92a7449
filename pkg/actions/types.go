package actions

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/paths"
)

// Kind identifies one of the install action variants
type Kind int

const (
	// CopyFile copies a single staged file to a prefix path.
	CopyFile Kind = iota

	// CopyDirectory copies a staged directory tree into the prefix.
	// Dest defaults to Src.
	CopyDirectory

	// CreateSymlink creates Alias as a relative link to Target.
	CreateSymlink

	// WriteGeneratedScript renders Template and writes it executable to Dest.
	WriteGeneratedScript

	// SetPermissions changes the mode of a path installed by this run.
	SetPermissions
)

var kindNames = map[Kind]string{
	CopyFile:             "copy_file",
	CopyDirectory:        "copy_dir",
	CreateSymlink:        "symlink",
	WriteGeneratedScript: "script",
	SetPermissions:       "chmod",
}

// String returns the recipe name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ParseKind maps a recipe `type` value to a Kind
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Newf(errors.ErrMalformedRecipe, "unknown action type %q", s)
}

// Action is a single install step. Which fields are used depends on Kind:
//
//	CopyFile             Src, Dest
//	CopyDirectory        Src, Dest (optional)
//	CreateSymlink        Target, Alias
//	WriteGeneratedScript Dest, Template
//	SetPermissions       Path, Mode
//
// Src is relative to the staged artifact; every other path is relative to
// the prefix.
type Action struct {
	Kind     Kind
	Src      string
	Dest     string
	Target   string
	Alias    string
	Template string
	Path     string
	Mode     fs.FileMode
}

// Result captures the outcome of executing one action
type Result struct {
	Action  Action
	Message string
}

// Describe returns a short human-readable form of the action
func (a Action) Describe() string {
	switch a.Kind {
	case CopyFile:
		return fmt.Sprintf("copy_file %s -> %s", a.Src, a.Dest)
	case CopyDirectory:
		return fmt.Sprintf("copy_dir %s -> %s", a.Src, a.destDir())
	case CreateSymlink:
		return fmt.Sprintf("symlink %s -> %s", a.Alias, a.Target)
	case WriteGeneratedScript:
		return fmt.Sprintf("script %s", a.Dest)
	case SetPermissions:
		return fmt.Sprintf("chmod %04o %s", a.Mode, a.Path)
	default:
		return a.Kind.String()
	}
}

func (a Action) destDir() string {
	if a.Dest == "" {
		return a.Src
	}
	return a.Dest
}

// Validate checks that the fields the kind needs are present and that every
// path stays inside its root. Errors are MALFORMED_RECIPE.
func (a Action) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return errors.Newf(errors.ErrMalformedRecipe, "%s: %s", a.Kind, fmt.Sprintf(format, args...))
	}
	prefixPath := func(field, value string) error {
		if value == "" {
			return fail("%s is required", field)
		}
		if err := paths.ValidateRelPath(value); err != nil {
			return errors.Wrapf(err, errors.ErrMalformedRecipe, "%s: invalid %s", a.Kind, field)
		}
		return nil
	}

	switch a.Kind {
	case CopyFile:
		if err := validateStagedPath(a.Src); err != nil {
			return errors.Wrapf(err, errors.ErrMalformedRecipe, "%s: invalid src", a.Kind)
		}
		return prefixPath("dest", a.Dest)

	case CopyDirectory:
		if err := validateStagedPath(a.Src); err != nil {
			return errors.Wrapf(err, errors.ErrMalformedRecipe, "%s: invalid src", a.Kind)
		}
		if err := paths.ValidateRelDir(a.destDir()); err != nil {
			return errors.Wrapf(err, errors.ErrMalformedRecipe, "%s: invalid dest", a.Kind)
		}
		return nil

	case CreateSymlink:
		if err := prefixPath("target", a.Target); err != nil {
			return err
		}
		if err := prefixPath("alias", a.Alias); err != nil {
			return err
		}
		if filepath.Clean(a.Target) == filepath.Clean(a.Alias) {
			return fail("alias %s points at itself", a.Alias)
		}
		return nil

	case WriteGeneratedScript:
		if a.Template == "" {
			return fail("template is required")
		}
		return prefixPath("dest", a.Dest)

	case SetPermissions:
		if a.Mode&^fs.ModePerm != 0 {
			return fail("mode %o has bits outside 0777", uint32(a.Mode))
		}
		return prefixPath("path", a.Path)

	default:
		return errors.Newf(errors.ErrMalformedRecipe, "unknown action kind %d", int(a.Kind))
	}
}

// validateStagedPath checks a path relative to the staged artifact
func validateStagedPath(rel string) error {
	if rel == "" {
		return errors.New(errors.ErrInvalidInput, "path cannot be empty")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return errors.Newf(errors.ErrInvalidInput, "path %q must be relative", rel)
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.Newf(errors.ErrInvalidInput, "path %q escapes the artifact", rel)
	}
	return nil
}
