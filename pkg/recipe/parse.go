package recipe

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/arthur-debert/tapkit/pkg/actions"
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a recipe serialization
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file name or URL path
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.Newf(errors.ErrMalformedRecipe,
			"unsupported recipe format %q (want .toml, .yaml or .yml)", path.Ext(name))
	}
}

type rawSource struct {
	URL    string `toml:"url" yaml:"url"`
	SHA256 string `toml:"sha256" yaml:"sha256"`
}

type rawAction struct {
	Type     string      `toml:"type" yaml:"type"`
	Src      string      `toml:"src" yaml:"src"`
	Dest     string      `toml:"dest" yaml:"dest"`
	Target   string      `toml:"target" yaml:"target"`
	Alias    string      `toml:"alias" yaml:"alias"`
	Template string      `toml:"template" yaml:"template"`
	Path     string      `toml:"path" yaml:"path"`
	Mode     interface{} `toml:"mode" yaml:"mode"`
}

type rawTest struct {
	Command string   `toml:"command" yaml:"command"`
	Args    []string `toml:"args" yaml:"args"`
	Expect  string   `toml:"expect" yaml:"expect"`
}

type rawRecipe struct {
	Name          string               `toml:"name" yaml:"name"`
	Desc          string               `toml:"desc" yaml:"desc"`
	Homepage      string               `toml:"homepage" yaml:"homepage"`
	Version       string               `toml:"version" yaml:"version"`
	License       string               `toml:"license" yaml:"license"`
	DependsOn     []string             `toml:"depends_on" yaml:"depends_on"`
	ConflictsWith []string             `toml:"conflicts_with" yaml:"conflicts_with"`
	Caveats       string               `toml:"caveats" yaml:"caveats"`
	URL           string               `toml:"url" yaml:"url"`
	SHA256        string               `toml:"sha256" yaml:"sha256"`
	Sources       map[string]rawSource `toml:"sources" yaml:"sources"`
	Install       []rawAction          `toml:"install" yaml:"install"`
	Test          *rawTest             `toml:"test" yaml:"test"`
}

// Parse decodes and validates a recipe. Unknown keys are rejected so that
// typos in action fields do not silently drop a step.
func Parse(data []byte, format Format, origin string) (*Recipe, error) {
	var raw rawRecipe
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrMalformedRecipe, "failed to parse TOML").
				WithDetail("origin", origin)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrMalformedRecipe, "failed to parse YAML").
				WithDetail("origin", origin)
		}
	default:
		return nil, errors.Newf(errors.ErrMalformedRecipe, "unsupported recipe format %q", format)
	}

	r, err := raw.build()
	if err != nil {
		if te, ok := err.(*errors.TapkitError); ok {
			te.WithDetail("origin", origin)
			if raw.Name != "" {
				te.WithDetail(errors.DetailRecipe, raw.Name)
			}
		}
		return nil, err
	}
	r.Origin = origin
	return r, nil
}

func malformed(format string, args ...interface{}) *errors.TapkitError {
	return errors.Newf(errors.ErrMalformedRecipe, format, args...)
}

func (raw *rawRecipe) build() (*Recipe, error) {
	if strings.TrimSpace(raw.Name) == "" {
		return nil, malformed("name is required")
	}
	if err := paths.ValidatePackageName(raw.Name); err != nil {
		return nil, errors.Wrapf(err, errors.ErrMalformedRecipe, "invalid name %q", raw.Name)
	}

	if raw.Version == "" {
		return nil, malformed("version is required")
	}
	version, err := semver.NewVersion(raw.Version)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrMalformedRecipe, "version %q is not a semantic version", raw.Version)
	}

	sources, err := raw.sources()
	if err != nil {
		return nil, err
	}

	if len(raw.Install) == 0 {
		return nil, malformed("at least one install action is required")
	}
	list := make([]actions.Action, 0, len(raw.Install))
	for i, ra := range raw.Install {
		a, err := ra.action()
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrMalformedRecipe, "install[%d]", i)
		}
		list = append(list, a)
	}

	for _, list := range [][]string{raw.DependsOn, raw.ConflictsWith} {
		for _, name := range list {
			if err := paths.ValidatePackageName(name); err != nil {
				return nil, errors.Wrapf(err, errors.ErrMalformedRecipe, "invalid package reference %q", name)
			}
		}
	}

	var test *Test
	if raw.Test != nil {
		if strings.TrimSpace(raw.Test.Command) == "" {
			return nil, malformed("test.command is required")
		}
		test = &Test{Command: raw.Test.Command, Args: raw.Test.Args, Expect: raw.Test.Expect}
	}

	return &Recipe{
		Name:          raw.Name,
		Desc:          raw.Desc,
		Homepage:      raw.Homepage,
		Version:       version,
		License:       raw.License,
		DependsOn:     raw.DependsOn,
		ConflictsWith: raw.ConflictsWith,
		Caveats:       raw.Caveats,
		Sources:       sources,
		Install:       list,
		Test:          test,
	}, nil
}

func (raw *rawRecipe) sources() (map[string]Source, error) {
	sources := make(map[string]Source, len(raw.Sources)+1)
	if raw.URL != "" || raw.SHA256 != "" {
		if _, dup := raw.Sources[AnyPlatform]; dup {
			return nil, malformed("top-level url/sha256 and sources.%s are both set", AnyPlatform)
		}
		sources[AnyPlatform] = Source{URL: raw.URL, SHA256: raw.SHA256}
	}
	for key, rs := range raw.Sources {
		sources[key] = Source{URL: rs.URL, SHA256: rs.SHA256}
	}
	if len(sources) == 0 {
		return nil, malformed("a source (url and sha256) is required")
	}

	for key, src := range sources {
		if err := validatePlatformKey(key); err != nil {
			return nil, err
		}
		if strings.TrimSpace(src.URL) == "" {
			return nil, malformed("source %s: url is required", key)
		}
		if src.SHA256 == "" {
			return nil, malformed("source %s: sha256 is required", key)
		}
		if !isSHA256(src.SHA256) {
			return nil, malformed("source %s: sha256 must be 64 hex characters", key)
		}
		src.SHA256 = strings.ToLower(src.SHA256)
		sources[key] = src
	}
	return sources, nil
}

func validatePlatformKey(key string) error {
	if key == AnyPlatform {
		return nil
	}
	parts := strings.Split(key, "/")
	if len(parts) > 2 {
		return malformed("platform key %q must be os, os/arch or %s", key, AnyPlatform)
	}
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t") {
			return malformed("platform key %q must be os, os/arch or %s", key, AnyPlatform)
		}
	}
	return nil
}

func isSHA256(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func (ra rawAction) action() (actions.Action, error) {
	kind, err := actions.ParseKind(ra.Type)
	if err != nil {
		return actions.Action{}, err
	}
	a := actions.Action{
		Kind:     kind,
		Src:      ra.Src,
		Dest:     ra.Dest,
		Target:   ra.Target,
		Alias:    ra.Alias,
		Template: ra.Template,
		Path:     ra.Path,
	}
	if kind == actions.SetPermissions {
		mode, err := parseMode(ra.Mode)
		if err != nil {
			return actions.Action{}, err
		}
		a.Mode = mode
	}
	if err := a.Validate(); err != nil {
		return actions.Action{}, err
	}
	return a, nil
}

// parseMode accepts an octal string ("0755", "755", "0o755") or an integer
// that is already the mode value (YAML 0755, TOML 0o755).
func parseMode(v interface{}) (fs.FileMode, error) {
	var n uint64
	switch m := v.(type) {
	case nil:
		return 0, malformed("chmod: mode is required")
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(m), "0o"), "0O")
		parsed, err := strconv.ParseUint(s, 8, 32)
		if err != nil {
			return 0, malformed("chmod: mode %q is not octal", m)
		}
		n = parsed
	case int:
		if m < 0 {
			return 0, malformed("chmod: mode %d is negative", m)
		}
		n = uint64(m)
	case int64:
		if m < 0 {
			return 0, malformed("chmod: mode %d is negative", m)
		}
		n = uint64(m)
	case uint64:
		n = m
	default:
		return 0, malformed("chmod: mode has unsupported type %s", fmt.Sprintf("%T", v))
	}
	if n > uint64(fs.ModePerm) {
		return 0, malformed("chmod: mode %o is outside 0777", n)
	}
	return fs.FileMode(n), nil
}
