package actions

import (
	"io"
	"sort"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/valyala/fasttemplate"
)

// Script template delimiters
const (
	TagStart = "{{"
	TagEnd   = "}}"
)

// TemplateVars are the values a generated script may reference
type TemplateVars struct {
	Prefix  paths.Prefix
	Name    string
	Version string
}

// Tags returns the recognized token names and their values. share is the
// package's own data directory.
func (v TemplateVars) Tags() map[string]string {
	return map[string]string{
		"prefix":  v.Prefix.Root,
		"bin":     v.Prefix.Bin(),
		"lib":     v.Prefix.Lib(),
		"share":   v.Prefix.PackageShare(v.Name),
		"name":    v.Name,
		"version": v.Version,
	}
}

// RenderScript substitutes the recognized tokens in tmpl. Whitespace inside
// a tag is ignored. An unknown token is an error.
func RenderScript(tmpl string, vars TemplateVars) (string, error) {
	t, err := fasttemplate.NewTemplate(tmpl, TagStart, TagEnd)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidInput, "invalid script template")
	}

	tags := vars.Tags()
	out, err := t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		value, ok := tags[strings.TrimSpace(tag)]
		if !ok {
			return 0, errors.Newf(errors.ErrInvalidInput, "unknown template token %q (known: %s)",
				strings.TrimSpace(tag), strings.Join(knownTags(tags), ", "))
		}
		return w.Write([]byte(value))
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func knownTags(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
