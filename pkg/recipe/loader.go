package recipe

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/fetch"
	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/rs/zerolog"
)

// Loader reads recipes from local paths and URLs
type Loader struct {
	fs         filesystem.FS
	downloader fetch.Downloader
	logger     zerolog.Logger
}

// NewLoader creates a loader. Recipes given as http(s) URLs are retrieved
// with downloader.
func NewLoader(fsys filesystem.FS, downloader fetch.Downloader) *Loader {
	return &Loader{
		fs:         fsys,
		downloader: downloader,
		logger:     logging.GetLogger("recipe"),
	}
}

// IsURL reports whether ref names a remote recipe
func IsURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// Load reads and parses the recipe at ref, a path, a file:// URL or an
// http(s) URL.
func (l *Loader) Load(ctx context.Context, ref string) (*Recipe, error) {
	if ref == "" {
		return nil, errors.New(errors.ErrInvalidInput, "recipe path cannot be empty")
	}

	remote := IsURL(ref)
	name := ref
	if remote {
		u, _ := url.Parse(ref)
		name = u.Path
	}
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}

	var data []byte
	if remote {
		data, err = l.download(ctx, ref)
	} else {
		data, err = l.readLocal(strings.TrimPrefix(ref, "file://"))
	}
	if err != nil {
		return nil, err
	}

	r, err := Parse(data, format, ref)
	if err != nil {
		return nil, err
	}
	l.logger.Debug().
		Str("recipe", r.Name).
		Str("version", r.VersionString()).
		Str("origin", ref).
		Int("actions", len(r.Install)).
		Msg("Loaded recipe")
	return r, nil
}

func (l *Loader) readLocal(path string) ([]byte, error) {
	data, err := l.fs.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(err, errors.ErrNotFound, "recipe %s not found", path).
			WithDetail("origin", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to read recipe %s", path)
	}
	return data, nil
}

func (l *Loader) download(ctx context.Context, ref string) ([]byte, error) {
	if l.downloader == nil {
		return nil, errors.Newf(errors.ErrInvalidInput, "cannot load remote recipe %s", ref)
	}
	dir, err := os.MkdirTemp("", "tapkit-recipe-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to create temporary directory")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	local, err := l.downloader.Download(ctx, ref, dir)
	if err != nil {
		return nil, err
	}
	return l.readLocal(local)
}
