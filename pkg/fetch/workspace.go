package fetch

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/logging"
)

const (
	downloadSubdir = "download"
	stagingSubdir  = "staging"
)

// Workspace is the scoped temporary directory of one install. It holds the
// downloaded artifact and the unpacked staging tree.
type Workspace struct {
	Dir  string
	keep bool
}

// NewWorkspace creates <parent>/<name>-<version>-* . When keep is set,
// Close leaves it in place for inspection.
func NewWorkspace(parent, name, version string, keep bool) (*Workspace, error) {
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "create %s", parent)
	}
	dir, err := os.MkdirTemp(parent, name+"-"+version+"-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "create workspace")
	}
	for _, sub := range []string{downloadSubdir, stagingSubdir} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0755); err != nil {
			_ = os.RemoveAll(dir)
			return nil, errors.Wrap(err, errors.ErrInternal, "create workspace")
		}
	}
	return &Workspace{Dir: dir, keep: keep}, nil
}

// DownloadDir is where the artifact is downloaded to
func (w *Workspace) DownloadDir() string {
	return filepath.Join(w.Dir, downloadSubdir)
}

// StagingDir is where the artifact is unpacked to
func (w *Workspace) StagingDir() string {
	return filepath.Join(w.Dir, stagingSubdir)
}

// Close removes the workspace unless it is kept
func (w *Workspace) Close() error {
	if w == nil {
		return nil
	}
	logger := logging.GetLogger("fetch")
	if w.keep {
		logger.Info().Str("dir", w.Dir).Msg("Keeping workspace")
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		logger.Warn().Err(err).Str("dir", w.Dir).Msg("Failed to remove workspace")
		return errors.Wrapf(err, errors.ErrInternal, "remove workspace %s", w.Dir)
	}
	return nil
}
