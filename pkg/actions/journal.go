package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/rs/zerolog"
)

// aside is a pre-existing entry renamed to a sibling backup before the
// pipeline runs
type aside struct {
	path   string
	backup string
}

// undoLog covers what a synthfs pipeline cannot: entries that already
// existed (synthfs refuses to replace them) and reverting a run that
// already succeeded. Created entries come from the plan, so the log only
// stores paths.
type undoLog struct {
	fs      filesystem.FS
	logger  zerolog.Logger
	asides  []aside
	dirs    []string // outermost first
	created []string // files and symlinks, in creation order
}

var backupSeq uint64

func backupName(path string) string {
	n := atomic.AddUint64(&backupSeq, 1)
	return filepath.Join(filepath.Dir(path),
		fmt.Sprintf(".%s.tapkit-bak-%d-%d", filepath.Base(path), time.Now().UnixNano(), n))
}

// moveAside renames an existing entry to a sibling backup
func (u *undoLog) moveAside(path string) error {
	backup := backupName(path)
	if err := u.fs.Rename(path, backup); err != nil {
		return err
	}
	u.asides = append(u.asides, aside{path: path, backup: backup})
	return nil
}

// revert removes every planned entry still present, newest first, drops
// planned directories left empty and puts backups back. It keeps going
// past errors and returns the first one.
func (u *undoLog) revert() error {
	var first error
	note := func(err error, path string) {
		if err == nil || os.IsNotExist(err) {
			return
		}
		u.logger.Error().Err(err).Str("path", path).Msg("Failed to revert change")
		if first == nil {
			first = err
		}
	}

	for i := len(u.created) - 1; i >= 0; i-- {
		path := u.created[i]
		if _, err := u.fs.Lstat(path); err == nil {
			note(u.fs.Remove(path), path)
		}
	}
	for i := len(u.dirs) - 1; i >= 0; i-- {
		// Anything left inside belongs to someone else
		if entries, err := u.fs.ReadDir(u.dirs[i]); err == nil && len(entries) == 0 {
			note(u.fs.Remove(u.dirs[i]), u.dirs[i])
		}
	}
	for i := len(u.asides) - 1; i >= 0; i-- {
		a := u.asides[i]
		note(u.fs.Rename(a.backup, a.path), a.path)
		u.logger.Trace().Str("path", a.path).Msg("Restored")
	}

	u.reset()
	return first
}

// discard deletes the backups, making the run permanent
func (u *undoLog) discard() error {
	var first error
	for _, a := range u.asides {
		if err := u.fs.RemoveAll(a.backup); err != nil && first == nil {
			first = err
		}
	}
	u.reset()
	return first
}

func (u *undoLog) reset() {
	u.asides, u.dirs, u.created = nil, nil, nil
}
