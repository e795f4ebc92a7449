package filesystem

import (
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	sfs "github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"
)

// Pipeline adapts an FS to the filesystem a synthfs pipeline runs against.
// Reads go straight to the host through synthfs's own OS implementation.
// Writes, directory creation, symlinks and removals go through fsys, with
// files written atomically. The first mutation error is kept so callers can
// report the cause rather than the pipeline's summary.
type Pipeline struct {
	sfs.FullFileSystem

	fs    FS
	mu    sync.Mutex
	cause error
}

// NewPipeline wraps fsys for absolute paths rooted at /
func NewPipeline(fsys FS) *Pipeline {
	host := synthfs.NewPathAwareFileSystem(sfs.NewOSFileSystem("/"), "/").WithAbsolutePaths()
	return &Pipeline{FullFileSystem: host, fs: fsys}
}

// Cause returns the first mutation error seen, if any
func (p *Pipeline) Cause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cause
}

func (p *Pipeline) note(err error) error {
	if err != nil {
		p.mu.Lock()
		if p.cause == nil {
			p.cause = err
		}
		p.mu.Unlock()
	}
	return err
}

func (p *Pipeline) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return p.note(WriteFileAtomic(p.fs, rooted(name), data, perm))
}

func (p *Pipeline) MkdirAll(path string, perm fs.FileMode) error {
	return p.note(p.fs.MkdirAll(rooted(path), perm))
}

// Symlink keeps oldname as given; relative link targets stay relative
func (p *Pipeline) Symlink(oldname, newname string) error {
	return p.note(p.fs.Symlink(oldname, rooted(newname)))
}

// Chmod is used by custom pipeline steps that change modes
func (p *Pipeline) Chmod(name string, mode fs.FileMode) error {
	return p.note(p.fs.Chmod(rooted(name), mode))
}

func (p *Pipeline) Remove(name string) error {
	return p.fs.Remove(rooted(name))
}

func (p *Pipeline) RemoveAll(path string) error {
	return p.fs.RemoveAll(rooted(path))
}

// rooted restores the leading slash synthfs strips from some paths
func rooted(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join("/", name)
}
