package filesystem

import (
	"io/fs"
	"os"
	"sync"
)

// Mutating operation names reported to a FaultFS hook
const (
	OpWriteFile  = "write_file"
	OpCreateTemp = "create_temp"
	OpChmod      = "chmod"
	OpMkdirAll   = "mkdir_all"
	OpSymlink    = "symlink"
	OpRemove     = "remove"
	OpRemoveAll  = "remove_all"
	OpRename     = "rename"
)

// FaultFS wraps an FS and lets a hook fail selected mutating operations.
// Reads always pass through.
type FaultFS struct {
	FS

	mu   sync.Mutex
	hook func(op, path string) error
	ops  []string
}

// NewFaultFS wraps base. A nil hook never fails.
func NewFaultFS(base FS, hook func(op, path string) error) *FaultFS {
	return &FaultFS{FS: base, hook: hook}
}

// FailNth returns a hook that fails the nth call (1-based) of op with err
func FailNth(op string, n int, err error) func(string, string) error {
	var mu sync.Mutex
	count := 0
	return func(gotOp, _ string) error {
		if gotOp != op {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == n {
			return err
		}
		return nil
	}
}

// Ops returns the mutating operations seen so far, in order
func (f *FaultFS) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *FaultFS) check(op, path string) error {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	hook := f.hook
	f.mu.Unlock()
	if hook == nil {
		return nil
	}
	if err := hook(op, path); err != nil {
		return &fs.PathError{Op: op, Path: path, Err: err}
	}
	return nil
}

func (f *FaultFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := f.check(OpWriteFile, name); err != nil {
		return err
	}
	return f.FS.WriteFile(name, data, perm)
}

func (f *FaultFS) CreateTemp(dir, pattern string) (*os.File, error) {
	if err := f.check(OpCreateTemp, dir); err != nil {
		return nil, err
	}
	return f.FS.CreateTemp(dir, pattern)
}

func (f *FaultFS) Chmod(name string, mode fs.FileMode) error {
	if err := f.check(OpChmod, name); err != nil {
		return err
	}
	return f.FS.Chmod(name, mode)
}

func (f *FaultFS) MkdirAll(path string, perm fs.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultFS) Symlink(oldname, newname string) error {
	if err := f.check(OpSymlink, newname); err != nil {
		return err
	}
	return f.FS.Symlink(oldname, newname)
}

func (f *FaultFS) Remove(name string) error {
	if err := f.check(OpRemove, name); err != nil {
		return err
	}
	return f.FS.Remove(name)
}

func (f *FaultFS) RemoveAll(path string) error {
	if err := f.check(OpRemoveAll, path); err != nil {
		return err
	}
	return f.FS.RemoveAll(path)
}

func (f *FaultFS) Rename(oldpath, newpath string) error {
	if err := f.check(OpRename, newpath); err != nil {
		return err
	}
	return f.FS.Rename(oldpath, newpath)
}
