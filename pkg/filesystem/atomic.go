package filesystem

import (
	"io/fs"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary sibling of name and renames it
// into place once synced, so the entry appears whole or not at all. The
// parent directory must exist.
func WriteFileAtomic(fsys FS, name string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(name)
	tmp, err := fsys.CreateTemp(dir, "."+filepath.Base(name)+".tapkit-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = fsys.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := fsys.Rename(tmpName, name); err != nil {
		return err
	}
	committed = true
	return nil
}
