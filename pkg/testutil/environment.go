package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/tapkit/pkg/datastore"
	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/stretchr/testify/require"
)

// Env is an isolated tapkit environment: state, cache and config dirs plus
// a target prefix, all below one temporary root.
type Env struct {
	Root   string
	Paths  paths.Paths
	Prefix paths.Prefix
	Store  *datastore.Store
}

// NewEnv creates an isolated environment and points the TAPKIT_*_DIR
// variables at it.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	root := t.TempDir()

	p := paths.NewWithRoot(root)
	t.Setenv(paths.EnvStateDir, p.StateDir())
	t.Setenv(paths.EnvCacheDir, p.CacheDir())
	t.Setenv(paths.EnvConfigDir, p.ConfigDir())

	prefix := paths.Prefix{Root: filepath.Join(root, "prefix")}
	require.NoError(t, os.MkdirAll(prefix.Root, 0755))

	return &Env{
		Root:   root,
		Paths:  p,
		Prefix: prefix,
		Store:  datastore.New(filesystem.NewOS(), p),
	}
}

// PrefixPath returns the absolute path of a prefix-relative path
func (e *Env) PrefixPath(rel string) string {
	return filepath.Join(e.Prefix.Root, filepath.FromSlash(rel))
}

// PrefixTree lists every entry in the prefix, directories with a
// trailing slash
func (e *Env) PrefixTree(t *testing.T) []string {
	t.Helper()
	return Tree(t, e.Prefix.Root)
}

// Tree lists every entry below root, directories with a trailing slash
func Tree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, rel)
		return nil
	})
	require.NoError(t, err)
	return out
}
