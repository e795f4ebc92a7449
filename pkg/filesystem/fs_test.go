// pkg/filesystem/fs_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: filesystem
// PURPOSE: Test the OS filesystem and the fault-injecting wrapper

package filesystem_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOS(t *testing.T) {
	fsys := filesystem.NewOS()
	require.NotNil(t, fsys)

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "sub", "test.txt")
	testContent := []byte("hello world")

	require.NoError(t, fsys.MkdirAll(filepath.Dir(testFile), 0755))
	require.NoError(t, fsys.WriteFile(testFile, testContent, 0644))

	info, err := fsys.Stat(testFile)
	require.NoError(t, err)
	assert.Equal(t, "test.txt", info.Name())
	assert.Equal(t, int64(len(testContent)), info.Size())

	content, err := fsys.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, testContent, content)

	require.NoError(t, fsys.Chmod(testFile, 0700))
	info, err = fsys.Stat(testFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	link := filepath.Join(tmpDir, "link")
	require.NoError(t, fsys.Symlink("sub/test.txt", link))
	target, err := fsys.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "sub/test.txt", target)

	linfo, err := fsys.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, linfo.Mode()&os.ModeSymlink)
	assert.True(t, filesystem.Exists(fsys, link))

	tmp, err := fsys.CreateTemp(tmpDir, ".tmp-*")
	require.NoError(t, err)
	_, err = tmp.WriteString("staged")
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	renamed := filepath.Join(tmpDir, "renamed")
	require.NoError(t, fsys.Rename(tmp.Name(), renamed))

	entries, err := fsys.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	require.NoError(t, fsys.Remove(link))
	assert.False(t, filesystem.Exists(fsys, link))
	require.NoError(t, fsys.RemoveAll(filepath.Join(tmpDir, "sub")))
	assert.False(t, filesystem.Exists(fsys, testFile))
}

func TestFaultFS_FailNth(t *testing.T) {
	boom := errors.New("disk full")
	fsys := filesystem.NewFaultFS(filesystem.NewOS(), filesystem.FailNth(filesystem.OpWriteFile, 2, boom))
	dir := t.TempDir()

	require.NoError(t, fsys.WriteFile(filepath.Join(dir, "a"), []byte("a"), 0644))

	err := fsys.WriteFile(filepath.Join(dir, "b"), []byte("b"), 0644)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, filepath.Join(dir, "b"))

	require.NoError(t, fsys.WriteFile(filepath.Join(dir, "c"), []byte("c"), 0644))

	// Other operations are unaffected
	require.NoError(t, fsys.MkdirAll(filepath.Join(dir, "d"), 0755))
	assert.Equal(t, []string{
		filesystem.OpWriteFile, filesystem.OpWriteFile, filesystem.OpWriteFile, filesystem.OpMkdirAll,
	}, fsys.Ops())
}

func TestFaultFS_NilHook(t *testing.T) {
	fsys := filesystem.NewFaultFS(filesystem.NewOS(), nil)
	dir := t.TempDir()

	require.NoError(t, fsys.Symlink("x", filepath.Join(dir, "l")))
	require.NoError(t, fsys.Rename(filepath.Join(dir, "l"), filepath.Join(dir, "m")))
	assert.Equal(t, []string{filesystem.OpSymlink, filesystem.OpRename}, fsys.Ops())
}
