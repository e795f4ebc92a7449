// pkg/fetch/fetch_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: httptest, filesystem
// PURPOSE: Test artifact download, checksums and archive extraction

package fetch_test

import (
	"archive/tar"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/fetch"
	"github.com/arthur-debert/tapkit/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://github.com/vsmash/maiass/archive/refs/tags/4.6.3.tar.gz", "4.6.3.tar.gz"},
		{"https://example.com/dl/maiass.tgz?token=x", "maiass.tgz"},
		{"file:///tmp/maiass.zip", "maiass.zip"},
		{"/tmp/maiass.sh", "maiass.sh"},
		{"https://example.com/", fetch.DefaultArtifactName},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, fetch.ArtifactName(tt.in))
		})
	}
}

func TestClient_DownloadHTTP(t *testing.T) {
	srv := testutil.NewArtifactServer(t)
	data := testutil.TarGz(t, testutil.MaiassEntries("4.6.3"))
	url := srv.Add("maiass-4.6.3.tar.gz", data)

	dest := t.TempDir()
	path, err := fetch.NewClient(time.Minute).Download(context.Background(), url, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "maiass-4.6.3.tar.gz"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 1, srv.Hits("maiass-4.6.3.tar.gz"))
}

func TestClient_DownloadErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		timeout  time.Duration
		wantKind errors.DownloadKind
	}{
		{
			name:     "not found",
			handler:  func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			wantKind: errors.DownloadNotFound,
		},
		{
			name:     "gone",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusGone) },
			wantKind: errors.DownloadNotFound,
		},
		{
			name:     "server error",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantKind: errors.DownloadNetwork,
		},
		{
			name: "slow server",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
			},
			timeout:  50 * time.Millisecond,
			wantKind: errors.DownloadTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			dest := t.TempDir()
			_, err := fetch.NewClient(tt.timeout).Download(context.Background(), srv.URL+"/maiass.tar.gz", dest)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrDownload))
			assert.Equal(t, tt.wantKind, fetch.DownloadKindOf(err))

			entries, err := os.ReadDir(dest)
			require.NoError(t, err)
			assert.Empty(t, entries, "no partial artifact is left")
		})
	}
}

func TestClient_DownloadConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/maiass.tar.gz"
	srv.Close()

	_, err := fetch.NewClient(time.Second).Download(context.Background(), url, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.DownloadNetwork, fetch.DownloadKindOf(err))
}

func TestClient_DownloadLocal(t *testing.T) {
	src := testutil.WriteFile(t, filepath.Join(t.TempDir(), "maiass.sh"), []byte("#!/bin/sh\n"), 0755)
	client := fetch.NewClient(0)

	for _, ref := range []string{src, "file://" + src} {
		dest := t.TempDir()
		path, err := client.Download(context.Background(), ref, dest)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dest, "maiass.sh"), path)
	}

	_, err := client.Download(context.Background(), filepath.Join(t.TempDir(), "missing.tgz"), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.DownloadNotFound, fetch.DownloadKindOf(err))

	_, err = client.Download(context.Background(), "ftp://example.com/x.tgz", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDownload))
}

func TestVerifyChecksum(t *testing.T) {
	data := testutil.TarGz(t, testutil.MaiassEntries("4.6.3"))
	sum := testutil.SHA256(data)
	path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "a.tar.gz"), data, 0644)

	require.NoError(t, fetch.VerifyChecksum(path, sum))
	require.NoError(t, fetch.VerifyChecksum(path, strings.ToUpper(sum)), "hex case does not matter")

	digest, err := fetch.Digest(path)
	require.NoError(t, err)
	assert.Equal(t, sum, digest)

	// One flipped byte
	mutated := append([]byte(nil), data...)
	mutated[len(mutated)/2] ^= 0x01
	badPath := testutil.WriteFile(t, filepath.Join(t.TempDir(), "b.tar.gz"), mutated, 0644)

	err = fetch.VerifyChecksum(badPath, sum)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrChecksumMismatch))
	assert.Equal(t, sum, errors.GetDetailString(err, "expected"))
}

func TestUnpack(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		data      func(t *testing.T) []byte
		wantRoot  string
		wantFiles []string
	}{
		{
			name:      "tarball with single top-level dir is descended",
			file:      "4.6.3.tar.gz",
			data:      func(t *testing.T) []byte { return testutil.TarGz(t, testutil.MaiassEntries("4.6.3")) },
			wantRoot:  "maiass-4.6.3",
			wantFiles: []string{"README.md", "committhis.sh", "lib/", "lib/common.sh", "maiass.sh"},
		},
		{
			name: "pax global header is skipped",
			file: "x.tgz",
			data: func(t *testing.T) []byte {
				entries := append([]testutil.ArchiveEntry{
					{Name: "pax_global_header", Type: tar.TypeXGlobalHeader},
				}, testutil.MaiassEntries("1.0.0")...)
				return testutil.TarGz(t, entries)
			},
			wantRoot:  "maiass-1.0.0",
			wantFiles: []string{"README.md", "committhis.sh", "lib/", "lib/common.sh", "maiass.sh"},
		},
		{
			name: "flat tar",
			file: "flat.tar",
			data: func(t *testing.T) []byte {
				return testutil.Tar(t, []testutil.ArchiveEntry{
					{Name: "maiass.sh", Body: "x", Mode: 0755},
					{Name: "lib/common.sh", Body: "y"},
				})
			},
			wantFiles: []string{"lib/", "lib/common.sh", "maiass.sh"},
		},
		{
			name: "zip",
			file: "maiass.zip",
			data: func(t *testing.T) []byte {
				return testutil.Zip(t, []testutil.ArchiveEntry{
					{Name: "maiass/"},
					{Name: "maiass/maiass.sh", Body: "x", Mode: 0755},
				})
			},
			wantRoot:  "maiass",
			wantFiles: []string{"maiass.sh"},
		},
		{
			name:      "plain file",
			file:      "maiass.sh",
			data:      func(t *testing.T) []byte { return []byte("#!/bin/sh\n") },
			wantFiles: []string{"maiass.sh"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact := testutil.WriteFile(t, filepath.Join(t.TempDir(), tt.file), tt.data(t), 0644)
			dest := t.TempDir()

			root, err := fetch.Unpack(artifact, dest)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dest, tt.wantRoot), root)
			assert.Equal(t, tt.wantFiles, testutil.Tree(t, root))
		})
	}
}

func TestUnpack_PreservesExecutableBit(t *testing.T) {
	data := testutil.TarGz(t, testutil.MaiassEntries("4.6.3"))
	artifact := testutil.WriteFile(t, filepath.Join(t.TempDir(), "m.tar.gz"), data, 0644)

	root, err := fetch.Unpack(artifact, t.TempDir())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "maiass.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0100)
}

func TestUnpack_RejectsUnsafeArchives(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		entries []testutil.ArchiveEntry
	}{
		{"parent escape", "a.tar.gz", []testutil.ArchiveEntry{{Name: "../evil.sh", Body: "x"}}},
		{"nested escape", "a.tar.gz", []testutil.ArchiveEntry{{Name: "pkg/../../evil.sh", Body: "x"}}},
		{"absolute path", "a.tar", []testutil.ArchiveEntry{{Name: "/etc/evil", Body: "x"}}},
		{"symlink", "a.tar.gz", []testutil.ArchiveEntry{{Name: "link", Type: tar.TypeSymlink, Linkname: "/etc/passwd"}}},
		{"hard link", "a.tar.gz", []testutil.ArchiveEntry{{Name: "link", Type: tar.TypeLink, Linkname: "x"}}},
		{"zip symlink", "a.zip", []testutil.ArchiveEntry{{Name: "link", Type: tar.TypeSymlink, Linkname: "/etc/passwd"}}},
		{"zip escape", "a.zip", []testutil.ArchiveEntry{{Name: "../evil.sh", Body: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data []byte
			switch {
			case strings.HasSuffix(tt.file, ".zip"):
				data = testutil.Zip(t, tt.entries)
			case strings.HasSuffix(tt.file, ".tar"):
				data = testutil.Tar(t, tt.entries)
			default:
				data = testutil.TarGz(t, tt.entries)
			}
			dir := t.TempDir()
			artifact := testutil.WriteFile(t, filepath.Join(dir, tt.file), data, 0644)

			_, err := fetch.Unpack(artifact, filepath.Join(dir, "staging"))
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrArchiveInvalid), "got %v", err)
			assert.NoFileExists(t, filepath.Join(dir, "evil.sh"))
		})
	}
}

func TestUnpack_CorruptGzip(t *testing.T) {
	artifact := testutil.WriteFile(t, filepath.Join(t.TempDir(), "a.tar.gz"), []byte("not gzip"), 0644)
	_, err := fetch.Unpack(artifact, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrArchiveInvalid))
}

func TestWorkspace(t *testing.T) {
	parent := t.TempDir()

	ws, err := fetch.NewWorkspace(parent, "maiass", "4.6.3", false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Dir), "maiass-4.6.3-"))
	assert.DirExists(t, ws.DownloadDir())
	assert.DirExists(t, ws.StagingDir())
	require.NoError(t, ws.Close())
	assert.NoDirExists(t, ws.Dir)

	kept, err := fetch.NewWorkspace(parent, "maiass", "4.6.3", true)
	require.NoError(t, err)
	require.NoError(t, kept.Close())
	assert.DirExists(t, kept.Dir)

	var none *fetch.Workspace
	assert.NoError(t, none.Close())
}
