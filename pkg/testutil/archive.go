package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ArchiveEntry is one member of a test archive. A zero Type is a regular
// file; names ending in "/" are directories.
type ArchiveEntry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte
	Linkname string
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func (e ArchiveEntry) header() *tar.Header {
	if e.Type == tar.TypeXGlobalHeader {
		return &tar.Header{
			Name:       e.Name,
			Typeflag:   tar.TypeXGlobalHeader,
			PAXRecords: map[string]string{"comment": "0123456789abcdef"},
			Format:     tar.FormatPAX,
		}
	}
	h := &tar.Header{
		Name:     e.Name,
		Mode:     e.Mode,
		Typeflag: e.Type,
		Linkname: e.Linkname,
		ModTime:  epoch,
		Format:   tar.FormatPAX,
	}
	if h.Typeflag == 0 {
		h.Typeflag = tar.TypeReg
		if len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/' {
			h.Typeflag = tar.TypeDir
		}
	}
	if h.Mode == 0 {
		h.Mode = 0644
		if h.Typeflag == tar.TypeDir {
			h.Mode = 0755
		}
	}
	if h.Typeflag == tar.TypeReg {
		h.Size = int64(len(e.Body))
	}
	return h
}

// Tar builds an uncompressed tar archive
func Tar(t *testing.T, entries []ArchiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(e.header()))
		if e.header().Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// TarGz builds a gzip-compressed tar archive
func TarGz(t *testing.T, entries []ArchiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(Tar(t, entries))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// Zip builds a zip archive. Link entries are stored with the symlink mode.
func Zip(t *testing.T, entries []ArchiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		h := e.header()
		fh := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: epoch}
		mode := os.FileMode(h.Mode).Perm()
		body := e.Body
		switch h.Typeflag {
		case tar.TypeDir:
			mode |= os.ModeDir
		case tar.TypeSymlink:
			mode |= os.ModeSymlink
			body = e.Linkname
		}
		fh.SetMode(mode)
		w, err := zw.CreateHeader(fh)
		require.NoError(t, err)
		if h.Typeflag != tar.TypeDir {
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// SHA256 returns the lowercase hex digest of data
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteFile writes data to path, creating parents, and returns path
func WriteFile(t *testing.T, path string, data []byte, mode os.FileMode) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, mode))
	return path
}
