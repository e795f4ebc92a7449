package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/logging"
)

type archiveFormat string

const (
	formatNone  archiveFormat = ""
	formatTar   archiveFormat = "tar"
	formatTarGz archiveFormat = "tar.gz"
	formatZip   archiveFormat = "zip"
)

func detectFormat(name string) archiveFormat {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return formatTarGz
	case strings.HasSuffix(lower, ".tar"):
		return formatTar
	case strings.HasSuffix(lower, ".zip"):
		return formatZip
	default:
		return formatNone
	}
}

// IsArchive reports whether Unpack would extract the artifact
func IsArchive(name string) bool {
	return detectFormat(name) != formatNone
}

// Unpack extracts artifact into dest and returns the staging root. Archives
// with a single top-level directory are descended into. Anything that is
// not an archive is copied into dest under its own name. Entries that
// escape dest, and link entries, are ARCHIVE_INVALID.
func Unpack(artifact, dest string) (string, error) {
	logger := logging.GetLogger("fetch.unpack")
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrInternal, "create %s", dest)
	}

	format := detectFormat(artifact)
	var err error
	switch format {
	case formatTarGz:
		err = extractTarGz(artifact, dest)
	case formatTar:
		err = extractTarFile(artifact, dest)
	case formatZip:
		err = extractZip(artifact, dest)
	default:
		err = copyFile(artifact, filepath.Join(dest, filepath.Base(artifact)), 0644)
	}
	if err != nil {
		return "", err
	}

	root, err := stagingRoot(dest)
	if err != nil {
		return "", err
	}
	logger.Debug().
		Str("artifact", filepath.Base(artifact)).
		Str("format", string(format)).
		Str("root", root).
		Msg("Unpacked artifact")
	return root, nil
}

func stagingRoot(dest string) (string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInternal, "read %s", dest)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dest, entries[0].Name()), nil
	}
	return dest, nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrArchiveInvalid, format, args...)
}

// entryPath validates an archive member name and returns its location
// below dest
func entryPath(dest, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." {
		return dest, nil
	}
	if strings.HasPrefix(name, "/") || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") ||
		strings.Contains(name, "\x00") {
		return "", invalid("archive entry %q escapes the staging directory", name)
	}
	return filepath.Join(dest, filepath.FromSlash(clean)), nil
}

func extractTarGz(archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "open archive")
	}
	defer func() { _ = file.Close() }()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return errors.Wrap(err, errors.ErrArchiveInvalid, "not a gzip stream")
	}
	defer func() { _ = gz.Close() }()

	return untarStream(gz, dest)
}

func extractTarFile(archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "open archive")
	}
	defer func() { _ = file.Close() }()
	return untarStream(file, dest)
}

func untarStream(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrArchiveInvalid, "read tar header")
		}

		switch header.Typeflag {
		case tar.TypeXGlobalHeader:
			// GitHub tag tarballs start with a pax global header
			continue
		case tar.TypeDir:
			target, err := entryPath(dest, header.Name)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrapf(err, errors.ErrInternal, "create dir %s", header.Name)
			}
		case tar.TypeReg:
			target, err := entryPath(dest, header.Name)
			if err != nil {
				return err
			}
			if err := writeEntry(target, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink, tar.TypeLink:
			return invalid("archive entry %q is a link", header.Name)
		default:
			return invalid("archive entry %q has unsupported type %q", header.Name, string(header.Typeflag))
		}
	}
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrArchiveInvalid, "open zip")
	}
	defer func() { _ = reader.Close() }()

	for _, file := range reader.File {
		target, err := entryPath(dest, file.Name)
		if err != nil {
			return err
		}
		mode := file.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrapf(err, errors.ErrInternal, "create dir %s", file.Name)
			}
		case mode&os.ModeSymlink != 0:
			return invalid("archive entry %q is a link", file.Name)
		case mode.IsRegular():
			rc, err := file.Open()
			if err != nil {
				return errors.Wrapf(err, errors.ErrArchiveInvalid, "open zip entry %s", file.Name)
			}
			err = writeEntry(target, rc, mode.Perm())
			_ = rc.Close()
			if err != nil {
				return err
			}
		default:
			return invalid("archive entry %q has unsupported mode %s", file.Name, mode)
		}
	}
	return nil
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0644
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "prepare %s", target)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "create %s", target)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, errors.ErrArchiveInvalid, "extract %s", filepath.Base(target))
	}
	return out.Close()
}

func copyFile(src, dest string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "open %s", src)
	}
	defer func() { _ = in.Close() }()
	return writeEntry(dest, in, perm)
}
