package fetch

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
)

// Digest returns the lowercase hex SHA-256 of the file at path
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInternal, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, errors.ErrInternal, "read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum compares the digest of path with expected in constant
// time. A difference is CHECKSUM_MISMATCH.
func VerifyChecksum(path, expected string) error {
	actual, err := Digest(path)
	if err != nil {
		return err
	}
	want := strings.ToLower(strings.TrimSpace(expected))
	if subtle.ConstantTimeCompare([]byte(actual), []byte(want)) != 1 {
		return errors.Newf(errors.ErrChecksumMismatch, "checksum mismatch for %s", ArtifactName(path)).
			WithDetail("expected", want).
			WithDetail("actual", actual)
	}
	return nil
}
