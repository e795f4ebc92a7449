package datastore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const recordExt = ".json"

// Store is the explicit handle to the shared state directory
type Store struct {
	fs     filesystem.FS
	paths  paths.Paths
	logger zerolog.Logger
}

// New creates a Store over the given state layout
func New(fs filesystem.FS, p paths.Paths) *Store {
	if fs == nil {
		fs = filesystem.NewOS()
	}
	return &Store{fs: fs, paths: p, logger: logging.GetLogger("datastore")}
}

// Paths returns the layout the store was created with
func (s *Store) Paths() paths.Paths {
	return s.paths
}

// Get loads the record of a package. A missing record is NOT_INSTALLED,
// an unreadable one STATE_CORRUPT.
func (s *Store) Get(name string) (*Record, error) {
	if err := paths.ValidatePackageName(name); err != nil {
		return nil, err
	}
	path := s.paths.RecordPath(name)
	data, err := s.fs.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrNotInstalled, "%s is not installed", name).
			WithDetail(errors.DetailRecipe, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to read record for %s", name)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStateCorrupt, "record for %s is not valid JSON", name).
			WithDetail(errors.DetailPath, path)
	}
	if rec.Name != name {
		return nil, errors.Newf(errors.ErrStateCorrupt, "record %s names package %q", path, rec.Name).
			WithDetail(errors.DetailPath, path)
	}
	if err := rec.Validate(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStateCorrupt, "record for %s is invalid", name).
			WithDetail(errors.DetailPath, path)
	}
	return &rec, nil
}

// Lookup is Get that returns nil, nil for packages that are not installed
func (s *Store) Lookup(name string) (*Record, error) {
	rec, err := s.Get(name)
	if errors.IsErrorCode(err, errors.ErrNotInstalled) {
		return nil, nil
	}
	return rec, err
}

// Put writes a record atomically: temp file in the same directory, sync,
// rename.
func (s *Store) Put(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.normalize()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to encode record for %s", rec.Name)
	}
	data = append(data, '\n')

	if err := s.writeFileAtomic(s.paths.RecordPath(rec.Name), data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to write record for %s", rec.Name)
	}

	s.logger.Debug().
		Str("package", rec.Name).
		Str("version", rec.Version).
		Int("files", len(rec.Files)).
		Int("symlinks", len(rec.Symlinks)).
		Msg("Record written")
	return nil
}

// Delete removes the record of a package. Deleting a missing record is not
// an error.
func (s *Store) Delete(name string) error {
	if err := paths.ValidatePackageName(name); err != nil {
		return err
	}
	if err := s.fs.Remove(s.paths.RecordPath(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrInternal, "failed to delete record for %s", name)
	}
	return nil
}

// List returns every record, sorted by name. Corrupt records are skipped
// with a warning.
func (s *Store) List() ([]Record, error) {
	entries, err := s.fs.ReadDir(s.paths.RecordsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list records")
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), recordExt)
		rec, err := s.Get(name)
		if err != nil {
			s.logger.Warn().Err(err).Str("package", name).Msg("Skipping unreadable record")
			continue
		}
		records = append(records, *rec)
	}
	sortRecords(records)
	return records, nil
}

// writeFileAtomic creates the parent of path when missing and replaces
// path atomically.
func (s *Store) writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(s.fs, path, data, perm)
}
