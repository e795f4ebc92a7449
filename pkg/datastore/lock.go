package datastore

import (
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// Lock is a held per-package advisory lock
type Lock struct {
	name   string
	fl     *flock.Flock
	logger zerolog.Logger
}

// Lock acquires the advisory lock of a package without blocking. If another
// process (or another handle in this one) holds it, INSTALL_IN_PROGRESS is
// returned.
func (s *Store) Lock(name string) (*Lock, error) {
	if err := paths.ValidatePackageName(name); err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(s.paths.LocksDir(), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to create locks directory")
	}

	path := s.paths.LockPath(name)
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "failed to lock %s", path)
	}
	if !locked {
		return nil, errors.Newf(errors.ErrInstallInProgress, "another tapkit process is working on %s", name).
			WithDetail(errors.DetailRecipe, name).
			WithDetail(errors.DetailPath, path)
	}

	s.logger.Trace().Str("package", name).Msg("Lock acquired")
	return &Lock{name: name, fl: fl, logger: s.logger}, nil
}

// Unlock releases the lock. Safe to call more than once.
func (l *Lock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to unlock %s", l.name)
	}
	l.logger.Trace().Str("package", l.name).Msg("Lock released")
	return nil
}
