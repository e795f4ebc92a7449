package installer

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/arthur-debert/tapkit/pkg/recipe"
	"github.com/arthur-debert/tapkit/pkg/verify"
	"github.com/rs/zerolog"
)

// UninstallReport describes a removed package
type UninstallReport struct {
	Name    string
	Version string
	Prefix  string
	Removed []string
	// Skipped lists recorded paths that were already gone or had been
	// replaced by something tapkit did not create
	Skipped []string
}

// Uninstall removes everything the record of name lists, symlinks first,
// each group in reverse install order, then prunes empty parents and drops
// the record. It works on the prefix the package was installed into.
func (in *Installer) Uninstall(ctx context.Context, name string) (*UninstallReport, error) {
	logger := in.logger.With().Str("recipe", name).Logger()
	defer logging.LogOperationStart(logger, "uninstall")()

	lock, err := in.opts.Store.Lock(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	rec, err := in.opts.Store.Get(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrActionFailed, "uninstall cancelled")
	}

	prefix := paths.Prefix{Root: rec.Prefix}
	report := &UninstallReport{Name: rec.Name, Version: rec.Version, Prefix: rec.Prefix}

	for i := len(rec.Symlinks) - 1; i >= 0; i-- {
		in.removeEntry(logger, prefix, rec.Symlinks[i], true, report)
	}
	for i := len(rec.Files) - 1; i >= 0; i-- {
		in.removeEntry(logger, prefix, rec.Files[i], false, report)
	}
	for _, rel := range rec.Paths() {
		in.pruneParents(prefix, rel)
	}

	if err := in.opts.Store.Delete(name); err != nil {
		return nil, err
	}
	logger.Info().
		Str("version", rec.Version).
		Int("removed", len(report.Removed)).
		Msg("Uninstalled")
	return report, nil
}

func (in *Installer) removeEntry(logger zerolog.Logger, prefix paths.Prefix, rel string, wantLink bool, report *UninstallReport) {
	abs, err := prefix.Resolve(rel)
	if err != nil {
		report.Skipped = append(report.Skipped, rel)
		return
	}
	info, err := in.opts.FS.Lstat(abs)
	if err != nil {
		report.Skipped = append(report.Skipped, rel)
		return
	}
	isLink := info.Mode()&fs.ModeSymlink != 0
	if info.IsDir() || wantLink != isLink {
		logger.Warn().Str("path", rel).Msg("Leaving path that was replaced after install")
		report.Skipped = append(report.Skipped, rel)
		return
	}
	if err := in.opts.FS.Remove(abs); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("path", rel).Msg("Failed to remove")
		report.Skipped = append(report.Skipped, rel)
		return
	}
	report.Removed = append(report.Removed, rel)
}

// removeStale deletes paths a previous version installed that the new
// record no longer lists
func (in *Installer) removeStale(logger zerolog.Logger, stale []string) []string {
	if len(stale) == 0 {
		return nil
	}
	prefix := in.opts.Prefix
	var removed []string
	for _, rel := range stale {
		abs, err := prefix.Resolve(rel)
		if err != nil {
			continue
		}
		info, err := in.opts.FS.Lstat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := in.opts.FS.Remove(abs); err != nil {
			logger.Warn().Err(err).Str("path", rel).Msg("Failed to remove stale path")
			continue
		}
		removed = append(removed, rel)
	}
	for _, rel := range removed {
		in.pruneParents(prefix, rel)
	}
	logger.Debug().Strs("paths", removed).Msg("Removed stale paths")
	return removed
}

// pruneParents removes empty directories above rel, stopping below the
// managed bin, lib and share directories
func (in *Installer) pruneParents(prefix paths.Prefix, rel string) {
	for dir := path.Dir(rel); path.Dir(dir) != "."; dir = path.Dir(dir) {
		abs := filepath.Join(prefix.Root, filepath.FromSlash(dir))
		entries, err := in.opts.FS.ReadDir(abs)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := in.opts.FS.Remove(abs); err != nil {
			return
		}
	}
}

// Check re-runs the recipe's post-install check against the installed
// package and records the outcome.
func (in *Installer) Check(ctx context.Context, name string, r *recipe.Recipe) (*verify.Outcome, error) {
	if r.Name != name {
		return nil, errors.Newf(errors.ErrInvalidInput, "recipe %s does not describe package %s", r.Name, name)
	}
	if r.Test == nil {
		return nil, errors.Newf(errors.ErrInvalidInput, "recipe %s has no test", r.Name)
	}
	rec, err := in.opts.Store.Get(name)
	if err != nil {
		return nil, err
	}

	outcome, err := in.verifier.Verify(ctx, paths.Prefix{Root: rec.Prefix}, r.Test)
	if err != nil {
		return nil, annotate(err, rec.Name, rec.Version, StageVerifyingBehavior)
	}
	in.markVerified(in.logger.With().Str("recipe", name).Logger(), name)
	return outcome, nil
}
