package installer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/arthur-debert/tapkit/pkg/actions"
	"github.com/arthur-debert/tapkit/pkg/datastore"
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/fetch"
	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/arthur-debert/tapkit/pkg/recipe"
	"github.com/arthur-debert/tapkit/pkg/verify"
	"github.com/rs/zerolog"
)

// Options configures an Installer
type Options struct {
	// Prefix is where packages are installed
	Prefix paths.Prefix
	// Store is the handle to the shared state directory
	Store *datastore.Store
	// Downloader fetches artifacts. Defaults to a fetch.Client with Timeout.
	Downloader fetch.Downloader
	// Timeout bounds each download when Downloader is defaulted
	Timeout time.Duration
	// Runner executes post-install checks. Defaults to verify.CmdRunner.
	Runner verify.Runner
	// Verify enables the post-install check
	Verify        bool
	VerifyTimeout time.Duration
	// KeepWorkspace leaves the download workspace in place
	KeepWorkspace bool
	// Platform overrides the host platform for source resolution
	Platform recipe.Platform
	// FS is the filesystem the prefix is written through
	FS filesystem.FS
	// LookPath finds dependencies on PATH. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// OnStage is called on every stage transition
	OnStage func(Stage)
	// Now returns the install time recorded in the state record
	Now func() time.Time
}

// Installer installs, checks and removes packages in one prefix
type Installer struct {
	opts     Options
	verifier *verify.Verifier
	logger   zerolog.Logger
}

// New creates an Installer, filling defaults for unset options
func New(opts Options) (*Installer, error) {
	if opts.Store == nil {
		return nil, errors.New(errors.ErrInvalidInput, "installer needs a state store")
	}
	if opts.Prefix.Root == "" {
		return nil, errors.New(errors.ErrInvalidInput, "installer needs a prefix")
	}
	prefix, err := paths.NewPrefix(opts.Prefix.Root)
	if err != nil {
		return nil, err
	}
	opts.Prefix = prefix
	if opts.FS == nil {
		opts.FS = filesystem.NewOS()
	}
	if opts.Downloader == nil {
		opts.Downloader = fetch.NewClient(opts.Timeout)
	}
	if opts.Platform == (recipe.Platform{}) {
		opts.Platform = recipe.HostPlatform()
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Installer{
		opts:     opts,
		verifier: verify.New(opts.Runner, opts.VerifyTimeout),
		logger:   logging.GetLogger("installer"),
	}, nil
}

// Prefix returns the prefix the installer writes into
func (in *Installer) Prefix() paths.Prefix {
	return in.opts.Prefix
}

// Report describes a finished install
type Report struct {
	Name            string
	Version         string
	Prefix          string
	Transition      Transition
	PreviousVersion string
	Source          recipe.Resolved
	Files           []string
	Symlinks        []string
	Results         []actions.Result
	// Removed lists paths of the previous version that the new one no
	// longer installs
	Removed             []string
	MissingDependencies []string
	Caveats             string
	// Verified is false when the check was skipped or failed
	Verified    bool
	VerifyError error
}

// session is the mutable state of one Install call
type session struct {
	in     *Installer
	recipe *recipe.Recipe
	stage  Stage
	logger zerolog.Logger
}

func (s *session) enter(stage Stage) {
	s.stage = stage
	s.logger.Info().Str("stage", stage.String()).Msg("Stage")
	if s.in.opts.OnStage != nil {
		s.in.opts.OnStage(stage)
	}
}

// fail attaches recipe, version and stage to err
func (s *session) fail(err error) error {
	var te *errors.TapkitError
	if !errors.As(err, &te) {
		te = errors.Wrap(err, errors.ErrInternal, "install failed")
		err = te
	}
	te.WithDetail(errors.DetailRecipe, s.recipe.Name).
		WithDetail(errors.DetailVersion, s.recipe.VersionString()).
		WithDetail(errors.DetailStage, s.stage.String())

	s.logger.Error().Err(err).Str("stage", s.stage.String()).Msg("Install failed")
	if s.in.opts.OnStage != nil {
		s.in.opts.OnStage(StageFailed)
	}
	return err
}

// Install runs r through the state machine. On error nothing in the prefix
// has changed and the error carries recipe, version and stage details.
func (in *Installer) Install(ctx context.Context, r *recipe.Recipe) (*Report, error) {
	if r == nil {
		return nil, errors.New(errors.ErrInvalidInput, "recipe cannot be nil")
	}
	s := &session{
		in:     in,
		recipe: r,
		logger: in.logger.With().
			Str("recipe", r.Name).
			Str("version", r.VersionString()).
			Logger(),
	}
	defer logging.LogOperationStart(s.logger, "install")()

	prefix := in.opts.Prefix
	report := &Report{
		Name:    r.Name,
		Version: r.VersionString(),
		Prefix:  prefix.Root,
		Caveats: r.Caveats,
	}

	// Resolving
	s.enter(StageResolving)
	resolved, err := r.Resolve(in.opts.Platform)
	if err != nil {
		return nil, s.fail(err)
	}
	report.Source = resolved
	if err := in.checkConflicts(r); err != nil {
		return nil, s.fail(err)
	}
	if _, err := in.previous(r.Name); err != nil {
		return nil, s.fail(err)
	}
	report.MissingDependencies = in.missingDependencies(s.logger, r.DependsOn)

	// Fetching
	s.enter(StageFetching)
	lock, err := in.opts.Store.Lock(r.Name)
	if err != nil {
		return nil, s.fail(err)
	}
	defer func() { _ = lock.Unlock() }()

	previous, err := in.previous(r.Name)
	if err != nil {
		return nil, s.fail(err)
	}
	report.Transition = Classify(previous, r.Version)
	if previous != nil {
		report.PreviousVersion = previous.Version
	}

	ws, err := fetch.NewWorkspace(in.opts.Store.Paths().DownloadsDir(), r.Name, r.VersionString(), in.opts.KeepWorkspace)
	if err != nil {
		return nil, s.fail(err)
	}
	defer func() { _ = ws.Close() }()

	artifact, err := in.opts.Downloader.Download(ctx, resolved.Source.URL, ws.DownloadDir())
	if err != nil {
		return nil, s.fail(err)
	}

	// VerifyingChecksum
	s.enter(StageVerifyingChecksum)
	staging, err := verifyAndUnpack(artifact, resolved.Source.SHA256, ws.StagingDir())
	if err != nil {
		return nil, s.fail(err)
	}

	// Installing
	s.enter(StageInstalling)
	rec, tx, err := in.apply(ctx, r, resolved, staging, previous)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := tx.Commit(); err != nil {
		s.logger.Warn().Err(err).Msg("Backups of replaced entries were left behind")
	}
	report.Files = rec.Files
	report.Symlinks = rec.Symlinks
	report.Results = tx.Results()
	report.Removed = in.removeStale(s.logger, previous.Stale(rec))

	if err := lock.Unlock(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to release lock")
	}

	// VerifyingBehavior
	s.enter(StageVerifyingBehavior)
	switch {
	case !in.opts.Verify:
		s.logger.Debug().Msg("Post-install check disabled")
	case r.Test == nil:
		s.logger.Debug().Msg("Recipe has no post-install check")
	default:
		if _, err := in.verifier.Verify(ctx, prefix, r.Test); err != nil {
			report.VerifyError = annotate(err, r.Name, r.VersionString(), StageVerifyingBehavior)
			s.logger.Warn().Err(err).Msg("Installed but unverified")
		} else {
			report.Verified = true
			in.markVerified(s.logger, r.Name)
		}
	}

	s.enter(StageDone)
	return report, nil
}

// previous returns the record of an earlier install of name, or nil. A
// record for a different prefix is refused.
func (in *Installer) previous(name string) (*datastore.Record, error) {
	rec, err := in.opts.Store.Lookup(name)
	if err != nil {
		return nil, err
	}
	if rec != nil && filepath.Clean(rec.Prefix) != in.opts.Prefix.Root {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"%s is installed in prefix %s; uninstall it first", name, rec.Prefix).
			WithDetail(errors.DetailPath, rec.Prefix)
	}
	return rec, nil
}

func (in *Installer) checkConflicts(r *recipe.Recipe) error {
	for _, other := range r.ConflictsWith {
		rec, err := in.opts.Store.Lookup(other)
		if err != nil {
			return err
		}
		if rec != nil && rec.Prefix == in.opts.Prefix.Root {
			return errors.Newf(errors.ErrConflictingPackage,
				"%s conflicts with installed package %s %s", r.Name, rec.Name, rec.Version).
				WithDetail("conflicts_with", rec.Name)
		}
	}
	return nil
}

func (in *Installer) missingDependencies(logger zerolog.Logger, deps []string) []string {
	var missing []string
	for _, dep := range deps {
		if _, err := in.opts.LookPath(dep); err != nil {
			logger.Warn().Str("dependency", dep).Msg("Dependency not found on PATH")
			missing = append(missing, dep)
		}
	}
	return missing
}

// verifyAndUnpack checks the artifact digest, extracts it and removes the
// artifact whatever the outcome
func verifyAndUnpack(artifact, sha string, stagingDir string) (string, error) {
	defer func() { _ = os.Remove(artifact) }()
	if err := fetch.VerifyChecksum(artifact, sha); err != nil {
		return "", err
	}
	return fetch.Unpack(artifact, stagingDir)
}

// apply executes the actions and records the result. On error every change
// has already been unwound.
func (in *Installer) apply(ctx context.Context, r *recipe.Recipe, resolved recipe.Resolved, staging string, previous *datastore.Record) (*datastore.Record, *actions.Transaction, error) {
	var owner actions.Owner
	if previous != nil {
		owner = previous
	}
	executor := actions.NewExecutor(actions.Options{
		FS:      in.opts.FS,
		Prefix:  in.opts.Prefix,
		Staging: staging,
		Owner:   owner,
		Vars: actions.TemplateVars{
			Prefix:  in.opts.Prefix,
			Name:    r.Name,
			Version: r.VersionString(),
		},
	})

	tx, err := executor.Execute(ctx, r.Install)
	if err != nil {
		return nil, nil, err
	}

	rollback := func(cause error, msg string) error {
		if rbErr := tx.Rollback(); rbErr != nil {
			in.logger.Error().Err(rbErr).Msg("Rollback incomplete")
		}
		return errors.Wrap(cause, errors.ErrActionFailed, msg)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, rollback(err, "install cancelled")
	}

	rec := &datastore.Record{
		Name:        r.Name,
		Version:     r.VersionString(),
		Prefix:      in.opts.Prefix.Root,
		Files:       tx.Files(),
		Symlinks:    tx.Symlinks(),
		InstalledAt: in.opts.Now().UTC(),
		Source:      resolved.Source.URL,
		SHA256:      resolved.Source.SHA256,
		Recipe:      r.Origin,
	}
	if err := in.opts.Store.Put(rec); err != nil {
		return nil, nil, rollback(err, "failed to record installed state")
	}
	return rec, tx, nil
}

// markVerified flips the record's verified flag. The lock is only tried;
// when another process holds it the flag is left unset.
func (in *Installer) markVerified(logger zerolog.Logger, name string) {
	lock, err := in.opts.Store.Lock(name)
	if err != nil {
		logger.Debug().Err(err).Msg("Skipping verified flag update")
		return
	}
	defer func() { _ = lock.Unlock() }()

	rec, err := in.opts.Store.Get(name)
	if err != nil {
		logger.Debug().Err(err).Msg("Skipping verified flag update")
		return
	}
	rec.Verified = true
	if err := in.opts.Store.Put(rec); err != nil {
		logger.Warn().Err(err).Msg("Failed to record verification")
	}
}

// annotate attaches recipe, version and stage details to a soft failure
func annotate(err error, name, version string, stage Stage) error {
	var te *errors.TapkitError
	if errors.As(err, &te) {
		te.WithDetail(errors.DetailRecipe, name).
			WithDetail(errors.DetailVersion, version).
			WithDetail(errors.DetailStage, stage.String())
	}
	return err
}
