package actions

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	sfs "github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"
	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/filesystem"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/rs/zerolog"
)

// ScriptMode is the mode of generated scripts
const ScriptMode fs.FileMode = 0755

// Owner answers whether a prefix-relative path belongs to the package
// being installed, according to its previous state record.
type Owner interface {
	Owns(rel string) bool
}

// Options configures an Executor
type Options struct {
	FS     filesystem.FS
	Prefix paths.Prefix
	// Staging is the root of the unpacked artifact that Src paths refer to
	Staging string
	// Owner may be nil, in which case no pre-existing path is owned
	Owner Owner
	Vars  TemplateVars
}

// Executor applies actions to a prefix
type Executor struct {
	opts   Options
	logger zerolog.Logger
}

// NewExecutor creates a new action executor.
func NewExecutor(opts Options) *Executor {
	if opts.FS == nil {
		opts.FS = filesystem.NewOS()
	}
	return &Executor{
		opts: opts,
		logger: logging.GetLogger("actions.executor").With().
			Str("package", opts.Vars.Name).
			Str("prefix", opts.Prefix.Root).
			Logger(),
	}
}

// Execute plans every action against the prefix, then applies the plan in
// order as a single synthfs pipeline. Planning touches nothing, so a
// rejected action leaves the prefix as it was. When the pipeline fails, or
// ctx is cancelled between actions, synthfs rolls back its operations and
// the remaining changes are swept before an ACTION_FAILED error is
// returned. On success the returned Transaction must be committed or
// rolled back by the caller.
func (e *Executor) Execute(ctx context.Context, list []Action) (*Transaction, error) {
	r := newRun(e, len(list))

	e.logger.Debug().Int("action_count", len(list)).Msg("Planning actions")
	for i, a := range list {
		if err := ctx.Err(); err != nil {
			return nil, actionError(i, a, err)
		}
		msg, err := r.planOne(i, a)
		if err != nil {
			e.logger.Error().Err(err).Int("index", i+1).Str("action", a.Describe()).Msg("Action rejected")
			return nil, actionError(i, a, err)
		}
		r.results = append(r.results, Result{Action: a, Message: msg})
	}

	if i, err := r.moveAside(); err != nil {
		r.revert()
		return nil, actionError(i, list[i], err)
	}
	if i, err := r.apply(ctx, list); err != nil {
		e.logger.Error().Err(err).Int("index", i+1).Str("action", list[i].Describe()).Msg("Action failed, unwinding")
		r.revert()
		return nil, actionError(i, list[i], err)
	}

	return &Transaction{
		undo:     r.undo,
		files:    r.files,
		symlinks: r.links,
		results:  r.results,
	}, nil
}

func actionError(i int, a Action, cause error) error {
	return errors.Wrapf(cause, errors.ErrActionFailed, "action %d (%s) failed", i+1, a.Describe()).
		WithDetail(errors.DetailAction, a.Describe())
}

type stepKind int

const (
	stepDir stepKind = iota
	stepFile
	stepLink
	stepChmod
)

var stepNames = [...]string{"mkdir", "file", "symlink", "chmod"}

// step is one planned filesystem change
type step struct {
	kind stepKind
	abs  string
	data []byte
	mode fs.FileMode
	// link is the relative target of a symlink step
	link string
	// dropped steps were superseded by a later action
	dropped bool
}

type pendingAside struct {
	abs    string
	action int
}

// run is the state of one Execute call
type run struct {
	e    *Executor
	undo *undoLog

	steps      [][]*step // indexed by action
	fileStep   map[string]*step
	linkStep   map[string]*step
	chmodSteps map[string][]*step
	planned    map[string]bool // absolute paths of planned files and links
	dirSet     map[string]bool
	asides     []pendingAside
	asideSet   map[string]bool

	files   []string
	links   []string
	results []Result

	// current is the action the pipeline is in
	current int
	// cause is set when the pipeline stops on cancellation
	cause error
}

func newRun(e *Executor, n int) *run {
	return &run{
		e:          e,
		undo:       &undoLog{fs: e.opts.FS, logger: e.logger},
		steps:      make([][]*step, n),
		fileStep:   make(map[string]*step),
		linkStep:   make(map[string]*step),
		chmodSteps: make(map[string][]*step),
		planned:    make(map[string]bool),
		dirSet:     make(map[string]bool),
		asideSet:   make(map[string]bool),
	}
}

func (r *run) revert() {
	if err := r.undo.revert(); err != nil {
		r.e.logger.Error().Err(err).Msg("Unwind incomplete")
	}
}

// planOne is the single interpreter for the action variants. It reads the
// artifact and the prefix but changes nothing.
func (r *run) planOne(i int, a Action) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	fsys := r.e.opts.FS

	switch a.Kind {
	case CopyFile:
		src := r.stagedPath(a.Src)
		info, err := fsys.Stat(src)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrNotFound, "source %s not found in artifact", a.Src)
		}
		if !info.Mode().IsRegular() {
			return "", errors.Newf(errors.ErrInvalidInput, "source %s is not a regular file", a.Src)
		}
		data, err := fsys.ReadFile(src)
		if err != nil {
			return "", err
		}
		if err := r.addFile(i, a.Dest, data, info.Mode().Perm()); err != nil {
			return "", err
		}
		return fmt.Sprintf("Installed %s", a.Dest), nil

	case CopyDirectory:
		count, err := r.addTree(i, r.stagedPath(a.Src), a.destDir())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Installed %d files into %s", count, a.destDir()), nil

	case CreateSymlink:
		if err := r.addSymlink(i, a.Target, a.Alias); err != nil {
			return "", err
		}
		return fmt.Sprintf("Linked %s -> %s", a.Alias, a.Target), nil

	case WriteGeneratedScript:
		content, err := RenderScript(a.Template, r.e.opts.Vars)
		if err != nil {
			return "", err
		}
		if err := r.addFile(i, a.Dest, []byte(content), ScriptMode); err != nil {
			return "", err
		}
		return fmt.Sprintf("Generated %s", a.Dest), nil

	case SetPermissions:
		rel := cleanRel(a.Path)
		file := r.fileStep[rel]
		if file == nil {
			return "", errors.Newf(errors.ErrInvalidInput, "%s was not installed by this recipe", a.Path).
				WithDetail(errors.DetailPath, rel)
		}
		s := &step{kind: stepChmod, abs: file.abs, mode: a.Mode}
		r.steps[i] = append(r.steps[i], s)
		r.chmodSteps[rel] = append(r.chmodSteps[rel], s)
		return fmt.Sprintf("Set mode %04o on %s", a.Mode, a.Path), nil

	default:
		return "", errors.Newf(errors.ErrInternal, "unknown action kind %d", int(a.Kind))
	}
}

func (r *run) stagedPath(rel string) string {
	return filepath.Join(r.e.opts.Staging, filepath.FromSlash(rel))
}

func cleanRel(rel string) string {
	return path.Clean(filepath.ToSlash(rel))
}

func conflict(rel, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrConflictingPath, format, args...).
		WithDetail(errors.DetailPath, rel)
}

// addFile plans a regular file at the prefix-relative rel. A later file at
// the same path replaces the earlier content and mode, and drops mode
// changes made to the earlier one.
func (r *run) addFile(i int, rel string, data []byte, mode fs.FileMode) error {
	rel = cleanRel(rel)
	if prev := r.fileStep[rel]; prev != nil {
		prev.data, prev.mode = data, mode
		for _, c := range r.chmodSteps[rel] {
			c.dropped = true
		}
		delete(r.chmodSteps, rel)
		return nil
	}
	if r.linkStep[rel] != nil {
		return conflict(rel, "%s is both a file and a symlink in this recipe", rel)
	}

	abs, err := r.e.opts.Prefix.Resolve(rel)
	if err != nil {
		return err
	}
	if err := r.claim(i, rel, abs); err != nil {
		return err
	}
	if err := r.ensureDir(i, filepath.Dir(abs)); err != nil {
		return err
	}

	s := &step{kind: stepFile, abs: abs, data: data, mode: mode}
	r.steps[i] = append(r.steps[i], s)
	r.fileStep[rel] = s
	r.planned[abs] = true
	r.files = append(r.files, rel)
	r.undo.created = append(r.undo.created, abs)
	return nil
}

// addTree plans every regular file below src into the prefix directory
// destRel, preserving the relative layout.
func (r *run) addTree(i int, src, destRel string) (int, error) {
	fsys := r.e.opts.FS
	info, err := fsys.Stat(src)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrNotFound, "source directory %s not found in artifact", src)
	}
	if !info.IsDir() {
		return 0, errors.Newf(errors.ErrInvalidInput, "source %s is not a directory", src)
	}

	count := 0
	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			srcPath := filepath.Join(dir, entry.Name())
			entryRel := path.Join(rel, entry.Name())
			switch {
			case entry.IsDir():
				if err := walk(srcPath, entryRel); err != nil {
					return err
				}
			case entry.Type().IsRegular():
				entryInfo, err := entry.Info()
				if err != nil {
					return err
				}
				data, err := fsys.ReadFile(srcPath)
				if err != nil {
					return err
				}
				if err := r.addFile(i, path.Join(destRel, entryRel), data, entryInfo.Mode().Perm()); err != nil {
					return err
				}
				count++
			default:
				return errors.Newf(errors.ErrInvalidInput, "unsupported entry %s in artifact", entryRel)
			}
		}
		return nil
	}

	if err := walk(src, ""); err != nil {
		return count, err
	}
	return count, nil
}

// addSymlink plans a relative symlink at aliasRel. The target must be
// planned earlier in this run or already exist and stay in place.
func (r *run) addSymlink(i int, targetRel, aliasRel string) error {
	targetRel, aliasRel = cleanRel(targetRel), cleanRel(aliasRel)
	prefix := r.e.opts.Prefix

	target, err := prefix.Resolve(targetRel)
	if err != nil {
		return err
	}
	alias, err := prefix.Resolve(aliasRel)
	if err != nil {
		return err
	}
	if !r.planned[target] {
		_, statErr := r.e.opts.FS.Stat(target)
		if statErr == nil && r.asideSet[target] {
			statErr = os.ErrNotExist
		}
		if statErr != nil {
			return errors.Wrapf(statErr, errors.ErrNotFound, "symlink target %s does not exist", targetRel).
				WithDetail(errors.DetailPath, targetRel)
		}
	}

	link, err := filepath.Rel(filepath.Dir(alias), target)
	if err != nil {
		return err
	}
	if prev := r.linkStep[aliasRel]; prev != nil {
		prev.link = link
		return nil
	}
	if r.fileStep[aliasRel] != nil {
		return conflict(aliasRel, "%s is both a file and a symlink in this recipe", aliasRel)
	}
	if err := r.claim(i, aliasRel, alias); err != nil {
		return err
	}
	if err := r.ensureDir(i, filepath.Dir(alias)); err != nil {
		return err
	}

	s := &step{kind: stepLink, abs: alias, link: link}
	r.steps[i] = append(r.steps[i], s)
	r.linkStep[aliasRel] = s
	r.planned[alias] = true
	r.links = append(r.links, aliasRel)
	r.undo.created = append(r.undo.created, alias)
	return nil
}

// ensureDir plans dir and any missing parents, outermost first
func (r *run) ensureDir(i int, dir string) error {
	var missing []string
	for d := dir; !r.dirSet[d]; d = filepath.Dir(d) {
		if r.planned[d] {
			return conflict(d, "%s is planned as a file and needed as a directory", d)
		}
		info, err := r.e.opts.FS.Stat(d)
		if err == nil {
			if !info.IsDir() {
				return conflict(d, "%s exists and is not a directory", d)
			}
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			break
		}
	}
	for j := len(missing) - 1; j >= 0; j-- {
		d := missing[j]
		r.dirSet[d] = true
		r.steps[i] = append(r.steps[i], &step{kind: stepDir, abs: d})
		r.undo.dirs = append(r.undo.dirs, d)
	}
	return nil
}

// claim makes rel free for a new entry. Absent paths need nothing. Paths
// owned by the previous install are scheduled to be moved aside; anything
// else is a CONFLICTING_PATH.
func (r *run) claim(i int, rel, abs string) error {
	info, err := r.e.opts.FS.Lstat(abs)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return conflict(rel, "%s exists and is a directory", rel)
	}
	if !r.owned(rel, abs, info) {
		return conflict(rel, "%s already exists and is not owned by %s", rel, r.e.opts.Vars.Name)
	}
	if !r.asideSet[abs] {
		r.e.logger.Debug().Str("path", rel).Msg("Replacing owned entry")
		r.asideSet[abs] = true
		r.asides = append(r.asides, pendingAside{abs: abs, action: i})
	}
	return nil
}

// owned reports whether the previous install recorded rel, or whether rel
// is a symlink resolving into a recorded path.
func (r *run) owned(rel, abs string, info fs.FileInfo) bool {
	owner := r.e.opts.Owner
	if owner == nil {
		return false
	}
	if owner.Owns(rel) {
		return true
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false
	}
	dest, err := r.e.opts.FS.Readlink(abs)
	if err != nil {
		return false
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(abs), dest)
	}
	destRel, err := r.e.opts.Prefix.Rel(filepath.Clean(dest))
	if err != nil {
		return false
	}
	return owner.Owns(destRel)
}

// moveAside renames every owned entry the plan replaces to a backup. It
// returns the index of the action that claimed a failing entry.
func (r *run) moveAside() (int, error) {
	for _, p := range r.asides {
		if err := r.undo.moveAside(p.abs); err != nil {
			return p.action, err
		}
	}
	return 0, nil
}

// apply runs the plan as one synthfs pipeline with rollback on error. It
// returns the index of the failing action and the underlying cause.
func (r *run) apply(ctx context.Context, list []Action) (int, error) {
	if len(list) == 0 {
		return 0, nil
	}
	batch := synthfs.New()
	pipe := filesystem.NewPipeline(r.e.opts.FS)
	owners := make(map[synthfs.OperationID]int)

	var ops []synthfs.Operation
	add := func(i int, op synthfs.Operation) {
		owners[op.ID()] = i
		ops = append(ops, op)
	}

	for i, a := range list {
		i := i
		add(i, batch.CustomOperationWithID(fmt.Sprintf("%03d-begin-%s", i+1, a.Kind), func(context.Context, sfs.FileSystem) error {
			r.current = i
			if err := ctx.Err(); err != nil {
				r.cause = err
				return err
			}
			return nil
		}))

		for n, s := range r.steps[i] {
			if s.dropped {
				continue
			}
			id := fmt.Sprintf("%03d-%03d-%s", i+1, n+1, stepNames[s.kind])
			switch s.kind {
			case stepDir:
				add(i, batch.CreateDirWithID(id, s.abs, 0755))
			case stepFile:
				add(i, batch.CreateFileWithID(id, s.abs, s.data, s.mode))
			case stepLink:
				add(i, batch.CreateSymlinkWithID(id, s.link, s.abs))
			case stepChmod:
				abs, mode := s.abs, s.mode
				add(i, batch.CustomOperationWithID(id, func(context.Context, sfs.FileSystem) error {
					return pipe.Chmod(abs, mode)
				}))
			}
			r.e.logger.Trace().Str("id", id).Str("path", s.abs).Msg("Planned step")
		}
	}

	options := synthfs.DefaultPipelineOptions()
	options.RollbackOnError = true

	r.e.logger.Debug().Int("operation_count", len(ops)).Msg("Running pipeline")
	// Cancellation is observed between actions; the pipeline itself must be
	// able to finish its rollback.
	result, err := synthfs.RunWithOptions(context.WithoutCancel(ctx), pipe, options, ops...)
	if err == nil {
		return 0, nil
	}

	failed := r.current
	if result != nil {
		for _, res := range result.GetOperations() {
			opResult, ok := res.(synthfs.OperationResult)
			if !ok || opResult.Error == nil {
				continue
			}
			if i, ok := owners[opResult.OperationID]; ok {
				failed = i
			}
			break
		}
	}

	switch {
	case r.cause != nil:
		err = r.cause
	case pipe.Cause() != nil:
		err = pipe.Cause()
	}
	return failed, err
}

// Transaction is the successful outcome of Execute. Its changes stay
// revertible until Commit.
type Transaction struct {
	undo     *undoLog
	files    []string
	symlinks []string
	results  []Result
	done     bool
}

// Files returns the prefix-relative regular files installed, in order
func (t *Transaction) Files() []string { return append([]string(nil), t.files...) }

// Symlinks returns the prefix-relative symlinks created, in order
func (t *Transaction) Symlinks() []string { return append([]string(nil), t.symlinks...) }

// Results returns one result per executed action
func (t *Transaction) Results() []Result { return append([]Result(nil), t.results...) }

// Commit makes the changes permanent by discarding backups of replaced
// entries.
func (t *Transaction) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.undo.discard(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to remove backups")
	}
	return nil
}

// Rollback reverts every change of the transaction.
func (t *Transaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.undo.revert(); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "rollback incomplete")
	}
	return nil
}
