// Package verify runs a recipe's post-install check against the prefix.
//
// A check invokes the package's primary command, usually with a flag such
// as --help, and looks for a substring in its output. Failure never undoes
// the install; callers report the package as installed but unverified.
package verify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/arthur-debert/tapkit/pkg/paths"
	"github.com/arthur-debert/tapkit/pkg/recipe"
	"github.com/rs/zerolog"
)

// maxReportedOutput bounds the output kept in error details
const maxReportedOutput = 2048

// Verifier runs post-install checks
type Verifier struct {
	runner  Runner
	timeout time.Duration
	logger  zerolog.Logger
}

// Outcome is the result of a passing check
type Outcome struct {
	Command string
	Output  string
}

// New creates a verifier. A zero timeout leaves only ctx as the bound.
func New(runner Runner, timeout time.Duration) *Verifier {
	if runner == nil {
		runner = CmdRunner{}
	}
	return &Verifier{
		runner:  runner,
		timeout: timeout,
		logger:  logging.GetLogger("verify"),
	}
}

// Command returns the absolute path of the check's command. Bare names are
// looked up in the prefix bin directory; names with a slash are prefix
// relative.
func Command(prefix paths.Prefix, test *recipe.Test) (string, error) {
	name := test.Command
	if strings.Contains(name, "/") {
		return prefix.Resolve(name)
	}
	return filepath.Join(prefix.Bin(), name), nil
}

// Verify runs test against prefix. A non-zero exit, a timeout or output
// without the expected substring is VERIFICATION_FAILED.
func (v *Verifier) Verify(ctx context.Context, prefix paths.Prefix, test *recipe.Test) (*Outcome, error) {
	if test == nil {
		return nil, errors.New(errors.ErrInvalidInput, "recipe has no test")
	}

	command, err := Command(prefix, test)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrVerificationFailed, "invalid test command %q", test.Command)
	}
	if _, err := os.Stat(command); err != nil {
		return nil, errors.Wrapf(err, errors.ErrVerificationFailed, "%s is not installed", test.Command).
			WithDetail("command", command)
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	v.logger.Debug().Str("expect", test.Expect).Msg("Running post-install check")
	logging.LogCommand(command, test.Args)

	env := []string{"PATH=" + prefix.Bin() + string(os.PathListSeparator) + os.Getenv("PATH")}
	res, runErr := v.runner.Run(ctx, command, test.Args, RunOptions{Dir: prefix.Root, Env: env})
	output := string(res.Stdout) + string(res.Stderr)

	fail := func(cause error, format string, args ...interface{}) error {
		e := errors.Newf(errors.ErrVerificationFailed, format, args...).
			WithDetail("command", command).
			WithDetail("expect", test.Expect).
			WithDetail("output", truncate(output))
		e.Wrapped = cause
		return e
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return nil, fail(ctx.Err(), "%s timed out", test.Command)
	case runErr != nil:
		return nil, fail(runErr, "%s exited with an error", test.Command)
	case !strings.Contains(output, test.Expect):
		return nil, fail(nil, "%s output does not contain %q", test.Command, test.Expect)
	}

	v.logger.Info().Str("command", command).Msg("Post-install check passed")
	return &Outcome{Command: command, Output: output}, nil
}

func truncate(s string) string {
	if len(s) <= maxReportedOutput {
		return s
	}
	return s[:maxReportedOutput] + "..."
}
