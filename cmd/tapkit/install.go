package main

import (
	"fmt"
	"io"

	"github.com/arthur-debert/tapkit/pkg/installer"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/arthur-debert/tapkit/pkg/style"
	"github.com/spf13/cobra"
)

var pastTense = map[installer.Transition]string{
	installer.TransitionInstall:   "installed",
	installer.TransitionReinstall: "reinstalled",
	installer.TransitionUpgrade:   "upgraded",
	installer.TransitionDowngrade: "downgraded",
}

func newInstallCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "install <recipe>",
		Short:   MsgInstallShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		Example: `  tapkit install ./maiass.toml
  tapkit install https://example.com/recipes/maiass.yaml --prefix ~/opt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("cmd.install")
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			r, err := a.loader().Load(ctx, args[0])
			if err != nil {
				return err
			}

			in, err := a.installer(func(s installer.Stage) {
				if s == installer.StageDone || s == installer.StageFailed {
					return
				}
				_, _ = fmt.Fprintln(out, style.Stage(s.String()))
			})
			if err != nil {
				return err
			}

			logger.Info().
				Str("recipe", r.Name).
				Str("version", r.VersionString()).
				Str("prefix", in.Prefix().Root).
				Msg("Starting install")

			report, err := in.Install(ctx, r)
			if err != nil {
				return err
			}
			printInstallReport(out, report, a.config.Verify.Enabled && r.Test != nil)
			return nil
		},
	}

	cmd.Flags().String("prefix", "", MsgFlagPrefix)
	cmd.Flags().Duration("timeout", 0, MsgFlagTimeout)
	cmd.Flags().Bool("no-verify", false, MsgFlagNoVerify)
	cmd.Flags().Bool("keep-workspace", false, MsgFlagKeepWorkspace)
	return cmd
}

func printInstallReport(out io.Writer, report *installer.Report, checked bool) {
	printf(out, MsgInstalled, map[string]string{
		"transition": pastTense[report.Transition],
		"name":       report.Name,
		"version":    report.Version,
		"prefix":     report.Prefix,
	})
	if report.PreviousVersion != "" && report.Transition != installer.TransitionReinstall {
		printf(out, MsgPrevious, map[string]string{"previous": report.PreviousVersion})
	}

	for _, rel := range report.Files {
		_, _ = fmt.Fprintln(out, style.Indent(style.PathStyle.Render(rel), 1))
	}
	for _, rel := range report.Symlinks {
		_, _ = fmt.Fprintln(out, style.Indent(style.PathStyle.Render(rel)+" "+style.LinkStyle.Render("(link)"), 1))
	}
	for _, rel := range report.Removed {
		_, _ = fmt.Fprintln(out, style.Indent(style.MutedStyle.Render("- "+rel), 1))
	}

	for _, dep := range report.MissingDependencies {
		printf(out, MsgMissingDep, map[string]string{"name": dep})
	}

	switch {
	case report.Verified:
		printf(out, MsgVerified, nil)
	case report.VerifyError != nil:
		printf(out, MsgUnverified, map[string]string{"reason": report.VerifyError.Error()})
	case !checked:
		printf(out, MsgVerifySkipped, nil)
	}

	if caveats := style.Caveats(report.Caveats); caveats != "" {
		_, _ = fmt.Fprintln(out, style.BoxStyle.Render(caveats))
	}
}
