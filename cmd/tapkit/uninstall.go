package main

import (
	"io"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/installer"
	"github.com/spf13/cobra"
)

func newUninstallCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "uninstall <name>",
		Aliases: []string{"remove", "rm"},
		Short:   MsgUninstallShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			// The record knows its prefix; --prefix only guards against
			// removing a package from somewhere unexpected.
			if cmd.Flags().Changed("prefix") {
				rec, err := a.store.Get(name)
				if err != nil {
					return err
				}
				want, err := a.prefix()
				if err != nil {
					return err
				}
				if rec.Prefix != want.Root {
					return errors.Newf(errors.ErrInvalidInput, MsgErrPrefixDiffer, name, rec.Prefix, want.Root)
				}
			}

			in, err := a.installer(nil)
			if err != nil {
				return err
			}
			report, err := in.Uninstall(cmd.Context(), name)
			if err != nil {
				return err
			}
			printUninstallReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().String("prefix", "", MsgFlagPrefix)
	return cmd
}

func printUninstallReport(out io.Writer, report *installer.UninstallReport) {
	printf(out, MsgUninstalled, map[string]string{
		"name":    report.Name,
		"version": report.Version,
		"prefix":  report.Prefix,
	})
	for _, rel := range report.Skipped {
		printf(out, MsgLeftInPlace, map[string]string{"path": rel})
	}
}
