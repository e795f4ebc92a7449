package main

import (
	"github.com/spf13/cobra"
)

func newTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "test <name> <recipe>",
		Short:   MsgTestShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.loader().Load(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			in, err := a.installer(nil)
			if err != nil {
				return err
			}
			outcome, err := in.Check(cmd.Context(), args[0], r)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), MsgCheckPassed, map[string]string{
				"name":    args[0],
				"command": outcome.Command,
			})
			return nil
		},
	}
}
