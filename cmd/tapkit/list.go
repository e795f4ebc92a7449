package main

import (
	"fmt"
	"time"

	"github.com/arthur-debert/tapkit/pkg/datastore"
	"github.com/arthur-debert/tapkit/pkg/style"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   MsgListShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			records, err := a.store.List()
			if err != nil {
				return err
			}
			if a.format == style.FormatJSON {
				if records == nil {
					records = []datastore.Record{}
				}
				return printJSON(out, records)
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(out, MsgNoPackages)
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				verified := "no"
				if rec.Verified {
					verified = "yes"
				}
				rows = append(rows, []string{
					rec.Name,
					rec.Version,
					rec.Prefix,
					rec.InstalledAt.Local().Format(time.DateTime),
					verified,
				})
			}
			_, _ = fmt.Fprintln(out, style.Table(
				[]string{"NAME", "VERSION", "PREFIX", "INSTALLED", "VERIFIED"}, rows))
			return nil
		},
	}
}
