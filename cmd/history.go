package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"attest-cli/storage"
)

func newHistoryCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List attestations submitted from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.historyStore()
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				if records == nil {
					records = []*storage.Record{}
				}
				return printJSON(a.out, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(a.out, promptStyle.Render("No attestations submitted yet."))
				return nil
			}
			for _, record := range records {
				printRecord(a.out, record)
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
