package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconciles the existing ledger with the sheet without scraping.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.pipeline.Sync(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.SetTitle("Sheet " + a.cfg.Sheets.SheetName)
		t.AppendHeader(table.Row{"Records", "Added", "Updated", "Unchanged"})
		t.AppendRow(table.Row{report.Records, report.Sheet.Added, report.Sheet.Updated, report.Sheet.Unchanged})
		t.Render()

		return nil
	},
}
