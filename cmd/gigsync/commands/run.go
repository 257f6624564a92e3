package commands

import (
	"time"

	"github.com/spf13/cobra"

	"gigsync/internal/formatter"
)

var runWriteReport bool

func init() {
	runCmd.Flags().BoolVar(&runWriteReport, "report", false, "Refresh the markdown ledger report after the run.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--report]",
	Short: "Discovers new concerts, extracts their dates and venues, and syncs the sheet.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.log.Info("🚀 Starting gigsync run", "listing", a.cfg.Listing.RootURL, "sheets", a.cfg.Sheets.Backend)

		report, err := a.pipeline.Run(cmd.Context())
		if report != nil {
			renderReport(cmd.OutOrStdout(), report)
		}

		if err != nil {
			return err
		}

		if runWriteReport && a.cfg.Ledger.Report != "" {
			written, err := formatter.WriteReport(a.cfg.Ledger.Report, reportTitle, a.pipeline.Store().Load(), time.Now())
			if err != nil {
				return err
			}

			if written {
				a.log.Info("📝 Report updated", "path", a.cfg.Ledger.Report)
			}
		}

		return nil
	},
}
