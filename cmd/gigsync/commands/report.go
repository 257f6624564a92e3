package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gigsync/internal/formatter"
	"gigsync/internal/ledger"
	"gigsync/internal/logger"
	"gigsync/internal/validator"
)

const reportTitle = "Concerts"

var (
	reportOut    string
	reportAudit  bool
	reportVerify bool
)

// ErrAuditFailed is returned when --audit finds malformed records.
var ErrAuditFailed = errors.New("ledger audit found invalid records")

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Report path, overrides ledger.report.")
	reportCmd.Flags().BoolVar(&reportAudit, "audit", false, "List placeholder and malformed records.")
	reportCmd.Flags().BoolVar(&reportVerify, "verify", false, "Check that the existing report was not edited by hand.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--out <path>] [--audit] [--verify]",
	Short: "Renders the ledger as a markdown table and optionally audits it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

		out := cfg.Ledger.Report
		if reportOut != "" {
			out = reportOut
		}

		if out == "" {
			return errors.New("no report path: set ledger.report or pass --out")
		}

		if reportVerify {
			content, err := os.ReadFile(out)
			if err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}

			if err := validator.VerifyReport(string(content)); err != nil {
				return err
			}

			log.Info("✅ Report verified", "path", out)
		}

		records := ledger.NewStore(cfg.Ledger.Path, log).Load()

		written, err := formatter.WriteReport(out, reportTitle, records, time.Now())
		if err != nil {
			return err
		}

		if written {
			log.Info("📝 Report written", "path", out, "records", len(records))
		} else {
			log.Info("report unchanged", "path", out)
		}

		if !reportAudit {
			return nil
		}

		result := validator.Audit(records)
		result.Print(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), result.String())

		if !result.IsValid {
			return ErrAuditFailed
		}

		return nil
	},
}
