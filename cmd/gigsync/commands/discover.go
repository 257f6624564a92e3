package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Lists the listing entries that are not in the ledger yet, without extracting them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fresh, total, err := a.pipeline.DiscoverNew(cmd.Context())
		if err != nil {
			return err
		}

		renderCandidates(cmd.OutOrStdout(), fresh, total)

		return nil
	},
}
