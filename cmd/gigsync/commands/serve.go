package commands

import (
	"github.com/spf13/cobra"

	"gigsync/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, overrides server.addr.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr <host:port>]",
	Short: "Serves POST /run, POST /sync, GET /records, GET /healthz and GET /metrics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := server.New(a.pipeline, a.pipeline.Store(), a.pipeline.Metrics().Handler(), a.log)

		return srv.ListenAndServe(cmd.Context(), addr)
	},
}
