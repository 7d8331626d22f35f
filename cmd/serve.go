package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"attest-cli/api"
)

func newServeCommand(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = a.config.ListenAddress
			}

			// The API can create attestations, so it needs the wallet.
			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}
			history, err := a.historyStore()
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			server := api.NewServer(client, a.detectionClient(), history)

			fmt.Fprintln(a.out, titleStyle.Render(fmt.Sprintf("API listening on %s", listen)))
			fmt.Fprintln(a.out, promptStyle.Render("Press Ctrl+C to stop."))
			return server.Run(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default LISTEN_ADDRESS or :8088)")
	return cmd
}
