package main

import (
	"github.com/spf13/cobra"

	"github.com/nacionmx/unified-bot/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bots, the status server and the background workers",
	Long: `Starts the status server, waits for the single-instance lock, then
logs in every bot with a configured token. Stops on SIGINT or SIGTERM, or
when another instance takes the lock over, releasing the lock on the way out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, log, loggerService)
		if err != nil {
			return err
		}
		return a.Serve(cmd.Context())
	},
}
