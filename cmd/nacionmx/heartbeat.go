package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nacionmx/unified-bot/internal/lib/utils"
	"github.com/nacionmx/unified-bot/internal/lock"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/repository"
)

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Inspect or reset the single-instance lock",
}

var heartbeatShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the lock and keep-alive rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, closeDB, err := openRepositories(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		rows := make(map[string]*model.Heartbeat)
		for _, id := range []string{cfg.Lock.Key, repository.KeepAliveRowID} {
			if rows[id], err = repos.Heartbeats.Get(cmd.Context(), id); err != nil {
				return err
			}
		}
		return utils.PrintJSON(cmd.OutOrStdout(), rows)
	},
}

var heartbeatClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Expire the lock so the next instance starts immediately",
	Long: `Overwrites the lock heartbeat with the epoch regardless of which
instance holds it, so the next instance to start claims the row at once.
A holder that is still running keeps heartbeating until a successor claims
the row, and stops on its next heartbeat after that.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, closeDB, err := openRepositories(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		if err := lock.Clear(cmd.Context(), repos.Heartbeats, cfg.Lock.Key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "heartbeat %s cleared\n", cfg.Lock.Key)
		return nil
	},
}

func init() {
	heartbeatCmd.AddCommand(heartbeatShowCmd)
	heartbeatCmd.AddCommand(heartbeatClearCmd)
}
