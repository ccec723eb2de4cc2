package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nacionmx/unified-bot/internal/app"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Manage slash command registration",
}

var commandsRegisterCmd = &cobra.Command{
	Use:       "register [instance]",
	Short:     "Publish slash command schemas without starting the bots",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: app.InstanceOrder,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, log, loggerService)
		if err != nil {
			return err
		}
		defer a.Close()

		registered := 0
		for _, inst := range a.Bots.Instances() {
			if len(args) == 1 && inst.Name != args[0] {
				continue
			}
			n, err := inst.RegisterCommands(cmd.Context())
			if err != nil {
				return fmt.Errorf("registering %s commands: %w", inst.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d commands registered\n", inst.Name, n)
			registered++
		}

		if registered == 0 {
			if len(args) == 1 && slices.Contains(app.InstanceOrder, args[0]) {
				return fmt.Errorf("instance %s has no token configured", args[0])
			}
			return fmt.Errorf("no bot instance has a token configured")
		}
		return nil
	},
}

func init() {
	commandsCmd.AddCommand(commandsRegisterCmd)
}
