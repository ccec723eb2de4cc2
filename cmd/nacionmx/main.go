// Command nacionmx runs the Nacion MX Discord bots and their maintenance
// tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nacionmx/unified-bot/internal/app"
	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/logger"
)

var (
	cfg           *config.Config
	log           *zerolog.Logger
	loggerService *logger.LoggerService
)

var rootCmd = &cobra.Command{
	Use:   "nacionmx",
	Short: "Nacion MX unified bot system",
	Long: `Runs the moderation, economy, government and dealership bots of
Nacion MX from a single process, plus the maintenance commands the
operators use against the database.

Configuration is read from NACIONMX_* environment variables and an
optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, log, loggerService, err = app.Bootstrap()
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(heartbeatCmd)
	rootCmd.AddCommand(commandsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	loggerService.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
