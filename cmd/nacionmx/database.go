package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nacionmx/unified-bot/internal/database"
	"github.com/nacionmx/unified-bot/internal/lib/utils"
	"github.com/nacionmx/unified-bot/internal/repository"
)

const defaultDumpLimit = 20

var dumpLimit int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.Migrate(cmd.Context(), log, cfg)
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Run SQL files against the database",
}

var sqlApplyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Execute a SQL file in a single round trip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.ApplyFile(cmd.Context(), log, cfg, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", args[0])
		return nil
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect database contents",
}

var debugTableCmd = &cobra.Command{
	Use:       "table NAME",
	Short:     "Print rows of a table as JSON",
	Args:      cobra.ExactArgs(1),
	ValidArgs: repository.KnownTables,
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, closeDB, err := openRepositories(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		rows, err := repos.Admin.Dump(cmd.Context(), args[0], dumpLimit)
		if err != nil {
			return err
		}
		return utils.PrintJSON(cmd.OutOrStdout(), rows)
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check configuration and connectivity and count rows per table",
	Args:  cobra.NoArgs,
	RunE:  runDiagnose,
}

func init() {
	sqlCmd.AddCommand(sqlApplyCmd)
	debugCmd.AddCommand(debugTableCmd)
	debugTableCmd.Flags().IntVar(&dumpLimit, "limit", defaultDumpLimit, "maximum number of rows to print")
}

// openRepositories connects a pool without New Relic for one-shot commands.
func openRepositories(ctx context.Context) (*repository.Repositories, func(), error) {
	db, err := database.New(ctx, cfg, log, nil)
	if err != nil {
		return nil, nil, err
	}
	return repository.New(db.Pool), func() { _ = db.Close() }, nil
}

type tableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
	Error string `json:"error,omitempty"`
}

type diagnosis struct {
	Environment string            `json:"environment"`
	Tokens      map[string]string `json:"tokens"`
	Database    string            `json:"database"`
	Version     string            `json:"version,omitempty"`
	Redis       string            `json:"redis"`
	Tables      []tableCount      `json:"tables"`
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	report := diagnosis{
		Environment: cfg.Primary.Env,
		Tokens:      make(map[string]string),
		Redis:       "not configured",
		Tables:      []tableCount{},
	}
	for name, token := range cfg.Discord.Tokens() {
		report.Tokens[name] = utils.MaskSecret(token)
	}

	if cfg.Redis.Enabled() {
		report.Redis = pingRedis(ctx)
	}

	repos, closeDB, err := openRepositories(ctx)
	if err != nil {
		report.Database = "unreachable: " + err.Error()
		if printErr := utils.PrintJSON(cmd.OutOrStdout(), report); printErr != nil {
			return printErr
		}
		return err
	}
	defer closeDB()

	report.Database = "connected"
	if report.Version, err = repos.Admin.ServerVersion(ctx); err != nil {
		log.Warn().Err(err).Msg("could not read server version")
	}

	for _, table := range repository.KnownTables {
		count := tableCount{Table: table}
		if count.Rows, err = repos.Admin.Count(ctx, table); err != nil {
			count.Error = err.Error()
		}
		report.Tables = append(report.Tables, count)
	}

	return utils.PrintJSON(cmd.OutOrStdout(), report)
}

func pingRedis(ctx context.Context) string {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return "unreachable: " + err.Error()
	}
	return "connected"
}
