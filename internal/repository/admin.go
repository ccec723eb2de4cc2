package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
)

// KnownTables lists the tables created by the embedded migrations.
var KnownTables = []string{
	"accounts",
	"transactions",
	"daily_rewards",
	"salaries",
	"salary_claims",
	"sanctions",
	"tickets",
	"treasuries",
	"treasury_logs",
	"elections",
	"election_candidates",
	"election_votes",
	"dealership_catalog",
	"dealership_sales",
	"user_vehicles",
	"bot_heartbeats",
}

// AdminRepository backs the debug and diagnose commands.
type AdminRepository struct {
	db DBTX
}

// Dump returns up to limit rows of table as column maps.
// Table names outside KnownTables are rejected.
func (r *AdminRepository) Dump(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if !slices.Contains(KnownTables, table) {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	stmt := fmt.Sprintf(`SELECT * FROM %s LIMIT $1`, pgx.Identifier{table}.Sanitize())
	rows, err := r.db.Query(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to collect %s: %w", table, err)
	}
	return result, nil
}

// Count returns the number of rows in table.
func (r *AdminRepository) Count(ctx context.Context, table string) (int64, error) {
	if !slices.Contains(KnownTables, table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	var n int64
	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgx.Identifier{table}.Sanitize())
	if err := r.db.QueryRow(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// ServerVersion reports the Postgres server version string.
func (r *AdminRepository) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := r.db.QueryRow(ctx, `SHOW server_version`).Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return version, nil
}
