package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nacionmx/unified-bot/internal/model"
)

// KeepAliveRowID is the bot_heartbeats row refreshed by the keep-alive pinger.
const KeepAliveRowID = "keep_alive_service"

type heartbeatRepository struct {
	db DBTX
}

func (r *heartbeatRepository) Get(ctx context.Context, id string) (*model.Heartbeat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, instance_id, last_heartbeat, started_at, status
		FROM bot_heartbeats WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query heartbeat: %w", err)
	}

	hb, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Heartbeat])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect heartbeat: %w", err)
	}
	return &hb, nil
}

func (r *heartbeatRepository) TryClaim(ctx context.Context, id, instanceID string, now, staleBefore time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO bot_heartbeats (id, instance_id, last_heartbeat, started_at, status)
		VALUES ($1, $2, $3, $3, 'running')
		ON CONFLICT (id) DO UPDATE
		SET instance_id = EXCLUDED.instance_id,
			last_heartbeat = EXCLUDED.last_heartbeat,
			started_at = EXCLUDED.started_at,
			status = 'running'
		WHERE bot_heartbeats.instance_id IS NULL
			OR bot_heartbeats.instance_id = EXCLUDED.instance_id
			OR bot_heartbeats.last_heartbeat < $4`, id, instanceID, now, staleBefore)
	if err != nil {
		return false, fmt.Errorf("failed to claim heartbeat: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *heartbeatRepository) Touch(ctx context.Context, id, instanceID string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE bot_heartbeats SET last_heartbeat = $3
		WHERE id = $1 AND instance_id = $2`, id, instanceID, now)
	if err != nil {
		return false, fmt.Errorf("failed to touch heartbeat: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *heartbeatRepository) Release(ctx context.Context, id, instanceID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE bot_heartbeats
		SET instance_id = NULL, last_heartbeat = to_timestamp(0), status = 'stopped'
		WHERE id = $1 AND instance_id = $2`, id, instanceID)
	if err != nil {
		return fmt.Errorf("failed to release heartbeat: %w", err)
	}
	return nil
}

func (r *heartbeatRepository) Clear(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE bot_heartbeats SET last_heartbeat = to_timestamp(0) WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to clear heartbeat: %w", err)
	}
	return nil
}

func (r *heartbeatRepository) KeepAlive(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bot_heartbeats (id, instance_id, last_heartbeat, status)
		VALUES ($1, $1, $2, 'keep_alive')
		ON CONFLICT (id) DO UPDATE SET last_heartbeat = EXCLUDED.last_heartbeat`, id, now)
	if err != nil {
		return fmt.Errorf("failed to upsert keep alive row: %w", err)
	}
	return nil
}

func (r *heartbeatRepository) Ping(ctx context.Context) error {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM bot_heartbeats LIMIT 1`).Scan(&id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
