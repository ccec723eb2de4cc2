package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nacionmx/unified-bot/internal/model"
)

const sanctionColumns = `id, guild_id, discord_user_id, moderator_id, type, reason, evidence_url, status, revoked_by, created_at`

const ticketColumns = `id, guild_id, discord_user_id, subject, status, closed_by, close_reason, created_at, closed_at`

func (q *queries) CreateSanction(ctx context.Context, sanction model.Sanction) (model.Sanction, error) {
	stmt := `
		INSERT INTO sanctions (guild_id, discord_user_id, moderator_id, type, reason, evidence_url)
		VALUES (@guild_id, @user_id, @moderator_id, @type, @reason, @evidence_url)
		RETURNING ` + sanctionColumns

	rows, err := q.db.Query(ctx, stmt, pgx.NamedArgs{
		"guild_id":     sanction.GuildID,
		"user_id":      sanction.UserID,
		"moderator_id": sanction.ModeratorID,
		"type":         string(sanction.Type),
		"reason":       sanction.Reason,
		"evidence_url": sanction.EvidenceURL,
	})
	if err != nil {
		return model.Sanction{}, fmt.Errorf("failed to execute create sanction query: %w", err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Sanction])
	if err != nil {
		return model.Sanction{}, fmt.Errorf("failed to collect row from table:sanctions: %w", err)
	}
	return created, nil
}

func (q *queries) ActiveSanctions(ctx context.Context, guildID, userID string) ([]model.Sanction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+sanctionColumns+`
		FROM sanctions
		WHERE guild_id = $1 AND discord_user_id = $2 AND status = 'active'
		ORDER BY created_at DESC`, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sanctions: %w", err)
	}

	sanctions, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Sanction])
	if err != nil {
		return nil, fmt.Errorf("failed to collect sanctions: %w", err)
	}
	return sanctions, nil
}

func (q *queries) RevokeSanction(ctx context.Context, guildID string, id int64, revokedBy string) (model.Sanction, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE sanctions
		SET status = 'revoked', revoked_by = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND guild_id = $2 AND status = 'active'
		RETURNING `+sanctionColumns, id, guildID, revokedBy)
	if err != nil {
		return model.Sanction{}, fmt.Errorf("failed to revoke sanction: %w", err)
	}

	revoked, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Sanction])
	if err != nil {
		return model.Sanction{}, fmt.Errorf("table:sanctions:%w", err)
	}
	return revoked, nil
}

func (q *queries) OpenTicket(ctx context.Context, ticket model.Ticket) (model.Ticket, error) {
	rows, err := q.db.Query(ctx, `
		INSERT INTO tickets (guild_id, discord_user_id, subject)
		VALUES ($1, $2, $3)
		RETURNING `+ticketColumns, ticket.GuildID, ticket.UserID, ticket.Subject)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("failed to open ticket: %w", err)
	}

	opened, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Ticket])
	if err != nil {
		return model.Ticket{}, fmt.Errorf("failed to collect row from table:tickets: %w", err)
	}
	return opened, nil
}

func (q *queries) GetOpenTicket(ctx context.Context, guildID string, id int64) (model.Ticket, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE id = $1 AND guild_id = $2 AND status = 'open'`, id, guildID)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("failed to get ticket: %w", err)
	}

	ticket, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Ticket])
	if err != nil {
		return model.Ticket{}, fmt.Errorf("table:tickets:%w", err)
	}
	return ticket, nil
}

func (q *queries) CloseTicket(ctx context.Context, guildID string, id int64, closedBy, reason string) (model.Ticket, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE tickets
		SET status = 'closed', closed_by = $3, close_reason = $4, closed_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND guild_id = $2 AND status = 'open'
		RETURNING `+ticketColumns, id, guildID, closedBy, reason)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("failed to close ticket: %w", err)
	}

	closed, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Ticket])
	if err != nil {
		return model.Ticket{}, fmt.Errorf("table:tickets:%w", err)
	}
	return closed, nil
}
