package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nacionmx/unified-bot/internal/model"
)

const accountColumns = `guild_id, discord_user_id, cash, bank, updated_at`

func (q *queries) GetAccount(ctx context.Context, guildID, userID string) (model.Account, error) {
	rows, err := q.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE guild_id = $1 AND discord_user_id = $2`, guildID, userID)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to query account: %w", err)
	}

	account, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Account])
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{GuildID: guildID, UserID: userID}, nil
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to collect account: %w", err)
	}
	return account, nil
}

func (q *queries) AdjustAccount(ctx context.Context, guildID, userID string, cashDelta, bankDelta int64) (model.Account, error) {
	stmt := `
		INSERT INTO accounts (guild_id, discord_user_id, cash, bank)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, discord_user_id) DO UPDATE
		SET cash = accounts.cash + EXCLUDED.cash,
			bank = accounts.bank + EXCLUDED.bank,
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + accountColumns

	rows, err := q.db.Query(ctx, stmt, guildID, userID, cashDelta, bankDelta)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to adjust account: %w", err)
	}

	account, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Account])
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to adjust account: %w", err)
	}
	return account, nil
}

func (q *queries) TopAccounts(ctx context.Context, guildID string, limit int) ([]model.Account, error) {
	stmt := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE guild_id = $1
		ORDER BY cash + bank DESC, discord_user_id
		LIMIT $2`

	rows, err := q.db.Query(ctx, stmt, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top accounts: %w", err)
	}

	accounts, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Account])
	if err != nil {
		return nil, fmt.Errorf("failed to collect top accounts: %w", err)
	}
	return accounts, nil
}

func (q *queries) RecordTransaction(ctx context.Context, tx model.Transaction) error {
	stmt := `
		INSERT INTO transactions (guild_id, sender_discord_id, receiver_discord_id, amount, tax, kind, concept)
		VALUES (@guild_id, @sender, @receiver, @amount, @tax, @kind, @concept)`

	_, err := q.db.Exec(ctx, stmt, pgx.NamedArgs{
		"guild_id": tx.GuildID,
		"sender":   tx.SenderID,
		"receiver": tx.ReceiverID,
		"amount":   tx.Amount,
		"tax":      tx.Tax,
		"kind":     string(tx.Kind),
		"concept":  tx.Concept,
	})
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (q *queries) TreasuryBalance(ctx context.Context, guildID string) (int64, error) {
	var balance int64
	err := q.db.QueryRow(ctx, `SELECT balance FROM treasuries WHERE guild_id = $1`, guildID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query treasury: %w", err)
	}
	return balance, nil
}

func (q *queries) AdjustTreasury(ctx context.Context, guildID string, amount int64, source, reason string) (model.TreasuryLog, error) {
	var balance int64
	err := q.db.QueryRow(ctx, `
		INSERT INTO treasuries (guild_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE
		SET balance = treasuries.balance + EXCLUDED.balance,
			updated_at = CURRENT_TIMESTAMP
		RETURNING balance`, guildID, amount).Scan(&balance)
	if err != nil {
		return model.TreasuryLog{}, fmt.Errorf("failed to adjust treasury: %w", err)
	}

	logType := model.TreasuryDeposit
	if amount < 0 {
		logType = model.TreasuryWithdraw
		amount = -amount
	}

	rows, err := q.db.Query(ctx, `
		INSERT INTO treasury_logs (guild_id, amount, type, source, reason, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, guild_id, amount, type, source, reason, balance_after, created_at`,
		guildID, amount, logType, source, reason, balance)
	if err != nil {
		return model.TreasuryLog{}, fmt.Errorf("failed to log treasury movement: %w", err)
	}

	entry, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.TreasuryLog])
	if err != nil {
		return model.TreasuryLog{}, fmt.Errorf("failed to log treasury movement: %w", err)
	}
	return entry, nil
}

func (q *queries) RecentTreasuryLogs(ctx context.Context, guildID string, limit int) ([]model.TreasuryLog, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, guild_id, amount, type, source, reason, balance_after, created_at
		FROM treasury_logs
		WHERE guild_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query treasury logs: %w", err)
	}

	logs, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.TreasuryLog])
	if err != nil {
		return nil, fmt.Errorf("failed to collect treasury logs: %w", err)
	}
	return logs, nil
}
