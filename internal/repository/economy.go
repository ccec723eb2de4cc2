package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nacionmx/unified-bot/internal/model"
)

func (q *queries) GetDailyReward(ctx context.Context, guildID, userID string) (model.DailyReward, error) {
	rows, err := q.db.Query(ctx, `
		SELECT guild_id, discord_user_id, consecutive_days, best_streak, total_claims, total_earned, last_claim_at
		FROM daily_rewards
		WHERE guild_id = $1 AND discord_user_id = $2`, guildID, userID)
	if err != nil {
		return model.DailyReward{}, fmt.Errorf("failed to query daily reward: %w", err)
	}

	reward, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.DailyReward])
	if errors.Is(err, pgx.ErrNoRows) {
		return model.DailyReward{GuildID: guildID, UserID: userID}, nil
	}
	if err != nil {
		return model.DailyReward{}, fmt.Errorf("failed to collect daily reward: %w", err)
	}
	return reward, nil
}

func (q *queries) SaveDailyReward(ctx context.Context, reward model.DailyReward) error {
	stmt := `
		INSERT INTO daily_rewards (guild_id, discord_user_id, consecutive_days, best_streak, total_claims, total_earned, last_claim_at)
		VALUES (@guild_id, @user_id, @consecutive_days, @best_streak, @total_claims, @total_earned, @last_claim_at)
		ON CONFLICT (guild_id, discord_user_id) DO UPDATE
		SET consecutive_days = EXCLUDED.consecutive_days,
			best_streak = EXCLUDED.best_streak,
			total_claims = EXCLUDED.total_claims,
			total_earned = EXCLUDED.total_earned,
			last_claim_at = EXCLUDED.last_claim_at`

	_, err := q.db.Exec(ctx, stmt, pgx.NamedArgs{
		"guild_id":         reward.GuildID,
		"user_id":          reward.UserID,
		"consecutive_days": reward.ConsecutiveDays,
		"best_streak":      reward.BestStreak,
		"total_claims":     reward.TotalClaims,
		"total_earned":     reward.TotalEarned,
		"last_claim_at":    reward.LastClaimAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save daily reward: %w", err)
	}
	return nil
}

func (q *queries) ListSalaries(ctx context.Context, guildID string) ([]model.Salary, error) {
	rows, err := q.db.Query(ctx, `
		SELECT guild_id, role_id, amount
		FROM salaries
		WHERE guild_id = $1
		ORDER BY amount DESC`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query salaries: %w", err)
	}

	salaries, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Salary])
	if err != nil {
		return nil, fmt.Errorf("failed to collect salaries: %w", err)
	}
	return salaries, nil
}

func (q *queries) SetSalary(ctx context.Context, salary model.Salary) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO salaries (guild_id, role_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, role_id) DO UPDATE SET amount = EXCLUDED.amount`,
		salary.GuildID, salary.RoleID, salary.Amount)
	if err != nil {
		return fmt.Errorf("failed to set salary: %w", err)
	}
	return nil
}

func (q *queries) LastSalaryClaim(ctx context.Context, guildID, userID string) (*time.Time, error) {
	var at time.Time
	err := q.db.QueryRow(ctx, `
		SELECT last_claimed_at FROM salary_claims
		WHERE guild_id = $1 AND discord_user_id = $2`, guildID, userID).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query salary claim: %w", err)
	}
	return &at, nil
}

func (q *queries) SaveSalaryClaim(ctx context.Context, guildID, userID string, at time.Time) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO salary_claims (guild_id, discord_user_id, last_claimed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, discord_user_id) DO UPDATE SET last_claimed_at = EXCLUDED.last_claimed_at`,
		guildID, userID, at)
	if err != nil {
		return fmt.Errorf("failed to save salary claim: %w", err)
	}
	return nil
}
