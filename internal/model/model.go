// Package model holds the rows the repositories read and write.
package model

import "time"

// Account is a member's wallet in one guild. Amounts are whole pesos.
type Account struct {
	GuildID   string    `db:"guild_id" json:"guildId"`
	UserID    string    `db:"discord_user_id" json:"userId"`
	Cash      int64     `db:"cash" json:"cash"`
	Bank      int64     `db:"bank" json:"bank"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NetWorth is cash plus bank.
func (a Account) NetWorth() int64 {
	return a.Cash + a.Bank
}

// TransactionKind labels an entry in the transactions log.
type TransactionKind string

const (
	TransactionTransfer TransactionKind = "transfer"
	TransactionDeposit  TransactionKind = "deposit"
	TransactionWithdraw TransactionKind = "withdraw"
	TransactionDaily    TransactionKind = "daily_reward"
	TransactionSalary   TransactionKind = "salary"
	TransactionFine     TransactionKind = "fine"
	TransactionPurchase TransactionKind = "vehicle_purchase"
	TransactionTreasury TransactionKind = "treasury"
)

type Transaction struct {
	ID         int64           `db:"id" json:"id"`
	GuildID    string          `db:"guild_id" json:"guildId"`
	SenderID   *string         `db:"sender_discord_id" json:"senderId"`
	ReceiverID *string         `db:"receiver_discord_id" json:"receiverId"`
	Amount     int64           `db:"amount" json:"amount"`
	Tax        int64           `db:"tax" json:"tax"`
	Kind       TransactionKind `db:"kind" json:"kind"`
	Concept    string          `db:"concept" json:"concept"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// DailyReward tracks a member's daily claim streak.
type DailyReward struct {
	GuildID         string     `db:"guild_id"`
	UserID          string     `db:"discord_user_id"`
	ConsecutiveDays int        `db:"consecutive_days"`
	BestStreak      int        `db:"best_streak"`
	TotalClaims     int        `db:"total_claims"`
	TotalEarned     int64      `db:"total_earned"`
	LastClaimAt     *time.Time `db:"last_claim_at"`
}

// Salary is the amount paid to holders of a role on /cobrar.
type Salary struct {
	GuildID string `db:"guild_id" json:"guildId"`
	RoleID  string `db:"role_id" json:"roleId"`
	Amount  int64  `db:"amount" json:"amount"`
}
