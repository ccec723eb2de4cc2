package model

import "time"

type SanctionType string

const (
	SanctionNotice  SanctionType = "notificacion"
	SanctionSA      SanctionType = "sa"
	SanctionGeneral SanctionType = "general"
)

const (
	SanctionActive  = "active"
	SanctionRevoked = "revoked"
)

type Sanction struct {
	ID          int64        `db:"id"`
	GuildID     string       `db:"guild_id"`
	UserID      string       `db:"discord_user_id"`
	ModeratorID string       `db:"moderator_id"`
	Type        SanctionType `db:"type"`
	Reason      string       `db:"reason"`
	EvidenceURL *string      `db:"evidence_url"`
	Status      string       `db:"status"`
	RevokedBy   *string      `db:"revoked_by"`
	CreatedAt   time.Time    `db:"created_at"`
}

const (
	TicketOpen   = "open"
	TicketClosed = "closed"
)

type Ticket struct {
	ID          int64      `db:"id"`
	GuildID     string     `db:"guild_id"`
	UserID      string     `db:"discord_user_id"`
	Subject     string     `db:"subject"`
	Status      string     `db:"status"`
	ClosedBy    *string    `db:"closed_by"`
	CloseReason *string    `db:"close_reason"`
	CreatedAt   time.Time  `db:"created_at"`
	ClosedAt    *time.Time `db:"closed_at"`
}
