package model

import "time"

const (
	TreasuryDeposit  = "DEPOSIT"
	TreasuryWithdraw = "WITHDRAW"
)

type TreasuryLog struct {
	ID           int64     `db:"id" json:"id"`
	GuildID      string    `db:"guild_id" json:"guildId"`
	Amount       int64     `db:"amount" json:"amount"`
	Type         string    `db:"type" json:"type"`
	Source       string    `db:"source" json:"source"`
	Reason       string    `db:"reason" json:"reason"`
	BalanceAfter int64     `db:"balance_after" json:"balanceAfter"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type Election struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Position    string    `db:"position" json:"position"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type Candidate struct {
	ID         int64  `db:"id" json:"id"`
	ElectionID int64  `db:"election_id" json:"electionId"`
	Name       string `db:"name" json:"name"`
	Party      string `db:"party" json:"party"`
}

// Tally is the vote count of one candidate.
type Tally struct {
	CandidateID int64 `db:"candidate_id" json:"candidateId"`
	Votes       int64 `db:"votes" json:"votes"`
}

// ElectionResult is an election with its candidates and tallies attached.
type ElectionResult struct {
	Election
	Candidates []CandidateResult `json:"candidates"`
	TotalVotes int64             `json:"totalVotes"`
}

type CandidateResult struct {
	Candidate
	Votes int64 `json:"votes"`
}
