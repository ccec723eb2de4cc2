// Package repository handles all interactions with the database.
//
// It contains raw SQL queries and methods to fetch, persist,
// or update data, abstracting SQL logic away from the service layer.
// Each service depends on one of the store interfaces below, so tests can
// swap the Postgres implementation for an in-memory one.
package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/server"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountQueries reads and moves member balances.
type AccountQueries interface {
	// GetAccount returns a zero balance account when the member has none yet.
	GetAccount(ctx context.Context, guildID, userID string) (model.Account, error)
	// AdjustAccount adds the deltas, creating the account if needed. A result
	// below zero fails on the accounts CHECK constraints.
	AdjustAccount(ctx context.Context, guildID, userID string, cashDelta, bankDelta int64) (model.Account, error)
	RecordTransaction(ctx context.Context, tx model.Transaction) error
}

// TreasuryQueries reads and moves a guild treasury.
type TreasuryQueries interface {
	TreasuryBalance(ctx context.Context, guildID string) (int64, error)
	// AdjustTreasury deposits a positive amount or withdraws a negative one and logs it.
	AdjustTreasury(ctx context.Context, guildID string, amount int64, source, reason string) (model.TreasuryLog, error)
	RecentTreasuryLogs(ctx context.Context, guildID string, limit int) ([]model.TreasuryLog, error)
}

type EconomyStore interface {
	AccountQueries
	TreasuryQueries
	TopAccounts(ctx context.Context, guildID string, limit int) ([]model.Account, error)
	GetDailyReward(ctx context.Context, guildID, userID string) (model.DailyReward, error)
	SaveDailyReward(ctx context.Context, reward model.DailyReward) error
	ListSalaries(ctx context.Context, guildID string) ([]model.Salary, error)
	LastSalaryClaim(ctx context.Context, guildID, userID string) (*time.Time, error)
	SaveSalaryClaim(ctx context.Context, guildID, userID string, at time.Time) error
	InTx(ctx context.Context, fn func(EconomyStore) error) error
}

type ModerationStore interface {
	CreateSanction(ctx context.Context, sanction model.Sanction) (model.Sanction, error)
	ActiveSanctions(ctx context.Context, guildID, userID string) ([]model.Sanction, error)
	// RevokeSanction returns pgx.ErrNoRows when no active sanction matches.
	RevokeSanction(ctx context.Context, guildID string, id int64, revokedBy string) (model.Sanction, error)
	OpenTicket(ctx context.Context, ticket model.Ticket) (model.Ticket, error)
	// GetOpenTicket returns pgx.ErrNoRows when no open ticket matches.
	GetOpenTicket(ctx context.Context, guildID string, id int64) (model.Ticket, error)
	// CloseTicket returns pgx.ErrNoRows when no open ticket matches.
	CloseTicket(ctx context.Context, guildID string, id int64, closedBy, reason string) (model.Ticket, error)
}

type GovernmentStore interface {
	AccountQueries
	TreasuryQueries
	ActiveElections(ctx context.Context) ([]model.Election, error)
	GetElection(ctx context.Context, id int64) (model.Election, error)
	Candidates(ctx context.Context, electionIDs []int64) ([]model.Candidate, error)
	Tallies(ctx context.Context, electionIDs []int64) ([]model.Tally, error)
	CastVote(ctx context.Context, electionID, candidateID int64, userID string) error
	SetSalary(ctx context.Context, salary model.Salary) error
	ListSalaries(ctx context.Context, guildID string) ([]model.Salary, error)
	InTx(ctx context.Context, fn func(GovernmentStore) error) error
}

type DealershipStore interface {
	AccountQueries
	TreasuryQueries
	Catalog(ctx context.Context, category string, offset, limit int) ([]model.Vehicle, int, error)
	GetVehicle(ctx context.Context, id int64) (model.Vehicle, error)
	// FindVehicle matches a numeric id or a partial model name.
	FindVehicle(ctx context.Context, query string) (model.Vehicle, error)
	DecrementStock(ctx context.Context, vehicleID int64) error
	CreateSale(ctx context.Context, sale model.Sale) (model.Sale, error)
	// GetSaleForUpdate locks the sale row for the rest of the transaction.
	GetSaleForUpdate(ctx context.Context, id int64) (model.Sale, error)
	CompleteSale(ctx context.Context, id int64, approverID string) error
	AddOwnedVehicle(ctx context.Context, sale model.Sale, plate string) error
	OwnedVehicles(ctx context.Context, guildID, userID string) ([]model.OwnedVehicle, error)
	InTx(ctx context.Context, fn func(DealershipStore) error) error
}

type HeartbeatStore interface {
	// Get returns nil when the row does not exist.
	Get(ctx context.Context, id string) (*model.Heartbeat, error)
	// TryClaim takes the row for instanceID unless another instance holds it
	// with a heartbeat newer than staleBefore.
	TryClaim(ctx context.Context, id, instanceID string, now, staleBefore time.Time) (bool, error)
	// Touch refreshes the heartbeat; false means the row is no longer ours.
	Touch(ctx context.Context, id, instanceID string, now time.Time) (bool, error)
	Release(ctx context.Context, id, instanceID string) error
	// Clear expires the row regardless of holder.
	Clear(ctx context.Context, id string) error
	KeepAlive(ctx context.Context, id string, now time.Time) error
	Ping(ctx context.Context) error
}

// Repositories is a container for all repository instances.
type Repositories struct {
	Economy    EconomyStore
	Moderation ModerationStore
	Government GovernmentStore
	Dealership DealershipStore
	Heartbeats HeartbeatStore
	Admin      *AdminRepository
}

// NewRepositories builds every repository on the server's connection pool.
func NewRepositories(s *server.Server) *Repositories {
	return New(s.DB.Pool)
}

// New builds every repository on db.
func New(db DBTX) *Repositories {
	q := &queries{db: db}
	return &Repositories{
		Economy:    economyStore{q},
		Moderation: q,
		Government: governmentStore{q},
		Dealership: dealershipStore{q},
		Heartbeats: &heartbeatRepository{db: db},
		Admin:      &AdminRepository{db: db},
	}
}

// queries implements every store on a DBTX. The thin wrappers below only
// exist to give InTx the signature each store interface expects.
type queries struct {
	db DBTX
}

type economyStore struct{ *queries }

func (s economyStore) InTx(ctx context.Context, fn func(EconomyStore) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(economyStore{&queries{db: tx}})
	})
}

type governmentStore struct{ *queries }

func (s governmentStore) InTx(ctx context.Context, fn func(GovernmentStore) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(governmentStore{&queries{db: tx}})
	})
}

type dealershipStore struct{ *queries }

func (s dealershipStore) InTx(ctx context.Context, fn func(DealershipStore) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(dealershipStore{&queries{db: tx}})
	})
}
