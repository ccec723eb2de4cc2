// Package testutil holds in-memory fakes of the repository stores and the
// Discord REST surface, shared by service, command and lock tests.
package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/repository"
)

type memberKey struct {
	guildID string
	userID  string
}

type vote struct {
	electionID  int64
	candidateID int64
	userID      string
}

type ownedVehicle struct {
	id         int64
	guildID    string
	userID     string
	vehicleID  int64
	saleID     int64
	plate      string
	acquiredAt time.Time
}

type memoryState struct {
	accounts      map[memberKey]model.Account
	transactions  []model.Transaction
	treasuries    map[string]int64
	treasuryLogs  []model.TreasuryLog
	dailyRewards  map[memberKey]model.DailyReward
	salaries      []model.Salary
	salaryClaims  map[memberKey]time.Time
	sanctions     []model.Sanction
	tickets       []model.Ticket
	elections     []model.Election
	candidates    []model.Candidate
	votes         []vote
	vehicles      []model.Vehicle
	sales         []model.Sale
	ownedVehicles []ownedVehicle
	nextID        int64
}

func (s *memoryState) clone() memoryState {
	return memoryState{
		accounts:      maps.Clone(s.accounts),
		transactions:  slices.Clone(s.transactions),
		treasuries:    maps.Clone(s.treasuries),
		treasuryLogs:  slices.Clone(s.treasuryLogs),
		dailyRewards:  maps.Clone(s.dailyRewards),
		salaries:      slices.Clone(s.salaries),
		salaryClaims:  maps.Clone(s.salaryClaims),
		sanctions:     slices.Clone(s.sanctions),
		tickets:       slices.Clone(s.tickets),
		elections:     slices.Clone(s.elections),
		candidates:    slices.Clone(s.candidates),
		votes:         slices.Clone(s.votes),
		vehicles:      slices.Clone(s.vehicles),
		sales:         slices.Clone(s.sales),
		ownedVehicles: slices.Clone(s.ownedVehicles),
		nextID:        s.nextID,
	}
}

// Memory is an in-memory database behind every store interface. It mimics
// the Postgres constraints the services rely on: balance and stock CHECKs,
// unique votes and plates, and "table:<name>:" prefixed no-rows errors.
// InTx rolls the whole state back when fn fails.
type Memory struct {
	mu    sync.Mutex
	state memoryState
	fail  map[string]error

	// Now stamps created rows.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		state: memoryState{
			accounts:     make(map[memberKey]model.Account),
			treasuries:   make(map[string]int64),
			dailyRewards: make(map[memberKey]model.DailyReward),
			salaryClaims: make(map[memberKey]time.Time),
		},
		fail: make(map[string]error),
		Now:  time.Now,
	}
}

// Economy, Government and Dealership view the memory through one store interface each.
func (m *Memory) Economy() repository.EconomyStore       { return economyFake{m} }
func (m *Memory) Government() repository.GovernmentStore { return governmentFake{m} }
func (m *Memory) Dealership() repository.DealershipStore { return dealershipFake{m} }
func (m *Memory) Moderation() repository.ModerationStore { return m }

// FailOn makes every later call of method return err.
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[method] = err
}

func (m *Memory) failure(method string) error {
	return m.fail[method]
}

func (m *Memory) id() int64 {
	m.state.nextID++
	return m.state.nextID
}

func (m *Memory) inTx(fn func() error) error {
	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

type economyFake struct{ *Memory }

func (f economyFake) InTx(_ context.Context, fn func(repository.EconomyStore) error) error {
	return f.inTx(func() error { return fn(f) })
}

type governmentFake struct{ *Memory }

func (f governmentFake) InTx(_ context.Context, fn func(repository.GovernmentStore) error) error {
	return f.inTx(func() error { return fn(f) })
}

type dealershipFake struct{ *Memory }

func (f dealershipFake) InTx(_ context.Context, fn func(repository.DealershipStore) error) error {
	return f.inTx(func() error { return fn(f) })
}

func checkViolation(table, constraint string) error {
	return &pgconn.PgError{Severity: "ERROR", Code: "23514", TableName: table, ConstraintName: constraint,
		Message: fmt.Sprintf("new row for relation %q violates check constraint %q", table, constraint)}
}

func uniqueViolation(table, constraint string) error {
	return &pgconn.PgError{Severity: "ERROR", Code: "23505", TableName: table, ConstraintName: constraint,
		Message: fmt.Sprintf("duplicate key value violates unique constraint %q", constraint)}
}

func foreignKeyViolation(table, constraint string) error {
	return &pgconn.PgError{Severity: "ERROR", Code: "23503", TableName: table, ConstraintName: constraint,
		Message: fmt.Sprintf("insert or update on table %q violates foreign key constraint %q", table, constraint)}
}

func noRows(table string) error {
	return fmt.Errorf("table:%s:%w", table, pgx.ErrNoRows)
}

// Seeding helpers.

func (m *Memory) SetAccount(guildID, userID string, cash, bank int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.accounts[memberKey{guildID, userID}] = model.Account{GuildID: guildID, UserID: userID, Cash: cash, Bank: bank, UpdatedAt: m.Now()}
}

func (m *Memory) Account(guildID, userID string) model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.accounts[memberKey{guildID, userID}]
}

func (m *Memory) SetTreasury(guildID string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.treasuries[guildID] = balance
}

func (m *Memory) Transactions() []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.transactions)
}

func (m *Memory) DailyReward(guildID, userID string) model.DailyReward {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.dailyRewards[memberKey{guildID, userID}]
}

func (m *Memory) AddElection(e model.Election, candidates ...model.Candidate) model.Election {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		e.ID = m.id()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.Now()
	}
	m.state.elections = append(m.state.elections, e)
	for _, c := range candidates {
		if c.ID == 0 {
			c.ID = m.id()
		}
		c.ElectionID = e.ID
		m.state.candidates = append(m.state.candidates, c)
	}
	return e
}

// CandidatesOf returns the seeded candidates of an election.
func (m *Memory) CandidatesOf(electionID int64) []model.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Candidate
	for _, c := range m.state.candidates {
		if c.ElectionID == electionID {
			out = append(out, c)
		}
	}
	return out
}

func (m *Memory) AddVehicle(v model.Vehicle) model.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == 0 {
		v.ID = m.id()
	}
	m.state.vehicles = append(m.state.vehicles, v)
	return v
}

func (m *Memory) Vehicle(id int64) model.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.state.vehicles {
		if v.ID == id {
			return v
		}
	}
	return model.Vehicle{}
}

func (m *Memory) Sale(id int64) model.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.state.sales {
		if s.ID == id {
			return s
		}
	}
	return model.Sale{}
}

// AccountQueries

func (m *Memory) GetAccount(_ context.Context, guildID, userID string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetAccount"); err != nil {
		return model.Account{}, err
	}
	if a, ok := m.state.accounts[memberKey{guildID, userID}]; ok {
		return a, nil
	}
	return model.Account{GuildID: guildID, UserID: userID}, nil
}

func (m *Memory) AdjustAccount(_ context.Context, guildID, userID string, cashDelta, bankDelta int64) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AdjustAccount"); err != nil {
		return model.Account{}, err
	}
	key := memberKey{guildID, userID}
	a, ok := m.state.accounts[key]
	if !ok {
		a = model.Account{GuildID: guildID, UserID: userID}
	}
	a.Cash += cashDelta
	a.Bank += bankDelta
	if a.Cash < 0 {
		return model.Account{}, checkViolation("accounts", "accounts_cash_check")
	}
	if a.Bank < 0 {
		return model.Account{}, checkViolation("accounts", "accounts_bank_check")
	}
	a.UpdatedAt = m.Now()
	m.state.accounts[key] = a
	return a, nil
}

func (m *Memory) RecordTransaction(_ context.Context, tx model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RecordTransaction"); err != nil {
		return err
	}
	tx.ID = m.id()
	tx.CreatedAt = m.Now()
	m.state.transactions = append(m.state.transactions, tx)
	return nil
}

func (m *Memory) TopAccounts(_ context.Context, guildID string, limit int) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("TopAccounts"); err != nil {
		return nil, err
	}
	var out []model.Account
	for _, a := range m.state.accounts {
		if a.GuildID == guildID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Account) int {
		if a.NetWorth() != b.NetWorth() {
			if a.NetWorth() > b.NetWorth() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.UserID, b.UserID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TreasuryQueries

func (m *Memory) TreasuryBalance(_ context.Context, guildID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("TreasuryBalance"); err != nil {
		return 0, err
	}
	return m.state.treasuries[guildID], nil
}

func (m *Memory) AdjustTreasury(_ context.Context, guildID string, amount int64, source, reason string) (model.TreasuryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AdjustTreasury"); err != nil {
		return model.TreasuryLog{}, err
	}
	balance := m.state.treasuries[guildID] + amount
	if balance < 0 {
		return model.TreasuryLog{}, checkViolation("treasuries", "treasuries_balance_check")
	}
	m.state.treasuries[guildID] = balance

	entry := model.TreasuryLog{
		ID:           m.id(),
		GuildID:      guildID,
		Amount:       amount,
		Type:         model.TreasuryDeposit,
		Source:       source,
		Reason:       reason,
		BalanceAfter: balance,
		CreatedAt:    m.Now(),
	}
	if amount < 0 {
		entry.Amount = -amount
		entry.Type = model.TreasuryWithdraw
	}
	m.state.treasuryLogs = append(m.state.treasuryLogs, entry)
	return entry, nil
}

func (m *Memory) RecentTreasuryLogs(_ context.Context, guildID string, limit int) ([]model.TreasuryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RecentTreasuryLogs"); err != nil {
		return nil, err
	}
	var out []model.TreasuryLog
	for i := len(m.state.treasuryLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.state.treasuryLogs[i].GuildID == guildID {
			out = append(out, m.state.treasuryLogs[i])
		}
	}
	return out, nil
}

// Economy

func (m *Memory) GetDailyReward(_ context.Context, guildID, userID string) (model.DailyReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetDailyReward"); err != nil {
		return model.DailyReward{}, err
	}
	if r, ok := m.state.dailyRewards[memberKey{guildID, userID}]; ok {
		return r, nil
	}
	return model.DailyReward{GuildID: guildID, UserID: userID}, nil
}

func (m *Memory) SaveDailyReward(_ context.Context, reward model.DailyReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SaveDailyReward"); err != nil {
		return err
	}
	m.state.dailyRewards[memberKey{reward.GuildID, reward.UserID}] = reward
	return nil
}

func (m *Memory) ListSalaries(_ context.Context, guildID string) ([]model.Salary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListSalaries"); err != nil {
		return nil, err
	}
	var out []model.Salary
	for _, s := range m.state.salaries {
		if s.GuildID == guildID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.Salary) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		}
		return strings.Compare(a.RoleID, b.RoleID)
	})
	return out, nil
}

func (m *Memory) SetSalary(_ context.Context, salary model.Salary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SetSalary"); err != nil {
		return err
	}
	for i, s := range m.state.salaries {
		if s.GuildID == salary.GuildID && s.RoleID == salary.RoleID {
			m.state.salaries[i].Amount = salary.Amount
			return nil
		}
	}
	m.state.salaries = append(m.state.salaries, salary)
	return nil
}

func (m *Memory) LastSalaryClaim(_ context.Context, guildID, userID string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("LastSalaryClaim"); err != nil {
		return nil, err
	}
	if at, ok := m.state.salaryClaims[memberKey{guildID, userID}]; ok {
		return &at, nil
	}
	return nil, nil
}

func (m *Memory) SaveSalaryClaim(_ context.Context, guildID, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SaveSalaryClaim"); err != nil {
		return err
	}
	m.state.salaryClaims[memberKey{guildID, userID}] = at
	return nil
}

// Moderation

func (m *Memory) CreateSanction(_ context.Context, s model.Sanction) (model.Sanction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateSanction"); err != nil {
		return model.Sanction{}, err
	}
	s.ID = m.id()
	s.Status = model.SanctionActive
	s.CreatedAt = m.Now()
	m.state.sanctions = append(m.state.sanctions, s)
	return s, nil
}

func (m *Memory) ActiveSanctions(_ context.Context, guildID, userID string) ([]model.Sanction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ActiveSanctions"); err != nil {
		return nil, err
	}
	var out []model.Sanction
	for i := len(m.state.sanctions) - 1; i >= 0; i-- {
		s := m.state.sanctions[i]
		if s.GuildID == guildID && s.UserID == userID && s.Status == model.SanctionActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) RevokeSanction(_ context.Context, guildID string, id int64, revokedBy string) (model.Sanction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RevokeSanction"); err != nil {
		return model.Sanction{}, err
	}
	for i, s := range m.state.sanctions {
		if s.ID == id && s.GuildID == guildID && s.Status == model.SanctionActive {
			s.Status = model.SanctionRevoked
			s.RevokedBy = &revokedBy
			m.state.sanctions[i] = s
			return s, nil
		}
	}
	return model.Sanction{}, noRows("sanctions")
}

func (m *Memory) OpenTicket(_ context.Context, t model.Ticket) (model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("OpenTicket"); err != nil {
		return model.Ticket{}, err
	}
	t.ID = m.id()
	t.Status = model.TicketOpen
	t.CreatedAt = m.Now()
	m.state.tickets = append(m.state.tickets, t)
	return t, nil
}

func (m *Memory) GetOpenTicket(_ context.Context, guildID string, id int64) (model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetOpenTicket"); err != nil {
		return model.Ticket{}, err
	}
	for _, t := range m.state.tickets {
		if t.ID == id && t.GuildID == guildID && t.Status == model.TicketOpen {
			return t, nil
		}
	}
	return model.Ticket{}, noRows("tickets")
}

func (m *Memory) CloseTicket(_ context.Context, guildID string, id int64, closedBy, reason string) (model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CloseTicket"); err != nil {
		return model.Ticket{}, err
	}
	for i, t := range m.state.tickets {
		if t.ID == id && t.GuildID == guildID && t.Status == model.TicketOpen {
			now := m.Now()
			t.Status = model.TicketClosed
			t.ClosedBy = &closedBy
			t.CloseReason = &reason
			t.ClosedAt = &now
			m.state.tickets[i] = t
			return t, nil
		}
	}
	return model.Ticket{}, noRows("tickets")
}

// Government

func (m *Memory) ActiveElections(_ context.Context) ([]model.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ActiveElections"); err != nil {
		return nil, err
	}
	var out []model.Election
	for _, e := range m.state.elections {
		if e.IsActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) GetElection(_ context.Context, id int64) (model.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetElection"); err != nil {
		return model.Election{}, err
	}
	for _, e := range m.state.elections {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Election{}, noRows("elections")
}

func (m *Memory) Candidates(_ context.Context, electionIDs []int64) ([]model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Candidates"); err != nil {
		return nil, err
	}
	var out []model.Candidate
	for _, c := range m.state.candidates {
		if slices.Contains(electionIDs, c.ElectionID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) Tallies(_ context.Context, electionIDs []int64) ([]model.Tally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Tallies"); err != nil {
		return nil, err
	}
	counts := make(map[int64]int64)
	var order []int64
	for _, v := range m.state.votes {
		if !slices.Contains(electionIDs, v.electionID) {
			continue
		}
		if _, seen := counts[v.candidateID]; !seen {
			order = append(order, v.candidateID)
		}
		counts[v.candidateID]++
	}
	out := make([]model.Tally, 0, len(order))
	for _, id := range order {
		out = append(out, model.Tally{CandidateID: id, Votes: counts[id]})
	}
	return out, nil
}

func (m *Memory) CastVote(_ context.Context, electionID, candidateID int64, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CastVote"); err != nil {
		return err
	}
	if !slices.ContainsFunc(m.state.candidates, func(c model.Candidate) bool { return c.ID == candidateID }) {
		return foreignKeyViolation("election_votes", "election_votes_candidate_id_fkey")
	}
	for _, v := range m.state.votes {
		if v.electionID == electionID && v.userID == userID {
			return uniqueViolation("election_votes", "election_votes_election_id_user_id_key")
		}
	}
	m.state.votes = append(m.state.votes, vote{electionID, candidateID, userID})
	return nil
}

// Dealership

func (m *Memory) Catalog(_ context.Context, category string, offset, limit int) ([]model.Vehicle, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Catalog"); err != nil {
		return nil, 0, err
	}
	var matched []model.Vehicle
	for _, v := range m.state.vehicles {
		if v.IsActive && (category == "" || strings.EqualFold(v.Category, category)) {
			matched = append(matched, v)
		}
	}
	slices.SortStableFunc(matched, func(a, b model.Vehicle) int {
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return int(a.ID - b.ID)
	})
	total := len(matched)
	if offset >= total {
		return []model.Vehicle{}, total, nil
	}
	end := min(offset+limit, total)
	return matched[offset:end], total, nil
}

func (m *Memory) GetVehicle(_ context.Context, id int64) (model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetVehicle"); err != nil {
		return model.Vehicle{}, err
	}
	for _, v := range m.state.vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return model.Vehicle{}, noRows("dealership_catalog")
}

func (m *Memory) FindVehicle(_ context.Context, query string) (model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("FindVehicle"); err != nil {
		return model.Vehicle{}, err
	}
	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		for _, v := range m.state.vehicles {
			if v.ID == id && v.IsActive {
				return v, nil
			}
		}
	}
	var best *model.Vehicle
	needle := strings.ToLower(query)
	for i, v := range m.state.vehicles {
		if !v.IsActive || !strings.Contains(strings.ToLower(v.Name()), needle) {
			continue
		}
		if best == nil || v.Price < best.Price {
			best = &m.state.vehicles[i]
		}
	}
	if best == nil {
		return model.Vehicle{}, noRows("dealership_catalog")
	}
	return *best, nil
}

func (m *Memory) DecrementStock(_ context.Context, vehicleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DecrementStock"); err != nil {
		return err
	}
	for i, v := range m.state.vehicles {
		if v.ID == vehicleID {
			if v.Stock-1 < 0 {
				return checkViolation("dealership_catalog", "dealership_catalog_stock_check")
			}
			m.state.vehicles[i].Stock--
			return nil
		}
	}
	return noRows("dealership_catalog")
}

func (m *Memory) CreateSale(_ context.Context, sale model.Sale) (model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateSale"); err != nil {
		return model.Sale{}, err
	}
	sale.ID = m.id()
	sale.Status = model.SalePending
	sale.CreatedAt = m.Now()
	m.state.sales = append(m.state.sales, sale)
	return sale, nil
}

func (m *Memory) GetSaleForUpdate(_ context.Context, id int64) (model.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetSaleForUpdate"); err != nil {
		return model.Sale{}, err
	}
	for _, s := range m.state.sales {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Sale{}, noRows("dealership_sales")
}

func (m *Memory) CompleteSale(_ context.Context, id int64, approverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CompleteSale"); err != nil {
		return err
	}
	for i, s := range m.state.sales {
		if s.ID == id && s.Status == model.SalePending {
			m.state.sales[i].Status = model.SaleCompleted
			m.state.sales[i].ApproverID = &approverID
			return nil
		}
	}
	return noRows("dealership_sales")
}

func (m *Memory) AddOwnedVehicle(_ context.Context, sale model.Sale, plate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AddOwnedVehicle"); err != nil {
		return err
	}
	for _, o := range m.state.ownedVehicles {
		if o.plate == plate {
			return uniqueViolation("user_vehicles", "user_vehicles_plate_key")
		}
	}
	m.state.ownedVehicles = append(m.state.ownedVehicles, ownedVehicle{
		id:         m.id(),
		guildID:    sale.GuildID,
		userID:     sale.UserID,
		vehicleID:  sale.VehicleID,
		saleID:     sale.ID,
		plate:      plate,
		acquiredAt: m.Now(),
	})
	return nil
}

func (m *Memory) OwnedVehicles(_ context.Context, guildID, userID string) ([]model.OwnedVehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("OwnedVehicles"); err != nil {
		return nil, err
	}
	var out []model.OwnedVehicle
	for i := len(m.state.ownedVehicles) - 1; i >= 0; i-- {
		o := m.state.ownedVehicles[i]
		if o.guildID != guildID || o.userID != userID {
			continue
		}
		owned := model.OwnedVehicle{ID: o.id, VehicleID: o.vehicleID, Plate: o.plate, AcquiredAt: o.acquiredAt}
		for _, v := range m.state.vehicles {
			if v.ID == o.vehicleID {
				owned.Make, owned.Model = v.Make, v.Model
			}
		}
		out = append(out, owned)
	}
	return out, nil
}
