package service

import (
	"context"
	"testing"

	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGovernment() (*GovernmentService, *testutil.Memory) {
	mem := testutil.NewMemory()
	return NewGovernmentService(mem.Government(), nopLogger()), mem
}

func TestFine(t *testing.T) {
	svc, mem := newGovernment()
	ctx := context.Background()
	mem.SetAccount(guild, bob, 1_000, 5_000)

	result, err := svc.Fine(ctx, FineInput{GuildID: guild, OfficerID: alice, UserID: bob, Amount: 400, Reason: "exceso de velocidad"})
	require.NoError(t, err)
	assert.Equal(t, int64(600), result.Account.Cash)
	assert.Equal(t, int64(400), result.Treasury.BalanceAfter)
	assert.Equal(t, TreasurySourceFine, result.Treasury.Source)

	// Bank funds are never touched by fines.
	_, err = svc.Fine(ctx, FineInput{GuildID: guild, OfficerID: alice, UserID: bob, Amount: 601, Reason: "x"})
	assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))
	assert.Equal(t, int64(600), mem.Account(guild, bob).Cash)

	report, err := svc.Treasury(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, int64(400), report.Balance)
	require.Len(t, report.Logs, 1)
	assert.Equal(t, model.TreasuryDeposit, report.Logs[0].Type)
}

func TestTreasuryKeepsLastFiveLogs(t *testing.T) {
	svc, mem := newGovernment()
	ctx := context.Background()
	mem.SetAccount(guild, bob, 1_000, 0)

	for range 7 {
		_, err := svc.Fine(ctx, FineInput{GuildID: guild, OfficerID: alice, UserID: bob, Amount: 10, Reason: "x"})
		require.NoError(t, err)
	}

	report, err := svc.Treasury(ctx, guild)
	require.NoError(t, err)
	assert.Equal(t, int64(70), report.Balance)
	require.Len(t, report.Logs, 5)
	assert.Equal(t, int64(70), report.Logs[0].BalanceAfter)
}

func TestElectionsAndVoting(t *testing.T) {
	svc, mem := newGovernment()
	ctx := context.Background()

	election := mem.AddElection(model.Election{Title: "Gobernador", Position: "gobernador", IsActive: true},
		model.Candidate{Name: "Ana", Party: "PAN"},
		model.Candidate{Name: "Luis", Party: "PRI"},
	)
	closed := mem.AddElection(model.Election{Title: "Alcalde", IsActive: false}, model.Candidate{Name: "Eva"})
	other := mem.AddElection(model.Election{Title: "Senado", IsActive: true}, model.Candidate{Name: "Raúl"})

	candidates := mem.CandidatesOf(election.ID)
	ana, luis := candidates[0], candidates[1]

	result, err := svc.Vote(ctx, VoteInput{ElectionID: election.ID, CandidateID: luis.ID, UserID: alice})
	require.NoError(t, err)
	assert.Equal(t, "Luis", result.Candidate.Name)

	_, err = svc.Vote(ctx, VoteInput{ElectionID: election.ID, CandidateID: ana.ID, UserID: alice})
	assert.Equal(t, errs.CodeAlreadyVoted, errs.CodeOf(err))

	_, err = svc.Vote(ctx, VoteInput{ElectionID: election.ID, CandidateID: luis.ID, UserID: bob})
	require.NoError(t, err)

	_, err = svc.Vote(ctx, VoteInput{ElectionID: closed.ID, CandidateID: mem.CandidatesOf(closed.ID)[0].ID, UserID: bob})
	assert.Equal(t, errs.CodeElectionClosed, errs.CodeOf(err))

	_, err = svc.Vote(ctx, VoteInput{ElectionID: election.ID, CandidateID: mem.CandidatesOf(other.ID)[0].ID, UserID: "100000000000000099"})
	assert.Equal(t, errs.CodeInvalidInput, errs.CodeOf(err))

	_, err = svc.Vote(ctx, VoteInput{ElectionID: 9_999, CandidateID: ana.ID, UserID: bob})
	assert.Equal(t, errs.CodeRecordNotFound, errs.CodeOf(err))
	assert.Equal(t, "La elección no existe", errs.UserMessage(err))

	results, err := svc.Elections(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, election.ID, results[0].ID)
	assert.Equal(t, int64(2), results[0].TotalVotes)
	require.Len(t, results[0].Candidates, 2)
	assert.Equal(t, "Luis", results[0].Candidates[0].Name)
	assert.Equal(t, int64(2), results[0].Candidates[0].Votes)
	assert.Equal(t, int64(0), results[0].Candidates[1].Votes)
	assert.Equal(t, int64(0), results[1].TotalVotes)
}

func TestSalaries(t *testing.T) {
	svc, _ := newGovernment()
	ctx := context.Background()

	assert.Equal(t, errs.CodeInvalidAmount, errs.CodeOf(svc.SetSalary(ctx, guild, "r1", 0)))

	require.NoError(t, svc.SetSalary(ctx, guild, "r1", 100))
	require.NoError(t, svc.SetSalary(ctx, guild, "r2", 300))
	require.NoError(t, svc.SetSalary(ctx, guild, "r1", 200))

	salaries, err := svc.Salaries(ctx, guild)
	require.NoError(t, err)
	require.Len(t, salaries, 2)
	assert.Equal(t, "r2", salaries[0].RoleID)
	assert.Equal(t, int64(200), salaries[1].Amount)
}
