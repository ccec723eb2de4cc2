package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/lib/job"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guild = testutil.GuildID
	alice = testutil.UserID
	bob   = testutil.OtherUserID
)

type recordingNotices struct {
	receipts  []job.PaymentReceiptPayload
	sanctions []job.SanctionNoticePayload
	err       error
}

func (n *recordingNotices) EnqueuePaymentReceipt(_ context.Context, p job.PaymentReceiptPayload) error {
	n.receipts = append(n.receipts, p)
	return n.err
}

func (n *recordingNotices) EnqueueSanctionNotice(_ context.Context, p job.SanctionNoticePayload) error {
	n.sanctions = append(n.sanctions, p)
	return n.err
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newEconomy(t *testing.T) (*EconomyService, *testutil.Memory, *recordingNotices) {
	t.Helper()
	mem := testutil.NewMemory()
	notices := &recordingNotices{}

	svc, err := NewEconomyService(mem.Economy(), notices, config.EconomyConfig{
		TransferTaxRate: 0.05,
		MaxTransfer:     1_000_000,
		SalaryCooldown:  24 * time.Hour,
		Timezone:        "America/Mexico_City",
	}, nopLogger())
	require.NoError(t, err)

	svc.luck = func() float64 { return 0.99 }
	return svc, mem, notices
}

func TestTax(t *testing.T) {
	svc, _, _ := newEconomy(t)

	assert.Equal(t, int64(50), svc.Tax(1000))
	assert.Equal(t, int64(49), svc.Tax(999))
	assert.Equal(t, int64(1), svc.Tax(20))
	assert.Equal(t, int64(0), svc.Tax(19))
}

func TestTransfer(t *testing.T) {
	svc, mem, notices := newEconomy(t)
	mem.SetAccount(guild, alice, 10_000, 0)

	result, err := svc.Transfer(context.Background(), TransferInput{
		GuildID:    guild,
		SenderID:   alice,
		ReceiverID: bob,
		Amount:     1_000,
		Concept:    "renta",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50), result.Tax)
	assert.Equal(t, int64(950), result.Net)
	assert.Equal(t, int64(9_000), mem.Account(guild, alice).Cash)
	assert.Equal(t, int64(950), mem.Account(guild, bob).Cash)

	treasury, err := mem.TreasuryBalance(context.Background(), guild)
	require.NoError(t, err)
	assert.Equal(t, int64(50), treasury)

	txs := mem.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, model.TransactionTransfer, txs[0].Kind)
	assert.Equal(t, int64(50), txs[0].Tax)

	require.Len(t, notices.receipts, 1)
	assert.Equal(t, bob, notices.receipts[0].ReceiverID)
}

func TestTransferRejects(t *testing.T) {
	tests := []struct {
		name string
		in   TransferInput
		want errs.Code
	}{
		{"self", TransferInput{GuildID: guild, SenderID: alice, ReceiverID: alice, Amount: 10, Concept: "x"}, errs.CodeSelfTarget},
		{"zero", TransferInput{GuildID: guild, SenderID: alice, ReceiverID: bob, Amount: 0, Concept: "x"}, errs.CodeInvalidAmount},
		{"over max", TransferInput{GuildID: guild, SenderID: alice, ReceiverID: bob, Amount: 2_000_000, Concept: "x"}, errs.CodeInvalidAmount},
		{"insufficient", TransferInput{GuildID: guild, SenderID: alice, ReceiverID: bob, Amount: 600, Concept: "x"}, errs.CodeInsufficientFunds},
		{"no concept", TransferInput{GuildID: guild, SenderID: alice, ReceiverID: bob, Amount: 10}, errs.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mem, notices := newEconomy(t)
			mem.SetAccount(guild, alice, 500, 0)

			_, err := svc.Transfer(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.CodeOf(err))
			assert.Equal(t, int64(500), mem.Account(guild, alice).Cash)
			assert.Empty(t, notices.receipts)
		})
	}
}

func TestTransferRollsBackOnFailure(t *testing.T) {
	svc, mem, notices := newEconomy(t)
	mem.SetAccount(guild, alice, 10_000, 0)
	mem.FailOn("RecordTransaction", errors.New("connection reset"))

	_, err := svc.Transfer(context.Background(), TransferInput{
		GuildID: guild, SenderID: alice, ReceiverID: bob, Amount: 1_000, Concept: "renta",
	})
	require.Error(t, err)
	assert.Equal(t, errs.CodeDatabaseError, errs.CodeOf(err))

	assert.Equal(t, int64(10_000), mem.Account(guild, alice).Cash)
	assert.Equal(t, int64(0), mem.Account(guild, bob).Cash)
	assert.Empty(t, notices.receipts)
}

func TestTransferSucceedsWhenReceiptFails(t *testing.T) {
	svc, mem, notices := newEconomy(t)
	mem.SetAccount(guild, alice, 10_000, 0)
	notices.err = job.ErrNoNotifier

	_, err := svc.Transfer(context.Background(), TransferInput{
		GuildID: guild, SenderID: alice, ReceiverID: bob, Amount: 100, Concept: "café",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9_900), mem.Account(guild, alice).Cash)
}

func TestDepositAndWithdraw(t *testing.T) {
	svc, mem, _ := newEconomy(t)
	mem.SetAccount(guild, alice, 1_000, 200)
	ctx := context.Background()

	account, err := svc.Deposit(ctx, guild, alice, 400)
	require.NoError(t, err)
	assert.Equal(t, int64(600), account.Cash)
	assert.Equal(t, int64(600), account.Bank)

	account, err = svc.Withdraw(ctx, guild, alice, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(700), account.Cash)
	assert.Equal(t, int64(500), account.Bank)

	_, err = svc.Withdraw(ctx, guild, alice, 501)
	assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))

	_, err = svc.Deposit(ctx, guild, alice, -5)
	assert.Equal(t, errs.CodeInvalidAmount, errs.CodeOf(err))

	assert.Len(t, mem.Transactions(), 2)
}

func TestDailyRewardFor(t *testing.T) {
	tests := map[int]int64{
		1:   5_000,
		2:   7_500,
		6:   17_500,
		7:   50_000,
		8:   20_000,
		14:  100_000,
		15:  40_000,
		30:  500_000,
		31:  96_500,
		90:  2_500_000,
		91:  282_000,
		100: 300_000,
	}
	for day, want := range tests {
		assert.Equal(t, want, DailyRewardFor(day), "day %d", day)
	}
}

func TestClaimDailyStreak(t *testing.T) {
	svc, mem, _ := newEconomy(t)
	ctx := context.Background()

	// 23:30 in Mexico City on March 1st.
	now := time.Date(2026, 3, 2, 5, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	result, err := svc.ClaimDaily(ctx, guild, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Day)
	assert.Equal(t, int64(5_000), result.Total)
	require.NotNil(t, result.Next)
	assert.Equal(t, 7, result.Next.Day)
	assert.Equal(t, 6, result.Next.DaysLeft)

	_, err = svc.ClaimDaily(ctx, guild, alice)
	assert.Equal(t, errs.CodeAlreadyClaimed, errs.CodeOf(err))

	// One hour later it is already March 2nd locally.
	now = now.Add(time.Hour)
	result, err = svc.ClaimDaily(ctx, guild, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Day)
	assert.Equal(t, int64(7_500), result.Total)

	// Skipping March 3rd resets the streak.
	now = now.Add(48 * time.Hour)
	result, err = svc.ClaimDaily(ctx, guild, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Day)
	assert.Equal(t, 2, result.BestStreak)

	reward := mem.DailyReward(guild, alice)
	assert.Equal(t, 3, reward.TotalClaims)
	assert.Equal(t, int64(17_500), reward.TotalEarned)
	assert.Equal(t, int64(17_500), mem.Account(guild, alice).Cash)
}

func TestClaimDailyLuckyBonus(t *testing.T) {
	svc, _, _ := newEconomy(t)

	rolls := []float64{0.05, 1.0}
	svc.luck = func() float64 {
		r := rolls[0]
		rolls = rolls[1:]
		return r
	}

	result, err := svc.ClaimDaily(context.Background(), guild, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), result.Base)
	assert.Equal(t, int64(10_000), result.Bonus)
	assert.Equal(t, int64(15_000), result.Total)
}

func TestClaimSalary(t *testing.T) {
	svc, mem, _ := newEconomy(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	require.NoError(t, mem.SetSalary(ctx, model.Salary{GuildID: guild, RoleID: "r1", Amount: 1_000}))
	require.NoError(t, mem.SetSalary(ctx, model.Salary{GuildID: guild, RoleID: "r2", Amount: 500}))
	require.NoError(t, mem.SetSalary(ctx, model.Salary{GuildID: guild, RoleID: "r3", Amount: 9_999}))

	result, err := svc.ClaimSalary(ctx, guild, alice, []string{"r1", "r2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1_500), result.Total)
	assert.Len(t, result.Paid, 2)
	assert.Equal(t, int64(1_500), mem.Account(guild, alice).Bank)

	now = now.Add(23 * time.Hour)
	_, err = svc.ClaimSalary(ctx, guild, alice, []string{"r1", "r2"})
	assert.Equal(t, errs.CodeCooldownActive, errs.CodeOf(err))

	now = now.Add(2 * time.Hour)
	_, err = svc.ClaimSalary(ctx, guild, alice, []string{"r1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2_500), mem.Account(guild, alice).Bank)

	_, err = svc.ClaimSalary(ctx, guild, bob, []string{"unknown"})
	assert.Equal(t, errs.CodeRecordNotFound, errs.CodeOf(err))
}

func TestRanking(t *testing.T) {
	svc, mem, _ := newEconomy(t)
	for i, id := range []string{"100000000000000010", "100000000000000011", "100000000000000012"} {
		mem.SetAccount(guild, id, int64(i*100), int64(i*10))
	}

	accounts, err := svc.Ranking(context.Background(), guild, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "100000000000000012", accounts[0].UserID)

	accounts, err = svc.Ranking(context.Background(), guild, 1)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}
