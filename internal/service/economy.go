package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/lib/job"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/render"
	"github.com/nacionmx/unified-bot/internal/repository"
	"github.com/nacionmx/unified-bot/internal/sqlerr"
	"github.com/nacionmx/unified-bot/internal/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultRankingSize = 10
	maxRankingSize     = 25

	luckyBonusChance = 0.10
)

// milestoneDays get a fixed reward and are announced on /diario.
var milestoneDays = []int{7, 14, 21, 30, 60, 90}

var dailyRewardTable = map[int]int64{
	1:  5_000,
	2:  7_500,
	3:  10_000,
	4:  12_500,
	5:  15_000,
	6:  17_500,
	7:  50_000,
	14: 100_000,
	21: 175_000,
	30: 500_000,
	60: 1_000_000,
	90: 2_500_000,
}

// DailyRewardFor returns the base reward of the given streak day.
func DailyRewardFor(day int) int64 {
	if reward, ok := dailyRewardTable[day]; ok {
		return reward
	}

	d := int64(day)
	switch {
	case day > 90:
		return 100_000 + d*2_000
	case day > 30:
		return 50_000 + d*1_500
	case day > 14:
		return 25_000 + d*1_000
	case day > 7:
		return 20_000
	default:
		return 5_000 + d*2_500
	}
}

// Milestone is the next streak day with a fixed bonus.
type Milestone struct {
	Day      int
	Reward   int64
	DaysLeft int
}

func nextMilestone(day int) *Milestone {
	for _, m := range milestoneDays {
		if day < m {
			return &Milestone{Day: m, Reward: DailyRewardFor(m), DaysLeft: m - day}
		}
	}
	return nil
}

type TransferInput struct {
	GuildID    string `validate:"required"`
	SenderID   string `validate:"required,snowflake" label:"remitente"`
	ReceiverID string `validate:"required,snowflake,nefield=SenderID" label:"usuario"`
	Amount     int64  `validate:"gt=0" label:"monto"`
	Concept    string `validate:"required,max=200" label:"concepto"`
}

type TransferResult struct {
	Amount   int64
	Tax      int64
	Net      int64
	Sender   model.Account
	Receiver model.Account
}

type DailyResult struct {
	Day        int
	Base       int64
	Bonus      int64
	Total      int64
	BestStreak int
	Milestone  bool
	Next       *Milestone
	Account    model.Account
}

type SalaryResult struct {
	Total   int64
	Paid    []model.Salary
	Account model.Account
	NextAt  time.Time
}

type EconomyService struct {
	store   repository.EconomyStore
	notices Notices
	logger  *zerolog.Logger

	taxRate        decimal.Decimal
	maxTransfer    int64
	salaryCooldown time.Duration
	loc            *time.Location

	now  func() time.Time
	luck func() float64
}

func NewEconomyService(store repository.EconomyStore, notices Notices, cfg config.EconomyConfig, logger *zerolog.Logger) (*EconomyService, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load economy timezone: %w", err)
	}

	return &EconomyService{
		store:          store,
		notices:        notices,
		logger:         logger,
		taxRate:        decimal.NewFromFloat(cfg.TransferTaxRate),
		maxTransfer:    cfg.MaxTransfer,
		salaryCooldown: cfg.SalaryCooldown,
		loc:            loc,
		now:            time.Now,
		luck:           randomLuck,
	}, nil
}

// Tax is the transfer tax withheld from amount, rounded down to whole pesos.
func (s *EconomyService) Tax(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(s.taxRate).Floor().IntPart()
}

func (s *EconomyService) Balance(ctx context.Context, guildID, userID string) (model.Account, error) {
	account, err := s.store.GetAccount(ctx, guildID, userID)
	if err != nil {
		return model.Account{}, sqlerr.ToBotError(err)
	}
	return account, nil
}

// Transfer moves cash between members. The receiver gets the amount minus
// the transfer tax, which goes to the guild treasury.
func (s *EconomyService) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if err := validation.Struct(in); err != nil {
		return TransferResult{}, err
	}
	if in.Amount > s.maxTransfer {
		return TransferResult{}, errs.New(errs.CodeInvalidAmount,
			fmt.Sprintf("El monto máximo por transferencia es %s", render.Money(s.maxTransfer)))
	}

	tax := s.Tax(in.Amount)
	result := TransferResult{Amount: in.Amount, Tax: tax, Net: in.Amount - tax}

	err := s.store.InTx(ctx, func(tx repository.EconomyStore) error {
		sender, err := tx.GetAccount(ctx, in.GuildID, in.SenderID)
		if err != nil {
			return err
		}
		if sender.Cash < in.Amount {
			return errs.New(errs.CodeInsufficientFunds,
				fmt.Sprintf("No tienes suficiente efectivo. Disponible: %s", render.Money(sender.Cash)))
		}

		if result.Sender, err = tx.AdjustAccount(ctx, in.GuildID, in.SenderID, -in.Amount, 0); err != nil {
			return err
		}
		if result.Receiver, err = tx.AdjustAccount(ctx, in.GuildID, in.ReceiverID, result.Net, 0); err != nil {
			return err
		}
		if tax > 0 {
			if _, err := tx.AdjustTreasury(ctx, in.GuildID, tax, TreasurySourceTransferTax, in.Concept); err != nil {
				return err
			}
		}

		return tx.RecordTransaction(ctx, model.Transaction{
			GuildID:    in.GuildID,
			SenderID:   &in.SenderID,
			ReceiverID: &in.ReceiverID,
			Amount:     in.Amount,
			Tax:        tax,
			Kind:       model.TransactionTransfer,
			Concept:    in.Concept,
		})
	})
	if err != nil {
		return TransferResult{}, sqlerr.ToBotError(err)
	}

	if s.notices != nil {
		err := s.notices.EnqueuePaymentReceipt(ctx, job.PaymentReceiptPayload{
			GuildID:    in.GuildID,
			SenderID:   in.SenderID,
			ReceiverID: in.ReceiverID,
			Amount:     in.Amount,
			Tax:        tax,
			Concept:    in.Concept,
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("receiver_id", in.ReceiverID).Msg("failed to send payment receipt")
		}
	}

	return result, nil
}

// Deposit moves cash into the bank.
func (s *EconomyService) Deposit(ctx context.Context, guildID, userID string, amount int64) (model.Account, error) {
	return s.move(ctx, guildID, userID, amount, model.TransactionDeposit)
}

// Withdraw moves bank funds into cash.
func (s *EconomyService) Withdraw(ctx context.Context, guildID, userID string, amount int64) (model.Account, error) {
	return s.move(ctx, guildID, userID, amount, model.TransactionWithdraw)
}

func (s *EconomyService) move(ctx context.Context, guildID, userID string, amount int64, kind model.TransactionKind) (model.Account, error) {
	if amount <= 0 {
		return model.Account{}, errs.New(errs.CodeInvalidAmount, "El monto debe ser mayor que 0")
	}

	var account model.Account
	err := s.store.InTx(ctx, func(tx repository.EconomyStore) error {
		current, err := tx.GetAccount(ctx, guildID, userID)
		if err != nil {
			return err
		}

		cashDelta, bankDelta := -amount, amount
		available, label := current.Cash, "efectivo"
		if kind == model.TransactionWithdraw {
			cashDelta, bankDelta = amount, -amount
			available, label = current.Bank, "en el banco"
		}
		if available < amount {
			return errs.New(errs.CodeInsufficientFunds,
				fmt.Sprintf("No tienes suficiente %s. Disponible: %s", label, render.Money(available)))
		}

		if account, err = tx.AdjustAccount(ctx, guildID, userID, cashDelta, bankDelta); err != nil {
			return err
		}
		return tx.RecordTransaction(ctx, model.Transaction{
			GuildID:    guildID,
			SenderID:   &userID,
			ReceiverID: &userID,
			Amount:     amount,
			Kind:       kind,
		})
	})
	if err != nil {
		return model.Account{}, sqlerr.ToBotError(err)
	}
	return account, nil
}

// ClaimDaily pays the daily reward. Days are calendar days in the economy
// timezone: claiming yesterday extends the streak, any gap resets it to 1.
func (s *EconomyService) ClaimDaily(ctx context.Context, guildID, userID string) (DailyResult, error) {
	now := s.now().In(s.loc)
	var result DailyResult

	err := s.store.InTx(ctx, func(tx repository.EconomyStore) error {
		reward, err := tx.GetDailyReward(ctx, guildID, userID)
		if err != nil {
			return err
		}

		if reward.LastClaimAt != nil {
			last := reward.LastClaimAt.In(s.loc)
			if sameDay(last, now) {
				next := startOfDay(now).AddDate(0, 0, 1)
				return errs.New(errs.CodeAlreadyClaimed,
					fmt.Sprintf("Ya reclamaste tu recompensa de hoy. Vuelve %s", render.Timestamp(next, "R")))
			}
			if sameDay(last, now.AddDate(0, 0, -1)) {
				reward.ConsecutiveDays++
			} else {
				reward.ConsecutiveDays = 1
			}
		} else {
			reward.ConsecutiveDays = 1
		}

		result.Day = reward.ConsecutiveDays
		result.Base = DailyRewardFor(result.Day)
		if s.luck() < luckyBonusChance {
			// Lucky bonus is 50% to 200% of the base reward.
			multiplier := decimal.NewFromFloat(0.5 + s.luck()*1.5)
			result.Bonus = decimal.NewFromInt(result.Base).Mul(multiplier).Floor().IntPart()
		}
		result.Total = result.Base + result.Bonus
		result.BestStreak = max(reward.BestStreak, result.Day)
		result.Milestone = slices.Contains(milestoneDays, result.Day)
		result.Next = nextMilestone(result.Day)

		claimedAt := now.UTC()
		reward.GuildID, reward.UserID = guildID, userID
		reward.BestStreak = result.BestStreak
		reward.TotalClaims++
		reward.TotalEarned += result.Total
		reward.LastClaimAt = &claimedAt
		if err := tx.SaveDailyReward(ctx, reward); err != nil {
			return err
		}

		if result.Account, err = tx.AdjustAccount(ctx, guildID, userID, result.Total, 0); err != nil {
			return err
		}
		return tx.RecordTransaction(ctx, model.Transaction{
			GuildID:    guildID,
			ReceiverID: &userID,
			Amount:     result.Total,
			Kind:       model.TransactionDaily,
			Concept:    fmt.Sprintf("Día %d", result.Day),
		})
	})
	if err != nil {
		return DailyResult{}, sqlerr.ToBotError(err)
	}
	return result, nil
}

// ClaimSalary pays the salaries of every configured role the member holds
// into their bank, at most once per salary cooldown.
func (s *EconomyService) ClaimSalary(ctx context.Context, guildID, userID string, roleIDs []string) (SalaryResult, error) {
	now := s.now()
	var result SalaryResult

	err := s.store.InTx(ctx, func(tx repository.EconomyStore) error {
		salaries, err := tx.ListSalaries(ctx, guildID)
		if err != nil {
			return err
		}
		for _, salary := range salaries {
			if slices.Contains(roleIDs, salary.RoleID) {
				result.Paid = append(result.Paid, salary)
				result.Total += salary.Amount
			}
		}
		if len(result.Paid) == 0 {
			return errs.New(errs.CodeRecordNotFound, "No tienes ningún rol con salario asignado")
		}

		last, err := tx.LastSalaryClaim(ctx, guildID, userID)
		if err != nil {
			return err
		}
		if last != nil && now.Sub(*last) < s.salaryCooldown {
			next := last.Add(s.salaryCooldown)
			return errs.New(errs.CodeCooldownActive,
				fmt.Sprintf("Ya cobraste tu salario. Podrás cobrar de nuevo %s", render.Timestamp(next, "R")))
		}

		if result.Account, err = tx.AdjustAccount(ctx, guildID, userID, 0, result.Total); err != nil {
			return err
		}
		if err := tx.SaveSalaryClaim(ctx, guildID, userID, now); err != nil {
			return err
		}
		result.NextAt = now.Add(s.salaryCooldown)

		return tx.RecordTransaction(ctx, model.Transaction{
			GuildID:    guildID,
			ReceiverID: &userID,
			Amount:     result.Total,
			Kind:       model.TransactionSalary,
		})
	})
	if err != nil {
		return SalaryResult{}, sqlerr.ToBotError(err)
	}
	return result, nil
}

// Ranking returns the richest members by net worth. limit defaults to 10.
func (s *EconomyService) Ranking(ctx context.Context, guildID string, limit int) ([]model.Account, error) {
	if limit <= 0 {
		limit = defaultRankingSize
	}
	limit = min(limit, maxRankingSize)

	accounts, err := s.store.TopAccounts(ctx, guildID, limit)
	if err != nil {
		return nil, sqlerr.ToBotError(err)
	}
	return accounts, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
