package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/render"
	"github.com/nacionmx/unified-bot/internal/repository"
	"github.com/nacionmx/unified-bot/internal/sqlerr"
	"github.com/nacionmx/unified-bot/internal/validation"
	"github.com/rs/zerolog"
)

const treasuryLogLimit = 5

type FineInput struct {
	GuildID   string `validate:"required"`
	OfficerID string `validate:"required"`
	UserID    string `validate:"required,snowflake,nefield=OfficerID" label:"usuario"`
	Amount    int64  `validate:"gt=0" label:"monto"`
	Reason    string `validate:"required,max=500" label:"razón"`
}

type VoteInput struct {
	ElectionID  int64  `validate:"gt=0" label:"elección"`
	CandidateID int64  `validate:"gt=0" label:"candidato"`
	UserID      string `validate:"required"`
}

type TreasuryReport struct {
	GuildID string              `json:"guildId"`
	Balance int64               `json:"balance"`
	Logs    []model.TreasuryLog `json:"logs"`
}

type FineResult struct {
	Account  model.Account
	Treasury model.TreasuryLog
}

type VoteResult struct {
	Election  model.Election
	Candidate model.Candidate
}

type GovernmentService struct {
	store  repository.GovernmentStore
	logger *zerolog.Logger
}

func NewGovernmentService(store repository.GovernmentStore, logger *zerolog.Logger) *GovernmentService {
	return &GovernmentService{store: store, logger: logger}
}

// Treasury returns the guild treasury balance and its latest movements.
func (s *GovernmentService) Treasury(ctx context.Context, guildID string) (TreasuryReport, error) {
	balance, err := s.store.TreasuryBalance(ctx, guildID)
	if err != nil {
		return TreasuryReport{}, sqlerr.ToBotError(err)
	}

	logs, err := s.store.RecentTreasuryLogs(ctx, guildID, treasuryLogLimit)
	if err != nil {
		return TreasuryReport{}, sqlerr.ToBotError(err)
	}

	return TreasuryReport{GuildID: guildID, Balance: balance, Logs: logs}, nil
}

// Fine moves cash from a member into the treasury. A fine never exceeds the
// member's cash.
func (s *GovernmentService) Fine(ctx context.Context, in FineInput) (FineResult, error) {
	if err := validation.Struct(in); err != nil {
		return FineResult{}, err
	}

	var result FineResult
	err := s.store.InTx(ctx, func(tx repository.GovernmentStore) error {
		account, err := tx.GetAccount(ctx, in.GuildID, in.UserID)
		if err != nil {
			return err
		}
		if account.Cash < in.Amount {
			return errs.New(errs.CodeInsufficientFunds,
				fmt.Sprintf("El usuario solo tiene %s en efectivo", render.Money(account.Cash)))
		}

		if result.Account, err = tx.AdjustAccount(ctx, in.GuildID, in.UserID, -in.Amount, 0); err != nil {
			return err
		}
		if result.Treasury, err = tx.AdjustTreasury(ctx, in.GuildID, in.Amount, TreasurySourceFine, in.Reason); err != nil {
			return err
		}

		return tx.RecordTransaction(ctx, model.Transaction{
			GuildID:  in.GuildID,
			SenderID: &in.UserID,
			Amount:   in.Amount,
			Kind:     model.TransactionFine,
			Concept:  in.Reason,
		})
	})
	if err != nil {
		return FineResult{}, sqlerr.ToBotError(err)
	}

	s.logger.Info().
		Str("guild_id", in.GuildID).
		Str("user_id", in.UserID).
		Str("officer_id", in.OfficerID).
		Int64("amount", in.Amount).
		Msg("fine applied")

	return result, nil
}

// Elections returns every active election with its candidates ranked by votes.
func (s *GovernmentService) Elections(ctx context.Context) ([]model.ElectionResult, error) {
	elections, err := s.store.ActiveElections(ctx)
	if err != nil {
		return nil, sqlerr.ToBotError(err)
	}
	if len(elections) == 0 {
		return []model.ElectionResult{}, nil
	}

	ids := make([]int64, 0, len(elections))
	for _, e := range elections {
		ids = append(ids, e.ID)
	}

	candidates, err := s.store.Candidates(ctx, ids)
	if err != nil {
		return nil, sqlerr.ToBotError(err)
	}
	tallies, err := s.store.Tallies(ctx, ids)
	if err != nil {
		return nil, sqlerr.ToBotError(err)
	}

	votes := make(map[int64]int64, len(tallies))
	for _, t := range tallies {
		votes[t.CandidateID] = t.Votes
	}

	byElection := make(map[int64][]model.CandidateResult, len(elections))
	for _, c := range candidates {
		byElection[c.ElectionID] = append(byElection[c.ElectionID], model.CandidateResult{Candidate: c, Votes: votes[c.ID]})
	}

	results := make([]model.ElectionResult, 0, len(elections))
	for _, e := range elections {
		result := model.ElectionResult{Election: e, Candidates: byElection[e.ID]}
		if result.Candidates == nil {
			result.Candidates = []model.CandidateResult{}
		}
		slices.SortStableFunc(result.Candidates, func(a, b model.CandidateResult) int {
			switch {
			case a.Votes > b.Votes:
				return -1
			case a.Votes < b.Votes:
				return 1
			}
			return 0
		})
		for _, c := range result.Candidates {
			result.TotalVotes += c.Votes
		}
		results = append(results, result)
	}
	return results, nil
}

// Vote casts the member's single vote in an active election.
func (s *GovernmentService) Vote(ctx context.Context, in VoteInput) (VoteResult, error) {
	if err := validation.Struct(in); err != nil {
		return VoteResult{}, err
	}

	var result VoteResult
	err := s.store.InTx(ctx, func(tx repository.GovernmentStore) error {
		election, err := tx.GetElection(ctx, in.ElectionID)
		if err != nil {
			return notFound(err, "La elección no existe")
		}
		if !election.IsActive {
			return errs.New(errs.CodeElectionClosed, "")
		}

		candidates, err := tx.Candidates(ctx, []int64{election.ID})
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(candidates, func(c model.Candidate) bool { return c.ID == in.CandidateID })
		if idx < 0 {
			return errs.New(errs.CodeInvalidInput, "El candidato no participa en esta elección")
		}

		if err := tx.CastVote(ctx, election.ID, in.CandidateID, in.UserID); err != nil {
			return err
		}
		result = VoteResult{Election: election, Candidate: candidates[idx]}
		return nil
	})
	if err != nil {
		return VoteResult{}, sqlerr.ToBotError(err)
	}
	return result, nil
}

// SetSalary assigns the amount paid to a role on /cobrar.
func (s *GovernmentService) SetSalary(ctx context.Context, guildID, roleID string, amount int64) error {
	if amount <= 0 {
		return errs.New(errs.CodeInvalidAmount, "El salario debe ser mayor que 0")
	}
	if err := s.store.SetSalary(ctx, model.Salary{GuildID: guildID, RoleID: roleID, Amount: amount}); err != nil {
		return sqlerr.ToBotError(err)
	}
	return nil
}

func (s *GovernmentService) Salaries(ctx context.Context, guildID string) ([]model.Salary, error) {
	salaries, err := s.store.ListSalaries(ctx, guildID)
	if err != nil {
		return nil, sqlerr.ToBotError(err)
	}
	return salaries, nil
}
