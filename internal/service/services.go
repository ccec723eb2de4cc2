// Package service contains the business logic.
//
// It sits between the command and HTTP handler layers and the repository
// layer. It receives validated data, performs business operations, and
// calls repository methods to interact with the data. Every error it returns
// is an *errs.BotError whose message can be shown to a Discord user.
package service

import (
	"context"
	"math/rand/v2"

	"github.com/nacionmx/unified-bot/internal/lib/job"
	"github.com/nacionmx/unified-bot/internal/repository"
	"github.com/nacionmx/unified-bot/internal/server"
)

// Treasury log sources.
const (
	TreasurySourceTransferTax = "transfer_tax"
	TreasurySourceFine        = "fine"
	TreasurySourceDealership  = "dealership_sale"
)

// Notices delivers member notifications off the command path.
// *job.JobService implements it.
type Notices interface {
	EnqueuePaymentReceipt(ctx context.Context, p job.PaymentReceiptPayload) error
	EnqueueSanctionNotice(ctx context.Context, p job.SanctionNoticePayload) error
}

type Services struct {
	Economy    *EconomyService
	Moderation *ModerationService
	Government *GovernmentService
	Dealership *DealershipService
	Job        *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	economy, err := NewEconomyService(repos.Economy, s.Job, s.Config.Economy, s.Logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		Economy:    economy,
		Moderation: NewModerationService(repos.Moderation, s.Job, s.Logger),
		Government: NewGovernmentService(repos.Government, s.Logger),
		Dealership: NewDealershipService(repos.Dealership, s.Logger),
		Job:        s.Job,
	}, nil
}

func randomLuck() float64 {
	return rand.Float64()
}
