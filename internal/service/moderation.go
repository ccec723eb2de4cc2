package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/lib/job"
	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/repository"
	"github.com/nacionmx/unified-bot/internal/sqlerr"
	"github.com/nacionmx/unified-bot/internal/validation"
	"github.com/rs/zerolog"
)

type SanctionInput struct {
	GuildID     string `validate:"required"`
	ModeratorID string `validate:"required"`
	UserID      string `validate:"required,snowflake,nefield=ModeratorID" label:"usuario"`
	Type        string `validate:"required,oneof=notificacion sa general" label:"tipo"`
	Reason      string `validate:"required,max=500" label:"razón"`
	EvidenceURL string `validate:"omitempty,url" label:"evidencia"`
}

// SanctionSummary is a member's active record.
type SanctionSummary struct {
	Active []model.Sanction
	Counts map[model.SanctionType]int
}

func (s SanctionSummary) Total() int {
	return len(s.Active)
}

type ModerationService struct {
	store   repository.ModerationStore
	notices Notices
	logger  *zerolog.Logger
}

func NewModerationService(store repository.ModerationStore, notices Notices, logger *zerolog.Logger) *ModerationService {
	return &ModerationService{store: store, notices: notices, logger: logger}
}

// Sanction records an active sanction and notifies the member.
func (s *ModerationService) Sanction(ctx context.Context, in SanctionInput) (model.Sanction, SanctionSummary, error) {
	if err := validation.Struct(in); err != nil {
		return model.Sanction{}, SanctionSummary{}, err
	}

	sanction := model.Sanction{
		GuildID:     in.GuildID,
		UserID:      in.UserID,
		ModeratorID: in.ModeratorID,
		Type:        model.SanctionType(in.Type),
		Reason:      in.Reason,
	}
	if in.EvidenceURL != "" {
		sanction.EvidenceURL = &in.EvidenceURL
	}

	created, err := s.store.CreateSanction(ctx, sanction)
	if err != nil {
		return model.Sanction{}, SanctionSummary{}, sqlerr.ToBotError(err)
	}

	summary, err := s.History(ctx, in.GuildID, in.UserID)
	if err != nil {
		return model.Sanction{}, SanctionSummary{}, err
	}

	if s.notices != nil {
		err := s.notices.EnqueueSanctionNotice(ctx, job.SanctionNoticePayload{
			GuildID:     in.GuildID,
			UserID:      in.UserID,
			ModeratorID: in.ModeratorID,
			SanctionID:  created.ID,
			Type:        in.Type,
			Reason:      in.Reason,
			ActiveCount: summary.Total(),
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", in.UserID).Msg("failed to send sanction notice")
		}
	}

	return created, summary, nil
}

// History returns the member's active sanctions with counts by type.
func (s *ModerationService) History(ctx context.Context, guildID, userID string) (SanctionSummary, error) {
	active, err := s.store.ActiveSanctions(ctx, guildID, userID)
	if err != nil {
		return SanctionSummary{}, sqlerr.ToBotError(err)
	}

	summary := SanctionSummary{Active: active, Counts: make(map[model.SanctionType]int)}
	for _, sanction := range active {
		summary.Counts[sanction.Type]++
	}
	return summary, nil
}

// Revoke marks an active sanction as revoked.
func (s *ModerationService) Revoke(ctx context.Context, guildID string, id int64, revokedBy string) (model.Sanction, error) {
	revoked, err := s.store.RevokeSanction(ctx, guildID, id, revokedBy)
	if err != nil {
		return model.Sanction{}, notFound(err, fmt.Sprintf("No existe una sanción activa con ID %d", id))
	}
	return revoked, nil
}

func (s *ModerationService) OpenTicket(ctx context.Context, guildID, userID, subject string) (model.Ticket, error) {
	if subject == "" {
		return model.Ticket{}, errs.New(errs.CodeInvalidInput, "El campo asunto es obligatorio")
	}

	ticket, err := s.store.OpenTicket(ctx, model.Ticket{GuildID: guildID, UserID: userID, Subject: subject})
	if err != nil {
		return model.Ticket{}, sqlerr.ToBotError(err)
	}
	return ticket, nil
}

// CloseTicket closes an open ticket. Closed or unknown tickets are not found.
// Only the ticket's creator or staff may close it.
func (s *ModerationService) CloseTicket(ctx context.Context, guildID string, id int64, closedBy string, staff bool, reason string) (model.Ticket, error) {
	if reason == "" {
		reason = "Sin razón especificada"
	}

	open, err := s.store.GetOpenTicket(ctx, guildID, id)
	if err != nil {
		return model.Ticket{}, notFound(err, fmt.Sprintf("No existe un ticket abierto con ID %d", id))
	}
	if open.UserID != closedBy && !staff {
		return model.Ticket{}, errs.New(errs.CodeInvalidPermission, "Solo el creador del ticket o el staff pueden cerrarlo")
	}

	ticket, err := s.store.CloseTicket(ctx, guildID, id, closedBy, reason)
	if err != nil {
		return model.Ticket{}, notFound(err, fmt.Sprintf("No existe un ticket abierto con ID %d", id))
	}
	return ticket, nil
}

// notFound converts err, replacing the message of RECORD_NOT_FOUND errors.
func notFound(err error, message string) error {
	converted := sqlerr.ToBotError(err)
	var botErr *errs.BotError
	if errors.As(converted, &botErr) && botErr.Code == errs.CodeRecordNotFound {
		return errs.Wrap(errs.CodeRecordNotFound, err, message)
	}
	return converted
}
