package job

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/nacionmx/unified-bot/internal/render"
)

func (j *JobService) handlePaymentReceiptTask(ctx context.Context, t *asynq.Task) error {
	var p PaymentReceiptPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// A malformed payload will never succeed.
		return fmt.Errorf("failed to unmarshal payment receipt payload: %v: %w", err, asynq.SkipRetry)
	}
	return j.deliverPaymentReceipt(ctx, p)
}

func (j *JobService) handleSanctionNoticeTask(ctx context.Context, t *asynq.Task) error {
	var p SanctionNoticePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal sanction notice payload: %v: %w", err, asynq.SkipRetry)
	}
	return j.deliverSanctionNotice(ctx, p)
}

func (j *JobService) deliverPaymentReceipt(ctx context.Context, p PaymentReceiptPayload) error {
	if j.notifier == nil {
		return ErrNoNotifier
	}

	embed := render.Success("Pago recibido",
		fmt.Sprintf("%s te envió %s", render.Mention(p.SenderID), render.Money(p.Amount-p.Tax)),
		render.Field("Monto", render.Money(p.Amount)),
		render.Field("Impuesto", render.Money(p.Tax)),
		render.Block("Concepto", p.Concept),
	)

	if err := j.notifier.Notify(ctx, p.ReceiverID, embed); err != nil {
		j.logger.Error().
			Str("type", TaskPaymentReceipt).
			Str("user_id", p.ReceiverID).
			Err(err).
			Msg("Failed to deliver payment receipt")
		return err
	}

	j.logger.Info().
		Str("type", TaskPaymentReceipt).
		Str("user_id", p.ReceiverID).
		Msg("Delivered payment receipt")
	return nil
}

func (j *JobService) deliverSanctionNotice(ctx context.Context, p SanctionNoticePayload) error {
	if j.notifier == nil {
		return ErrNoNotifier
	}

	embed := render.Embed(render.ColorWarning, "⚠️ Has recibido una sanción",
		p.Reason,
		render.Field("Tipo", p.Type),
		render.Field("ID", strconv.FormatInt(p.SanctionID, 10)),
		render.Field("Moderador", render.Mention(p.ModeratorID)),
		render.Field("Sanciones activas", strconv.Itoa(p.ActiveCount)),
	)

	if err := j.notifier.Notify(ctx, p.UserID, embed); err != nil {
		j.logger.Error().
			Str("type", TaskSanctionNotice).
			Str("user_id", p.UserID).
			Err(err).
			Msg("Failed to deliver sanction notice")
		return err
	}

	j.logger.Info().
		Str("type", TaskSanctionNotice).
		Str("user_id", p.UserID).
		Msg("Delivered sanction notice")
	return nil
}
