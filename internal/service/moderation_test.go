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

func newModeration() (*ModerationService, *testutil.Memory, *recordingNotices) {
	mem := testutil.NewMemory()
	notices := &recordingNotices{}
	return NewModerationService(mem.Moderation(), notices, nopLogger()), mem, notices
}

func TestSanction(t *testing.T) {
	svc, _, notices := newModeration()
	ctx := context.Background()

	in := SanctionInput{GuildID: guild, ModeratorID: alice, UserID: bob, Type: "sa", Reason: "spam"}
	first, summary, err := svc.Sanction(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.SanctionActive, first.Status)
	assert.Equal(t, 1, summary.Total())

	in.Type = "notificacion"
	_, summary, err = svc.Sanction(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total())
	assert.Equal(t, 1, summary.Counts[model.SanctionSA])
	assert.Equal(t, 1, summary.Counts[model.SanctionNotice])

	require.Len(t, notices.sanctions, 2)
	assert.Equal(t, bob, notices.sanctions[1].UserID)
	assert.Equal(t, 2, notices.sanctions[1].ActiveCount)
}

func TestSanctionValidation(t *testing.T) {
	svc, _, notices := newModeration()
	ctx := context.Background()

	_, _, err := svc.Sanction(ctx, SanctionInput{GuildID: guild, ModeratorID: alice, UserID: bob, Type: "ban", Reason: "x"})
	assert.Equal(t, errs.CodeInvalidInput, errs.CodeOf(err))
	assert.Contains(t, errs.UserMessage(err), "tipo")

	_, _, err = svc.Sanction(ctx, SanctionInput{GuildID: guild, ModeratorID: alice, UserID: alice, Type: "sa", Reason: "x"})
	assert.Equal(t, errs.CodeSelfTarget, errs.CodeOf(err))

	_, _, err = svc.Sanction(ctx, SanctionInput{GuildID: guild, ModeratorID: alice, UserID: bob, Type: "sa", Reason: "x", EvidenceURL: "not a link"})
	assert.Equal(t, errs.CodeInvalidInput, errs.CodeOf(err))

	assert.Empty(t, notices.sanctions)
}

func TestRevokeSanction(t *testing.T) {
	svc, _, _ := newModeration()
	ctx := context.Background()

	created, _, err := svc.Sanction(ctx, SanctionInput{GuildID: guild, ModeratorID: alice, UserID: bob, Type: "general", Reason: "x"})
	require.NoError(t, err)

	revoked, err := svc.Revoke(ctx, guild, created.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, model.SanctionRevoked, revoked.Status)

	summary, err := svc.History(ctx, guild, bob)
	require.NoError(t, err)
	assert.Zero(t, summary.Total())

	_, err = svc.Revoke(ctx, guild, created.ID, alice)
	assert.Equal(t, errs.CodeRecordNotFound, errs.CodeOf(err))
	assert.Contains(t, errs.UserMessage(err), "No existe una sanción activa")
}

func TestTickets(t *testing.T) {
	svc, _, _ := newModeration()
	ctx := context.Background()

	_, err := svc.OpenTicket(ctx, guild, alice, "")
	assert.Equal(t, errs.CodeInvalidInput, errs.CodeOf(err))

	ticket, err := svc.OpenTicket(ctx, guild, alice, "Problema con mi licencia")
	require.NoError(t, err)
	assert.Equal(t, model.TicketOpen, ticket.Status)

	closed, err := svc.CloseTicket(ctx, guild, ticket.ID, alice, false, "")
	require.NoError(t, err)
	assert.Equal(t, model.TicketClosed, closed.Status)
	require.NotNil(t, closed.CloseReason)
	assert.Equal(t, "Sin razón especificada", *closed.CloseReason)

	_, err = svc.CloseTicket(ctx, guild, ticket.ID, alice, false, "otra vez")
	assert.Equal(t, errs.CodeRecordNotFound, errs.CodeOf(err))
}

func TestCloseTicketRequiresOwnerOrStaff(t *testing.T) {
	svc, _, _ := newModeration()
	ctx := context.Background()

	ticket, err := svc.OpenTicket(ctx, guild, alice, "Problema con mi licencia")
	require.NoError(t, err)

	_, err = svc.CloseTicket(ctx, guild, ticket.ID, bob, false, "")
	assert.Equal(t, errs.CodeInvalidPermission, errs.CodeOf(err))

	closed, err := svc.CloseTicket(ctx, guild, ticket.ID, bob, true, "resuelto")
	require.NoError(t, err)
	assert.Equal(t, model.TicketClosed, closed.Status)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, bob, *closed.ClosedBy)
}
