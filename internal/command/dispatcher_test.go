package command

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nacionmx/unified-bot/internal/cooldown"
	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/testutil"
)

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

type brokenCooldowns struct{}

func (brokenCooldowns) Reserve(context.Context, string, time.Duration) (bool, time.Duration, error) {
	return false, 0, errors.New("redis: connection refused")
}

func (brokenCooldowns) Release(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func newTestDispatcher(t *testing.T, opts Options, cmds ...*Command) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(cmds...))
	var buf bytes.Buffer
	return NewDispatcher(r, zerolog.New(&buf), opts), &buf
}

func logLines(buf *bytes.Buffer) []string {
	trimmed := strings.TrimSpace(buf.String())
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestDispatchRoutesByName(t *testing.T) {
	var ran []string
	handler := func(name string) HandlerFunc {
		return func(_ context.Context, c *Context) error {
			ran = append(ran, name)
			return c.ReplyText(name)
		}
	}
	d, _ := newTestDispatcher(t, Options{},
		testCommand("balanza", handler("balanza")),
		testCommand("pagar", handler("pagar")),
	)
	r := &testutil.Responder{}

	d.Dispatch(context.Background(), r, testutil.Command("pagar").Build())

	assert.Equal(t, []string{"pagar"}, ran)
	require.Len(t, r.Responses, 1)
	assert.Equal(t, "pagar", r.Responses[0].Data.Content)
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, buf := newTestDispatcher(t, Options{}, testCommand("balanza", nil))
	r := &testutil.Responder{}

	d.Dispatch(context.Background(), r, testutil.Command("inexistente").Build())

	assert.Zero(t, r.Calls())
	assert.Contains(t, buf.String(), "unknown command")
}

func TestDispatchDropsExpiredInteraction(t *testing.T) {
	called := false
	cmd := testCommand("balanza", func(context.Context, *Context) error {
		called = true
		return nil
	})
	cmd.Defer = true
	d, buf := newTestDispatcher(t, Options{}, cmd)
	r := &testutil.Responder{}

	d.Dispatch(context.Background(), r, testutil.Command("balanza").At(time.Now().Add(-5*time.Second)).Build())

	assert.False(t, called)
	assert.Zero(t, r.Calls())
	assert.Contains(t, buf.String(), "expired")
}

func TestDispatchDeferredReply(t *testing.T) {
	cmd := testCommand("balanza", func(_ context.Context, c *Context) error {
		return c.ReplyText("ok")
	})
	cmd.Defer = true
	cmd.Ephemeral = true
	d, _ := newTestDispatcher(t, Options{}, cmd)
	r := &testutil.Responder{}

	d.Dispatch(context.Background(), r, testutil.Command("balanza").Build())

	require.Len(t, r.Responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, r.Responses[0].Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.Responses[0].Data.Flags)
	require.Len(t, r.Edits, 1)
	assert.Equal(t, "ok", *r.Edits[0].Content)
}

func TestDispatchFailedAcknowledgement(t *testing.T) {
	called := false
	cmd := testCommand("balanza", func(context.Context, *Context) error {
		called = true
		return nil
	})
	cmd.Defer = true
	d, buf := newTestDispatcher(t, Options{}, cmd)
	r := &testutil.Responder{RespondErr: errors.New("unknown interaction")}

	d.Dispatch(context.Background(), r, testutil.Command("balanza").Build())

	assert.False(t, called)
	assert.Len(t, logLines(buf), 1)
	assert.Contains(t, buf.String(), "failed to acknowledge")
}

func TestDispatchHandlerError(t *testing.T) {
	cmd := testCommand("pagar", func(context.Context, *Context) error {
		return errs.New(errs.CodeInsufficientFunds, "No tienes suficiente efectivo")
	})
	cmd.Defer = true
	d, buf := newTestDispatcher(t, Options{AlertChannelID: "alerts"}, cmd)
	r := &testutil.Responder{}

	d.Dispatch(context.Background(), r, testutil.Command("pagar").Build())

	replies := r.Replies()
	require.Len(t, replies, 1)
	assert.Equal(t, "No tienes suficiente efectivo", replies[0].Description)
	assert.Empty(t, r.ChannelSends, "user errors are not escalated")

	lines := logLines(buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"level":"error"`)
	assert.Contains(t, lines[0], `"code":"INSUFFICIENT_FUNDS"`)
}

func TestDispatchRecoversPanic(t *testing.T) {
	cmd := testCommand("diario", func(context.Context, *Context) error {
		panic("nil map")
	})
	d, buf := newTestDispatcher(t, Options{AlertChannelID: "alerts"}, cmd)
	r := &testutil.Responder{}

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), r, testutil.Command("diario").Build())
	})

	replies := r.Replies()
	require.Len(t, replies, 1)
	assert.Equal(t, errs.GenericMessage, replies[0].Description)
	assert.NotContains(t, replies[0].Description, "nil map")

	require.Len(t, r.ChannelSends, 1)
	assert.Equal(t, "alerts", r.ChannelSends[0].ChannelID)

	lines := logLines(buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "panic in command diario")
}

func TestDispatchReplyFailureStillLogsOnce(t *testing.T) {
	cmd := testCommand("pagar", func(context.Context, *Context) error {
		return errs.New(errs.CodeDatabaseError, "")
	})
	cmd.Defer = true
	d, buf := newTestDispatcher(t, Options{}, cmd)
	r := &testutil.Responder{EditErr: errors.New("token expired")}

	d.Dispatch(context.Background(), r, testutil.Command("pagar").Build())

	lines := logLines(buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "reply_error")
}

func TestDispatchHandlerDeadline(t *testing.T) {
	var deadline time.Time
	cmd := testCommand("ranking", func(ctx context.Context, _ *Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	})
	d, _ := newTestDispatcher(t, Options{HandlerTimeout: time.Second}, cmd)

	d.Dispatch(context.Background(), &testutil.Responder{}, testutil.Command("ranking").Build())

	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestDispatchRateLimited(t *testing.T) {
	called := false
	cmd := testCommand("balanza", func(context.Context, *Context) error {
		called = true
		return nil
	})
	cmd.Defer = true
	d, _ := newTestDispatcher(t, Options{Limiter: denyLimiter{}}, cmd)
	r := &testutil.Responder{}

	d.Dispatch(context.Background(), r, testutil.Command("balanza").Build())

	assert.False(t, called)
	require.Len(t, r.Responses, 1)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.Responses[0].Data.Flags)
	assert.Contains(t, r.LastReply().Description, "Anti-Spam")
}

func TestDispatchPermissions(t *testing.T) {
	tests := []struct {
		name    string
		perms   int64
		dm      bool
		allowed bool
	}{
		{name: "missing", perms: discordgo.PermissionSendMessages},
		{name: "granted", perms: discordgo.PermissionKickMembers, allowed: true},
		{name: "administrator", perms: discordgo.PermissionAdministrator, allowed: true},
		{name: "outside guild", dm: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			cmd := testCommand("sancion", func(context.Context, *Context) error {
				called = true
				return nil
			})
			cmd.Permission = discordgo.PermissionKickMembers
			d, _ := newTestDispatcher(t, Options{}, cmd)
			r := &testutil.Responder{}

			b := testutil.Command("sancion").Permissions(tt.perms)
			if tt.dm {
				b = b.DM()
			}
			d.Dispatch(context.Background(), r, b.Build())

			assert.Equal(t, tt.allowed, called)
			if !tt.allowed {
				assert.Equal(t, errs.DefaultMessage(errs.CodeInvalidPermission), r.LastReply().Description)
			}
		})
	}
}

func TestDispatchCooldown(t *testing.T) {
	runs := 0
	cmd := testCommand("pagar", func(context.Context, *Context) error {
		runs++
		return nil
	})
	cmd.Cooldown = time.Minute
	d, _ := newTestDispatcher(t, Options{Cooldowns: cooldown.NewMemoryStore()}, cmd)

	first := &testutil.Responder{}
	d.Dispatch(context.Background(), first, testutil.Command("pagar").Build())
	second := &testutil.Responder{}
	d.Dispatch(context.Background(), second, testutil.Command("pagar").Build())
	other := &testutil.Responder{}
	d.Dispatch(context.Background(), other, testutil.Command("pagar").User(testutil.OtherUserID).Build())

	assert.Equal(t, 2, runs)
	assert.Contains(t, second.LastReply().Description, "Debes esperar")
	assert.Contains(t, second.LastReply().Description, "minuto")
}

func TestDispatchCooldownReleasedOnFailure(t *testing.T) {
	runs := 0
	cmd := testCommand("cobrar", func(context.Context, *Context) error {
		runs++
		if runs == 1 {
			return errs.New(errs.CodeInsufficientFunds, "")
		}
		return nil
	})
	cmd.Cooldown = time.Minute
	d, _ := newTestDispatcher(t, Options{Cooldowns: cooldown.NewMemoryStore()}, cmd)

	failed := &testutil.Responder{}
	d.Dispatch(context.Background(), failed, testutil.Command("cobrar").Build())
	retried := &testutil.Responder{}
	d.Dispatch(context.Background(), retried, testutil.Command("cobrar").Build())
	blocked := &testutil.Responder{}
	d.Dispatch(context.Background(), blocked, testutil.Command("cobrar").Build())

	assert.Equal(t, 2, runs)
	assert.Contains(t, blocked.LastReply().Description, "Debes esperar")
}

func TestDispatchPermissionRejectionKeepsCooldown(t *testing.T) {
	store := cooldown.NewMemoryStore()
	cmd := testCommand("multar", func(context.Context, *Context) error { return nil })
	cmd.Permission = discordgo.PermissionManageServer
	cmd.Cooldown = time.Minute
	d, _ := newTestDispatcher(t, Options{Cooldowns: store}, cmd)

	d.Dispatch(context.Background(), &testutil.Responder{}, testutil.Command("multar").Build())

	ok, _, err := store.Reserve(context.Background(), cooldown.Key("multar", testutil.UserID), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a rejected command must not start its cooldown")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "corto", truncate("corto", 10))
	assert.Equal(t, "añoñ...", truncate("añoñería", 4))
}

func TestDispatchCooldownStoreDownFailsOpen(t *testing.T) {
	called := false
	cmd := testCommand("pagar", func(context.Context, *Context) error {
		called = true
		return nil
	})
	cmd.Cooldown = time.Minute
	d, buf := newTestDispatcher(t, Options{Cooldowns: brokenCooldowns{}}, cmd)

	d.Dispatch(context.Background(), &testutil.Responder{}, testutil.Command("pagar").Build())

	assert.True(t, called)
	assert.Contains(t, buf.String(), "cooldown store unavailable")
}

func TestDispatchFallback(t *testing.T) {
	var got *discordgo.Interaction
	d, _ := newTestDispatcher(t, Options{
		Fallback: func(_ context.Context, _ Responder, i *discordgo.Interaction) { got = i },
	}, testCommand("balanza", nil))

	button := &discordgo.Interaction{ID: "1", Type: discordgo.InteractionMessageComponent}
	d.Dispatch(context.Background(), &testutil.Responder{}, button)

	assert.Same(t, button, got)
}

func TestFormatWait(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 200 * time.Millisecond, want: "1 segundo"},
		{in: 45 * time.Second, want: "45 segundos"},
		{in: 61 * time.Second, want: "2 minutos"},
		{in: 60 * time.Second, want: "1 minuto"},
		{in: 90 * time.Minute, want: "2 horas"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatWait(tt.in), tt.in.String())
	}
}
