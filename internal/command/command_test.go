package command

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nacionmx/unified-bot/internal/testutil"
)

func testCommand(name string, handler HandlerFunc) *Command {
	if handler == nil {
		handler = func(context.Context, *Context) error { return nil }
	}
	return &Command{
		Definition: &discordgo.ApplicationCommand{Name: name, Description: name},
		Handler:    handler,
	}
}

type fakeRegistrar struct {
	guilds []string
	sent   [][]*discordgo.ApplicationCommand
	err    error
}

func (f *fakeRegistrar) ApplicationCommandBulkOverwrite(_ string, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.guilds = append(f.guilds, guildID)
	f.sent = append(f.sent, cmds)
	if f.err != nil {
		return nil, f.err
	}
	return cmds, nil
}

func TestRegistryDefinitions(t *testing.T) {
	r := NewRegistry()
	kick := testCommand("sancion", nil)
	kick.Permission = discordgo.PermissionKickMembers
	require.NoError(t, r.Register(testCommand("balanza", nil), testCommand("pagar", nil), kick))

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, []string{"balanza", "pagar", "sancion"}, r.Names())
	assert.Nil(t, defs[0].DefaultMemberPermissions)
	require.NotNil(t, defs[2].DefaultMemberPermissions)
	assert.Equal(t, int64(discordgo.PermissionKickMembers), *defs[2].DefaultMemberPermissions)
	assert.Nil(t, kick.Definition.DefaultMemberPermissions, "registered definition must not be mutated")
}

func TestRegistryRejectsInvalidCommands(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testCommand("balanza", nil)))

	assert.Error(t, r.Register(testCommand("balanza", nil)))
	assert.Error(t, r.Register(&Command{Definition: &discordgo.ApplicationCommand{Name: "x"}}))
	assert.Error(t, r.Register(&Command{}))
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySync(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testCommand("a", nil), testCommand("b", nil)))

	t.Run("per guild", func(t *testing.T) {
		reg := &fakeRegistrar{}
		n, err := r.Sync(context.Background(), reg, testutil.AppID, []string{"g1", "g2"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"g1", "g2"}, reg.guilds)
		assert.Len(t, reg.sent[0], 2)
	})

	t.Run("global", func(t *testing.T) {
		reg := &fakeRegistrar{}
		_, err := r.Sync(context.Background(), reg, testutil.AppID, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{""}, reg.guilds)
	})

	t.Run("error", func(t *testing.T) {
		reg := &fakeRegistrar{err: errors.New("401 unauthorized")}
		_, err := r.Sync(context.Background(), reg, testutil.AppID, []string{"g1"})
		assert.ErrorContains(t, err, "guild g1")
	})
}

func TestContextOptions(t *testing.T) {
	cmd := testCommand("ticket", nil)
	i := testutil.Command("ticket").
		Roles(testutil.RoleID).
		Sub("cerrar").
		Int("id", 12).
		String("razon", "resuelto").
		UserOption("usuario", testutil.OtherUserID).
		Build()

	c := newContext(i, cmd, &testutil.Responder{}, zerolog.Nop())

	assert.Equal(t, "cerrar", c.Subcommand())
	id, ok := c.Int("id")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, "resuelto", c.String("razon"))
	assert.Equal(t, testutil.OtherUserID, c.User("usuario"))
	assert.Equal(t, testutil.UserID, c.UserID())
	assert.Equal(t, []string{testutil.RoleID}, c.Roles())

	_, ok = c.Int("missing")
	assert.False(t, ok)
	assert.Empty(t, c.String("missing"))
}

func TestContextInDM(t *testing.T) {
	i := testutil.Command("balanza").DM().Build()
	c := newContext(i, testCommand("balanza", nil), &testutil.Responder{}, zerolog.Nop())

	assert.Equal(t, testutil.UserID, c.UserID())
	assert.Empty(t, c.GuildID())
	assert.Nil(t, c.Roles())
}

func TestReplyEphemeral(t *testing.T) {
	cmd := testCommand("depositar", nil)
	cmd.Ephemeral = true
	r := &testutil.Responder{}
	c := newContext(testutil.Command("depositar").Build(), cmd, r, zerolog.Nop())

	require.NoError(t, c.ReplyText("hola"))

	require.Len(t, r.Responses, 1)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, r.Responses[0].Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.Responses[0].Data.Flags)
	assert.Equal(t, "hola", r.Responses[0].Data.Content)

	// a second reply edits the first
	require.NoError(t, c.ReplyText("adiós"))
	require.Len(t, r.Edits, 1)
	assert.Equal(t, "adiós", *r.Edits[0].Content)
}
