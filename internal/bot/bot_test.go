package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nacionmx/unified-bot/internal/command"
	"github.com/nacionmx/unified-bot/internal/lib/job"
	"github.com/nacionmx/unified-bot/internal/testutil"
)

type fakeSession struct {
	testutil.Responder

	mu        sync.Mutex
	handlers  []interface{}
	removed   int
	opens     int
	openErrs  []error
	closed    bool
	synced    []string
	dmTargets []string
}

func (f *fakeSession) AddHandler(handler interface{}) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.removed++
	}
}

func (f *fakeSession) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		return err
	}
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) User(string, ...discordgo.RequestOption) (*discordgo.User, error) {
	return &discordgo.User{ID: testutil.AppID, Username: "economia"}, nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dmTargets = append(f.dmTargets, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeSession) ApplicationCommandBulkOverwrite(_ string, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, guildID)
	return cmds, nil
}

func (f *fakeSession) handler(t *testing.T, match func(h interface{}) bool) interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.handlers {
		if match(h) {
			return h
		}
	}
	t.Fatal("handler not registered")
	return nil
}

func newInstance(t *testing.T, session *fakeSession, handled *[]string) *Instance {
	t.Helper()
	registry := command.NewRegistry()
	require.NoError(t, registry.Register(&command.Command{
		Definition: &discordgo.ApplicationCommand{Name: "balanza", Description: "balanza"},
		Handler: func(_ context.Context, c *command.Context) error {
			*handled = append(*handled, c.Command.Name())
			return c.ReplyText("ok")
		},
	}))
	log := zerolog.Nop()
	inst := NewInstance("economy", "token", registry, command.NewDispatcher(registry, log, command.Options{}), []string{testutil.GuildID}, log)
	inst.newSession = func(string) (Session, error) { return session, nil }
	inst.retryInitial = time.Millisecond
	return inst
}

func TestInstanceLifecycle(t *testing.T) {
	session := &fakeSession{}
	var handled []string
	inst := newInstance(t, session, &handled)

	require.NoError(t, inst.Start(context.Background()))
	assert.True(t, inst.Running())
	assert.Len(t, session.handlers, 2)

	ready := session.handler(t, func(h interface{}) bool {
		_, ok := h.(func(*discordgo.Session, *discordgo.Ready))
		return ok
	}).(func(*discordgo.Session, *discordgo.Ready))
	ready(nil, &discordgo.Ready{User: &discordgo.User{ID: testutil.AppID, Username: "economia"}})
	assert.Equal(t, []string{testutil.GuildID}, session.synced)
	assert.True(t, inst.Status().Ready)
	assert.Equal(t, "economia", inst.Status().User)

	interaction := session.handler(t, func(h interface{}) bool {
		_, ok := h.(func(*discordgo.Session, *discordgo.InteractionCreate))
		return ok
	}).(func(*discordgo.Session, *discordgo.InteractionCreate))
	interaction(nil, &discordgo.InteractionCreate{Interaction: testutil.Command("balanza").Build()})
	assert.Equal(t, []string{"balanza"}, handled)
	assert.Len(t, session.Responses, 1)

	require.NoError(t, inst.Stop())
	assert.True(t, session.closed)
	assert.Equal(t, 2, session.removed)
	assert.False(t, inst.Running())
}

func TestInstanceLoginRetry(t *testing.T) {
	session := &fakeSession{openErrs: []error{errors.New("websocket: bad handshake")}}
	var handled []string
	inst := newInstance(t, session, &handled)

	require.NoError(t, inst.Start(context.Background()))
	assert.Equal(t, 2, session.opens)
	require.NoError(t, inst.Stop())
}

func TestInstanceLoginGivesUp(t *testing.T) {
	fail := errors.New("4004: authentication failed")
	session := &fakeSession{openErrs: []error{fail, fail, fail, fail}}
	var handled []string
	inst := newInstance(t, session, &handled)

	err := inst.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, loginAttempts, session.opens)
	assert.False(t, inst.Running())
	assert.Equal(t, 2, session.removed)
}

func TestRegisterCommands(t *testing.T) {
	session := &fakeSession{}
	var handled []string
	inst := newInstance(t, session, &handled)

	n, err := inst.RegisterCommands(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, session.opens, "registering must not open the gateway")
}

func TestManagerNotify(t *testing.T) {
	log := zerolog.Nop()
	session := &fakeSession{}
	var handled []string
	inst := newInstance(t, session, &handled)
	m := NewManager(&log, inst)

	embed := &discordgo.MessageEmbed{Title: "Pago recibido"}
	assert.ErrorIs(t, m.Notify(context.Background(), testutil.UserID, embed), job.ErrNoNotifier)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.NoError(t, m.Notify(context.Background(), testutil.UserID, embed))
	assert.Equal(t, []string{testutil.UserID}, session.dmTargets)
	require.Len(t, session.ChannelSends, 1)
	assert.Equal(t, "dm-"+testutil.UserID, session.ChannelSends[0].ChannelID)
}

func TestManagerStartSkipsFailedInstance(t *testing.T) {
	log := zerolog.Nop()
	var handled []string
	fail := errors.New("4004: authentication failed")

	good := newInstance(t, &fakeSession{}, &handled)
	bad := newInstance(t, &fakeSession{openErrs: []error{fail, fail, fail}}, &handled)
	bad.Name = "moderation"

	m := NewManager(&log, bad, good)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	statuses := m.Status()
	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].Running)
	assert.True(t, statuses[1].Running)

	inst, ok := m.Instance("moderation")
	require.True(t, ok)
	assert.Same(t, bad, inst)
}

func TestManagerStartFailsWhenNoneStart(t *testing.T) {
	log := zerolog.Nop()
	assert.Error(t, NewManager(&log).Start(context.Background()))

	var handled []string
	fail := errors.New("4004: authentication failed")
	bad := newInstance(t, &fakeSession{openErrs: []error{fail, fail, fail}}, &handled)
	assert.Error(t, NewManager(&log, bad).Start(context.Background()))
}
