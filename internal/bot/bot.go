// Package bot runs the Discord gateway sessions, one per bot instance.
package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nacionmx/unified-bot/internal/command"
)

const loginAttempts = 3

// Session is the part of *discordgo.Session an Instance drives.
type Session interface {
	command.Responder
	command.Registrar
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// SessionFactory opens a REST client for a bot token.
type SessionFactory func(token string) (Session, error)

// NewDiscordSession is the production SessionFactory. Slash commands need
// no privileged intents.
func NewDiscordSession(token string) (Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

// InstanceStatus is reported on /status.
type InstanceStatus struct {
	Name     string `json:"name"`
	Running  bool   `json:"running"`
	Ready    bool   `json:"ready"`
	User     string `json:"user,omitempty"`
	Commands int    `json:"commands"`
}

// Instance is one bot: a token, its commands and the session serving them.
type Instance struct {
	Name string

	token      string
	registry   *command.Registry
	dispatcher *command.Dispatcher
	guildIDs   []string
	logger     zerolog.Logger
	newSession SessionFactory

	retryInitial time.Duration

	mu       sync.Mutex
	ctx      context.Context
	session  Session
	removers []func()
	running  bool
	ready    bool
	user     string
}

func NewInstance(name, token string, registry *command.Registry, dispatcher *command.Dispatcher, guildIDs []string, logger zerolog.Logger) *Instance {
	return &Instance{
		Name:         name,
		token:        token,
		registry:     registry,
		dispatcher:   dispatcher,
		guildIDs:     guildIDs,
		logger:       logger.With().Str("bot", name).Logger(),
		newSession:   NewDiscordSession,
		retryInitial: 2 * time.Second,
	}
}

// Start connects to the gateway. Commands are registered once Discord
// reports the session ready. ctx scopes every interaction handled later.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running {
		return nil
	}

	session, err := i.newSession(i.token)
	if err != nil {
		return errors.Wrapf(err, "creating %s session", i.Name)
	}

	i.ctx = ctx
	i.session = session
	i.removers = []func(){
		session.AddHandler(i.onReady),
		session.AddHandler(i.onInteraction),
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = i.retryInitial
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, session.Open()
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(loginAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			i.logger.Warn().Err(err).Dur("retry_in", next).Msg("gateway login failed, retrying")
		}),
	)
	if err != nil {
		i.detach()
		return errors.Wrapf(err, "logging in %s", i.Name)
	}

	i.running = true
	i.logger.Info().Int("commands", i.registry.Len()).Msg("bot connected")
	return nil
}

func (i *Instance) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}

	i.mu.Lock()
	ctx, session := i.ctx, i.session
	i.user = r.User.Username
	i.mu.Unlock()

	log := i.logger.With().Str("user", r.User.Username).Logger()
	n, err := i.registry.Sync(ctx, session, appID, i.guildIDs)
	if err != nil {
		log.Error().Err(err).Msg("failed to register commands")
		return
	}

	i.mu.Lock()
	i.ready = true
	i.mu.Unlock()
	log.Info().Int("commands", n).Strs("guilds", i.guildIDs).Msg("bot ready, commands registered")
}

func (i *Instance) onInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	i.mu.Lock()
	ctx, session := i.ctx, i.session
	i.mu.Unlock()
	if session == nil {
		return
	}
	i.dispatcher.Dispatch(ctx, session, ic.Interaction)
}

// RegisterCommands publishes the command schemas over REST without opening
// the gateway.
func (i *Instance) RegisterCommands(ctx context.Context) (int, error) {
	session, err := i.newSession(i.token)
	if err != nil {
		return 0, errors.Wrapf(err, "creating %s session", i.Name)
	}
	me, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return 0, errors.Wrapf(err, "resolving %s application", i.Name)
	}
	return i.registry.Sync(ctx, session, me.ID, i.guildIDs)
}

// Notify sends a direct message through this instance.
func (i *Instance) Notify(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	i.mu.Lock()
	session, running := i.session, i.running
	i.mu.Unlock()
	if !running {
		return errors.Errorf("bot %s is not running", i.Name)
	}

	channel, err := session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "opening dm channel")
	}
	if _, err := session.ChannelMessageSendEmbed(channel.ID, embed, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrap(err, "sending dm")
	}
	return nil
}

// Stop disconnects from the gateway.
func (i *Instance) Stop() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.running {
		return nil
	}
	i.running = false
	i.ready = false

	err := i.session.Close()
	i.detach()
	if err != nil {
		return errors.Wrapf(err, "closing %s session", i.Name)
	}
	i.logger.Info().Msg("bot disconnected")
	return nil
}

// detach drops the handlers. Callers hold mu.
func (i *Instance) detach() {
	for _, remove := range i.removers {
		remove()
	}
	i.removers = nil
	i.session = nil
}

func (i *Instance) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}

func (i *Instance) Status() InstanceStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return InstanceStatus{
		Name:     i.Name,
		Running:  i.running,
		Ready:    i.ready,
		User:     i.user,
		Commands: i.registry.Len(),
	}
}
