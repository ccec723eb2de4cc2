package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nacionmx/unified-bot/internal/cooldown"
	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/logger"
	"github.com/nacionmx/unified-bot/internal/render"
)

// DefaultAckDeadline is how long Discord keeps an interaction token valid
// without an acknowledgement.
const DefaultAckDeadline = 3 * time.Second

// DefaultHandlerTimeout bounds a handler's work after acknowledgement.
const DefaultHandlerTimeout = 30 * time.Second

// RateLimiter decides whether a user may run another command now.
type RateLimiter interface {
	Allow(userID string) bool
}

// Options configures a Dispatcher. Zero values disable the feature.
type Options struct {
	AckDeadline    time.Duration
	HandlerTimeout time.Duration
	Limiter        RateLimiter
	Cooldowns      cooldown.Store
	NewRelic       *newrelic.Application

	// AlertChannelID receives a copy of critical failures.
	AlertChannelID string

	// Fallback handles interactions that are not slash commands, such as
	// button presses.
	Fallback func(ctx context.Context, r Responder, i *discordgo.Interaction)
}

// Dispatcher routes interactions to the commands of one registry.
type Dispatcher struct {
	registry *Registry
	logger   zerolog.Logger
	opts     Options
	now      func() time.Time
}

func NewDispatcher(registry *Registry, log zerolog.Logger, opts Options) *Dispatcher {
	if opts.AckDeadline <= 0 {
		opts.AckDeadline = DefaultAckDeadline
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = DefaultHandlerTimeout
	}
	return &Dispatcher{
		registry: registry,
		logger:   log,
		opts:     opts,
		now:      time.Now,
	}
}

// Dispatch handles one interaction. It never panics and never retries: an
// interaction that cannot be answered in time is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, r Responder, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		if d.opts.Fallback != nil {
			d.opts.Fallback(ctx, r, i)
		}
		return
	}

	data := i.ApplicationCommandData()
	log := d.logger.With().
		Str("command", data.Name).
		Str("interaction_id", i.ID).
		Str("guild_id", i.GuildID).
		Str("user_id", interactionUserID(i)).
		Logger()

	cmd, ok := d.registry.Lookup(data.Name)
	if !ok {
		log.Warn().Msg("unknown command, ignoring")
		return
	}

	if age, expired := d.expired(i); expired {
		log.Warn().Dur("age", age).Msg("interaction expired before acknowledgement, dropping")
		return
	}

	if app := d.opts.NewRelic; app != nil {
		txn := app.StartTransaction("/command/" + cmd.Name())
		defer txn.End()
		txn.AddAttribute("command.name", cmd.Name())
		txn.AddAttribute("guild.id", i.GuildID)
		txn.AddAttribute("user.id", interactionUserID(i))
		ctx = newrelic.NewContext(ctx, txn)
		log = logger.WithTraceContext(log, txn)
	}

	c := newContext(i, cmd, r, log)

	reserved, rejection := d.admit(ctx, c)
	if rejection != nil {
		if err := c.reject(render.Error(rejection.Message)); err != nil {
			log.Warn().Err(err).Str("code", string(rejection.Code)).Msg("failed to send rejection")
			return
		}
		log.Debug().Str("code", string(rejection.Code)).Msg("command rejected")
		return
	}

	if cmd.Defer {
		if err := c.deferReply(); err != nil {
			d.release(ctx, c, reserved)
			log.Error().Err(err).Msg("failed to acknowledge interaction")
			return
		}
	}

	start := d.now()
	if err := d.run(ctx, c); err != nil {
		d.release(ctx, c, reserved)
		d.fail(ctx, c, err)
		return
	}

	log.Debug().Dur("duration", d.now().Sub(start)).Msg("command completed")
}

// expired reports whether the interaction is older than the ack deadline,
// using the creation time encoded in its snowflake id.
func (d *Dispatcher) expired(i *discordgo.Interaction) (time.Duration, bool) {
	created, err := discordgo.SnowflakeTimestamp(i.ID)
	if err != nil {
		return 0, false
	}
	age := d.now().Sub(created)
	return age, age > d.opts.AckDeadline
}

// admit runs the pre-handler checks and returns the first rejection. The
// cooldown is reserved last, once every other check passed; the reserved key
// is returned so a run that fails afterwards can give it back.
func (d *Dispatcher) admit(ctx context.Context, c *Context) (string, *errs.BotError) {
	userID := c.UserID()

	if d.opts.Limiter != nil && !d.opts.Limiter.Allow(userID) {
		return "", errs.New(errs.CodeRateLimit, "🛡️ Anti-Spam: estás usando comandos demasiado rápido. Espera unos segundos.")
	}

	if !hasPermission(c.Interaction.Member, c.Command.Permission) {
		return "", errs.New(errs.CodeInvalidPermission, "")
	}

	if c.Command.Cooldown <= 0 || d.opts.Cooldowns == nil {
		return "", nil
	}

	key := cooldown.Key(c.Command.Name(), userID)
	ok, remaining, err := d.opts.Cooldowns.Reserve(ctx, key, c.Command.Cooldown)
	switch {
	case err != nil:
		// Cooldowns are a courtesy; an unavailable store must not block commands.
		c.Logger.Warn().Err(err).Msg("cooldown store unavailable")
		return "", nil
	case !ok:
		return "", errs.New(errs.CodeCooldownActive, fmt.Sprintf("Debes esperar %s antes de usar este comando de nuevo", formatWait(remaining)))
	}
	return key, nil
}

// release gives back a cooldown reserved for a run that did not complete.
func (d *Dispatcher) release(ctx context.Context, c *Context, key string) {
	if key == "" {
		return
	}
	if err := d.opts.Cooldowns.Release(ctx, key); err != nil {
		c.Logger.Warn().Err(err).Msg("failed to release cooldown")
	}
}

func hasPermission(member *discordgo.Member, required int64) bool {
	if required == 0 {
		return true
	}
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return member.Permissions&required == required
}

// run executes the handler and turns a panic into an error.
func (d *Dispatcher) run(ctx context.Context, c *Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.HandlerTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic in command %s: %v", c.Command.Name(), rec)
		}
	}()

	return c.Command.Handler(ctx, c)
}

// fail sends the single error reply of a failed command and writes its single log line.
func (d *Dispatcher) fail(ctx context.Context, c *Context, err error) {
	replyErr := c.Reply(render.Error(errs.UserMessage(err)))

	var alertErr error
	if d.critical(err) && d.opts.AlertChannelID != "" {
		alertErr = d.alert(c, err)
	}

	if txn := newrelic.FromContext(ctx); txn != nil {
		txn.NoticeError(nrpkgerrors.Wrap(err))
	}

	event := c.Logger.Error().Stack().Err(err).Str("code", string(errs.CodeOf(err)))
	if replyErr != nil {
		event = event.AnErr("reply_error", replyErr)
	}
	if alertErr != nil {
		event = event.AnErr("alert_error", alertErr)
	}
	event.Msg("command failed")
}

func (d *Dispatcher) critical(err error) bool {
	if botErr, ok := errs.AsBotError(err); ok {
		return botErr.Critical()
	}
	return true
}

func (d *Dispatcher) alert(c *Context, err error) error {
	embed := render.Embed(render.ColorError, "🚨 Error crítico",
		fmt.Sprintf("Comando `/%s` falló", c.Command.Name()),
		render.Field("Usuario", render.Mention(c.UserID())),
		render.Field("Servidor", c.GuildID()),
		render.Block("Error", truncate(err.Error(), 1000)),
	)
	_, sendErr := c.responder.ChannelMessageSendEmbed(d.opts.AlertChannelID, embed)
	return sendErr
}

// formatWait renders a remaining cooldown as "45 segundos" or "3 minutos".
func formatWait(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	switch {
	case secs < 60:
		return plural(secs, "segundo")
	case secs < 3600:
		return plural((secs+59)/60, "minuto")
	default:
		return plural((secs+3599)/3600, "hora")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
