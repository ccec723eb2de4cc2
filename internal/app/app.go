// Package app wires configuration, storage, services, the bot instances and
// the HTTP server into the running system.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nacionmx/unified-bot/internal/bot"
	"github.com/nacionmx/unified-bot/internal/command"
	"github.com/nacionmx/unified-bot/internal/commands"
	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/cooldown"
	"github.com/nacionmx/unified-bot/internal/handler"
	"github.com/nacionmx/unified-bot/internal/keepalive"
	"github.com/nacionmx/unified-bot/internal/lock"
	"github.com/nacionmx/unified-bot/internal/logger"
	"github.com/nacionmx/unified-bot/internal/ratelimit"
	"github.com/nacionmx/unified-bot/internal/repository"
	"github.com/nacionmx/unified-bot/internal/router"
	"github.com/nacionmx/unified-bot/internal/server"
	"github.com/nacionmx/unified-bot/internal/service"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = time.Minute
)

// InstanceOrder is the order instances are started and listed in.
var InstanceOrder = []string{"moderation", "economy", "government", "dealership"}

// Bootstrap loads the configuration and builds the root logger. The
// returned LoggerService must be shut down on exit.
func Bootstrap() (*config.Config, *zerolog.Logger, *logger.LoggerService, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)
	return cfg, &log, loggerService, nil
}

// NewInstanceID returns a short random id naming this process in the
// heartbeat lock and on the status page.
func NewInstanceID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// App is the assembled system. New connects to the database and Redis but
// starts nothing; Serve runs it.
type App struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *logger.LoggerService

	Server       *server.Server
	Repositories *repository.Repositories
	Services     *service.Services
	Bots         *bot.Manager
	Lock         *lock.Lock
	KeepAlive    *keepalive.Service

	limiter *ratelimit.Limiter
}

func New(ctx context.Context, cfg *config.Config, log *zerolog.Logger, loggerService *logger.LoggerService) (*App, error) {
	srv, err := server.New(ctx, cfg, log, loggerService)
	if err != nil {
		return nil, err
	}
	srv.InstanceID = NewInstanceID()

	repos := repository.NewRepositories(srv)

	services, err := service.NewService(srv, repos)
	if err != nil {
		_ = srv.Shutdown(ctx)
		return nil, err
	}

	var cooldowns cooldown.Store = cooldown.NewMemoryStore()
	if srv.Redis != nil {
		cooldowns = cooldown.NewRedisStore(srv.Redis)
	}

	limiter := ratelimit.New(cfg.Discord.RateLimitCount, cfg.Discord.RateLimitWindow)
	opts := command.Options{
		AckDeadline:    cfg.Discord.AckDeadline,
		Limiter:        limiter,
		Cooldowns:      cooldowns,
		NewRelic:       loggerService.GetApplication(),
		AlertChannelID: cfg.Discord.AlertChannelID,
	}

	instances, err := BuildInstances(cfg.Discord, services, opts, log)
	if err != nil {
		_ = srv.Shutdown(ctx)
		return nil, err
	}

	var keepAliveStore repository.HeartbeatStore
	if cfg.KeepAlive.DatabasePing {
		keepAliveStore = repos.Heartbeats
	}

	return &App{
		Config:        cfg,
		Logger:        log,
		LoggerService: loggerService,
		Server:        srv,
		Repositories:  repos,
		Services:      services,
		Bots:          bot.NewManager(log, instances...),
		Lock:          lock.New(repos.Heartbeats, cfg.Lock, srv.InstanceID, log),
		KeepAlive:     keepalive.New(cfg.KeepAlive, keepAliveStore, log),
		limiter:       limiter,
	}, nil
}

// CommandSets returns the commands of each instance by name.
func CommandSets(services *service.Services) map[string][]*command.Command {
	return map[string][]*command.Command{
		"moderation": commands.Moderation(services.Moderation),
		"economy":    commands.Economy(services.Economy),
		"government": commands.Government(services.Government),
		"dealership": commands.Dealership(services.Dealership),
	}
}

// BuildInstances creates one bot per configured token. Instances without a
// token are skipped with a log line.
func BuildInstances(cfg config.DiscordConfig, services *service.Services, opts command.Options, log *zerolog.Logger) ([]*bot.Instance, error) {
	tokens := cfg.Tokens()
	sets := CommandSets(services)

	var instances []*bot.Instance
	for _, name := range InstanceOrder {
		token := tokens[name]
		if token == "" {
			log.Warn().Str("bot", name).Msg("no token configured, instance disabled")
			continue
		}

		registry := command.NewRegistry()
		if err := registry.Register(sets[name]...); err != nil {
			return nil, errors.Wrapf(err, "registering %s commands", name)
		}

		dispatcher := command.NewDispatcher(registry, log.With().Str("bot", name).Logger(), opts)
		instances = append(instances, bot.NewInstance(name, token, registry, dispatcher, cfg.GuildIDs, *log))
	}
	return instances, nil
}

// Serve runs the whole system until ctx is canceled or another instance
// takes the lock over, then shuts everything down and releases the lock.
//
// The HTTP server comes up first so the hosting platform sees the port bound
// while the lock is still being waited for.
func (a *App) Serve(ctx context.Context) error {
	runtime := handler.Runtime{
		Database:  a.Repositories.Heartbeats,
		Lock:      a.Lock,
		KeepAlive: a.KeepAlive,
		Bots:      a.Bots,
	}
	a.Server.SetupHTTPServer(router.NewRouter(a.Server, handler.NewHandlers(a.Server, a.Services, runtime)))

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- a.Server.Start()
	}()

	defer a.shutdown()

	if !a.Lock.AcquireWithWait(ctx) {
		return ctx.Err()
	}

	a.Server.Job.SetNotifier(a.Bots)
	if err := a.Server.Job.Start(); err != nil {
		return err
	}

	if err := a.Bots.Start(ctx); err != nil {
		return err
	}

	if a.Config.KeepAlive.Enabled {
		if err := a.KeepAlive.Start(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("keep-alive disabled")
		}
	}

	maintenance := a.startMaintenance()
	defer func() { <-maintenance.Stop().Done() }()

	a.Logger.Info().
		Str("instance_id", a.Server.InstanceID).
		Interface("bots", a.Bots.Status()).
		Msg("system fully operational")

	select {
	case <-ctx.Done():
		a.Logger.Info().Msg("shutdown requested")
		return nil
	case <-a.Lock.Lost():
		return errors.New("heartbeat lock taken over by another instance")
	case err := <-httpErr:
		if err != nil {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	}
}

// startMaintenance schedules housekeeping that has no owner of its own.
func (a *App) startMaintenance() *cron.Cron {
	c := cron.New()
	_, _ = c.AddFunc("@every "+sweepInterval.String(), func() {
		if n := a.limiter.Sweep(); n > 0 {
			a.Logger.Debug().Int("users", n).Msg("rate limiter swept")
		}
	})
	c.Start()
	return c
}

// shutdown stops components in reverse start order. The lock is released
// once the bots are disconnected and before the pool closes, so a successor
// never overlaps with bots still connected.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.KeepAlive.Stop()
	a.Bots.Stop()

	if err := a.Lock.Release(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("failed to release heartbeat lock")
	}

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("server shutdown failed")
	}

	a.Logger.Info().Msg("shutdown complete")
}

// Close releases the connections of an App that was never served.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("server shutdown failed")
	}
}
