package handler

import (
	"context"

	"github.com/nacionmx/unified-bot/internal/bot"
	"github.com/nacionmx/unified-bot/internal/keepalive"
	"github.com/nacionmx/unified-bot/internal/lock"
	"github.com/nacionmx/unified-bot/internal/server"
	"github.com/nacionmx/unified-bot/internal/service"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Runtime is the long-running machinery /status reports on. Nil fields are
// reported as not running.
type Runtime struct {
	Database  Pinger
	Lock      *lock.Lock
	KeepAlive *keepalive.Service
	Bots      *bot.Manager
}

// Handlers groups all HTTP handlers so the router receives one value.
type Handlers struct {
	Health    *HealthHandler
	Page      *PageHandler
	Dashboard *DashboardHandler
}

func NewHandlers(s *server.Server, services *service.Services, runtime Runtime) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(s, runtime),
		Page:      NewPageHandler(s),
		Dashboard: NewDashboardHandler(s, services),
	}
}
