package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nacionmx/unified-bot/internal/bot"
	"github.com/nacionmx/unified-bot/internal/keepalive"
	"github.com/nacionmx/unified-bot/internal/lock"
	"github.com/nacionmx/unified-bot/internal/middleware"
	"github.com/nacionmx/unified-bot/internal/server"
)

const checkTimeout = 5 * time.Second

var errNoDatabase = errors.New("database not configured")

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Instance  string    `json:"instance"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Error     string    `json:"error,omitempty"`
}

// Check is one dependency check on /status.
type Check struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

// StatusResponse is the body of /status.
type StatusResponse struct {
	Status      string               `json:"status"`
	Instance    string               `json:"instance"`
	Timestamp   time.Time            `json:"timestamp"`
	Environment string               `json:"environment"`
	Uptime      string               `json:"uptime"`
	Checks      map[string]Check     `json:"checks"`
	Lock        *lock.Status         `json:"lock,omitempty"`
	KeepAlive   *keepalive.Status    `json:"keepAlive,omitempty"`
	Bots        []bot.InstanceStatus `json:"bots"`
}

type HealthHandler struct {
	Handler
	runtime Runtime
	started time.Time
	now     func() time.Time
}

func NewHealthHandler(s *server.Server, runtime Runtime) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		runtime: runtime,
		started: time.Now(),
		now:     time.Now,
	}
}

// CheckHealth answers uptime monitors: 200 "healthy" when the database
// answers within 5 seconds, 503 "degraded" otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	logger := middleware.GetLogger(c).With().Str("operation", "health_check").Logger()

	response := HealthResponse{
		Status:    "healthy",
		Instance:  h.server.InstanceID,
		Timestamp: h.now().UTC(),
		Database:  "connected",
	}

	if err := h.pingDatabase(c.Request().Context()); err != nil {
		response.Status = "degraded"
		response.Database = "disconnected"
		response.Error = err.Error()

		logger.Warn().Err(err).Msg("health check failed")
		h.recordCheckError("database", err)

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	return c.JSON(http.StatusOK, response)
}

// CheckStatus reports every dependency and the runtime components. Only an
// unreachable database makes it unhealthy; Redis is optional.
func (h *HealthHandler) CheckStatus(c echo.Context) error {
	start := h.now()
	ctx := c.Request().Context()
	logger := middleware.GetLogger(c).With().Str("operation", "status_check").Logger()

	response := StatusResponse{
		Status:      "healthy",
		Instance:    h.server.InstanceID,
		Timestamp:   start.UTC(),
		Environment: h.server.Config.Primary.Env,
		Uptime:      start.Sub(h.started).Round(time.Second).String(),
		Checks:      make(map[string]Check),
		Bots:        []bot.InstanceStatus{},
	}

	dbCheck := h.timed(func() error { return h.pingDatabase(ctx) })
	response.Checks["database"] = dbCheck
	if dbCheck.Status != "healthy" {
		response.Status = "unhealthy"
		logger.Error().Str("error", dbCheck.Error).Msg("database status check failed")
		h.recordCheckError("database", errors.New(dbCheck.Error))
	}

	if h.server.Redis != nil {
		redisCheck := h.timed(func() error {
			ctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			return h.server.Redis.Ping(ctx).Err()
		})
		response.Checks["redis"] = redisCheck
		if redisCheck.Status != "healthy" {
			logger.Warn().Str("error", redisCheck.Error).Msg("redis status check failed")
			h.recordCheckError("redis", errors.New(redisCheck.Error))
		}
	}

	if h.runtime.Lock != nil {
		status := h.runtime.Lock.Status()
		response.Lock = &status
	}
	if h.runtime.KeepAlive != nil {
		status := h.runtime.KeepAlive.Status()
		response.KeepAlive = &status
	}
	if h.runtime.Bots != nil {
		response.Bots = h.runtime.Bots.Status()
	}

	code := http.StatusOK
	if response.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	logger.Debug().Dur("total_duration", h.now().Sub(start)).Int("status", code).Msg("status check done")
	return c.JSON(code, response)
}

func (h *HealthHandler) pingDatabase(ctx context.Context) error {
	if h.runtime.Database == nil {
		return errNoDatabase
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return h.runtime.Database.Ping(ctx)
}

func (h *HealthHandler) timed(check func() error) Check {
	start := time.Now()
	err := check()
	result := Check{Status: "healthy", ResponseTime: time.Since(start).String()}
	if err != nil {
		result.Status = "unhealthy"
		result.Error = err.Error()
	}
	return result
}

func (h *HealthHandler) recordCheckError(checkType string, err error) {
	if app := h.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
			"check_type":    checkType,
			"operation":     "health_check",
			"error_type":    checkType + "_unhealthy",
			"instance_id":   h.server.InstanceID,
			"error_message": err.Error(),
		})
	}
}
