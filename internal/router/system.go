package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nacionmx/unified-bot/internal/handler"
)

// registerSystemRoutes registers the endpoints uptime monitors and humans
// poll. They are never rate limited or authenticated.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/", h.Page.ServeIndex)
	r.GET("/health", h.Health.CheckHealth)
	r.GET("/status", h.Health.CheckStatus)
}
