// Package router builds the Echo router: it installs the global middleware
// and maps the system and dashboard routes onto their handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nacionmx/unified-bot/internal/handler"
	"github.com/nacionmx/unified-bot/internal/middleware"
	"github.com/nacionmx/unified-bot/internal/server"
)

func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	m := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = m.Global.GlobalErrorHandler

	// Order matters: the request id and the New Relic transaction must exist
	// before the context logger is built from them.
	router.Use(
		middleware.RequestID(),
		m.Tracing.NewRelicMiddleware(),
		m.Tracing.EnhanceTracing(),
		m.ContextEnhancer.EnhanceContext(),
		m.Global.RequestLogger(),
		m.Global.Recover(),
		m.Global.Secure(),
		m.Global.CORS(),
	)

	registerSystemRoutes(router, h)
	registerDashboardRoutes(router, h, m)

	return router
}
