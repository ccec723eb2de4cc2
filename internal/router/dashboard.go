package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nacionmx/unified-bot/internal/handler"
	"github.com/nacionmx/unified-bot/internal/middleware"
)

func registerDashboardRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	api := r.Group("/api", m.RateLimit.Limit(), m.Auth.RequireAPIKey)
	d := h.Dashboard

	api.GET("/rankings", handler.Handle(d.Handler, d.Rankings, http.StatusOK,
		func() *handler.RankingsRequest { return &handler.RankingsRequest{} }))
	api.GET("/elections", handler.Handle(d.Handler, d.Elections, http.StatusOK,
		func() *handler.EmptyRequest { return &handler.EmptyRequest{} }))
	api.GET("/treasury/:guild_id", handler.Handle(d.Handler, d.Treasury, http.StatusOK,
		func() *handler.TreasuryRequest { return &handler.TreasuryRequest{} }))
}
