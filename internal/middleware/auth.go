package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"

	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/nacionmx/unified-bot/internal/server"
)

// APIKeyHeader carries the dashboard API key.
const APIKeyHeader = "X-API-Key"

// dashboardClient is the client name recorded for requests authenticated
// with the dashboard key.
const dashboardClient = "dashboard"

type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{server: s}
}

// RequireAPIKey rejects requests whose X-API-Key does not match the
// configured dashboard key. With no key configured every request is
// rejected.
func (auth *AuthMiddleware) RequireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected := auth.server.Config.Dashboard.APIKey
		if expected == "" {
			GetLogger(c).Warn().Msg("dashboard api key not configured, rejecting request")
			return errs.NewUnauthorizedError("Dashboard API disabled", false)
		}

		given := c.Request().Header.Get(APIKeyHeader)
		if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(expected)) != 1 {
			GetLogger(c).Warn().
				Str("function", "RequireAPIKey").
				Bool("key_present", given != "").
				Msg("invalid dashboard api key")
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		c.Set(ClientKey, dashboardClient)

		return next(c)
	}
}
