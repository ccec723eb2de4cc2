package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nacionmx/unified-bot/internal/server"
)

const systemName = "Nacion MX Unified System"

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// PageHandler serves the human-readable status page on "/".
type PageHandler struct {
	Handler
	now func() time.Time
}

func NewPageHandler(s *server.Server) *PageHandler {
	return &PageHandler{Handler: NewHandler(s), now: time.Now}
}

func (h *PageHandler) ServeIndex(c echo.Context) error {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, map[string]string{
		"Name":     systemName,
		"Time":     h.now().UTC().Format(time.RFC3339),
		"Instance": h.server.InstanceID,
	})
	if err != nil {
		return fmt.Errorf("failed to render status page: %w", err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
