package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/nacionmx/unified-bot/internal/model"
	"github.com/nacionmx/unified-bot/internal/server"
	"github.com/nacionmx/unified-bot/internal/service"
	"github.com/nacionmx/unified-bot/internal/validation"
)

// DashboardHandler serves the read-only web dashboard API.
type DashboardHandler struct {
	Handler
	services *service.Services
}

func NewDashboardHandler(s *server.Server, services *service.Services) *DashboardHandler {
	return &DashboardHandler{Handler: NewHandler(s), services: services}
}

type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error { return nil }

type RankingsRequest struct {
	GuildID string `query:"guild_id" label:"guild_id" validate:"required,snowflake"`
	Limit   int    `query:"limit" label:"limit" validate:"min=0,max=25"`
}

func (r *RankingsRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type TreasuryRequest struct {
	GuildID string `param:"guild_id" label:"guild_id" validate:"required,snowflake"`
}

func (r *TreasuryRequest) Validate() error {
	return validation.Validator().Struct(r)
}

type RankingEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"userId"`
	Cash     int64  `json:"cash"`
	Bank     int64  `json:"bank"`
	NetWorth int64  `json:"netWorth"`
}

type RankingsResponse struct {
	GuildID string         `json:"guildId"`
	Entries []RankingEntry `json:"entries"`
}

type ElectionsResponse struct {
	Elections []model.ElectionResult `json:"elections"`
}

func (h *DashboardHandler) Rankings(c echo.Context, req *RankingsRequest) (RankingsResponse, error) {
	accounts, err := h.services.Economy.Ranking(c.Request().Context(), req.GuildID, req.Limit)
	if err != nil {
		return RankingsResponse{}, err
	}

	entries := make([]RankingEntry, 0, len(accounts))
	for i, a := range accounts {
		entries = append(entries, RankingEntry{
			Rank:     i + 1,
			UserID:   a.UserID,
			Cash:     a.Cash,
			Bank:     a.Bank,
			NetWorth: a.NetWorth(),
		})
	}
	return RankingsResponse{GuildID: req.GuildID, Entries: entries}, nil
}

func (h *DashboardHandler) Elections(c echo.Context, _ *EmptyRequest) (ElectionsResponse, error) {
	elections, err := h.services.Government.Elections(c.Request().Context())
	if err != nil {
		return ElectionsResponse{}, err
	}
	if elections == nil {
		elections = []model.ElectionResult{}
	}
	return ElectionsResponse{Elections: elections}, nil
}

func (h *DashboardHandler) Treasury(c echo.Context, req *TreasuryRequest) (service.TreasuryReport, error) {
	report, err := h.services.Government.Treasury(c.Request().Context(), req.GuildID)
	if err != nil {
		return service.TreasuryReport{}, err
	}
	if report.Logs == nil {
		report.Logs = []model.TreasuryLog{}
	}
	return report, nil
}
