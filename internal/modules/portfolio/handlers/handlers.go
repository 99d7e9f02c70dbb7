// Package handlers provides HTTP handlers for the 13F portfolio and manager views.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/aristath/thirteenf/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PortfolioService is what the handlers need from portfolio.Service.
type PortfolioService interface {
	BuildPortfolio(ctx context.Context, dedupe bool) (*domain.PortfolioResponse, error)
	GetManagerHoldings(ctx context.Context, cik10 string, resolveTickers bool) (*domain.ManagerHoldingsResponse, error)
	Roster() *domain.Roster
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service PortfolioService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	dedupe := queryFlag(r, "dedupe", false)

	resp, err := h.service.BuildPortfolio(r.Context(), dedupe)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to build portfolio", err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetFiling handles GET /api/13f/{cik}
func (h *Handler) HandleGetFiling(w http.ResponseWriter, r *http.Request) {
	cik10, err := domain.NormalizeCIK(chi.URLParam(r, "cik"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid CIK format. Must be numeric.", nil)
		return
	}

	h.serveManagerHoldings(w, r, cik10)
}

// HandleListManagers handles GET /api/managers
func (h *Handler) HandleListManagers(w http.ResponseWriter, r *http.Request) {
	managers := h.service.Roster().Managers()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(managers),
		"managers": managers,
	})
}

// HandleGetManager handles GET /api/managers/{slug}
func (h *Handler) HandleGetManager(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	m, ok := h.service.Roster().BySlug(slug)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Unknown manager", nil)
		return
	}

	h.serveManagerHoldings(w, r, m.CIK)
}

func (h *Handler) serveManagerHoldings(w http.ResponseWriter, r *http.Request, cik10 string) {
	resolveTickers := queryFlag(r, "tickers", true)

	resp, err := h.service.GetManagerHoldings(r.Context(), cik10, resolveTickers)
	if err != nil {
		if domain.IsNotFound(err) {
			h.log.Info().Err(err).Str("cik", cik10).Msg("No 13F data")
			h.writeError(w, http.StatusNotFound, "No 13F filings found for this CIK", err)
			return
		}
		h.log.Error().Err(err).Str("cik", cik10).Msg("Failed to fetch 13F data")
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch 13F data", err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// queryFlag reads a boolean query parameter. "1" and strconv.ParseBool
// spellings are accepted; anything else yields def.
func queryFlag(r *http.Request, name string, def bool) bool {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	h.writeJSON(w, status, body)
}
