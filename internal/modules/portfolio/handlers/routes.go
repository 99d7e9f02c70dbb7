package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers portfolio, manager detail and roster routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolio", h.HandleGetPortfolio) // Equal-weighted top holdings (?dedupe=1)
	r.Get("/13f/{cik}", h.HandleGetFiling)    // Latest holdings of any CIK (?tickers=0 skips resolution)

	r.Route("/managers", func(r chi.Router) {
		r.Get("/", h.HandleListManagers)
		r.Get("/{slug}", h.HandleGetManager) // Same payload as /13f/{cik} for a roster slug
	})
}
