package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		r.Post("/portfolio", h.HandleAnalyzePortfolio)
		r.Get("/policy", h.HandleGetPolicy)
		r.Get("/{id}", h.HandleGetSnapshot)
	})
}
