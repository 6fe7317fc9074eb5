package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all stats routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stats", func(r chi.Router) {
		r.Get("/summary", h.HandleGetSummary)
	})
}
