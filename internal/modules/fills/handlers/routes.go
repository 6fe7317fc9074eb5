package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all fill routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/fills", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/import", h.HandleImport)
		r.Get("/groups", h.HandleListGroups)
	})
}
