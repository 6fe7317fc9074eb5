package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all journal routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/journal", func(r chi.Router) {
		r.Get("/entries", h.HandleListEntries)
		r.Post("/entries", h.HandleCreateEntry)
		r.Get("/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			h.HandleGetEntry(w, r, id)
		})

		r.Get("/options-entries", h.HandleListOptionsEntries)
		r.Post("/options-entries", h.HandleCreateOptionsEntry)
	})
}
