package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all reconcile routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reconcile", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{batchID}", func(w http.ResponseWriter, r *http.Request) {
			batchID := chi.URLParam(r, "batchID")
			h.HandleGetRun(w, r, batchID)
		})
	})
}
