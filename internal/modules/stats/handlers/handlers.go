// Package handlers provides HTTP handlers for aggregate trade statistics.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/reckon/internal/modules/stats"
	"github.com/rs/zerolog"
)

// Handler handles stats HTTP requests
type Handler struct {
	service *stats.Service
	log     zerolog.Logger
}

// NewHandler creates a new stats handler
func NewHandler(service *stats.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "stats").Logger(),
	}
}

// HandleGetSummary handles GET /api/stats/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute stats summary")
		http.Error(w, "Failed to compute stats summary", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
