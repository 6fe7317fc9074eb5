// Package handlers provides HTTP handlers for the trade outcome ledger.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/reckon/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// Handler handles ledger HTTP requests
type Handler struct {
	outcomes *ledger.OutcomeRepository
	log      zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(outcomes *ledger.OutcomeRepository, log zerolog.Logger) *Handler {
	return &Handler{
		outcomes: outcomes,
		log:      log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetOutcomes handles GET /api/ledger/outcomes
func (h *Handler) HandleGetOutcomes(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	outcomes, err := h.outcomes.History(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query trade outcomes")
		http.Error(w, "Failed to query trade outcomes", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"outcomes": outcomes,
			"count":    len(outcomes),
		},
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
