// Package handlers provides HTTP handlers for broker fill operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/reckon/internal/domain"
	"github.com/aristath/reckon/internal/modules/fills"
	"github.com/rs/zerolog"
)

// Handler handles fill HTTP requests
type Handler struct {
	repo *fills.FillRepository
	log  zerolog.Logger
}

// NewHandler creates a new fills handler
func NewHandler(repo *fills.FillRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "fills").Logger(),
	}
}

// importRequest is the POST /api/fills/import body
type importRequest struct {
	Fills      []domain.BrokerFill    `json:"fills"`
	OptionLegs []domain.OptionLegFill `json:"option_legs"`
}

// HandleImport handles POST /api/fills/import.
// Re-imported fills are deduplicated on (broker, trade_id); the response
// counts only newly stored rows.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Fills) == 0 && len(req.OptionLegs) == 0 {
		http.Error(w, "No fills provided", http.StatusBadRequest)
		return
	}

	imported, err := h.repo.Import(req.Fills)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to import fills")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	legsImported, err := h.repo.ImportOptionLegs(req.OptionLegs)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to import option legs")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.log.Info().
		Int("fills_received", len(req.Fills)).
		Int("fills_imported", imported).
		Int("legs_received", len(req.OptionLegs)).
		Int("legs_imported", legsImported).
		Msg("Fill import completed")

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"fills_imported":      imported,
			"fills_skipped":       len(req.Fills) - imported,
			"option_legs_imported": legsImported,
			"option_legs_skipped":  len(req.OptionLegs) - legsImported,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleList handles GET /api/fills
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		result []domain.BrokerFill
		err    error
	)

	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		result, err = h.repo.BySymbol(symbol)
	} else {
		result, err = h.repo.All()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query fills")
		http.Error(w, "Failed to query fills", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"fills": result,
			"count": len(result),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleListGroups handles GET /api/fills/groups.
// Groups are assembled on the fly from stored option legs.
func (h *Handler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	legs, err := h.repo.AllOptionLegs()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query option legs")
		http.Error(w, "Failed to query option legs", http.StatusInternalServerError)
		return
	}

	groups := fills.BuildGroups(legs)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"groups": groups,
			"count":  len(groups),
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
