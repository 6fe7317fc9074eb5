// Package handlers provides HTTP handlers for reconciliation runs.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/reckon/internal/modules/reconcile"
	"github.com/aristath/reckon/internal/modules/snapshots"
	"github.com/rs/zerolog"
)

// Runner executes a reconciliation pass on demand
type Runner interface {
	Run() (*reconcile.RunReport, error)
}

// Handler handles reconciliation HTTP requests
type Handler struct {
	runner    Runner
	snapshots *snapshots.RunSnapshotStore
	log       zerolog.Logger
}

// NewHandler creates a new reconcile handler
func NewHandler(runner Runner, snapshotStore *snapshots.RunSnapshotStore, log zerolog.Logger) *Handler {
	return &Handler{
		runner:    runner,
		snapshots: snapshotStore,
		log:       log.With().Str("handler", "reconcile").Logger(),
	}
}

// HandleRun handles POST /api/reconcile/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Run()
	if err != nil {
		h.log.Error().Err(err).Msg("Reconciliation run failed")
		http.Error(w, "Reconciliation run failed", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"batch_id":         report.BatchID,
			"entry_count":      report.EntryCount,
			"update_count":     report.UpdateCount(),
			"status_counts":    report.CountByStatus(),
			"started_at":       report.StartedAt.Format(time.RFC3339),
			"finished_at":      report.FinishedAt.Format(time.RFC3339),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleListRuns handles GET /api/reconcile/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	runs, err := h.snapshots.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list reconciliation runs")
		http.Error(w, "Failed to list reconciliation runs", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"runs":  runs,
			"count": len(runs),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetRun handles GET /api/reconcile/runs/{batchID}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, batchID string) {
	report, err := h.snapshots.Get(batchID)
	if err != nil {
		h.log.Error().Err(err).Str("batch_id", batchID).Msg("Failed to load run report")
		http.Error(w, "Failed to load run report", http.StatusInternalServerError)
		return
	}
	if report == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": report,
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
