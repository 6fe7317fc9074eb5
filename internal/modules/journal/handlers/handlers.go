// Package handlers provides HTTP handlers for journal operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/reckon/internal/domain"
	"github.com/aristath/reckon/internal/modules/journal"
	"github.com/rs/zerolog"
)

// Handler handles journal HTTP requests
type Handler struct {
	entries        *journal.EntryRepository
	optionsEntries *journal.OptionsEntryRepository
	log            zerolog.Logger
}

// NewHandler creates a new journal handler
func NewHandler(
	entries *journal.EntryRepository,
	optionsEntries *journal.OptionsEntryRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		entries:        entries,
		optionsEntries: optionsEntries,
		log:            log.With().Str("handler", "journal").Logger(),
	}
}

// HandleListEntries handles GET /api/journal/entries
func (h *Handler) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	var (
		entries []domain.JournalEntry
		err     error
	)

	if status := r.URL.Query().Get("status"); status != "" {
		entries, err = h.entries.ListByStatus(domain.EntryStatus(status))
	} else {
		entries, err = h.entries.ListAll()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list journal entries")
		http.Error(w, "Failed to list journal entries", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"entries": entries,
			"count":   len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetEntry handles GET /api/journal/entries/{id}
func (h *Handler) HandleGetEntry(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid entry ID", http.StatusBadRequest)
		return
	}

	entry, err := h.entries.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Int64("entry_id", id).Msg("Failed to get journal entry")
		http.Error(w, "Failed to get journal entry", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": entry,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleCreateEntry handles POST /api/journal/entries
func (h *Handler) HandleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var entry domain.JournalEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := entry.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.entries.Create(entry)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", entry.Symbol).Msg("Failed to create journal entry")
		http.Error(w, "Failed to create journal entry", http.StatusInternalServerError)
		return
	}

	h.log.Info().Int64("entry_id", id).Str("symbol", entry.Symbol).Msg("Journal entry created")

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"id": id,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleListOptionsEntries handles GET /api/journal/options-entries
func (h *Handler) HandleListOptionsEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.optionsEntries.ListAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list options journal entries")
		http.Error(w, "Failed to list options journal entries", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"entries": entries,
			"count":   len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleCreateOptionsEntry handles POST /api/journal/options-entries
func (h *Handler) HandleCreateOptionsEntry(w http.ResponseWriter, r *http.Request) {
	var entry domain.OptionsJournalEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := entry.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.optionsEntries.Create(entry)
	if err != nil {
		h.log.Error().Err(err).Str("underlying", entry.Underlying).Msg("Failed to create options journal entry")
		http.Error(w, "Failed to create options journal entry", http.StatusInternalServerError)
		return
	}

	h.log.Info().Int64("entry_id", id).Str("underlying", entry.Underlying).Msg("Options journal entry created")

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"id": id,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
