// Package journal provides persistence for trading-intent journal entries
// and applies the engine's sparse reconcile updates.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/reckon/internal/domain"
	"github.com/aristath/reckon/internal/modules/reconcile"
	"github.com/rs/zerolog"
)

// entriesColumns is the column list for the journal_entries table.
// Column order must match scanEntry() expectations.
const entriesColumns = `id, symbol, effective_date, direction, status, entry_price, exit_price, size, stop_loss,
	manual_override, entry_fill_id, exit_fill_id, avg_entry_price, total_qty, exited_qty, realized_pnl,
	result, r_multiple, reconcile_status, match_explanation, system_update_reason, created_at, updated_at`

// EntryRepository handles journal entry database operations
type EntryRepository struct {
	journalDB *sql.DB
	log       zerolog.Logger
}

// NewEntryRepository creates a new journal entry repository
func NewEntryRepository(journalDB *sql.DB, log zerolog.Logger) *EntryRepository {
	return &EntryRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "journal").Logger(),
	}
}

// Create inserts a new journal entry and returns its ID
func (r *EntryRepository) Create(entry domain.JournalEntry) (int64, error) {
	if err := entry.Validate(); err != nil {
		return 0, fmt.Errorf("failed to create entry: %w", err)
	}

	now := time.Now().Unix()

	query := `
		INSERT INTO journal_entries
		(symbol, effective_date, direction, status, entry_price, exit_price, size, stop_loss,
		 manual_override, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	status := entry.Status
	if status == "" {
		status = domain.StatusPlanned
	}

	res, err := r.journalDB.Exec(query,
		entry.NormalizedSymbol(),
		entry.EffectiveDate,
		string(entry.Direction),
		string(status),
		entry.EntryPrice,
		nullFloat64Ptr(entry.ExitPrice),
		entry.Size,
		nullFloat64Ptr(entry.StopLoss),
		boolToInt(entry.ManualOverride),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new entry id: %w", err)
	}

	r.log.Info().
		Int64("entry_id", id).
		Str("symbol", entry.Symbol).
		Str("direction", string(entry.Direction)).
		Msg("Journal entry created")

	return id, nil
}

// GetByID retrieves one entry, or nil when it does not exist
func (r *EntryRepository) GetByID(id int64) (*domain.JournalEntry, error) {
	query := "SELECT " + entriesColumns + " FROM journal_entries WHERE id = ?"

	rows, err := r.journalDB.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get entry: %w", err)
		}
		return nil, nil
	}

	entry, err := scanEntry(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	return &entry, nil
}

// ListOpen retrieves all entries not in a terminal status, oldest first.
// These are the entries a reconciliation pass evaluates.
func (r *EntryRepository) ListOpen() ([]domain.JournalEntry, error) {
	query := "SELECT " + entriesColumns + ` FROM journal_entries
		WHERE status NOT IN (?, ?)
		ORDER BY id ASC`
	return r.queryEntries(query, string(domain.StatusExited), string(domain.StatusClosed))
}

// ListByStatus retrieves entries with the given trading status, oldest first
func (r *EntryRepository) ListByStatus(status domain.EntryStatus) ([]domain.JournalEntry, error) {
	query := "SELECT " + entriesColumns + " FROM journal_entries WHERE status = ? ORDER BY id ASC"
	return r.queryEntries(query, string(status))
}

// ListAll retrieves every entry, oldest first
func (r *EntryRepository) ListAll() ([]domain.JournalEntry, error) {
	query := "SELECT " + entriesColumns + " FROM journal_entries ORDER BY id ASC"
	return r.queryEntries(query)
}

// ApplyUpdate persists one sparse reconcile update inside a transaction.
//
// Only fields present in the update are written; a status transition is
// never persisted unless the engine proposed one. Every applied update
// also records the reconcile status and explanation trail for audit.
func (r *EntryRepository) ApplyUpdate(update reconcile.EntryUpdate) error {
	explanation, err := json.Marshal(update.MatchExplanation)
	if err != nil {
		return fmt.Errorf("failed to encode explanation: %w", err)
	}

	setClauses := []string{"reconcile_status = ?", "match_explanation = ?", "updated_at = ?"}
	args := []any{string(update.ReconcileStatus), string(explanation), time.Now().Unix()}

	u := update.Updates
	appendSet := func(column string, value any) {
		setClauses = append(setClauses, column+" = ?")
		args = append(args, value)
	}

	if u.Status != nil {
		appendSet("status", string(*u.Status))
	}
	if u.AvgEntryPrice != nil {
		appendSet("avg_entry_price", *u.AvgEntryPrice)
	}
	if u.TotalQty != nil {
		appendSet("total_qty", *u.TotalQty)
	}
	if u.ExitedQty != nil {
		appendSet("exited_qty", *u.ExitedQty)
	}
	if u.RealizedPnL != nil {
		appendSet("realized_pnl", *u.RealizedPnL)
	}
	if u.Result != nil {
		appendSet("result", string(*u.Result))
	}
	if u.RMultiple != nil {
		appendSet("r_multiple", *u.RMultiple)
	}
	if u.EntryFillID != nil {
		appendSet("entry_fill_id", *u.EntryFillID)
	}
	if u.ExitFillID != nil {
		appendSet("exit_fill_id", *u.ExitFillID)
	}
	if u.SystemUpdateReason != nil {
		appendSet("system_update_reason", *u.SystemUpdateReason)
	}

	query := "UPDATE journal_entries SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	args = append(args, update.EntryID)

	tx, err := r.journalDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin update transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to apply update to entry %d: %w", update.EntryID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %d not found", update.EntryID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update for entry %d: %w", update.EntryID, err)
	}

	r.log.Debug().
		Int64("entry_id", update.EntryID).
		Str("reconcile_status", string(update.ReconcileStatus)).
		Msg("Reconcile update applied")

	return nil
}

func (r *EntryRepository) queryEntries(query string, args ...any) ([]domain.JournalEntry, error) {
	rows, err := r.journalDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

func scanEntry(rows *sql.Rows) (domain.JournalEntry, error) {
	var entry domain.JournalEntry
	var exitPrice, stopLoss, avgEntry, totalQty, exitedQty, realizedPnL, rMultiple sql.NullFloat64
	var entryFillID, exitFillID, result, reconcileStatus, explanation, updateReason sql.NullString
	var manualOverride int
	var createdAt, updatedAt int64

	err := rows.Scan(
		&entry.ID,
		&entry.Symbol,
		&entry.EffectiveDate,
		&entry.Direction,
		&entry.Status,
		&entry.EntryPrice,
		&exitPrice,
		&entry.Size,
		&stopLoss,
		&manualOverride,
		&entryFillID,
		&exitFillID,
		&avgEntry,
		&totalQty,
		&exitedQty,
		&realizedPnL,
		&result,
		&rMultiple,
		&reconcileStatus,
		&explanation,
		&updateReason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return entry, err
	}

	entry.ManualOverride = manualOverride != 0
	entry.CreatedAt = time.Unix(createdAt, 0).UTC()
	entry.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	entry.ExitPrice = floatPtr(exitPrice)
	entry.StopLoss = floatPtr(stopLoss)
	entry.AvgEntryPrice = floatPtr(avgEntry)
	entry.TotalQty = floatPtr(totalQty)
	entry.ExitedQty = floatPtr(exitedQty)
	entry.RealizedPnL = floatPtr(realizedPnL)
	entry.RMultiple = floatPtr(rMultiple)

	if entryFillID.Valid {
		entry.EntryFillID = entryFillID.String
	}
	if exitFillID.Valid {
		entry.ExitFillID = exitFillID.String
	}
	if result.Valid {
		tr := domain.TradeResult(result.String)
		entry.Result = &tr
	}
	if reconcileStatus.Valid {
		entry.ReconcileStatus = reconcileStatus.String
	}
	if updateReason.Valid {
		entry.SystemUpdateReason = updateReason.String
	}
	if explanation.Valid && explanation.String != "" {
		if err := json.Unmarshal([]byte(explanation.String), &entry.MatchExplanation); err != nil {
			return entry, fmt.Errorf("failed to decode explanation for entry %d: %w", entry.ID, err)
		}
	}

	return entry, nil
}

// Helper functions

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
