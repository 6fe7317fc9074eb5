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

// optionsEntriesColumns is the column list for options_journal_entries.
// Column order must match scanOptionsEntry() expectations.
const optionsEntriesColumns = `id, underlying, status, manual_override, entry_group_id, exit_group_id,
	total_contracts, exited_contracts, net_debit_credit, realized_pnl, result,
	reconcile_status, match_explanation, system_update_reason, created_at, updated_at`

// OptionsEntryRepository handles options journal entry database operations
type OptionsEntryRepository struct {
	journalDB *sql.DB
	log       zerolog.Logger
}

// NewOptionsEntryRepository creates a new options entry repository
func NewOptionsEntryRepository(journalDB *sql.DB, log zerolog.Logger) *OptionsEntryRepository {
	return &OptionsEntryRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "options_journal").Logger(),
	}
}

// Create inserts a new options journal entry and returns its ID
func (r *OptionsEntryRepository) Create(entry domain.OptionsJournalEntry) (int64, error) {
	if err := entry.Validate(); err != nil {
		return 0, fmt.Errorf("failed to create options entry: %w", err)
	}

	now := time.Now().Unix()

	query := `
		INSERT INTO options_journal_entries
		(underlying, status, manual_override, entry_group_id, exit_group_id,
		 total_contracts, exited_contracts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.journalDB.Exec(query,
		entry.NormalizedUnderlying(),
		string(entry.Status),
		boolToInt(entry.ManualOverride),
		nullStr(entry.EntryGroupID),
		nullStr(entry.ExitGroupID),
		entry.TotalContracts,
		entry.ExitedContracts,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create options entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new options entry id: %w", err)
	}

	r.log.Info().
		Int64("entry_id", id).
		Str("underlying", entry.Underlying).
		Msg("Options journal entry created")

	return id, nil
}

// ListOpen retrieves options entries not in a terminal status, oldest first
func (r *OptionsEntryRepository) ListOpen() ([]domain.OptionsJournalEntry, error) {
	query := "SELECT " + optionsEntriesColumns + ` FROM options_journal_entries
		WHERE status NOT IN (?, ?)
		ORDER BY id ASC`
	return r.queryEntries(query, string(domain.StatusExited), string(domain.StatusClosed))
}

// ListAll retrieves every options entry, oldest first
func (r *OptionsEntryRepository) ListAll() ([]domain.OptionsJournalEntry, error) {
	query := "SELECT " + optionsEntriesColumns + " FROM options_journal_entries ORDER BY id ASC"
	return r.queryEntries(query)
}

// GetByID retrieves one options entry, or nil when it does not exist
func (r *OptionsEntryRepository) GetByID(id int64) (*domain.OptionsJournalEntry, error) {
	query := "SELECT " + optionsEntriesColumns + " FROM options_journal_entries WHERE id = ?"

	entries, err := r.queryEntries(query, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// ApplyUpdate persists one sparse reconcile update inside a transaction,
// mirroring EntryRepository.ApplyUpdate for the options table
func (r *OptionsEntryRepository) ApplyUpdate(update reconcile.EntryUpdate) error {
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
	if u.NetDebitCredit != nil {
		appendSet("net_debit_credit", *u.NetDebitCredit)
	}
	if u.TotalContracts != nil {
		appendSet("total_contracts", *u.TotalContracts)
	}
	if u.ExitedContracts != nil {
		appendSet("exited_contracts", *u.ExitedContracts)
	}
	if u.RealizedPnL != nil {
		appendSet("realized_pnl", *u.RealizedPnL)
	}
	if u.Result != nil {
		appendSet("result", string(*u.Result))
	}
	if u.EntryGroupID != nil {
		appendSet("entry_group_id", *u.EntryGroupID)
	}
	if u.ExitGroupID != nil {
		appendSet("exit_group_id", *u.ExitGroupID)
	}
	if u.SystemUpdateReason != nil {
		appendSet("system_update_reason", *u.SystemUpdateReason)
	}

	query := "UPDATE options_journal_entries SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	args = append(args, update.EntryID)

	tx, err := r.journalDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin update transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to apply update to options entry %d: %w", update.EntryID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("options entry %d not found", update.EntryID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update for options entry %d: %w", update.EntryID, err)
	}

	r.log.Debug().
		Int64("entry_id", update.EntryID).
		Str("reconcile_status", string(update.ReconcileStatus)).
		Msg("Options reconcile update applied")

	return nil
}

func (r *OptionsEntryRepository) queryEntries(query string, args ...any) ([]domain.OptionsJournalEntry, error) {
	rows, err := r.journalDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query options entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.OptionsJournalEntry
	for rows.Next() {
		entry, err := scanOptionsEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan options entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options entries: %w", err)
	}

	return entries, nil
}

func scanOptionsEntry(rows *sql.Rows) (domain.OptionsJournalEntry, error) {
	var entry domain.OptionsJournalEntry
	var entryGroupID, exitGroupID, result, reconcileStatus, explanation, updateReason sql.NullString
	var netDebitCredit, realizedPnL sql.NullFloat64
	var manualOverride int
	var createdAt, updatedAt int64

	err := rows.Scan(
		&entry.ID,
		&entry.Underlying,
		&entry.Status,
		&manualOverride,
		&entryGroupID,
		&exitGroupID,
		&entry.TotalContracts,
		&entry.ExitedContracts,
		&netDebitCredit,
		&realizedPnL,
		&result,
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

	entry.NetDebitCredit = floatPtr(netDebitCredit)
	entry.RealizedPnL = floatPtr(realizedPnL)

	if entryGroupID.Valid {
		entry.EntryGroupID = entryGroupID.String
	}
	if exitGroupID.Valid {
		entry.ExitGroupID = exitGroupID.String
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
			return entry, fmt.Errorf("failed to decode explanation for options entry %d: %w", entry.ID, err)
		}
	}

	return entry, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
