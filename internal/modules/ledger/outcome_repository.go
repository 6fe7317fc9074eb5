// Package ledger provides the immutable trade-outcome audit trail.
// Rows are append-only: a MATCHED reconcile transition appends exactly one
// outcome row, and nothing ever updates or deletes one.
package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EntryKind distinguishes stock-style from options-style outcomes
type EntryKind string

const (
	KindStock   EntryKind = "STOCK"
	KindOptions EntryKind = "OPTIONS"
)

// TradeOutcome is one immutable closed-trade record
type TradeOutcome struct {
	ClosedAt      time.Time `json:"closed_at"`
	EntryKind     EntryKind `json:"entry_kind"`
	Symbol        string    `json:"symbol"`
	Direction     string    `json:"direction,omitempty"`
	Result        string    `json:"result"`
	BatchID       string    `json:"batch_id"`
	ID            int64     `json:"id"`
	EntryID       int64     `json:"entry_id"`
	AvgEntryPrice *float64  `json:"avg_entry_price,omitempty"`
	TotalQty      *float64  `json:"total_qty,omitempty"`
	RMultiple     *float64  `json:"r_multiple,omitempty"`
	RealizedPnL   float64   `json:"realized_pnl"`
}

// outcomesColumns is the column list for the trade_outcomes table
const outcomesColumns = `id, entry_id, entry_kind, symbol, direction, avg_entry_price, total_qty,
	realized_pnl, result, r_multiple, batch_id, closed_at`

// OutcomeRepository handles trade outcome database operations on ledger.db
type OutcomeRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(ledgerDB *sql.DB, log zerolog.Logger) *OutcomeRepository {
	return &OutcomeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// Append inserts one outcome row. There is deliberately no update path.
func (r *OutcomeRepository) Append(outcome TradeOutcome) error {
	query := `
		INSERT INTO trade_outcomes
		(entry_id, entry_kind, symbol, direction, avg_entry_price, total_qty,
		 realized_pnl, result, r_multiple, batch_id, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	closedAt := outcome.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now()
	}

	_, err := r.ledgerDB.Exec(query,
		outcome.EntryID,
		string(outcome.EntryKind),
		strings.ToUpper(strings.TrimSpace(outcome.Symbol)),
		nullString(outcome.Direction),
		nullFloat(outcome.AvgEntryPrice),
		nullFloat(outcome.TotalQty),
		outcome.RealizedPnL,
		outcome.Result,
		nullFloat(outcome.RMultiple),
		outcome.BatchID,
		closedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append trade outcome: %w", err)
	}

	r.log.Info().
		Int64("entry_id", outcome.EntryID).
		Str("symbol", outcome.Symbol).
		Float64("realized_pnl", outcome.RealizedPnL).
		Str("result", outcome.Result).
		Msg("Trade outcome appended to ledger")

	return nil
}

// History retrieves outcomes, most recent first
func (r *OutcomeRepository) History(limit int) ([]TradeOutcome, error) {
	query := "SELECT " + outcomesColumns + ` FROM trade_outcomes
		ORDER BY closed_at DESC, id DESC
		LIMIT ?`
	return r.queryOutcomes(query, limit)
}

// All retrieves every outcome, oldest first
func (r *OutcomeRepository) All() ([]TradeOutcome, error) {
	query := "SELECT " + outcomesColumns + " FROM trade_outcomes ORDER BY closed_at ASC, id ASC"
	return r.queryOutcomes(query)
}

func (r *OutcomeRepository) queryOutcomes(query string, args ...any) ([]TradeOutcome, error) {
	rows, err := r.ledgerDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []TradeOutcome
	for rows.Next() {
		var o TradeOutcome
		var direction sql.NullString
		var avgEntry, totalQty, rMultiple sql.NullFloat64
		var closedAt int64

		err := rows.Scan(
			&o.ID,
			&o.EntryID,
			&o.EntryKind,
			&o.Symbol,
			&direction,
			&avgEntry,
			&totalQty,
			&o.RealizedPnL,
			&o.Result,
			&rMultiple,
			&o.BatchID,
			&closedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade outcome: %w", err)
		}

		o.ClosedAt = time.Unix(closedAt, 0).UTC()
		if direction.Valid {
			o.Direction = direction.String
		}
		o.AvgEntryPrice = floatPtr(avgEntry)
		o.TotalQty = floatPtr(totalQty)
		o.RMultiple = floatPtr(rMultiple)

		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade outcomes: %w", err)
	}

	return outcomes, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
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
