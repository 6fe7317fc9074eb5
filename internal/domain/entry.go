package domain

import (
	"fmt"
	"strings"
	"time"
)

// JournalEntry is a stock-style trading intent subject to reconciliation.
//
// Lifecycle: PLANNED → ENTERED → EXITED (terminal), or CLOSED (terminal,
// for entries closed by other means). Entries are created upstream; the
// reconciliation engine is the sole writer of the post-match fields and of
// ReconcileStatus.
type JournalEntry struct {
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Symbol        string         `json:"symbol"`
	EffectiveDate string         `json:"effective_date"` // YYYY-MM-DD, when the intent becomes actionable
	Direction     TradeDirection `json:"direction"`
	Status        EntryStatus    `json:"status"`
	EntryFillID   string         `json:"entry_fill_id,omitempty"`
	ExitFillID    string         `json:"exit_fill_id,omitempty"`
	ID            int64          `json:"id"`
	EntryPrice    float64        `json:"entry_price"`
	Size          float64        `json:"size"`
	ManualOverride bool          `json:"manual_override"`

	// Optional planning references
	ExitPrice *float64 `json:"exit_price,omitempty"`
	StopLoss  *float64 `json:"stop_loss,omitempty"` // Invalidation reference for R-multiple

	// Post-reconciliation fields, written only by the engine
	AvgEntryPrice      *float64     `json:"avg_entry_price,omitempty"`
	TotalQty           *float64     `json:"total_qty,omitempty"`
	ExitedQty          *float64     `json:"exited_qty,omitempty"`
	RealizedPnL        *float64     `json:"realized_pnl_dollars,omitempty"`
	Result             *TradeResult `json:"result,omitempty"`
	RMultiple          *float64     `json:"r_multiple,omitempty"`
	ReconcileStatus    string       `json:"reconcile_status,omitempty"`
	MatchExplanation   []string     `json:"match_explanation,omitempty"`
	SystemUpdateReason string       `json:"system_update_reason,omitempty"`
}

// Validate rejects malformed entry shapes at the boundary
func (e JournalEntry) Validate() error {
	if strings.TrimSpace(e.Symbol) == "" {
		return fmt.Errorf("entry %d: symbol is required", e.ID)
	}
	if !e.Direction.IsValid() {
		return fmt.Errorf("entry %d: unknown direction %q", e.ID, e.Direction)
	}
	if _, err := time.Parse("2006-01-02", e.EffectiveDate); err != nil {
		return fmt.Errorf("entry %d: invalid effective_date %q (expected YYYY-MM-DD): %w", e.ID, e.EffectiveDate, err)
	}
	if e.Size < 0 {
		return fmt.Errorf("entry %d: size must not be negative, got %v", e.ID, e.Size)
	}
	return nil
}

// EffectiveTime returns the effective date as midnight UTC.
// Fills dated strictly before this moment are never attributed to the entry.
func (e JournalEntry) EffectiveTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", e.EffectiveDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid effective_date %q: %w", e.EffectiveDate, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// NormalizedSymbol returns the symbol upper-cased and trimmed for matching
func (e JournalEntry) NormalizedSymbol() string {
	return strings.ToUpper(strings.TrimSpace(e.Symbol))
}

// OptionsJournalEntry is the options analogue of JournalEntry.
// Positions are accounted for by net cashflow rather than per-share price.
type OptionsJournalEntry struct {
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Underlying      string      `json:"underlying"`
	Status          EntryStatus `json:"status"`
	EntryGroupID    string      `json:"entry_group_id,omitempty"`
	ExitGroupID     string      `json:"exit_group_id,omitempty"`
	ID              int64       `json:"id"`
	TotalContracts  float64     `json:"total_contracts"`
	ExitedContracts float64     `json:"exited_contracts"`
	ManualOverride  bool        `json:"manual_override"`

	// Post-reconciliation fields, written only by the engine
	NetDebitCredit     *float64     `json:"net_debit_credit,omitempty"`
	RealizedPnL        *float64     `json:"realized_pnl_dollars,omitempty"`
	Result             *TradeResult `json:"result,omitempty"`
	ReconcileStatus    string       `json:"reconcile_status,omitempty"`
	MatchExplanation   []string     `json:"match_explanation,omitempty"`
	SystemUpdateReason string       `json:"system_update_reason,omitempty"`
}

// Validate rejects malformed options entry shapes at the boundary
func (e OptionsJournalEntry) Validate() error {
	if strings.TrimSpace(e.Underlying) == "" {
		return fmt.Errorf("options entry %d: underlying is required", e.ID)
	}
	if e.Status != StatusEntered && e.Status != StatusExited {
		return fmt.Errorf("options entry %d: unknown status %q", e.ID, e.Status)
	}
	return nil
}

// NormalizedUnderlying returns the underlying upper-cased and trimmed
func (e OptionsJournalEntry) NormalizedUnderlying() string {
	return strings.ToUpper(strings.TrimSpace(e.Underlying))
}
