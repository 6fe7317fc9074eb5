package reconcile

import (
	"fmt"

	"github.com/aristath/reckon/internal/domain"
	"github.com/rs/zerolog"
)

// FieldUpdates is the sparse set of entry fields changed by one
// reconciliation verdict. Nil means "leave the field alone"; the caller
// must never persist a transition absent from this object.
type FieldUpdates struct {
	Status             *domain.EntryStatus `json:"status,omitempty"`
	AvgEntryPrice      *float64            `json:"avg_entry_price,omitempty"`
	TotalQty           *float64            `json:"total_qty,omitempty"`
	ExitedQty          *float64            `json:"exited_qty,omitempty"`
	RealizedPnL        *float64            `json:"realized_pnl_dollars,omitempty"`
	Result             *domain.TradeResult `json:"result,omitempty"`
	RMultiple          *float64            `json:"r_multiple,omitempty"`
	EntryFillID        *string             `json:"entry_fill_id,omitempty"`
	ExitFillID         *string             `json:"exit_fill_id,omitempty"`
	NetDebitCredit     *float64            `json:"net_debit_credit,omitempty"`
	TotalContracts     *float64            `json:"total_contracts,omitempty"`
	ExitedContracts    *float64            `json:"exited_contracts,omitempty"`
	EntryGroupID       *string             `json:"entry_group_id,omitempty"`
	ExitGroupID        *string             `json:"exit_group_id,omitempty"`
	SystemUpdateReason *string             `json:"system_update_reason,omitempty"`
}

// IsEmpty reports whether no field changed
func (u FieldUpdates) IsEmpty() bool {
	return u == FieldUpdates{}
}

// EntryUpdate is the engine's verdict and proposed field changes for one
// journal entry in one reconciliation pass
type EntryUpdate struct {
	ReconcileStatus     domain.ReconcileStatus `json:"reconcile_status"`
	MatchExplanation    []string               `json:"match_explanation"`
	AmbiguityCandidates []Candidate            `json:"ambiguity_candidates,omitempty"`
	Updates             FieldUpdates           `json:"updates"`
	EntryID             int64                  `json:"entry_id"`
}

// Orchestrator drives the matcher and calculators across a journal-entry
// collection for one reconciliation run. It never mutates storage; it
// returns update records for the caller to persist.
type Orchestrator struct {
	matcher *Matcher
	log     zerolog.Logger
}

// NewOrchestrator creates a reconciliation orchestrator with the given
// matcher thresholds
func NewOrchestrator(cfg MatcherConfig, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		matcher: NewMatcher(cfg, log),
		log:     log.With().Str("component", "orchestrator").Logger(),
	}
}

// ReconcileEntries evaluates every stock-style journal entry against the
// fill universe and returns one update record per non-skipped entry.
//
// Entries in a terminal status are skipped entirely. Manual-override
// entries are reported as blocked without field mutations. The batchID is
// embedded verbatim into system_update_reason for audit traceability.
//
// Entries depend only on the shared read-only fill set, never on one
// another, so results are independent of entry ordering.
func (o *Orchestrator) ReconcileEntries(entries []domain.JournalEntry, fills []domain.BrokerFill, batchID string) ([]EntryUpdate, error) {
	updates := make([]EntryUpdate, 0, len(entries))

	for _, entry := range entries {
		if entry.Status.IsTerminal() {
			continue
		}

		if entry.ManualOverride {
			updates = append(updates, blockedUpdate(entry.ID))
			continue
		}

		match, err := o.matcher.Match(entry, fills)
		if err != nil {
			return nil, fmt.Errorf("failed to match entry %d: %w", entry.ID, err)
		}

		updates = append(updates, o.translate(entry, match, batchID))
	}

	o.log.Info().
		Str("batch_id", batchID).
		Int("entries", len(entries)).
		Int("updates", len(updates)).
		Msg("Reconciliation pass complete")

	return updates, nil
}

// translate converts a match verdict into a sparse field-update record
func (o *Orchestrator) translate(entry domain.JournalEntry, match MatchResult, batchID string) EntryUpdate {
	update := EntryUpdate{
		EntryID:          entry.ID,
		ReconcileStatus:  match.Verdict,
		MatchExplanation: match.Explanation,
	}

	switch match.Verdict {
	case domain.ReconcileMatched:
		status := domain.StatusExited
		reason := UpdateReason(batchID)
		pnl := roundCents(match.RealizedPnL)
		result := domain.ClassifyResult(pnl)

		update.Updates = FieldUpdates{
			Status:        &status,
			AvgEntryPrice: ptr(match.AvgEntryPrice),
			TotalQty:      ptr(match.TotalQty),
			ExitedQty:     ptr(match.ExitedQty),
			RealizedPnL:   &pnl,
			Result:        &result,
			RMultiple: RMultiple(match.AvgEntryPrice, entry.StopLoss,
				rewardPerShare(match)),
			SystemUpdateReason: &reason,
		}
		if len(match.EntryFills) > 0 {
			update.Updates.EntryFillID = ptr(match.EntryFills[0].Ref())
		}
		if len(match.ExitFills) > 0 {
			update.Updates.ExitFillID = ptr(match.ExitFills[0].Ref())
		}

	case domain.ReconcilePartial:
		// Status is left as ENTERED: the update must not carry a status
		// field for partial coverage.
		update.Updates = FieldUpdates{
			TotalQty:    ptr(match.TotalQty),
			ExitedQty:   ptr(match.ExitedQty),
			RealizedPnL: ptr(roundCents(match.RealizedPnL)),
		}

	case domain.ReconcileNone:
		// An open position with no exit still records its entry-side
		// figures, mirroring the options path recording net_debit_credit
		// from the entry group alone.
		if match.TotalQty > 0 {
			update.Updates = FieldUpdates{
				AvgEntryPrice: ptr(match.AvgEntryPrice),
				TotalQty:      ptr(match.TotalQty),
			}
		}

	case domain.ReconcileAmbiguous:
		update.AmbiguityCandidates = match.Candidates

	case domain.ReconcileAmbiguousReversal:
		// Flag and explanation only; no status change is ever proposed
		// for a suspected reversal.
	}

	return update
}

// rewardPerShare derives the per-unit reward from the aggregate realized
// P&L, for R-multiple computation over multi-fill exits
func rewardPerShare(match MatchResult) float64 {
	if match.ExitedQty == 0 {
		return 0
	}
	return match.RealizedPnL / match.ExitedQty
}

// blockedUpdate is the fixed report for a manual-override entry
func blockedUpdate(entryID int64) EntryUpdate {
	return EntryUpdate{
		EntryID:         entryID,
		ReconcileStatus: domain.ReconcileBlockedOverride,
		MatchExplanation: []string{
			"Entry has manual_override=true; skipping auto-reconcile.",
		},
	}
}

// UpdateReason formats the audit tag written into system_update_reason
func UpdateReason(batchID string) string {
	return "auto-reconcile:" + batchID
}

func ptr[T any](v T) *T {
	return &v
}
