package reconcile

import (
	"sort"

	"github.com/aristath/reckon/internal/domain"
)

// ReconcileOptionsEntries mirrors ReconcileEntries over options fill
// groups instead of single-leg fills.
//
// The entry group's net cashflow establishes net_debit_credit. When a
// later closing group exists for the same underlying, realized P&L is the
// sum of the two signed cashflows and the entry transitions to EXITED.
// Underlying mismatch yields NONE; an entry group with no exit group yet
// yields NONE but still records net_debit_credit.
func (o *Orchestrator) ReconcileOptionsEntries(entries []domain.OptionsJournalEntry, groups []domain.OptionsFillGroup, batchID string) []EntryUpdate {
	sorted := make([]domain.OptionsFillGroup, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].FilledAt.Equal(sorted[j].FilledAt) {
			return sorted[i].FilledAt.Before(sorted[j].FilledAt)
		}
		return sorted[i].GroupID < sorted[j].GroupID
	})

	updates := make([]EntryUpdate, 0, len(entries))

	for _, entry := range entries {
		if entry.Status.IsTerminal() {
			continue
		}

		if entry.ManualOverride {
			updates = append(updates, blockedUpdate(entry.ID))
			continue
		}

		updates = append(updates, o.matchOptionsEntry(entry, sorted, batchID))
	}

	o.log.Info().
		Str("batch_id", batchID).
		Int("entries", len(entries)).
		Int("updates", len(updates)).
		Msg("Options reconciliation pass complete")

	return updates
}

// matchOptionsEntry attributes entry and exit fill groups to one options
// journal entry by underlying identity and chronology
func (o *Orchestrator) matchOptionsEntry(entry domain.OptionsJournalEntry, groups []domain.OptionsFillGroup, batchID string) EntryUpdate {
	update := EntryUpdate{
		EntryID:         entry.ID,
		ReconcileStatus: domain.ReconcileNone,
	}
	underlying := entry.NormalizedUnderlying()

	// Candidate groups share the entry's underlying; anything else is a
	// mismatch, not an attribution.
	var candidates []domain.OptionsFillGroup
	for _, g := range groups {
		if g.NormalizedUnderlying() == underlying {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) == 0 {
		update.MatchExplanation = append(update.MatchExplanation,
			"No fill groups matched underlying "+underlying+".")
		return update
	}
	update.MatchExplanation = append(update.MatchExplanation,
		formatGroupCount(len(candidates), underlying))

	// The entry group is the linked one when a linkage exists, otherwise
	// the earliest candidate.
	entryGroup := candidates[0]
	if entry.EntryGroupID != "" {
		found := false
		for _, g := range candidates {
			if g.GroupID == entry.EntryGroupID {
				entryGroup = g
				found = true
				break
			}
		}
		if !found {
			update.MatchExplanation = append(update.MatchExplanation,
				"Linked entry group "+entry.EntryGroupID+" not present in fill universe.")
			return update
		}
	}

	update.MatchExplanation = append(update.MatchExplanation,
		formatGroupCashflow("Entry", entryGroup))
	update.Updates.NetDebitCredit = ptr(roundCents(entryGroup.NetCashflow))
	update.Updates.TotalContracts = ptr(entryGroup.TotalContracts)
	update.Updates.EntryGroupID = ptr(entryGroup.GroupID)

	// The exit group is the next group for the underlying after the entry
	// group executed (or the explicitly linked one).
	var exitGroup *domain.OptionsFillGroup
	for i := range candidates {
		g := candidates[i]
		if g.GroupID == entryGroup.GroupID {
			continue
		}
		if entry.ExitGroupID != "" {
			if g.GroupID == entry.ExitGroupID {
				exitGroup = &g
				break
			}
			continue
		}
		if !g.FilledAt.Before(entryGroup.FilledAt) {
			exitGroup = &g
			break
		}
	}

	if exitGroup == nil {
		update.MatchExplanation = append(update.MatchExplanation,
			"No closing group found yet; position remains open.")
		return update
	}

	pnl := roundCents(entryGroup.NetCashflow + exitGroup.NetCashflow)
	status := domain.StatusExited
	result := domain.ClassifyResult(pnl)
	reason := UpdateReason(batchID)

	update.ReconcileStatus = domain.ReconcileMatched
	update.MatchExplanation = append(update.MatchExplanation,
		formatGroupCashflow("Exit", *exitGroup),
		formatOptionsPnL(pnl))
	update.Updates.Status = &status
	update.Updates.RealizedPnL = &pnl
	update.Updates.Result = &result
	update.Updates.ExitedContracts = ptr(exitGroup.TotalContracts)
	update.Updates.ExitGroupID = ptr(exitGroup.GroupID)
	update.Updates.SystemUpdateReason = &reason

	return update
}
