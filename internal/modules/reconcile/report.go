package reconcile

import (
	"fmt"
	"time"

	"github.com/aristath/reckon/internal/domain"
)

// RunReport is the full audit record of one reconciliation run: every
// per-entry verdict with its explanation trail and candidates. Stored
// verbatim so any automated decision can be reviewed after the fact.
type RunReport struct {
	StartedAt      time.Time     `json:"started_at" msgpack:"started_at"`
	FinishedAt     time.Time     `json:"finished_at" msgpack:"finished_at"`
	BatchID        string        `json:"batch_id" msgpack:"batch_id"`
	StockUpdates   []EntryUpdate `json:"stock_updates" msgpack:"stock_updates"`
	OptionsUpdates []EntryUpdate `json:"options_updates" msgpack:"options_updates"`
	EntryCount     int           `json:"entry_count" msgpack:"entry_count"`
}

// UpdateCount returns the total number of emitted update records
func (r RunReport) UpdateCount() int {
	return len(r.StockUpdates) + len(r.OptionsUpdates)
}

// CountByStatus tallies update records per reconcile status
func (r RunReport) CountByStatus() map[domain.ReconcileStatus]int {
	counts := make(map[domain.ReconcileStatus]int)
	for _, u := range r.StockUpdates {
		counts[u.ReconcileStatus]++
	}
	for _, u := range r.OptionsUpdates {
		counts[u.ReconcileStatus]++
	}
	return counts
}

func formatGroupCount(n int, underlying string) string {
	return fmt.Sprintf("%d fill group(s) matched underlying %s.", n, underlying)
}

func formatGroupCashflow(label string, g domain.OptionsFillGroup) string {
	return fmt.Sprintf("%s group %s: %s net cashflow $%.2f over %s contracts.",
		label, g.GroupID, g.Direction, g.NetCashflow, formatQty(g.TotalContracts))
}

func formatOptionsPnL(pnl float64) string {
	return fmt.Sprintf("Round trip closed: realized P&L $%.2f.", pnl)
}
