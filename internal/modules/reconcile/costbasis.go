// Package reconcile implements the fill reconciliation engine: matching
// broker-reported executions against journal entries and deriving position
// state, cost basis, realized P&L, and risk metrics from the match.
//
// The engine is pure and stateless. It accepts in-memory snapshots of
// entries and fills and returns update descriptions; it performs no I/O
// and never mutates storage.
package reconcile

import (
	"github.com/aristath/reckon/internal/domain"
)

// ComputeVWAP computes the volume-weighted average price and total
// quantity over entry-side fills: Σ(price×qty) / Σ(qty).
//
// Returns (0, 0) for an empty set. Sum-based, so the result does not
// depend on fill ordering.
func ComputeVWAP(fills []domain.BrokerFill) (avgPrice, totalQty float64) {
	var notional float64
	for _, f := range fills {
		notional += f.Price * f.Quantity
		totalQty += f.Quantity
	}
	if totalQty == 0 {
		return 0, 0
	}
	return notional / totalQty, totalQty
}

// ComputeRealizedPnL computes realized profit/loss from exit-side fills
// against a fixed average entry price. For LONG each exit contributes
// (exitPrice − avgEntryPrice) × qty; for SHORT the sign flips.
//
// The average entry price is fixed at the time of each exit and never
// recomputed retroactively: a position is built first, then exited.
// Pure accumulation, so summation order does not affect the result.
func ComputeRealizedPnL(avgEntryPrice float64, exitFills []domain.BrokerFill, direction domain.TradeDirection) (pnl, exitedQty float64) {
	for _, f := range exitFills {
		perShare := f.Price - avgEntryPrice
		if direction == domain.DirectionShort {
			perShare = avgEntryPrice - f.Price
		}
		pnl += perShare * f.Quantity
		exitedQty += f.Quantity
	}
	return pnl, exitedQty
}
