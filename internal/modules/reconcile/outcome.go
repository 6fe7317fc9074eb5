package reconcile

import (
	"math"

	"github.com/aristath/reckon/internal/domain"
)

// Outcome is the classified result of a single entry/exit pair
type Outcome struct {
	PnLDollars float64            `json:"pnl_dollars"`
	PnLPercent float64            `json:"pnl_percent"`
	Result     domain.TradeResult `json:"result"`
	RMultiple  *float64           `json:"r_multiple,omitempty"` // nil when no stop-loss reference exists
}

// OutcomeParams carries the entry's direction and optional stop-loss
// reference for outcome classification
type OutcomeParams struct {
	Direction domain.TradeDirection
	StopLoss  *float64
}

// ComputeOutcome classifies a simple two-fill trade: one entry-side fill,
// one exit-side fill. Monetary fields are rounded to cent precision and
// the R-multiple to two decimals.
func ComputeOutcome(entryFill, exitFill domain.BrokerFill, params OutcomeParams) Outcome {
	qty := exitFill.Quantity

	perShare := exitFill.Price - entryFill.Price
	if params.Direction == domain.DirectionShort {
		perShare = entryFill.Price - exitFill.Price
	}

	pnl := roundCents(perShare * qty)

	var pct float64
	if basis := entryFill.Price * qty; basis != 0 {
		pct = roundCents(pnl / basis * 100)
	}

	return Outcome{
		PnLDollars: pnl,
		PnLPercent: pct,
		Result:     domain.ClassifyResult(pnl),
		RMultiple:  RMultiple(entryFill.Price, params.StopLoss, perShare),
	}
}

// RMultiple computes the realized reward as a multiple of the initial
// risk: rewardPerShare / |entryPrice − stopLoss|, rounded to two decimals.
// Returns nil when no stop-loss reference exists or the risk distance is
// zero.
func RMultiple(entryPrice float64, stopLoss *float64, rewardPerShare float64) *float64 {
	if stopLoss == nil {
		return nil
	}
	riskPerShare := math.Abs(entryPrice - *stopLoss)
	if riskPerShare == 0 {
		return nil
	}
	r := roundTo(rewardPerShare/riskPerShare, 2)
	return &r
}

// roundTo rounds half away from zero to the given number of decimal
// places. Half-away-from-zero keeps the audit trail deterministic and
// matches what a reader doing the arithmetic by hand expects.
func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

// roundCents rounds a monetary value to cent precision
func roundCents(v float64) float64 {
	return roundTo(v, 2)
}
