// Package stats computes journal performance summaries over the
// trade-outcome ledger.
package stats

import (
	"fmt"

	"github.com/aristath/reckon/internal/modules/ledger"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates closed-trade performance
type Summary struct {
	TotalTrades   int      `json:"total_trades"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	Breakevens    int      `json:"breakevens"`
	WinRate       float64  `json:"win_rate"` // 0..1
	TotalPnL      float64  `json:"total_pnl"`
	AvgPnL        float64  `json:"avg_pnl"`
	ProfitFactor  *float64 `json:"profit_factor,omitempty"` // nil when no losing trades
	Expectancy    float64  `json:"expectancy"`
	AvgRMultiple  *float64 `json:"avg_r_multiple,omitempty"`
	RMultipleStd  *float64 `json:"r_multiple_std,omitempty"`
	RMultipleObs  int      `json:"r_multiple_obs"` // Trades carrying an R-multiple
}

// OutcomeSource provides the closed trades a summary is computed over
type OutcomeSource interface {
	All() ([]ledger.TradeOutcome, error)
}

// Compile-time check that the ledger repository satisfies OutcomeSource
var _ OutcomeSource = (*ledger.OutcomeRepository)(nil)

// Service computes performance statistics
type Service struct {
	outcomes OutcomeSource
	log      zerolog.Logger
}

// NewService creates a new stats service
func NewService(outcomes OutcomeSource, log zerolog.Logger) *Service {
	return &Service{
		outcomes: outcomes,
		log:      log.With().Str("service", "stats").Logger(),
	}
}

// Summary computes the performance summary over all ledger outcomes
func (s *Service) Summary() (*Summary, error) {
	outcomes, err := s.outcomes.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load trade outcomes: %w", err)
	}

	summary := &Summary{TotalTrades: len(outcomes)}
	if len(outcomes) == 0 {
		return summary, nil
	}

	var grossProfit, grossLoss float64
	var rMultiples []float64

	for _, o := range outcomes {
		summary.TotalPnL += o.RealizedPnL

		switch {
		case o.RealizedPnL > 0:
			summary.Wins++
			grossProfit += o.RealizedPnL
		case o.RealizedPnL < 0:
			summary.Losses++
			grossLoss += -o.RealizedPnL
		default:
			summary.Breakevens++
		}

		if o.RMultiple != nil {
			rMultiples = append(rMultiples, *o.RMultiple)
		}
	}

	summary.WinRate = float64(summary.Wins) / float64(summary.TotalTrades)
	summary.AvgPnL = summary.TotalPnL / float64(summary.TotalTrades)
	summary.Expectancy = summary.AvgPnL
	summary.RMultipleObs = len(rMultiples)

	if grossLoss > 0 {
		pf := grossProfit / grossLoss
		summary.ProfitFactor = &pf
	}

	if len(rMultiples) > 0 {
		mean := stat.Mean(rMultiples, nil)
		summary.AvgRMultiple = &mean
		if len(rMultiples) > 1 {
			std := stat.StdDev(rMultiples, nil)
			summary.RMultipleStd = &std
		}
	}

	return summary, nil
}
