package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/reckon/internal/domain"
	"github.com/rs/zerolog"
)

// MatcherConfig holds the tuning knobs of the fill matcher. Thresholds are
// injected rather than hidden as package constants so they can be tuned
// and tested independently.
type MatcherConfig struct {
	// AmbiguityCap is the eligible-fill count above which a match is too
	// uncertain to auto-resolve
	AmbiguityCap int
	// ReversalTolerance is the fractional exit-volume overshoot absorbed
	// as rounding/lot-size noise before flagging a reversal
	ReversalTolerance float64
	// MaxCandidates bounds the rejected-candidate list reported for human
	// review
	MaxCandidates int
}

// DefaultMatcherConfig returns the production defaults
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		AmbiguityCap:      10,
		ReversalTolerance: 0.05,
		MaxCandidates:     3,
	}
}

// Candidate is one fill considered but not auto-applied, with the reason
// it was set aside. Surfaced for human review on ambiguous matches.
type Candidate struct {
	FilledAt    time.Time       `json:"filled_at"`
	FillRef     string          `json:"fill_ref"` // {broker}:{tradeId}
	Symbol      string          `json:"symbol"`
	Side        domain.FillSide `json:"side"`
	WhyRejected string          `json:"why_rejected"`
	Quantity    float64         `json:"quantity"`
	Price       float64         `json:"price"`
}

// MatchResult is the matcher's verdict for one journal entry plus the
// explanation trail a human reviewer relies on. Financial figures are
// meaningful only for the verdicts that derive them.
type MatchResult struct {
	Verdict       domain.ReconcileStatus `json:"verdict"`
	Explanation   []string               `json:"explanation"`
	Candidates    []Candidate            `json:"candidates,omitempty"`
	EntryFills    []domain.BrokerFill    `json:"entry_fills,omitempty"`
	ExitFills     []domain.BrokerFill    `json:"exit_fills,omitempty"`
	AvgEntryPrice float64                `json:"avg_entry_price"`
	TotalQty      float64                `json:"total_qty"`
	ExitedQty     float64                `json:"exited_qty"`
	RealizedPnL   float64                `json:"realized_pnl"`
}

// Matcher selects the subset of fills that plausibly belong to one journal
// entry, using symbol identity and a date window, and classifies the match
// outcome. It never mutates anything.
type Matcher struct {
	cfg MatcherConfig
	log zerolog.Logger
}

// NewMatcher creates a new fill matcher
func NewMatcher(cfg MatcherConfig, log zerolog.Logger) *Matcher {
	return &Matcher{
		cfg: cfg,
		log: log.With().Str("component", "matcher").Logger(),
	}
}

// Match evaluates one journal entry against the full fill universe.
//
// Returns an error only for malformed input shape (unparseable effective
// date); all semantic ambiguity degrades to a non-mutating verdict.
func (m *Matcher) Match(entry domain.JournalEntry, fills []domain.BrokerFill) (MatchResult, error) {
	effective, err := entry.EffectiveTime()
	if err != nil {
		return MatchResult{}, fmt.Errorf("entry %d: %w", entry.ID, err)
	}

	result := MatchResult{Verdict: domain.ReconcileNone}
	symbol := entry.NormalizedSymbol()

	// Step 1: symbol identity (exact, case-normalized)
	var symbolFills []domain.BrokerFill
	for _, f := range fills {
		if f.NormalizedSymbol() == symbol {
			symbolFills = append(symbolFills, f)
		}
	}
	if len(symbolFills) == 0 {
		result.Explanation = append(result.Explanation,
			fmt.Sprintf("No fills matched symbol %s.", symbol))
		return result, nil
	}
	result.Explanation = append(result.Explanation,
		fmt.Sprintf("%d fill(s) matched symbol %s.", len(symbolFills), symbol))

	// Deterministic processing order: timestamp, then trade ID
	sortFills(symbolFills)

	// Step 2: date window. Fills strictly before the effective date are
	// pre-existing, unrelated activity and must not be attributed to a
	// new intent.
	var eligible []domain.BrokerFill
	for _, f := range symbolFills {
		if f.FilledAt.Before(effective) {
			result.Candidates = append(result.Candidates, newCandidate(f, "Outside date window."))
			continue
		}
		eligible = append(eligible, f)
	}
	if excluded := len(symbolFills) - len(eligible); excluded > 0 {
		result.Explanation = append(result.Explanation,
			fmt.Sprintf("Excluded %d fill(s) before effective date %s.", excluded, entry.EffectiveDate))
	}
	if len(eligible) == 0 {
		result.Explanation = append(result.Explanation,
			fmt.Sprintf("No fills at or after effective date %s.", entry.EffectiveDate))
		result.Candidates = m.truncateCandidates(result.Candidates)
		return result, nil
	}

	// Step 7 (escalation): too many candidates means any automatic
	// attribution is a guess. Report a bounded sample and stop.
	if len(eligible) > m.cfg.AmbiguityCap {
		result.Verdict = domain.ReconcileAmbiguous
		result.Explanation = append(result.Explanation,
			fmt.Sprintf("Too many candidate fills (%d > %d); manual review required.",
				len(eligible), m.cfg.AmbiguityCap))
		reason := fmt.Sprintf("Candidate set exceeds ambiguity cap (%d fills).", len(eligible))
		result.Candidates = result.Candidates[:0]
		for _, f := range eligible {
			result.Candidates = append(result.Candidates, newCandidate(f, reason))
		}
		result.Candidates = m.truncateCandidates(result.Candidates)

		m.log.Debug().
			Int64("entry_id", entry.ID).
			Str("symbol", symbol).
			Int("candidates", len(eligible)).
			Msg("Match escalated to ambiguous")
		return result, nil
	}

	// Step 3: partition into entry-side and exit-side by the entry's
	// directional opening side
	entrySide := entry.Direction.EntrySide()
	for _, f := range eligible {
		if f.Side == entrySide {
			result.EntryFills = append(result.EntryFills, f)
		} else {
			result.ExitFills = append(result.ExitFills, f)
		}
	}

	// Step 4: cost basis (supports scale-ins: multiple entry fills
	// average together)
	if len(result.EntryFills) > 0 {
		result.AvgEntryPrice, result.TotalQty = ComputeVWAP(result.EntryFills)
		result.Explanation = append(result.Explanation,
			fmt.Sprintf("Entry side: %d %s fill(s), VWAP %.4f over %s units.",
				len(result.EntryFills), entrySide, result.AvgEntryPrice, formatQty(result.TotalQty)))
	}

	// Step 5: realized P&L against the fixed entry VWAP
	if len(result.ExitFills) > 0 {
		result.RealizedPnL, result.ExitedQty = ComputeRealizedPnL(
			result.AvgEntryPrice, result.ExitFills, entry.Direction)
		result.RealizedPnL = roundCents(result.RealizedPnL)
		result.Explanation = append(result.Explanation,
			fmt.Sprintf("Exit side: %d %s fill(s), %s units exited, realized P&L $%.2f.",
				len(result.ExitFills), entry.Direction.ExitSide(), formatQty(result.ExitedQty), result.RealizedPnL))
	}

	// Step 6: classify
	m.classify(&result)

	result.Candidates = m.truncateCandidates(result.Candidates)
	return result, nil
}

// classify assigns the verdict from entry/exit quantity coverage
func (m *Matcher) classify(result *MatchResult) {
	overshootCeiling := result.TotalQty * (1 + m.cfg.ReversalTolerance)

	switch {
	case result.ExitedQty == 0 && result.TotalQty == 0:
		result.Verdict = domain.ReconcileNone
		result.Explanation = append(result.Explanation, "No attributable entry or exit activity.")

	case result.ExitedQty == 0:
		// Position open, no exit yet. The caller keeps status ENTERED and
		// records entry-side figures only.
		result.Verdict = domain.ReconcileNone
		result.Explanation = append(result.Explanation, "Position open: entry fills found, no exit yet.")

	case result.ExitedQty > overshootCeiling:
		// Exit volume overshoots beyond tolerance: likely a direction
		// flip or a data error. Never auto-applied.
		result.Verdict = domain.ReconcileAmbiguousReversal
		result.Explanation = append(result.Explanation,
			fmt.Sprintf("Exit quantity %s overshoots entry quantity %s beyond %.0f%% tolerance; possible reversal or data error.",
				formatQty(result.ExitedQty), formatQty(result.TotalQty), m.cfg.ReversalTolerance*100))

	case result.ExitedQty < result.TotalQty:
		result.Verdict = domain.ReconcilePartial
		result.Explanation = append(result.Explanation,
			fmt.Sprintf("Partial exit: %s of %s units exited.",
				formatQty(result.ExitedQty), formatQty(result.TotalQty)))

	default:
		// Exact coverage, or overshoot within tolerance
		result.Verdict = domain.ReconcileMatched
		if result.ExitedQty > result.TotalQty {
			result.Explanation = append(result.Explanation,
				fmt.Sprintf("Fully matched: exit quantity %s within %.0f%% tolerance of entry quantity %s.",
					formatQty(result.ExitedQty), m.cfg.ReversalTolerance*100, formatQty(result.TotalQty)))
		} else {
			result.Explanation = append(result.Explanation,
				"Fully matched: exit quantity covers entry quantity.")
		}
	}
}

// truncateCandidates sorts candidates by fill timestamp (trade ref as
// tiebreaker) and bounds the list, so repeated runs on identical input
// produce identical output.
func (m *Matcher) truncateCandidates(candidates []Candidate) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].FilledAt.Equal(candidates[j].FilledAt) {
			return candidates[i].FilledAt.Before(candidates[j].FilledAt)
		}
		return candidates[i].FillRef < candidates[j].FillRef
	})
	if len(candidates) > m.cfg.MaxCandidates {
		candidates = candidates[:m.cfg.MaxCandidates]
	}
	return candidates
}

func newCandidate(f domain.BrokerFill, why string) Candidate {
	return Candidate{
		FillRef:     f.Ref(),
		Symbol:      f.NormalizedSymbol(),
		Side:        f.Side,
		Quantity:    f.Quantity,
		Price:       f.Price,
		FilledAt:    f.FilledAt,
		WhyRejected: why,
	}
}

// sortFills orders fills by timestamp, then trade ID, for deterministic
// processing and reporting
func sortFills(fills []domain.BrokerFill) {
	sort.SliceStable(fills, func(i, j int) bool {
		if !fills[i].FilledAt.Equal(fills[j].FilledAt) {
			return fills[i].FilledAt.Before(fills[j].FilledAt)
		}
		return fills[i].TradeID < fills[j].TradeID
	})
}

// formatQty renders a quantity without trailing zeros
func formatQty(q float64) string {
	s := fmt.Sprintf("%.4f", q)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
