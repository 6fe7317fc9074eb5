// Package domain provides core domain models and types.
//
// The domain layer is pure: no infrastructure dependencies, no I/O.
// Everything here is plain data plus boundary validation.
package domain

// FillSide represents the side of an execution
type FillSide string

const (
	SideBuy  FillSide = "BUY"
	SideSell FillSide = "SELL"
)

// IsValid reports whether the side is a known value
func (s FillSide) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// AssetClass represents the instrument class of a fill
type AssetClass string

const (
	AssetStock  AssetClass = "STOCK"
	AssetOption AssetClass = "OPTION"
)

// TradeDirection represents the direction of a trading intent
type TradeDirection string

const (
	DirectionLong  TradeDirection = "LONG"
	DirectionShort TradeDirection = "SHORT"
)

// IsValid reports whether the direction is a known value
func (d TradeDirection) IsValid() bool {
	return d == DirectionLong || d == DirectionShort
}

// EntrySide returns the fill side that opens a position in this direction
func (d TradeDirection) EntrySide() FillSide {
	if d == DirectionShort {
		return SideSell
	}
	return SideBuy
}

// ExitSide returns the fill side that closes a position in this direction
func (d TradeDirection) ExitSide() FillSide {
	if d == DirectionShort {
		return SideBuy
	}
	return SideSell
}

// EntryStatus represents the lifecycle status of a journal entry
type EntryStatus string

const (
	StatusPlanned EntryStatus = "PLANNED"
	StatusEntered EntryStatus = "ENTERED"
	StatusExited  EntryStatus = "EXITED"
	StatusClosed  EntryStatus = "CLOSED"
)

// IsTerminal reports whether the status permits no further reconciliation.
// Terminal entries are never mutated by the engine.
func (s EntryStatus) IsTerminal() bool {
	return s == StatusExited || s == StatusClosed
}

// ReconcileStatus is the engine's verdict for one entry in one pass.
// It is distinct from the entry's trading status.
type ReconcileStatus string

const (
	ReconcileNone              ReconcileStatus = "NONE"
	ReconcilePartial           ReconcileStatus = "PARTIAL"
	ReconcileMatched           ReconcileStatus = "MATCHED"
	ReconcileAmbiguous         ReconcileStatus = "AMBIGUOUS"
	ReconcileAmbiguousReversal ReconcileStatus = "AMBIGUOUS_REVERSAL"
	ReconcileBlockedOverride   ReconcileStatus = "BLOCKED_MANUAL_OVERRIDE"
)

// TradeResult classifies a closed trade's outcome
type TradeResult string

const (
	ResultWin       TradeResult = "WIN"
	ResultLoss      TradeResult = "LOSS"
	ResultBreakeven TradeResult = "BREAKEVEN"
)

// ClassifyResult maps realized P&L to a result classification.
// Exactly zero is BREAKEVEN.
func ClassifyResult(pnl float64) TradeResult {
	switch {
	case pnl > 0:
		return ResultWin
	case pnl < 0:
		return ResultLoss
	default:
		return ResultBreakeven
	}
}

// GroupDirection represents the net cashflow direction of an options fill group
type GroupDirection string

const (
	GroupDebit  GroupDirection = "DEBIT"
	GroupCredit GroupDirection = "CREDIT"
)

// OptionKind distinguishes calls from puts
type OptionKind string

const (
	OptionCall OptionKind = "CALL"
	OptionPut  OptionKind = "PUT"
)
