package domain

import (
	"fmt"
	"strings"
	"time"
)

// OptionContractMultiplier is the share-equivalent size of one standard
// option contract.
const OptionContractMultiplier = 100.0

// BrokerFill is an immutable broker-reported execution record.
// Fills are read-only inputs; the engine never creates or deletes them.
type BrokerFill struct {
	FilledAt   time.Time  `json:"filled_at"`
	Broker     string     `json:"broker"`
	Symbol     string     `json:"symbol"`
	Side       FillSide   `json:"side"`
	AssetClass AssetClass `json:"asset_class"`
	OrderID    string     `json:"order_id"`
	TradeID    string     `json:"trade_id"` // Unique within the broker
	Quantity   float64    `json:"quantity"`
	Price      float64    `json:"price"`
}

// Validate rejects malformed fill shapes before they enter the matching
// pipeline. Negative or zero quantities/prices and unknown sides indicate
// upstream data corruption, not trading ambiguity, and fail loudly.
func (f BrokerFill) Validate() error {
	if strings.TrimSpace(f.Symbol) == "" {
		return fmt.Errorf("fill %s: symbol is required", f.TradeID)
	}
	if !f.Side.IsValid() {
		return fmt.Errorf("fill %s: unknown side %q", f.TradeID, f.Side)
	}
	if f.Quantity <= 0 {
		return fmt.Errorf("fill %s: quantity must be positive, got %v", f.TradeID, f.Quantity)
	}
	if f.Price <= 0 {
		return fmt.Errorf("fill %s: price must be positive, got %v", f.TradeID, f.Price)
	}
	if f.FilledAt.IsZero() {
		return fmt.Errorf("fill %s: fill timestamp is required", f.TradeID)
	}
	return nil
}

// Ref returns the fill's linkage identifier, formatted {broker}:{tradeId}
func (f BrokerFill) Ref() string {
	return f.Broker + ":" + f.TradeID
}

// NormalizedSymbol returns the symbol upper-cased and trimmed for matching
func (f BrokerFill) NormalizedSymbol() string {
	return strings.ToUpper(strings.TrimSpace(f.Symbol))
}

// OptionLegFill is a single option-leg execution. Legs sharing an
// execution moment are aggregated into an OptionsFillGroup.
type OptionLegFill struct {
	FilledAt   time.Time  `json:"filled_at"`
	Broker     string     `json:"broker"`
	Underlying string     `json:"underlying"`
	Expiration string     `json:"expiration"` // YYYY-MM-DD
	Kind       OptionKind `json:"kind"`
	Side       FillSide   `json:"side"`
	OrderID    string     `json:"order_id"`
	TradeID    string     `json:"trade_id"`
	Strike     float64    `json:"strike"`
	Quantity   float64    `json:"quantity"` // Contracts
	Price      float64    `json:"price"`    // Per-share premium
}

// Validate rejects malformed option legs at the boundary
func (l OptionLegFill) Validate() error {
	if strings.TrimSpace(l.Underlying) == "" {
		return fmt.Errorf("option leg %s: underlying is required", l.TradeID)
	}
	if !l.Side.IsValid() {
		return fmt.Errorf("option leg %s: unknown side %q", l.TradeID, l.Side)
	}
	if l.Kind != OptionCall && l.Kind != OptionPut {
		return fmt.Errorf("option leg %s: unknown option kind %q", l.TradeID, l.Kind)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("option leg %s: quantity must be positive, got %v", l.TradeID, l.Quantity)
	}
	if l.Price <= 0 {
		return fmt.Errorf("option leg %s: price must be positive, got %v", l.TradeID, l.Price)
	}
	if l.Strike <= 0 {
		return fmt.Errorf("option leg %s: strike must be positive, got %v", l.TradeID, l.Strike)
	}
	return nil
}

// Cashflow returns the signed cash impact of this leg.
// Buying pays premium (negative), selling receives it (positive).
func (l OptionLegFill) Cashflow() float64 {
	amount := l.Price * l.Quantity * OptionContractMultiplier
	if l.Side == SideBuy {
		return -amount
	}
	return amount
}

// NormalizedUnderlying returns the underlying upper-cased and trimmed
func (l OptionLegFill) NormalizedUnderlying() string {
	return strings.ToUpper(strings.TrimSpace(l.Underlying))
}

// OptionsFillGroup is one or more option legs that executed together,
// netted into a single cashflow. Multi-leg spreads have no single "price",
// so options positions are accounted for by net cashflow.
type OptionsFillGroup struct {
	FilledAt       time.Time       `json:"filled_at"`
	GroupID        string          `json:"group_id"`
	Underlying     string          `json:"underlying"`
	Expiration     string          `json:"expiration"`
	Direction      GroupDirection  `json:"direction"`
	Legs           []OptionLegFill `json:"legs"`
	NetCashflow    float64         `json:"net_cashflow"` // Negative = paid, positive = received
	TotalContracts float64         `json:"total_contracts"`
}

// NormalizedUnderlying returns the underlying upper-cased and trimmed
func (g OptionsFillGroup) NormalizedUnderlying() string {
	return strings.ToUpper(strings.TrimSpace(g.Underlying))
}
