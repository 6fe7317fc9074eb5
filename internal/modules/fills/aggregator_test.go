package fills

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/reckon/internal/domain"
)

func leg(tradeID, orderID string, side domain.FillSide, qty, price float64, at time.Time) domain.OptionLegFill {
	return domain.OptionLegFill{
		Broker:     "ibkr",
		Underlying: "SPY",
		Expiration: "2026-04-17",
		Kind:       domain.OptionCall,
		Side:       side,
		OrderID:    orderID,
		TradeID:    tradeID,
		Strike:     500,
		Quantity:   qty,
		Price:      price,
		FilledAt:   at,
	}
}

func TestBuildGroups_SpreadNetsIntoOneGroup(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	legs := []domain.OptionLegFill{
		leg("t1", "ord1", domain.SideBuy, 5, 2.00, at),
		leg("t2", "ord1", domain.SideSell, 5, 1.00, at),
	}

	groups := BuildGroups(legs)

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "ibkr:ord1", g.GroupID)
	assert.Equal(t, "SPY", g.Underlying)
	// Buy 5 @ 2.00 pays 1000, sell 5 @ 1.00 receives 500
	assert.InDelta(t, -500.0, g.NetCashflow, 1e-9)
	assert.Equal(t, 10.0, g.TotalContracts)
	assert.Equal(t, domain.GroupDebit, g.Direction)
	assert.Len(t, g.Legs, 2)
}

func TestBuildGroups_CreditDirection(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	legs := []domain.OptionLegFill{
		leg("t1", "ord1", domain.SideSell, 2, 3.00, at),
	}

	groups := BuildGroups(legs)

	require.Len(t, groups, 1)
	assert.InDelta(t, 600.0, groups[0].NetCashflow, 1e-9)
	assert.Equal(t, domain.GroupCredit, groups[0].Direction)
}

func TestBuildGroups_SeparateOrdersSeparateGroups(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	legs := []domain.OptionLegFill{
		leg("t1", "ord1", domain.SideBuy, 5, 1.00, at),
		leg("t2", "ord2", domain.SideSell, 5, 1.50, at.Add(48*time.Hour)),
	}

	groups := BuildGroups(legs)

	require.Len(t, groups, 2)
	// Chronological group ordering
	assert.Equal(t, "ibkr:ord1", groups[0].GroupID)
	assert.Equal(t, "ibkr:ord2", groups[1].GroupID)
}

func TestBuildGroups_FallbackKeyWithoutOrderID(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	legs := []domain.OptionLegFill{
		leg("t1", "", domain.SideBuy, 1, 1.00, at),
		leg("t2", "", domain.SideSell, 1, 2.00, at),
	}

	groups := BuildGroups(legs)

	// Same broker, underlying, and execution moment collapse into one group
	require.Len(t, groups, 1)
	assert.InDelta(t, 100.0, groups[0].NetCashflow, 1e-9)
}

func TestBuildGroups_DeterministicAcrossInputOrder(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	a := leg("t1", "ord1", domain.SideBuy, 5, 2.00, at)
	b := leg("t2", "ord1", domain.SideSell, 5, 1.00, at)
	c := leg("t3", "ord2", domain.SideSell, 3, 1.25, at.Add(time.Hour))

	g1 := BuildGroups([]domain.OptionLegFill{a, b, c})
	g2 := BuildGroups([]domain.OptionLegFill{c, b, a})

	assert.Equal(t, g1, g2)
}

func TestBuildGroups_Empty(t *testing.T) {
	assert.Empty(t, BuildGroups(nil))
}
