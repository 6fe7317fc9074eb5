// Package fills provides broker fill storage and the options fill-group
// aggregator.
package fills

import (
	"fmt"
	"sort"

	"github.com/aristath/reckon/internal/domain"
)

// BuildGroups aggregates option-leg fills that executed together into
// logical fill groups with a net cashflow and total contract count.
//
// Legs sharing a broker order belong to one group (a multi-leg spread is
// routed as one order); legs without an order identifier are grouped by
// underlying and execution moment. Group and leg ordering are
// deterministic for a fixed input multiset.
func BuildGroups(legs []domain.OptionLegFill) []domain.OptionsFillGroup {
	byKey := make(map[string][]domain.OptionLegFill)
	for _, leg := range legs {
		byKey[groupKey(leg)] = append(byKey[groupKey(leg)], leg)
	}

	groups := make([]domain.OptionsFillGroup, 0, len(byKey))
	for key, members := range byKey {
		sort.SliceStable(members, func(i, j int) bool {
			if !members[i].FilledAt.Equal(members[j].FilledAt) {
				return members[i].FilledAt.Before(members[j].FilledAt)
			}
			return members[i].TradeID < members[j].TradeID
		})

		group := domain.OptionsFillGroup{
			GroupID:    key,
			Underlying: members[0].NormalizedUnderlying(),
			Expiration: members[0].Expiration,
			Legs:       members,
			FilledAt:   members[0].FilledAt,
		}
		for _, leg := range members {
			group.NetCashflow += leg.Cashflow()
			group.TotalContracts += leg.Quantity
		}
		if group.NetCashflow < 0 {
			group.Direction = domain.GroupDebit
		} else {
			group.Direction = domain.GroupCredit
		}

		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if !groups[i].FilledAt.Equal(groups[j].FilledAt) {
			return groups[i].FilledAt.Before(groups[j].FilledAt)
		}
		return groups[i].GroupID < groups[j].GroupID
	})

	return groups
}

// groupKey identifies the execution moment a leg belongs to
func groupKey(leg domain.OptionLegFill) string {
	if leg.OrderID != "" {
		return leg.Broker + ":" + leg.OrderID
	}
	return fmt.Sprintf("%s:%s:%d", leg.Broker, leg.NormalizedUnderlying(), leg.FilledAt.Unix())
}
