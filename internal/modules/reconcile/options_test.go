package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/reckon/internal/domain"
)

func optionsEntry(underlying string) domain.OptionsJournalEntry {
	return domain.OptionsJournalEntry{
		ID:         1,
		Underlying: underlying,
		Status:     domain.StatusEntered,
	}
}

func group(id, underlying string, cashflow, contracts float64, at time.Time) domain.OptionsFillGroup {
	direction := domain.GroupCredit
	if cashflow < 0 {
		direction = domain.GroupDebit
	}
	return domain.OptionsFillGroup{
		GroupID:        id,
		Underlying:     underlying,
		Direction:      direction,
		NetCashflow:    cashflow,
		TotalContracts: contracts,
		FilledAt:       at,
	}
}

func TestReconcileOptions_RoundTrip(t *testing.T) {
	o := newTestOrchestrator()
	entry := optionsEntry("SPY")

	day := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	groups := []domain.OptionsFillGroup{
		group("g1", "SPY", -500.0, 5, day),
		group("g2", "SPY", 750.0, 5, day.Add(72*time.Hour)),
	}

	updates := o.ReconcileOptionsEntries([]domain.OptionsJournalEntry{entry}, groups, "batch-1")

	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, domain.ReconcileMatched, u.ReconcileStatus)
	require.NotNil(t, u.Updates.Status)
	assert.Equal(t, domain.StatusExited, *u.Updates.Status)
	require.NotNil(t, u.Updates.NetDebitCredit)
	assert.Equal(t, -500.0, *u.Updates.NetDebitCredit)
	require.NotNil(t, u.Updates.RealizedPnL)
	assert.Equal(t, 250.0, *u.Updates.RealizedPnL)
	require.NotNil(t, u.Updates.Result)
	assert.Equal(t, domain.ResultWin, *u.Updates.Result)
	require.NotNil(t, u.Updates.EntryGroupID)
	assert.Equal(t, "g1", *u.Updates.EntryGroupID)
	require.NotNil(t, u.Updates.ExitGroupID)
	assert.Equal(t, "g2", *u.Updates.ExitGroupID)
	require.NotNil(t, u.Updates.SystemUpdateReason)
	assert.Equal(t, "auto-reconcile:batch-1", *u.Updates.SystemUpdateReason)
}

func TestReconcileOptions_EntryOnlyRecordsNetDebit(t *testing.T) {
	o := newTestOrchestrator()
	entry := optionsEntry("SPY")

	day := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	groups := []domain.OptionsFillGroup{
		group("g1", "SPY", -500.0, 5, day),
	}

	updates := o.ReconcileOptionsEntries([]domain.OptionsJournalEntry{entry}, groups, "batch-2")

	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, domain.ReconcileNone, u.ReconcileStatus)
	assert.Nil(t, u.Updates.Status)
	require.NotNil(t, u.Updates.NetDebitCredit)
	assert.Equal(t, -500.0, *u.Updates.NetDebitCredit)
	require.NotNil(t, u.Updates.EntryGroupID)
	assert.Equal(t, "g1", *u.Updates.EntryGroupID)
	assert.Contains(t, u.MatchExplanation, "No closing group found yet; position remains open.")
}

func TestReconcileOptions_UnderlyingMismatch(t *testing.T) {
	o := newTestOrchestrator()
	entry := optionsEntry("QQQ")

	day := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	groups := []domain.OptionsFillGroup{
		group("g1", "SPY", -500.0, 5, day),
	}

	updates := o.ReconcileOptionsEntries([]domain.OptionsJournalEntry{entry}, groups, "batch-3")

	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, domain.ReconcileNone, u.ReconcileStatus)
	assert.True(t, u.Updates.IsEmpty())
	assert.Contains(t, u.MatchExplanation, "No fill groups matched underlying QQQ.")
}

func TestReconcileOptions_LinkedEntryGroupPreferred(t *testing.T) {
	o := newTestOrchestrator()
	entry := optionsEntry("SPY")
	entry.EntryGroupID = "g2"

	day := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	groups := []domain.OptionsFillGroup{
		group("g1", "SPY", -300.0, 3, day),
		group("g2", "SPY", -500.0, 5, day.Add(time.Hour)),
		group("g3", "SPY", 650.0, 5, day.Add(48*time.Hour)),
	}

	updates := o.ReconcileOptionsEntries([]domain.OptionsJournalEntry{entry}, groups, "batch-4")

	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, domain.ReconcileMatched, u.ReconcileStatus)
	require.NotNil(t, u.Updates.EntryGroupID)
	assert.Equal(t, "g2", *u.Updates.EntryGroupID)
	require.NotNil(t, u.Updates.RealizedPnL)
	assert.Equal(t, 150.0, *u.Updates.RealizedPnL)
}

func TestReconcileOptions_ManualOverrideBlocked(t *testing.T) {
	o := newTestOrchestrator()
	entry := optionsEntry("SPY")
	entry.ManualOverride = true

	updates := o.ReconcileOptionsEntries([]domain.OptionsJournalEntry{entry}, nil, "batch-5")

	require.Len(t, updates, 1)
	assert.Equal(t, domain.ReconcileBlockedOverride, updates[0].ReconcileStatus)
	assert.True(t, updates[0].Updates.IsEmpty())
}

func TestReconcileOptions_TerminalSkipped(t *testing.T) {
	o := newTestOrchestrator()
	entry := optionsEntry("SPY")
	entry.Status = domain.StatusExited

	updates := o.ReconcileOptionsEntries([]domain.OptionsJournalEntry{entry}, nil, "batch-6")

	assert.Empty(t, updates)
}
