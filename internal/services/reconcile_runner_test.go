package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/aristath/reckon/internal/database"
	"github.com/aristath/reckon/internal/domain"
	"github.com/aristath/reckon/internal/modules/fills"
	"github.com/aristath/reckon/internal/modules/journal"
	"github.com/aristath/reckon/internal/modules/ledger"
	"github.com/aristath/reckon/internal/modules/reconcile"
	"github.com/aristath/reckon/internal/modules/snapshots"
)

type runnerFixture struct {
	runner    *ReconcileRunner
	entries   *journal.EntryRepository
	options   *journal.OptionsEntryRepository
	fillRepo  *fills.FillRepository
	outcomes  *ledger.OutcomeRepository
	snapshots *snapshots.RunSnapshotStore
}

func setupRunner(t *testing.T) runnerFixture {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	journalDB := openTestDB(t, database.JournalSchema)
	ledgerDB := openTestDB(t, database.LedgerSchema)

	entries := journal.NewEntryRepository(journalDB, log)
	options := journal.NewOptionsEntryRepository(journalDB, log)
	fillRepo := fills.NewFillRepository(journalDB, log)
	outcomes := ledger.NewOutcomeRepository(ledgerDB, log)
	snapStore := snapshots.NewRunSnapshotStore(journalDB, log)
	orch := reconcile.NewOrchestrator(reconcile.DefaultMatcherConfig(), log)

	runner := NewReconcileRunner(entries, options, fillRepo, outcomes, snapStore, orch, log)

	return runnerFixture{
		runner:    runner,
		entries:   entries,
		options:   options,
		fillRepo:  fillRepo,
		outcomes:  outcomes,
		snapshots: snapStore,
	}
}

func openTestDB(t *testing.T, schema string) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)

	return db
}

func runnerFill(tradeID string, side domain.FillSide, qty, price float64, at time.Time) domain.BrokerFill {
	return domain.BrokerFill{
		Broker:   "ibkr",
		Symbol:   "AAPL",
		Side:     side,
		TradeID:  tradeID,
		Quantity: qty,
		Price:    price,
		FilledAt: at,
	}
}

func TestReconcileRunner_Run_FullRoundTrip(t *testing.T) {
	f := setupRunner(t)

	stop := 95.0
	entry := domain.JournalEntry{
		Symbol:        "AAPL",
		EffectiveDate: "2026-03-01",
		Direction:     domain.DirectionLong,
		Status:        domain.StatusEntered,
		EntryPrice:    100.0,
		Size:          100,
		StopLoss:      &stop,
	}
	entryID, err := f.entries.Create(entry)
	require.NoError(t, err)

	day1 := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	_, err = f.fillRepo.Import([]domain.BrokerFill{
		runnerFill("t1", domain.SideBuy, 100, 100.0, day1),
		runnerFill("t2", domain.SideSell, 100, 120.0, day2),
	})
	require.NoError(t, err)

	report, err := f.runner.Run()
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.NotEmpty(t, report.BatchID)
	assert.Equal(t, 1, report.EntryCount)
	require.Len(t, report.StockUpdates, 1)
	assert.Equal(t, domain.ReconcileMatched, report.StockUpdates[0].ReconcileStatus)

	// The journal entry carries the engine's verdict.
	got, err := f.entries.GetByID(entryID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusExited, got.Status)
	require.NotNil(t, got.RealizedPnL)
	assert.InDelta(t, 2000.0, *got.RealizedPnL, 0.001)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.ResultWin, *got.Result)
	require.NotNil(t, got.RMultiple)
	assert.InDelta(t, 4.0, *got.RMultiple, 0.001)
	assert.Equal(t, "auto-reconcile:"+report.BatchID, got.SystemUpdateReason)

	// The closed trade lands in the ledger.
	rows, err := f.outcomes.All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, entryID, rows[0].EntryID)
	assert.Equal(t, ledger.KindStock, rows[0].EntryKind)
	assert.Equal(t, "AAPL", rows[0].Symbol)
	assert.InDelta(t, 2000.0, rows[0].RealizedPnL, 0.001)
	assert.Equal(t, report.BatchID, rows[0].BatchID)

	// The full report is retrievable by batch ID.
	snap, err := f.snapshots.Get(report.BatchID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, report.BatchID, snap.BatchID)
	require.Len(t, snap.StockUpdates, 1)
}

func TestReconcileRunner_Run_OpenPositionNoLedgerRow(t *testing.T) {
	f := setupRunner(t)

	entryID, err := f.entries.Create(domain.JournalEntry{
		Symbol:        "AAPL",
		EffectiveDate: "2026-03-01",
		Direction:     domain.DirectionLong,
		Status:        domain.StatusEntered,
		EntryPrice:    100.0,
		Size:          100,
	})
	require.NoError(t, err)

	day1 := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	_, err = f.fillRepo.Import([]domain.BrokerFill{
		runnerFill("t1", domain.SideBuy, 100, 100.0, day1),
	})
	require.NoError(t, err)

	report, err := f.runner.Run()
	require.NoError(t, err)
	require.Len(t, report.StockUpdates, 1)
	assert.Equal(t, domain.ReconcileNone, report.StockUpdates[0].ReconcileStatus)

	got, err := f.entries.GetByID(entryID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusEntered, got.Status)
	require.NotNil(t, got.AvgEntryPrice)
	assert.InDelta(t, 100.0, *got.AvgEntryPrice, 0.001)
	assert.Nil(t, got.RealizedPnL)

	rows, err := f.outcomes.All()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReconcileRunner_Run_ManualOverrideUntouched(t *testing.T) {
	f := setupRunner(t)

	entryID, err := f.entries.Create(domain.JournalEntry{
		Symbol:         "AAPL",
		EffectiveDate:  "2026-03-01",
		Direction:      domain.DirectionLong,
		Status:         domain.StatusEntered,
		EntryPrice:     100.0,
		Size:           100,
		ManualOverride: true,
	})
	require.NoError(t, err)

	day1 := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	_, err = f.fillRepo.Import([]domain.BrokerFill{
		runnerFill("t1", domain.SideBuy, 100, 100.0, day1),
		runnerFill("t2", domain.SideSell, 100, 120.0, day2),
	})
	require.NoError(t, err)

	report, err := f.runner.Run()
	require.NoError(t, err)
	require.Len(t, report.StockUpdates, 1)
	assert.Equal(t, domain.ReconcileBlockedOverride, report.StockUpdates[0].ReconcileStatus)

	got, err := f.entries.GetByID(entryID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusEntered, got.Status)
	assert.Nil(t, got.RealizedPnL)

	rows, err := f.outcomes.All()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReconcileRunner_Run_OptionsRoundTrip(t *testing.T) {
	f := setupRunner(t)

	entryID, err := f.options.Create(domain.OptionsJournalEntry{
		Underlying: "SPY",
		Status:     domain.StatusEntered,
	})
	require.NoError(t, err)

	day1 := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	_, err = f.fillRepo.ImportOptionLegs([]domain.OptionLegFill{
		{
			Broker:     "ibkr",
			Underlying: "SPY",
			Expiration: "2026-04-17",
			Kind:       domain.OptionCall,
			Strike:     500,
			Side:       domain.SideBuy,
			TradeID:    "t1",
			OrderID:    "ord1",
			Quantity:   5,
			Price:      1.00,
			FilledAt:   day1,
		},
		{
			Broker:     "ibkr",
			Underlying: "SPY",
			Expiration: "2026-04-17",
			Kind:       domain.OptionCall,
			Strike:     500,
			Side:       domain.SideSell,
			TradeID:    "t2",
			OrderID:    "ord2",
			Quantity:   5,
			Price:      1.50,
			FilledAt:   day2,
		},
	})
	require.NoError(t, err)

	report, err := f.runner.Run()
	require.NoError(t, err)
	require.Len(t, report.OptionsUpdates, 1)
	assert.Equal(t, domain.ReconcileMatched, report.OptionsUpdates[0].ReconcileStatus)

	got, err := f.options.GetByID(entryID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusExited, got.Status)
	require.NotNil(t, got.RealizedPnL)
	assert.InDelta(t, 250.0, *got.RealizedPnL, 0.001)

	rows, err := f.outcomes.All()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ledger.KindOptions, rows[0].EntryKind)
	assert.Equal(t, "SPY", rows[0].Symbol)
}

func TestReconcileRunner_Run_NoOpenEntries(t *testing.T) {
	f := setupRunner(t)

	report, err := f.runner.Run()
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.EntryCount)
	assert.Empty(t, report.StockUpdates)
	assert.Empty(t, report.OptionsUpdates)

	snap, err := f.snapshots.Get(report.BatchID)
	require.NoError(t, err)
	require.NotNil(t, snap)
}
