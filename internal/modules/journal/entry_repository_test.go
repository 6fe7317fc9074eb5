package journal

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/aristath/reckon/internal/database"
	"github.com/aristath/reckon/internal/domain"
	"github.com/aristath/reckon/internal/modules/reconcile"
)

func setupJournalDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.JournalSchema)
	require.NoError(t, err)

	return db
}

func testJournalEntry() domain.JournalEntry {
	return domain.JournalEntry{
		Symbol:        "AAPL",
		EffectiveDate: "2026-03-01",
		Direction:     domain.DirectionLong,
		Status:        domain.StatusEntered,
		EntryPrice:    150.0,
		Size:          100,
	}
}

func TestEntryRepository_CreateAndGet(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewEntryRepository(db, log)

	stop := 145.0
	entry := testJournalEntry()
	entry.StopLoss = &stop

	id, err := repo.Create(entry)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, "2026-03-01", got.EffectiveDate)
	assert.Equal(t, domain.DirectionLong, got.Direction)
	assert.Equal(t, domain.StatusEntered, got.Status)
	require.NotNil(t, got.StopLoss)
	assert.Equal(t, 145.0, *got.StopLoss)
	assert.Nil(t, got.RealizedPnL)
}

func TestEntryRepository_CreateDefaultsToPlanned(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewEntryRepository(db, log)

	entry := testJournalEntry()
	entry.Status = ""

	id, err := repo.Create(entry)
	require.NoError(t, err)

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusPlanned, got.Status)
}

func TestEntryRepository_CreateRejectsInvalid(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewEntryRepository(db, log)

	entry := testJournalEntry()
	entry.EffectiveDate = "not-a-date"

	_, err := repo.Create(entry)
	assert.Error(t, err)
}

func TestEntryRepository_GetByID_NotFound(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewEntryRepository(db, log)

	got, err := repo.GetByID(999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntryRepository_ListOpenExcludesTerminal(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewEntryRepository(db, log)

	open := testJournalEntry()
	_, err := repo.Create(open)
	require.NoError(t, err)

	exited := testJournalEntry()
	exited.Status = domain.StatusExited
	_, err = repo.Create(exited)
	require.NoError(t, err)

	closed := testJournalEntry()
	closed.Status = domain.StatusClosed
	_, err = repo.Create(closed)
	require.NoError(t, err)

	entries, err := repo.ListOpen()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusEntered, entries[0].Status)
}

func TestEntryRepository_ApplyUpdate_Matched(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewEntryRepository(db, log)

	id, err := repo.Create(testJournalEntry())
	require.NoError(t, err)

	status := domain.StatusExited
	result := domain.ResultWin
	avg := 105.0
	total := 100.0
	exited := 100.0
	pnl := 1500.0
	rMult := 1.5
	entryFill := "ibkr:t1"
	exitFill := "ibkr:t3"
	reason := "auto-reconcile:batch-xyz"

	err = repo.ApplyUpdate(reconcile.EntryUpdate{
		EntryID:          id,
		ReconcileStatus:  domain.ReconcileMatched,
		MatchExplanation: []string{"Fully matched: exit quantity covers entry quantity."},
		Updates: reconcile.FieldUpdates{
			Status:             &status,
			AvgEntryPrice:      &avg,
			TotalQty:           &total,
			ExitedQty:          &exited,
			RealizedPnL:        &pnl,
			Result:             &result,
			RMultiple:          &rMult,
			EntryFillID:        &entryFill,
			ExitFillID:         &exitFill,
			SystemUpdateReason: &reason,
		},
	})
	require.NoError(t, err)

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusExited, got.Status)
	assert.Equal(t, string(domain.ReconcileMatched), got.ReconcileStatus)
	require.NotNil(t, got.AvgEntryPrice)
	assert.Equal(t, 105.0, *got.AvgEntryPrice)
	require.NotNil(t, got.RealizedPnL)
	assert.Equal(t, 1500.0, *got.RealizedPnL)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.ResultWin, *got.Result)
	require.NotNil(t, got.RMultiple)
	assert.Equal(t, 1.5, *got.RMultiple)
	assert.Equal(t, "ibkr:t1", got.EntryFillID)
	assert.Equal(t, "ibkr:t3", got.ExitFillID)
	assert.Equal(t, "auto-reconcile:batch-xyz", got.SystemUpdateReason)
	assert.Equal(t, []string{"Fully matched: exit quantity covers entry quantity."}, got.MatchExplanation)
}

func TestEntryRepository_ApplyUpdate_PartialLeavesStatus(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewEntryRepository(db, log)

	id, err := repo.Create(testJournalEntry())
	require.NoError(t, err)

	total := 100.0
	exited := 50.0
	pnl := 250.0

	err = repo.ApplyUpdate(reconcile.EntryUpdate{
		EntryID:          id,
		ReconcileStatus:  domain.ReconcilePartial,
		MatchExplanation: []string{"Partial exit: 50 of 100 units exited."},
		Updates: reconcile.FieldUpdates{
			TotalQty:    &total,
			ExitedQty:   &exited,
			RealizedPnL: &pnl,
		},
	})
	require.NoError(t, err)

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusEntered, got.Status)
	assert.Equal(t, string(domain.ReconcilePartial), got.ReconcileStatus)
	assert.Empty(t, got.SystemUpdateReason)
	require.NotNil(t, got.ExitedQty)
	assert.Equal(t, 50.0, *got.ExitedQty)
}

func TestEntryRepository_ApplyUpdate_MissingEntry(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewEntryRepository(db, log)

	err := repo.ApplyUpdate(reconcile.EntryUpdate{
		EntryID:         999,
		ReconcileStatus: domain.ReconcileNone,
	})
	assert.Error(t, err)
}
