package journal

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/reckon/internal/domain"
	"github.com/aristath/reckon/internal/modules/reconcile"
)

func testOptionsEntry() domain.OptionsJournalEntry {
	return domain.OptionsJournalEntry{
		Underlying:     "SPY",
		Status:         domain.StatusEntered,
		TotalContracts: 5,
	}
}

func TestOptionsEntryRepository_CreateAndGet(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewOptionsEntryRepository(db, log)

	entry := testOptionsEntry()
	entry.EntryGroupID = "ibkr:ord1"

	id, err := repo.Create(entry)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SPY", got.Underlying)
	assert.Equal(t, domain.StatusEntered, got.Status)
	assert.Equal(t, "ibkr:ord1", got.EntryGroupID)
	assert.Equal(t, 5.0, got.TotalContracts)
	assert.Nil(t, got.NetDebitCredit)
}

func TestOptionsEntryRepository_CreateRejectsInvalid(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewOptionsEntryRepository(db, log)

	entry := testOptionsEntry()
	entry.Underlying = "  "

	_, err := repo.Create(entry)
	assert.Error(t, err)
}

func TestOptionsEntryRepository_ListOpenExcludesExited(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewOptionsEntryRepository(db, log)

	open := testOptionsEntry()
	_, err := repo.Create(open)
	require.NoError(t, err)

	exited := testOptionsEntry()
	exited.Status = domain.StatusExited
	_, err = repo.Create(exited)
	require.NoError(t, err)

	entries, err := repo.ListOpen()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusEntered, entries[0].Status)
}

func TestOptionsEntryRepository_ApplyUpdate_RoundTrip(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewOptionsEntryRepository(db, log)

	id, err := repo.Create(testOptionsEntry())
	require.NoError(t, err)

	status := domain.StatusExited
	result := domain.ResultWin
	netDebit := -500.0
	pnl := 250.0
	contracts := 5.0
	entryGroup := "ibkr:ord1"
	exitGroup := "ibkr:ord2"
	reason := "auto-reconcile:batch-abc"

	err = repo.ApplyUpdate(reconcile.EntryUpdate{
		EntryID:          id,
		ReconcileStatus:  domain.ReconcileMatched,
		MatchExplanation: []string{"Round trip closed: realized P&L $250.00."},
		Updates: reconcile.FieldUpdates{
			Status:             &status,
			NetDebitCredit:     &netDebit,
			RealizedPnL:        &pnl,
			Result:             &result,
			TotalContracts:     &contracts,
			ExitedContracts:    &contracts,
			EntryGroupID:       &entryGroup,
			ExitGroupID:        &exitGroup,
			SystemUpdateReason: &reason,
		},
	})
	require.NoError(t, err)

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusExited, got.Status)
	assert.Equal(t, string(domain.ReconcileMatched), got.ReconcileStatus)
	require.NotNil(t, got.NetDebitCredit)
	assert.Equal(t, -500.0, *got.NetDebitCredit)
	require.NotNil(t, got.RealizedPnL)
	assert.Equal(t, 250.0, *got.RealizedPnL)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.ResultWin, *got.Result)
	assert.Equal(t, 5.0, got.ExitedContracts)
	assert.Equal(t, "ibkr:ord1", got.EntryGroupID)
	assert.Equal(t, "ibkr:ord2", got.ExitGroupID)
	assert.Equal(t, "auto-reconcile:batch-abc", got.SystemUpdateReason)
}

func TestOptionsEntryRepository_ApplyUpdate_MissingEntry(t *testing.T) {
	db := setupJournalDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewOptionsEntryRepository(db, log)

	err := repo.ApplyUpdate(reconcile.EntryUpdate{
		EntryID:         42,
		ReconcileStatus: domain.ReconcileNone,
	})
	assert.Error(t, err)
}
