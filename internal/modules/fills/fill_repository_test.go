package fills

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
)

func setupFillsDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.JournalSchema)
	require.NoError(t, err)

	return db
}

func testFill(tradeID string, side domain.FillSide, qty, price float64, at time.Time) domain.BrokerFill {
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

func TestFillRepository_ImportAndAll(t *testing.T) {
	db := setupFillsDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewFillRepository(db, log)

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	inserted, err := repo.Import([]domain.BrokerFill{
		testFill("t2", domain.SideSell, 100, 155.0, at.Add(time.Hour)),
		testFill("t1", domain.SideBuy, 100, 150.0, at),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	stored, err := repo.All()
	require.NoError(t, err)
	require.Len(t, stored, 2)

	// Oldest first regardless of import order
	assert.Equal(t, "t1", stored[0].TradeID)
	assert.Equal(t, "t2", stored[1].TradeID)
	assert.Equal(t, at, stored[0].FilledAt)
	assert.Equal(t, domain.AssetStock, stored[0].AssetClass)
}

func TestFillRepository_ImportDeduplicates(t *testing.T) {
	db := setupFillsDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewFillRepository(db, log)

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	f := testFill("t1", domain.SideBuy, 100, 150.0, at)

	inserted, err := repo.Import([]domain.BrokerFill{f})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = repo.Import([]domain.BrokerFill{f})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	stored, err := repo.All()
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestFillRepository_ImportRejectsInvalidBatch(t *testing.T) {
	db := setupFillsDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewFillRepository(db, log)

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	good := testFill("t1", domain.SideBuy, 100, 150.0, at)
	bad := testFill("t2", domain.SideBuy, -5, 150.0, at)

	_, err := repo.Import([]domain.BrokerFill{good, bad})
	require.Error(t, err)

	// Nothing from the batch is stored
	stored, err := repo.All()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestFillRepository_BySymbolNormalizes(t *testing.T) {
	db := setupFillsDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewFillRepository(db, log)

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	f := testFill("t1", domain.SideBuy, 100, 150.0, at)
	f.Symbol = "aapl"

	_, err := repo.Import([]domain.BrokerFill{f})
	require.NoError(t, err)

	stored, err := repo.BySymbol(" aapl ")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "AAPL", stored[0].Symbol)
}

func TestFillRepository_Exists(t *testing.T) {
	db := setupFillsDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewFillRepository(db, log)

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	_, err := repo.Import([]domain.BrokerFill{testFill("t1", domain.SideBuy, 100, 150.0, at)})
	require.NoError(t, err)

	exists, err := repo.Exists("ibkr", "t1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists("ibkr", "t9")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFillRepository_OptionLegsRoundTrip(t *testing.T) {
	db := setupFillsDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewFillRepository(db, log)

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	legs := []domain.OptionLegFill{
		leg("t1", "ord1", domain.SideBuy, 5, 2.00, at),
		leg("t2", "ord1", domain.SideSell, 5, 1.00, at),
	}

	inserted, err := repo.ImportOptionLegs(legs)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-import is a no-op
	inserted, err = repo.ImportOptionLegs(legs)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	stored, err := repo.AllOptionLegs()
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "SPY", stored[0].Underlying)
	assert.Equal(t, domain.OptionCall, stored[0].Kind)
	assert.Equal(t, at, stored[0].FilledAt)

	groups := BuildGroups(stored)
	require.Len(t, groups, 1)
	assert.InDelta(t, -500.0, groups[0].NetCashflow, 1e-9)
}
