package fills

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/reckon/internal/domain"
	"github.com/rs/zerolog"
)

// fillsColumns is the list of columns for the fills table.
// Used to avoid SELECT * which can break when schema changes.
// Column order must match scanFill() expectations.
const fillsColumns = `broker, symbol, side, quantity, price, filled_at, asset_class, order_id, trade_id`

// optionLegsColumns is the column list for the option_leg_fills table
const optionLegsColumns = `broker, underlying, expiration, strike, kind, side, quantity, price, filled_at, order_id, trade_id`

// FillRepository handles broker fill database operations.
// Fills are read-only inputs to the engine: rows are inserted on import
// and never updated or deleted.
type FillRepository struct {
	journalDB *sql.DB
	log       zerolog.Logger
}

// NewFillRepository creates a new fill repository
func NewFillRepository(journalDB *sql.DB, log zerolog.Logger) *FillRepository {
	return &FillRepository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "fills").Logger(),
	}
}

// Import inserts fills idempotently, skipping records whose
// (broker, trade_id) pair is already present. Every fill is validated at
// this boundary; one malformed record rejects the whole batch.
// Returns the number of newly inserted fills.
func (r *FillRepository) Import(incoming []domain.BrokerFill) (int, error) {
	for _, f := range incoming {
		if err := f.Validate(); err != nil {
			return 0, fmt.Errorf("rejected fill import: %w", err)
		}
	}

	query := `
		INSERT OR IGNORE INTO fills
		(broker, symbol, side, quantity, price, filled_at, asset_class, order_id, trade_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().Unix()
	inserted := 0

	for _, f := range incoming {
		assetClass := f.AssetClass
		if assetClass == "" {
			assetClass = domain.AssetStock
		}

		res, err := r.journalDB.Exec(query,
			f.Broker,
			f.NormalizedSymbol(),
			string(f.Side),
			f.Quantity,
			f.Price,
			f.FilledAt.Unix(),
			string(assetClass),
			nullString(f.OrderID),
			f.TradeID,
			now,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to import fill %s: %w", f.Ref(), err)
		}

		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	r.log.Info().
		Int("received", len(incoming)).
		Int("inserted", inserted).
		Msg("Fill import complete")

	return inserted, nil
}

// All retrieves every stored fill, oldest first
func (r *FillRepository) All() ([]domain.BrokerFill, error) {
	query := "SELECT " + fillsColumns + " FROM fills ORDER BY filled_at ASC, trade_id ASC"
	return r.queryFills(query)
}

// BySymbol retrieves fills for one symbol, oldest first
func (r *FillRepository) BySymbol(symbol string) ([]domain.BrokerFill, error) {
	query := "SELECT " + fillsColumns + " FROM fills WHERE symbol = ? ORDER BY filled_at ASC, trade_id ASC"
	return r.queryFills(query, strings.ToUpper(strings.TrimSpace(symbol)))
}

// Exists checks if a fill with the given broker and trade ID is stored
func (r *FillRepository) Exists(broker, tradeID string) (bool, error) {
	var one int
	err := r.journalDB.QueryRow(
		"SELECT 1 FROM fills WHERE broker = ? AND trade_id = ? LIMIT 1",
		broker, tradeID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check fill existence: %w", err)
	}
	return true, nil
}

func (r *FillRepository) queryFills(query string, args ...any) ([]domain.BrokerFill, error) {
	rows, err := r.journalDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var result []domain.BrokerFill
	for rows.Next() {
		fill, err := scanFill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		result = append(result, fill)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fills: %w", err)
	}

	return result, nil
}

func scanFill(rows *sql.Rows) (domain.BrokerFill, error) {
	var fill domain.BrokerFill
	var filledAt int64
	var orderID sql.NullString

	err := rows.Scan(
		&fill.Broker,
		&fill.Symbol,
		&fill.Side,
		&fill.Quantity,
		&fill.Price,
		&filledAt,
		&fill.AssetClass,
		&orderID,
		&fill.TradeID,
	)
	if err != nil {
		return fill, err
	}

	fill.FilledAt = time.Unix(filledAt, 0).UTC()
	if orderID.Valid {
		fill.OrderID = orderID.String
	}

	return fill, nil
}

// ImportOptionLegs inserts option-leg fills idempotently, mirroring Import
func (r *FillRepository) ImportOptionLegs(incoming []domain.OptionLegFill) (int, error) {
	for _, leg := range incoming {
		if err := leg.Validate(); err != nil {
			return 0, fmt.Errorf("rejected option leg import: %w", err)
		}
	}

	query := `
		INSERT OR IGNORE INTO option_leg_fills
		(broker, underlying, expiration, strike, kind, side, quantity, price, filled_at, order_id, trade_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().Unix()
	inserted := 0

	for _, leg := range incoming {
		res, err := r.journalDB.Exec(query,
			leg.Broker,
			leg.NormalizedUnderlying(),
			leg.Expiration,
			leg.Strike,
			string(leg.Kind),
			string(leg.Side),
			leg.Quantity,
			leg.Price,
			leg.FilledAt.Unix(),
			leg.OrderID,
			leg.TradeID,
			now,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to import option leg %s:%s: %w", leg.Broker, leg.TradeID, err)
		}

		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	r.log.Info().
		Int("received", len(incoming)).
		Int("inserted", inserted).
		Msg("Option leg import complete")

	return inserted, nil
}

// AllOptionLegs retrieves every stored option leg, oldest first
func (r *FillRepository) AllOptionLegs() ([]domain.OptionLegFill, error) {
	query := "SELECT " + optionLegsColumns + " FROM option_leg_fills ORDER BY filled_at ASC, trade_id ASC"

	rows, err := r.journalDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query option legs: %w", err)
	}
	defer rows.Close()

	var result []domain.OptionLegFill
	for rows.Next() {
		var leg domain.OptionLegFill
		var filledAt int64

		err := rows.Scan(
			&leg.Broker,
			&leg.Underlying,
			&leg.Expiration,
			&leg.Strike,
			&leg.Kind,
			&leg.Side,
			&leg.Quantity,
			&leg.Price,
			&filledAt,
			&leg.OrderID,
			&leg.TradeID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option leg: %w", err)
		}

		leg.FilledAt = time.Unix(filledAt, 0).UTC()
		result = append(result, leg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating option legs: %w", err)
	}

	return result, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
