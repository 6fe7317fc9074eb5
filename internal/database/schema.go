package database

import "fmt"

// JournalSchema is the schema for journal.db: trading intents, broker
// fills, option legs, and reconcile-run snapshots.
const JournalSchema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	effective_date TEXT NOT NULL,
	direction TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'PLANNED',
	entry_price REAL NOT NULL DEFAULT 0,
	exit_price REAL,
	size REAL NOT NULL DEFAULT 0,
	stop_loss REAL,
	manual_override INTEGER NOT NULL DEFAULT 0,
	entry_fill_id TEXT,
	exit_fill_id TEXT,
	avg_entry_price REAL,
	total_qty REAL,
	exited_qty REAL,
	realized_pnl REAL,
	result TEXT,
	r_multiple REAL,
	reconcile_status TEXT,
	match_explanation TEXT,
	system_update_reason TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_entries_status ON journal_entries(status);
CREATE INDEX IF NOT EXISTS idx_journal_entries_symbol ON journal_entries(symbol);

CREATE TABLE IF NOT EXISTS options_journal_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	underlying TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'ENTERED',
	manual_override INTEGER NOT NULL DEFAULT 0,
	entry_group_id TEXT,
	exit_group_id TEXT,
	total_contracts REAL NOT NULL DEFAULT 0,
	exited_contracts REAL NOT NULL DEFAULT 0,
	net_debit_credit REAL,
	realized_pnl REAL,
	result TEXT,
	reconcile_status TEXT,
	match_explanation TEXT,
	system_update_reason TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_options_entries_status ON options_journal_entries(status);

CREATE TABLE IF NOT EXISTS fills (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	broker TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	filled_at INTEGER NOT NULL,
	asset_class TEXT NOT NULL DEFAULT 'STOCK',
	order_id TEXT,
	trade_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_fills_broker_trade ON fills(broker, trade_id);
CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);

CREATE TABLE IF NOT EXISTS option_leg_fills (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	broker TEXT NOT NULL,
	underlying TEXT NOT NULL,
	expiration TEXT NOT NULL,
	strike REAL NOT NULL,
	kind TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity REAL NOT NULL,
	price REAL NOT NULL,
	filled_at INTEGER NOT NULL,
	order_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_option_legs_broker_trade ON option_leg_fills(broker, trade_id);
CREATE INDEX IF NOT EXISTS idx_option_legs_underlying ON option_leg_fills(underlying);

CREATE TABLE IF NOT EXISTS reconcile_runs (
	batch_id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	entry_count INTEGER NOT NULL,
	update_count INTEGER NOT NULL,
	report BLOB NOT NULL
);
`

// LedgerSchema is the schema for ledger.db: the immutable trade-outcome
// audit trail. Rows are append-only; there is no UPDATE path.
const LedgerSchema = `
CREATE TABLE IF NOT EXISTS trade_outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id INTEGER NOT NULL,
	entry_kind TEXT NOT NULL DEFAULT 'STOCK',
	symbol TEXT NOT NULL,
	direction TEXT,
	avg_entry_price REAL,
	total_qty REAL,
	realized_pnl REAL NOT NULL,
	result TEXT NOT NULL,
	r_multiple REAL,
	batch_id TEXT NOT NULL,
	closed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trade_outcomes_symbol ON trade_outcomes(symbol);
CREATE INDEX IF NOT EXISTS idx_trade_outcomes_batch ON trade_outcomes(batch_id);
`

// Migrate applies the given schema to the database.
// Schemas use IF NOT EXISTS throughout, so this is idempotent.
func (db *DB) Migrate(schema string) error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate database %s: %w", db.name, err)
	}
	return nil
}
