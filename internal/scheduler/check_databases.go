package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/reckon/internal/database"
)

// CheckDatabasesJob verifies integrity of the journal and ledger databases
// and forces a WAL checkpoint on each. Ledger corruption is unrecoverable
// by design, so failures are surfaced loudly rather than retried.
type CheckDatabasesJob struct {
	journalDB *database.DB
	ledgerDB  *database.DB
	log       zerolog.Logger
}

// NewCheckDatabasesJob creates a new database integrity job
func NewCheckDatabasesJob(journalDB, ledgerDB *database.DB, log zerolog.Logger) *CheckDatabasesJob {
	return &CheckDatabasesJob{
		journalDB: journalDB,
		ledgerDB:  ledgerDB,
		log:       log.With().Str("job", "check_databases").Logger(),
	}
}

// Name returns the job name
func (j *CheckDatabasesJob) Name() string {
	return "check_databases"
}

// Run executes the integrity check against both databases
func (j *CheckDatabasesJob) Run() error {
	for _, db := range []*database.DB{j.journalDB, j.ledgerDB} {
		if db == nil {
			continue
		}

		if err := j.checkIntegrity(db); err != nil {
			j.log.Error().
				Err(err).
				Str("database", db.Name()).
				Msg("Database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %w", db.Name(), err)
		}

		if err := j.checkpoint(db); err != nil {
			j.log.Warn().
				Err(err).
				Str("database", db.Name()).
				Msg("WAL checkpoint failed")
			continue
		}

		j.log.Debug().Str("database", db.Name()).Msg("Database integrity OK")
	}

	return nil
}

// checkIntegrity runs SQLite's PRAGMA integrity_check
func (j *CheckDatabasesJob) checkIntegrity(db *database.DB) error {
	var result string
	if err := db.Conn().QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}

	return nil
}

// checkpoint flushes the WAL into the main database file
func (j *CheckDatabasesJob) checkpoint(db *database.DB) error {
	var busy, logPages, checkpointed int
	err := db.Conn().
		QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").
		Scan(&busy, &logPages, &checkpointed)
	if err != nil {
		return fmt.Errorf("wal_checkpoint failed: %w", err)
	}

	if busy != 0 {
		j.log.Debug().
			Str("database", db.Name()).
			Msg("WAL checkpoint deferred, database busy")
	}

	return nil
}
