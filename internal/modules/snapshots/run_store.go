// Package snapshots stores the full report of every reconciliation run so
// any automated decision can be audited after the fact.
package snapshots

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/reckon/internal/modules/reconcile"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// RunSummary is the lightweight listing row for stored runs
type RunSummary struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	BatchID     string    `json:"batch_id"`
	EntryCount  int       `json:"entry_count"`
	UpdateCount int       `json:"update_count"`
}

// RunSnapshotStore persists reconcile-run reports as msgpack blobs keyed
// by batch ID
type RunSnapshotStore struct {
	journalDB *sql.DB
	log       zerolog.Logger
}

// NewRunSnapshotStore creates a new run snapshot store
func NewRunSnapshotStore(journalDB *sql.DB, log zerolog.Logger) *RunSnapshotStore {
	return &RunSnapshotStore{
		journalDB: journalDB,
		log:       log.With().Str("repo", "snapshots").Logger(),
	}
}

// Save stores one run report. Batch IDs are unique per run; saving the
// same batch twice is an error, not an overwrite.
func (s *RunSnapshotStore) Save(report reconcile.RunReport) error {
	blob, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}

	query := `
		INSERT INTO reconcile_runs
		(batch_id, started_at, finished_at, entry_count, update_count, report)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.journalDB.Exec(query,
		report.BatchID,
		report.StartedAt.Unix(),
		report.FinishedAt.Unix(),
		report.EntryCount,
		report.UpdateCount(),
		blob,
	)
	if err != nil {
		return fmt.Errorf("failed to store run snapshot %s: %w", report.BatchID, err)
	}

	s.log.Debug().
		Str("batch_id", report.BatchID).
		Int("updates", report.UpdateCount()).
		Int("bytes", len(blob)).
		Msg("Run snapshot stored")

	return nil
}

// Get retrieves one run report by batch ID, or nil when it does not exist
func (s *RunSnapshotStore) Get(batchID string) (*reconcile.RunReport, error) {
	var blob []byte
	err := s.journalDB.QueryRow(
		"SELECT report FROM reconcile_runs WHERE batch_id = ?",
		batchID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run snapshot: %w", err)
	}

	var report reconcile.RunReport
	if err := msgpack.Unmarshal(blob, &report); err != nil {
		return nil, fmt.Errorf("failed to decode run snapshot %s: %w", batchID, err)
	}

	return &report, nil
}

// List retrieves run summaries, most recent first
func (s *RunSnapshotStore) List(limit int) ([]RunSummary, error) {
	query := `
		SELECT batch_id, started_at, finished_at, entry_count, update_count
		FROM reconcile_runs
		ORDER BY started_at DESC, batch_id DESC
		LIMIT ?
	`

	rows, err := s.journalDB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list run snapshots: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var rs RunSummary
		var startedAt, finishedAt int64

		if err := rows.Scan(&rs.BatchID, &startedAt, &finishedAt, &rs.EntryCount, &rs.UpdateCount); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}

		rs.StartedAt = time.Unix(startedAt, 0).UTC()
		rs.FinishedAt = time.Unix(finishedAt, 0).UTC()
		summaries = append(summaries, rs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run snapshots: %w", err)
	}

	return summaries, nil
}
