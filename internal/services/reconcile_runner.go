// Package services provides the service layer gluing the reconciliation
// engine to persistence.
package services

import (
	"fmt"
	"time"

	"github.com/aristath/reckon/internal/domain"
	"github.com/aristath/reckon/internal/modules/fills"
	"github.com/aristath/reckon/internal/modules/journal"
	"github.com/aristath/reckon/internal/modules/ledger"
	"github.com/aristath/reckon/internal/modules/reconcile"
	"github.com/aristath/reckon/internal/modules/snapshots"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EntryStore is the journal persistence the runner needs for stock entries
type EntryStore interface {
	ListOpen() ([]domain.JournalEntry, error)
	ApplyUpdate(update reconcile.EntryUpdate) error
}

// OptionsEntryStore is the journal persistence for options entries
type OptionsEntryStore interface {
	ListOpen() ([]domain.OptionsJournalEntry, error)
	ApplyUpdate(update reconcile.EntryUpdate) error
}

// FillSource supplies the read-only fill universe
type FillSource interface {
	All() ([]domain.BrokerFill, error)
	AllOptionLegs() ([]domain.OptionLegFill, error)
}

// OutcomeAppender appends immutable ledger rows for closed trades
type OutcomeAppender interface {
	Append(outcome ledger.TradeOutcome) error
}

// SnapshotSaver stores run reports for audit
type SnapshotSaver interface {
	Save(report reconcile.RunReport) error
}

// Compile-time checks that the concrete repositories satisfy the
// runner's interfaces
var (
	_ EntryStore        = (*journal.EntryRepository)(nil)
	_ OptionsEntryStore = (*journal.OptionsEntryRepository)(nil)
	_ FillSource        = (*fills.FillRepository)(nil)
	_ OutcomeAppender   = (*ledger.OutcomeRepository)(nil)
	_ SnapshotSaver     = (*snapshots.RunSnapshotStore)(nil)
)

// ReconcileRunner drives one full reconciliation run: load snapshot of
// entries and fills, evaluate the engine, persist the resulting updates,
// append ledger rows for closed trades, and store the audit report.
//
// The engine itself is pure; this runner is the single writer of
// post-match fields.
type ReconcileRunner struct {
	entries        EntryStore
	optionsEntries OptionsEntryStore
	fillSource     FillSource
	outcomes       OutcomeAppender
	snapshotStore  SnapshotSaver
	orchestrator   *reconcile.Orchestrator
	log            zerolog.Logger
}

// NewReconcileRunner creates a new reconcile runner
func NewReconcileRunner(
	entries EntryStore,
	optionsEntries OptionsEntryStore,
	fillSource FillSource,
	outcomes OutcomeAppender,
	snapshotStore SnapshotSaver,
	orchestrator *reconcile.Orchestrator,
	log zerolog.Logger,
) *ReconcileRunner {
	return &ReconcileRunner{
		entries:        entries,
		optionsEntries: optionsEntries,
		fillSource:     fillSource,
		outcomes:       outcomes,
		snapshotStore:  snapshotStore,
		orchestrator:   orchestrator,
		log:            log.With().Str("service", "reconcile_runner").Logger(),
	}
}

// Run executes one reconciliation pass and returns its report.
// Each run is tagged with a fresh batch ID for audit traceability.
func (r *ReconcileRunner) Run() (*reconcile.RunReport, error) {
	batchID := uuid.NewString()
	startedAt := time.Now().UTC()

	openEntries, err := r.entries.ListOpen()
	if err != nil {
		return nil, fmt.Errorf("failed to load open entries: %w", err)
	}

	openOptionsEntries, err := r.optionsEntries.ListOpen()
	if err != nil {
		return nil, fmt.Errorf("failed to load open options entries: %w", err)
	}

	fillUniverse, err := r.fillSource.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load fills: %w", err)
	}

	optionLegs, err := r.fillSource.AllOptionLegs()
	if err != nil {
		return nil, fmt.Errorf("failed to load option legs: %w", err)
	}
	groups := fills.BuildGroups(optionLegs)

	r.log.Info().
		Str("batch_id", batchID).
		Int("open_entries", len(openEntries)).
		Int("open_options_entries", len(openOptionsEntries)).
		Int("fills", len(fillUniverse)).
		Int("fill_groups", len(groups)).
		Msg("Starting reconciliation run")

	stockUpdates, err := r.orchestrator.ReconcileEntries(openEntries, fillUniverse, batchID)
	if err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	optionsUpdates := r.orchestrator.ReconcileOptionsEntries(openOptionsEntries, groups, batchID)

	entriesByID := make(map[int64]domain.JournalEntry, len(openEntries))
	for _, e := range openEntries {
		entriesByID[e.ID] = e
	}
	optionsByID := make(map[int64]domain.OptionsJournalEntry, len(openOptionsEntries))
	for _, e := range openOptionsEntries {
		optionsByID[e.ID] = e
	}

	for _, update := range stockUpdates {
		if err := r.persistStockUpdate(update, entriesByID, batchID); err != nil {
			return nil, err
		}
	}

	for _, update := range optionsUpdates {
		if err := r.persistOptionsUpdate(update, optionsByID, batchID); err != nil {
			return nil, err
		}
	}

	report := reconcile.RunReport{
		BatchID:        batchID,
		StartedAt:      startedAt,
		FinishedAt:     time.Now().UTC(),
		StockUpdates:   stockUpdates,
		OptionsUpdates: optionsUpdates,
		EntryCount:     len(openEntries) + len(openOptionsEntries),
	}

	if err := r.snapshotStore.Save(report); err != nil {
		return nil, fmt.Errorf("failed to store run report: %w", err)
	}

	r.log.Info().
		Str("batch_id", batchID).
		Int("updates", report.UpdateCount()).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Reconciliation run complete")

	return &report, nil
}

// persistStockUpdate applies one update and, on a MATCHED transition,
// appends the immutable ledger row
func (r *ReconcileRunner) persistStockUpdate(update reconcile.EntryUpdate, entriesByID map[int64]domain.JournalEntry, batchID string) error {
	if err := r.entries.ApplyUpdate(update); err != nil {
		return fmt.Errorf("failed to persist update for entry %d: %w", update.EntryID, err)
	}

	if update.ReconcileStatus != domain.ReconcileMatched {
		return nil
	}

	entry, ok := entriesByID[update.EntryID]
	if !ok {
		return fmt.Errorf("matched entry %d missing from run snapshot", update.EntryID)
	}

	outcome := ledger.TradeOutcome{
		EntryID:       update.EntryID,
		EntryKind:     ledger.KindStock,
		Symbol:        entry.NormalizedSymbol(),
		Direction:     string(entry.Direction),
		AvgEntryPrice: update.Updates.AvgEntryPrice,
		TotalQty:      update.Updates.TotalQty,
		RMultiple:     update.Updates.RMultiple,
		BatchID:       batchID,
	}
	if update.Updates.RealizedPnL != nil {
		outcome.RealizedPnL = *update.Updates.RealizedPnL
	}
	if update.Updates.Result != nil {
		outcome.Result = string(*update.Updates.Result)
	}

	if err := r.outcomes.Append(outcome); err != nil {
		return fmt.Errorf("failed to append ledger row for entry %d: %w", update.EntryID, err)
	}

	return nil
}

// persistOptionsUpdate mirrors persistStockUpdate for the options path
func (r *ReconcileRunner) persistOptionsUpdate(update reconcile.EntryUpdate, optionsByID map[int64]domain.OptionsJournalEntry, batchID string) error {
	if err := r.optionsEntries.ApplyUpdate(update); err != nil {
		return fmt.Errorf("failed to persist update for options entry %d: %w", update.EntryID, err)
	}

	if update.ReconcileStatus != domain.ReconcileMatched {
		return nil
	}

	entry, ok := optionsByID[update.EntryID]
	if !ok {
		return fmt.Errorf("matched options entry %d missing from run snapshot", update.EntryID)
	}

	outcome := ledger.TradeOutcome{
		EntryID:   update.EntryID,
		EntryKind: ledger.KindOptions,
		Symbol:    entry.NormalizedUnderlying(),
		BatchID:   batchID,
		TotalQty:  update.Updates.TotalContracts,
	}
	if update.Updates.RealizedPnL != nil {
		outcome.RealizedPnL = *update.Updates.RealizedPnL
	}
	if update.Updates.Result != nil {
		outcome.Result = string(*update.Updates.Result)
	}

	if err := r.outcomes.Append(outcome); err != nil {
		return fmt.Errorf("failed to append ledger row for options entry %d: %w", update.EntryID, err)
	}

	return nil
}
