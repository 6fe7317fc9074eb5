package scheduler

import (
	"sync"

	"github.com/aristath/reckon/internal/modules/reconcile"
	"github.com/rs/zerolog"
)

// RunReporter is any service that can execute a reconciliation run
type RunReporter interface {
	Run() (*reconcile.RunReport, error)
}

// ReconcileJob runs periodic reconciliation passes.
// A mutex guards against overlapping runs when a pass outlasts the
// schedule interval; the late tick is skipped, not queued.
type ReconcileJob struct {
	runner RunReporter
	log    zerolog.Logger
	mu     sync.Mutex
}

// NewReconcileJob creates a new reconcile job
func NewReconcileJob(runner RunReporter, log zerolog.Logger) *ReconcileJob {
	return &ReconcileJob{
		runner: runner,
		log:    log.With().Str("job", "reconcile").Logger(),
	}
}

// Name returns the job name
func (j *ReconcileJob) Name() string {
	return "reconcile"
}

// Run executes one reconciliation pass
func (j *ReconcileJob) Run() error {
	if !j.mu.TryLock() {
		j.log.Warn().Msg("Reconciliation already running, skipping this cycle")
		return nil
	}
	defer j.mu.Unlock()

	report, err := j.runner.Run()
	if err != nil {
		return err
	}

	j.log.Info().
		Str("batch_id", report.BatchID).
		Int("entries", report.EntryCount).
		Int("updates", report.UpdateCount()).
		Msg("Scheduled reconciliation completed")

	return nil
}
