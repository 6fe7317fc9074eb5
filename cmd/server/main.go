// Package main is the entry point for the Reckon trade reconciliation service.
// Reckon matches broker fill records against journal entries, computes cost
// basis and realized P&L, and keeps an immutable ledger of closed trades.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/reckon/internal/config"
	"github.com/aristath/reckon/internal/database"
	"github.com/aristath/reckon/internal/modules/fills"
	fillshandlers "github.com/aristath/reckon/internal/modules/fills/handlers"
	"github.com/aristath/reckon/internal/modules/journal"
	journalhandlers "github.com/aristath/reckon/internal/modules/journal/handlers"
	"github.com/aristath/reckon/internal/modules/ledger"
	ledgerhandlers "github.com/aristath/reckon/internal/modules/ledger/handlers"
	"github.com/aristath/reckon/internal/modules/reconcile"
	reconcilehandlers "github.com/aristath/reckon/internal/modules/reconcile/handlers"
	"github.com/aristath/reckon/internal/modules/snapshots"
	"github.com/aristath/reckon/internal/modules/stats"
	statshandlers "github.com/aristath/reckon/internal/modules/stats/handlers"
	"github.com/aristath/reckon/internal/scheduler"
	"github.com/aristath/reckon/internal/server"
	"github.com/aristath/reckon/internal/services"
	"github.com/aristath/reckon/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Reckon")

	// Two-database architecture:
	// - journal.db: journal entries, imported fills, run snapshots
	// - ledger.db: immutable trade outcome audit trail
	journalDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "journal.db"),
		Profile: database.ProfileStandard,
		Name:    "journal",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open journal database")
	}
	defer journalDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	if err := journalDB.Migrate(database.JournalSchema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate journal database")
	}
	if err := ledgerDB.Migrate(database.LedgerSchema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate ledger database")
	}

	// Repositories
	entryRepo := journal.NewEntryRepository(journalDB.Conn(), log)
	optionsEntryRepo := journal.NewOptionsEntryRepository(journalDB.Conn(), log)
	fillRepo := fills.NewFillRepository(journalDB.Conn(), log)
	outcomeRepo := ledger.NewOutcomeRepository(ledgerDB.Conn(), log)
	snapshotStore := snapshots.NewRunSnapshotStore(journalDB.Conn(), log)

	// Services
	orchestrator := reconcile.NewOrchestrator(reconcile.MatcherConfig{
		AmbiguityCap:      cfg.Reconcile.AmbiguityCap,
		ReversalTolerance: cfg.Reconcile.ReversalTolerance,
		MaxCandidates:     cfg.Reconcile.MaxCandidates,
	}, log)

	runner := services.NewReconcileRunner(
		entryRepo,
		optionsEntryRepo,
		fillRepo,
		outcomeRepo,
		snapshotStore,
		orchestrator,
		log,
	)

	statsService := stats.NewService(outcomeRepo, log)

	// Scheduler
	sched := scheduler.New(log)
	integrityJob := scheduler.NewCheckDatabasesJob(journalDB, ledgerDB, log)
	if err := sched.AddJob("0 0 */6 * * *", integrityJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register database check job")
	}
	if cfg.Reconcile.ScheduleEnabled {
		job := scheduler.NewReconcileJob(runner, log)
		if err := sched.AddJob(cfg.Reconcile.Schedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Reconcile.Schedule).Msg("Failed to register reconcile job")
		}
	} else {
		log.Info().Msg("Scheduled reconciliation disabled")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:               log,
		Config:            cfg,
		JournalDB:         journalDB,
		LedgerDB:          ledgerDB,
		JournalHandlers:   journalhandlers.NewHandler(entryRepo, optionsEntryRepo, log),
		FillsHandlers:     fillshandlers.NewHandler(fillRepo, log),
		ReconcileHandlers: reconcilehandlers.NewHandler(runner, snapshotStore, log),
		LedgerHandlers:    ledgerhandlers.NewHandler(outcomeRepo, log),
		StatsHandlers:     statshandlers.NewHandler(statsService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
