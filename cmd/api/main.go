package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/punchamoorthee/debtops/internal/api"
	"github.com/punchamoorthee/debtops/internal/config"
	"github.com/punchamoorthee/debtops/internal/ingest"
	"github.com/punchamoorthee/debtops/internal/jobs"
	"github.com/punchamoorthee/debtops/internal/service"
	"github.com/punchamoorthee/debtops/internal/staging"
	"github.com/punchamoorthee/debtops/internal/store"
	"github.com/punchamoorthee/debtops/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreSource())
	if err != nil {
		return err
	}
	defer repo.Close()

	logger := slog.Default()
	stage := staging.NewDir(cfg.ImportDir)
	queue := jobs.NewQueue(cfg.JobQueueSize, logger)
	pipeline := ingest.NewPipeline(repo, ingest.WithBatchSize(cfg.ImportBatchSize))

	// Initialize Layers
	handler := api.NewHandler(api.Deps{
		Debts:       repo,
		Settlement:  service.NewSettlementService(repo, time.Now),
		Outstanding: service.NewReminderService(repo),
		Staging:     stage,
		Queue:       queue,
		Importer:    jobs.NewImporter(pipeline, stage, logger),
		Reminders:   jobs.NewReminders(repo, jobs.LogNotifier{Log: logger}, time.Now, logger),
		Log:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
