package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/punchamoorthee/debtops/internal/config"
	"github.com/punchamoorthee/debtops/internal/ingest"
	"github.com/punchamoorthee/debtops/internal/jobs"
	"github.com/punchamoorthee/debtops/internal/store"
	"github.com/punchamoorthee/debtops/pkg/logging"
)

func main() {
	file := flag.String("file", "", "CSV file to import")
	batch := flag.Int("batch", 0, "Rows per transaction (default IMPORT_BATCH_SIZE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if *file == "" {
		slog.Error("-file is required")
		os.Exit(2)
	}
	size := cfg.ImportBatchSize
	if *batch > 0 {
		size = *batch
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreSource())
	if err != nil {
		slog.Error("store unavailable", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	im := jobs.NewImporter(ingest.NewPipeline(repo, ingest.WithBatchSize(size)), nil, slog.Default())
	report, err := im.Import(ctx, *file)

	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	}
	if err != nil {
		slog.Error("import failed", "error", err)
		repo.Close()
		os.Exit(1)
	}
}
