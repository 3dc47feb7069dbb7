package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/punchamoorthee/debtops/internal/domain"
	"github.com/punchamoorthee/debtops/internal/gateway"
	"github.com/punchamoorthee/debtops/internal/ingest"
	"github.com/punchamoorthee/debtops/internal/staging"
)

// Importer runs CSV files through the ingestion pipeline.
type Importer struct {
	pipeline *ingest.Pipeline
	staged   *staging.Dir
	log      *slog.Logger
}

// NewImporter builds an importer. When staged is non-nil the file is deleted
// from the staging directory after a run that read it to the end.
func NewImporter(pipeline *ingest.Pipeline, staged *staging.Dir, logger *slog.Logger) *Importer {
	return &Importer{pipeline: pipeline, staged: staged, log: logger}
}

// Import reads path and returns the run's report. The error is non-nil only
// when the file could not be opened or read, or ctx was cancelled.
func (im *Importer) Import(ctx context.Context, path string) (*domain.ImportReport, error) {
	timer := prometheus.NewTimer(importDuration)
	defer timer.ObserveDuration()

	src, err := gateway.OpenCSVFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	im.log.Info("import started", "file", filepath.Base(path))

	report, err := im.pipeline.Run(ctx, src)
	if report != nil {
		record(report)
	}
	if err != nil {
		im.log.Error("import aborted", "file", filepath.Base(path), "error", err,
			"rows", report.TotalRows, "committed", report.Committed)
		return report, err
	}

	for _, rowErr := range report.Errors {
		im.log.Debug("row rejected", "row", rowErr.Row, "debt_id", rowErr.DebtID,
			"kind", rowErr.Kind, "message", rowErr.Message)
	}
	im.log.Info("import finished", "file", filepath.Base(path),
		"rows", report.TotalRows, "committed", report.Committed, "errors", len(report.Errors))

	if im.staged != nil {
		if err := im.staged.Remove(path); err != nil {
			im.log.Warn("staged file not removed", "file", path, "error", err)
		}
	}
	return report, nil
}

// Job wraps an import of path for the queue.
func (im *Importer) Job(path string) Job {
	return Job{
		Name: "import " + filepath.Base(path),
		Run: func(ctx context.Context) error {
			if _, err := im.Import(ctx, path); err != nil {
				return fmt.Errorf("import %s: %w", filepath.Base(path), err)
			}
			return nil
		},
	}
}

func record(report *domain.ImportReport) {
	importRowsTotal.Add(float64(report.TotalRows))
	importCommittedTotal.Add(float64(report.Committed))
	for kind, n := range report.CountByKind() {
		importRowErrorsTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
}
