// Package jobs runs imports and reminder rounds in the background, outside
// the HTTP request that asked for them.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrQueueFull = errors.New("job queue is full")

// Job is a named unit of background work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue is a bounded in-process queue drained by a single worker.
type Queue struct {
	jobs chan Job
	log  *slog.Logger
}

func NewQueue(size int, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{jobs: make(chan Job, size), log: logger}
}

// Enqueue schedules job without blocking.
func (q *Queue) Enqueue(job Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len is the number of jobs waiting.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Run executes queued jobs one at a time until ctx is done. Jobs still queued
// at shutdown are dropped.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if n := len(q.jobs); n > 0 {
				q.log.Warn("job queue stopped with pending jobs", "pending", n)
			}
			return nil
		case job := <-q.jobs:
			start := time.Now()
			if err := job.Run(ctx); err != nil {
				q.log.Error("job failed", "job", job.Name, "error", err, "duration_ms", time.Since(start).Milliseconds())
				continue
			}
			q.log.Info("job done", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
		}
	}
}
