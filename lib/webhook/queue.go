// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrQueueFull is returned by Submit when the backlog is at capacity.
var ErrQueueFull = errors.New("webhook: queue full")

// Job is one unit of lifecycle work.
type Job struct {
	// Kind is "event" or "expire", for logs.
	Kind string

	// ID is the delivery or run identifier.
	ID string

	Run func(ctx context.Context) error
}

// Queue runs jobs one at a time in submission order.
type Queue struct {
	jobs   chan Job
	logger *slog.Logger
}

// NewQueue creates a queue holding up to size pending jobs.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{jobs: make(chan Job, size), logger: logger}
}

// Submit enqueues job without blocking.
func (queue *Queue) Submit(job Job) error {
	select {
	case queue.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of jobs waiting to run.
func (queue *Queue) Pending() int {
	return len(queue.jobs)
}

// Run executes jobs until ctx is done and returns ctx.Err(). A job
// error is logged; it does not stop the queue.
func (queue *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-queue.jobs:
			queue.run(ctx, job)
		}
	}
}

func (queue *Queue) run(ctx context.Context, job Job) {
	logger := queue.logger.With("kind", job.Kind, "id", job.ID)
	started := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("job panicked", "panic", recovered)
		}
	}()
	if err := job.Run(ctx); err != nil {
		logger.Error("job failed", "error", err, "duration", time.Since(started))
		return
	}
	logger.Info("job finished", "duration", time.Since(started))
}
