// Package scheduler wires up the cron job that periodically triggers a full
// sync run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	syncengine "github.com/Wirsuchen/wisuchen-sub003/internal/sync"
)

type Scheduler struct {
	cron   *cron.Cron
	engine *syncengine.Engine
	spec   string // e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(engine *syncengine.Engine, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. One sync runs
// immediately so the store is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSync(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	slog.Info("sync scheduler started", "spec", s.spec)

	go s.runSync(ctx)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("sync scheduler stopped")
}

func (s *Scheduler) runSync(ctx context.Context) {
	slog.Info("scheduled sync starting")
	stats, err := s.engine.SyncAllJobs(ctx, syncengine.Options{})
	if err != nil {
		slog.Error("scheduled sync failed", "error", err)
		return
	}
	slog.Info("scheduled sync complete",
		"new", stats.New, "updated", stats.Updated,
		"skipped", stats.Skipped, "errors", stats.Errors)
}
