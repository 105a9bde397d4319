package core

// scheduler.go runs ingestion passes on a cron schedule for the long-running
// server mode.
//
// The first pass starts immediately, then one per cron tick. A tick that
// arrives while the previous pass is still running is skipped rather than
// queued. Failures are logged; they never stop the scheduler.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a pass every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Scheduler triggers Service.Run on a cron schedule.
type Scheduler struct {
	svc  *Service
	spec string
	cron *cron.Cron
}

// NewScheduler validates spec (standard five-field cron syntax or a
// descriptor such as "@every 1m") and returns a stopped scheduler.
func NewScheduler(svc *Service, spec string) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{svc: svc, spec: spec, cron: cron.New()}, nil
}

// Start runs one pass, then blocks running passes on schedule until ctx is
// cancelled. It waits for an in-flight scheduled pass before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx = ContextWithTrigger(ctx, TriggerSchedule)

	if _, err := s.cron.AddFunc(s.spec, func() { s.runJob(ctx) }); err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}

	slog.Info("ingest scheduler started", "schedule", s.spec)
	s.runJob(ctx)
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info("ingest scheduler stopped")
	return nil
}

// runJob performs one pass and logs its outcome.
func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	summary, err := s.svc.Run(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		slog.Info("previous run still active, skipping tick")
	case err != nil:
		slog.Error("scheduled run failed", "error", err, "code", ErrorCode(err))
	default:
		slog.Debug("scheduled run complete", "session", summary.Session, "files", len(summary.Files))
	}
}
