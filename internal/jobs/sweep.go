// Package jobs schedules background work on a cron.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/room-reservation/internal/application"
)

// Disabled is the schedule value that turns the sweep off.
const Disabled = "off"

// Sweeper runs one reconciliation pass over all members.
type Sweeper interface {
	ReconcileAll(ctx context.Context) (application.SweepResult, error)
}

// Scheduler runs the reconciliation sweep on a cron schedule. A run that
// starts while the previous one is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler parses spec, a standard five-field cron expression, and
// registers the sweep. It returns nil with no error when spec is empty or
// "off".
func NewScheduler(spec string, sweeper Sweeper, loc *time.Location, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, Disabled) {
		return nil, nil
	}
	if sweeper == nil {
		return nil, fmt.Errorf("jobs: sweeper is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("jobs: invalid schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		timeout: timeout,
		logger:  logger.With("component", "jobs", "job", "reconcile_sweep"),
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("jobs: schedule sweep: %w", err)
	}
	return s, nil
}

// Start begins firing the schedule in the background.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.logger.Info("reconcile sweep scheduled", "next", s.Next())
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep or ctx, whichever
// comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("reconcile sweep still running at shutdown")
	}
}

// Next reports the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	if s == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous reconcile sweep still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	result, err := s.sweeper.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error("reconcile sweep failed", "error", err, "error_kind", application.ErrorKind(err))
		return
	}
	s.logger.Info("reconcile sweep finished",
		"members", result.Members,
		"voided", result.Voided,
		"failed", result.Failed,
		"duration", time.Since(started),
	)
}
