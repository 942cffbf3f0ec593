package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/room-reservation/internal/application"
)

type sweeperStub struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (s *sweeperStub) ReconcileAll(ctx context.Context) (application.SweepResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	return application.SweepResult{Members: 2, Voided: 1}, s.err
}

func (s *sweeperStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	t.Run("off and empty disable the sweep", func(t *testing.T) {
		t.Parallel()
		for _, spec := range []string{"", "off", " OFF "} {
			s, err := NewScheduler(spec, &sweeperStub{}, nil, 0, nil)
			if err != nil || s != nil {
				t.Fatalf("expected disabled scheduler for %q, got %v %v", spec, s, err)
			}
		}
	})

	t.Run("rejects invalid specs", func(t *testing.T) {
		t.Parallel()
		if _, err := NewScheduler("every minute", &sweeperStub{}, nil, 0, nil); err == nil {
			t.Fatalf("expected invalid schedule error")
		}
		if _, err := NewScheduler("*/5 * * * *", nil, nil, 0, nil); err == nil {
			t.Fatalf("expected missing sweeper error")
		}
	})

	t.Run("reports next run", func(t *testing.T) {
		t.Parallel()
		s, err := NewScheduler("*/15 * * * *", &sweeperStub{}, time.UTC, time.Minute, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		next := s.Next()
		if next.IsZero() || next.Minute()%15 != 0 {
			t.Fatalf("expected quarter-hour next run, got %v", next)
		}
		s.Start()
		s.Stop(context.Background())
	})
}

func TestSchedulerRunOnce(t *testing.T) {
	t.Parallel()

	t.Run("failures do not panic", func(t *testing.T) {
		t.Parallel()
		stub := &sweeperStub{err: errors.New("boom")}
		s, err := NewScheduler("@hourly", stub, nil, time.Second, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.runOnce()
		if stub.count() != 1 {
			t.Fatalf("expected one sweep, got %d", stub.count())
		}
	})

	t.Run("overlapping runs are skipped", func(t *testing.T) {
		t.Parallel()
		stub := &sweeperStub{block: make(chan struct{}), started: make(chan struct{}, 1)}
		s, err := NewScheduler("@hourly", stub, nil, 0, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		done := make(chan struct{})
		go func() {
			s.runOnce()
			close(done)
		}()
		<-stub.started

		s.runOnce()
		close(stub.block)
		<-done

		if stub.count() != 1 {
			t.Fatalf("expected overlapping run to be skipped, got %d calls", stub.count())
		}
	})
}
