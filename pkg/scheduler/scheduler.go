// Package scheduler owns the auto-refresh timer.
//
// Start and Stop are explicit lifecycle calls; constructing a Scheduler
// never starts anything. The task runs on a single goroutine, so ticks of
// one Scheduler never overlap each other. Other callers (manual refresh)
// may still run the same task concurrently.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of scheduled work. A returned error is logged and the
// loop keeps going.
type Task func(ctx context.Context) error

// Scheduler runs a Task at a fixed interval.
type Scheduler struct {
	task   Task
	logger *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a stopped scheduler for task.
func New(task Task, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{task: task, logger: logger}
}

// Start (re)starts the loop with interval. A running loop is stopped first.
// A non-positive interval leaves the scheduler stopped.
// The first run happens one interval after Start.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	if interval <= 0 {
		s.logger.Info("auto refresh disabled")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.interval = interval
	s.cancel = cancel
	s.done = done

	go s.run(loopCtx, interval, done)
}

// Stop halts the loop and waits for an in-flight task to return.
// It is safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.interval = 0
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Interval returns the active interval, 0 when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	s.logger.Info("starting refresh loop", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh loop stopped")
			return
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("refresh tick failed", "error", err)
			}
		}
	}
}
