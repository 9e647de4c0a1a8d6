package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestScheduler_NotStartedByNew(t *testing.T) {
	var calls atomic.Int32
	s := New(func(context.Context) error { calls.Add(1); return nil }, discardLogger())

	time.Sleep(30 * time.Millisecond)
	if s.Running() {
		t.Error("New() must not start the loop")
	}
	if calls.Load() != 0 {
		t.Errorf("task ran %d times before Start", calls.Load())
	}
}

func TestScheduler_StartStop(t *testing.T) {
	var calls atomic.Int32
	s := New(func(context.Context) error { calls.Add(1); return nil }, discardLogger())

	s.Start(context.Background(), 10*time.Millisecond)
	if !s.Running() {
		t.Fatal("Running() = false after Start")
	}
	if s.Interval() != 10*time.Millisecond {
		t.Errorf("Interval() = %v", s.Interval())
	}

	waitFor(t, func() bool { return calls.Load() >= 3 })

	s.Stop()
	if s.Running() {
		t.Error("Running() = true after Stop")
	}
	if s.Interval() != 0 {
		t.Errorf("Interval() = %v after Stop, want 0", s.Interval())
	}

	after := calls.Load()
	time.Sleep(40 * time.Millisecond)
	if calls.Load() != after {
		t.Error("task ran after Stop returned")
	}

	// Stop on a stopped scheduler is a no-op.
	s.Stop()
}

func TestScheduler_ErrorsDoNotStopLoop(t *testing.T) {
	var calls atomic.Int32
	s := New(func(context.Context) error {
		calls.Add(1)
		return errors.New("HTTP error! status: 503")
	}, discardLogger())

	s.Start(context.Background(), 5*time.Millisecond)
	defer s.Stop()

	waitFor(t, func() bool { return calls.Load() >= 3 })
}

func TestScheduler_RestartReplacesInterval(t *testing.T) {
	s := New(func(context.Context) error { return nil }, discardLogger())

	s.Start(context.Background(), time.Hour)
	s.Start(context.Background(), time.Minute)
	defer s.Stop()

	if s.Interval() != time.Minute {
		t.Errorf("Interval() = %v, want 1m", s.Interval())
	}
}

func TestScheduler_NonPositiveIntervalDisables(t *testing.T) {
	s := New(func(context.Context) error { return nil }, discardLogger())

	s.Start(context.Background(), time.Hour)
	s.Start(context.Background(), 0)
	if s.Running() {
		t.Error("interval 0 should leave the scheduler stopped")
	}
}

func TestScheduler_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	s := New(func(context.Context) error { calls.Add(1); return nil }, discardLogger())

	s.Start(ctx, 5*time.Millisecond)
	waitFor(t, func() bool { return calls.Load() >= 1 })
	cancel()

	// Stop still returns promptly once the loop exited on its own.
	s.Stop()
}
