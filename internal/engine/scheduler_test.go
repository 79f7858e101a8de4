package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pointstrade/internal/util"
)

func TestSchedulerFiresAfterDelay(t *testing.T) {
	s := NewStageScheduler(5*time.Millisecond, 1, util.NewLogger("error"))
	defer s.Close()

	var fired atomic.Int32
	s.Schedule("bk-1", func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})

	waitFor(t, func() bool { return fired.Load() == 1 }, "task never fired")
}

func TestSchedulerRetriesUntilSuccess(t *testing.T) {
	s := NewStageScheduler(time.Millisecond, 5, util.NewLogger("error"))
	defer s.Close()

	var calls atomic.Int32
	s.Schedule("bk-1", func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if calls.Load() == 3 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task never recovered")
}

func TestSchedulerCloseCancelsPending(t *testing.T) {
	s := NewStageScheduler(time.Hour, 1, util.NewLogger("error"))

	var fired atomic.Int32
	s.Schedule("bk-1", func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	if fired.Load() != 0 {
		t.Errorf("cancelled task fired %d times, want 0", fired.Load())
	}
}
