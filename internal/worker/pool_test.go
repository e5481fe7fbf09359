package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsJobs(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Start()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		err := pool.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	pool.Stop(time.Second)
	if got := ran.Load(); got != 5 {
		t.Errorf("ran %d jobs, want 5", got)
	}
}

func TestPoolQueueFull(t *testing.T) {
	pool := NewPool(1, 1)
	// Not started: queued jobs stay queued, so the second submit must
	// hit the capacity limit.
	if err := pool.Submit(func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if err := pool.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	pool.Start()
	pool.Stop(time.Second)
}

func TestPoolSurvivesPanicsAndErrors(t *testing.T) {
	pool := NewPool(1, 10)
	pool.Start()

	var ran atomic.Int32
	pool.Submit(func(ctx context.Context) error { panic("boom") })
	pool.Submit(func(ctx context.Context) error { return errors.New("job error") })
	pool.Submit(func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	pool.Stop(time.Second)
	if ran.Load() != 1 {
		t.Error("pool must keep running after a panicking or failing job")
	}
}

func TestPoolStopDrainsQueue(t *testing.T) {
	pool := NewPool(1, 10)
	pool.Start()

	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		pool.Submit(func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
			return nil
		})
	}

	pool.Stop(2 * time.Second)
	if got := ran.Load(); got != 8 {
		t.Errorf("queued jobs not drained on stop: ran %d, want 8", got)
	}
}
