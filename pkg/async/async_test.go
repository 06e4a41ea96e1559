package async

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agroline/fieldops/pkg/observability"
)

func TestBatchRunsEveryItem(t *testing.T) {
	var count int64
	errs := Batch(context.Background(), []int{1, 2, 3, 4, 5}, 3, func(ctx context.Context, n int) error {
		atomic.AddInt64(&count, int64(n))
		return nil
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if count != 15 {
		t.Fatalf("count = %d, want 15", count)
	}
}

func TestBatchCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	errs := Batch(context.Background(), []int{1, 2, 3, 4}, 2, func(ctx context.Context, n int) error {
		if n%2 == 0 {
			return fmt.Errorf("item %d: %w", n, boom)
		}
		return nil
	})
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestBatchRecoversPanics(t *testing.T) {
	errs := Batch(context.Background(), []string{"ok", "panic"}, 2, func(ctx context.Context, s string) error {
		if s == "panic" {
			panic("worker exploded")
		}
		return nil
	})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
}

func TestBatchBoundsConcurrency(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex
	Batch(context.Background(), make([]int, 20), 3, func(ctx context.Context, _ int) error {
		cur := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if cur > peak {
			peak = cur
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil
	})
	if peak > 3 {
		t.Fatalf("peak concurrency %d exceeds worker bound 3", peak)
	}
}

func TestBatchStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var count int64
	errs := Batch(ctx, []int{1, 2, 3}, 2, func(ctx context.Context, _ int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	if count != 0 {
		t.Fatalf("ran %d items after cancellation", count)
	}
	if len(errs) != 1 || !errors.Is(errs[0], context.Canceled) {
		t.Fatalf("errs = %v, want a single context.Canceled", errs)
	}
}

func TestSafeGoRecoversPanic(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, os.Stderr)
	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, "panicky", logger, func(ctx context.Context) error {
		defer close(done)
		panic("should not crash the test")
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	// Give the deferred recovery a moment to run.
	time.Sleep(10 * time.Millisecond)
}

func TestSafeGoAppliesTimeout(t *testing.T) {
	sawDeadline := make(chan bool, 1)
	SafeGo(context.Background(), 10*time.Millisecond, "slow", nil, func(ctx context.Context) error {
		<-ctx.Done()
		sawDeadline <- errors.Is(ctx.Err(), context.DeadlineExceeded)
		return nil
	})
	select {
	case ok := <-sawDeadline:
		if !ok {
			t.Fatal("context ended without a deadline")
		}
	case <-time.After(time.Second):
		t.Fatal("task context never expired")
	}
}
