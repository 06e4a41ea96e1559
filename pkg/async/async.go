// Package async provides small concurrency helpers for background work:
// fire-and-forget goroutines with panic recovery, and bounded fan-out over a
// slice of items. Callers that need streaming pipelines should build their
// own; these helpers cover the run-to-completion cases in this codebase
// (cache writes off the request path, rollup refreshes).
package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/agroline/fieldops/pkg/observability"
)

// SafeGo runs fn on its own goroutine with a deadline and panic recovery.
// Use it instead of a bare `go func()` for best-effort side work where a
// panic or a slow dependency must never take the caller down. Errors and
// panics are logged, not returned.
func SafeGo(parent context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	go func() {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				}).Error("background task panicked")
			}
		}()
		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// Batch runs fn for every item with at most workers goroutines in flight and
// returns every error encountered, in no particular order. A panicking item
// is reported as an error rather than crashing the batch. Batch returns only
// after every started item has finished; ctx cancellation stops new items
// from starting.
func Batch[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) []error {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			record(err)
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					record(fmt.Errorf("panic: %v", r))
				}
			}()
			if err := fn(ctx, item); err != nil {
				record(err)
			}
		}(item)
	}
	wg.Wait()
	return errs
}
