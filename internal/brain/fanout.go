package brain

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// fanOut runs task for indices [0, n) with at most limit in flight and returns
// once all have finished. Results are index-addressed, so no task sees another's
// output. A panicking task is logged and replaced by recoverWith(i).
func fanOut[T any](ctx context.Context, n, limit int, task func(ctx context.Context, i int) T, recoverWith func(i int) T) []T {
	results := make([]T, n)
	if n == 0 {
		return results
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "fan-out task panicked, using fallback",
						"index", idx,
						"panic", r,
						"stack", string(debug.Stack()))
					results[idx] = recoverWith(idx)
				}
			}()

			results[idx] = task(ctx, idx)
		}(i)
	}

	wg.Wait()
	return results
}
