package batch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunksPerWorker splits the index range finer than the worker count so a
// slow chunk does not leave the other workers idle.
const chunksPerWorker = 4

// ForEach calls fn once for every index in [0, n) using at most workers
// goroutines. Each index is handled exactly once, so fn may write to slot i
// of a pre-sized buffer without locking. Cancellation is checked between
// chunks; an fn call already running completes.
func ForEach(ctx context.Context, workers, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	chunk := (n + workers*chunksPerWorker - 1) / (workers * chunksPerWorker)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		if gctx.Err() != nil {
			break
		}
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				fn(i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Map is ForEach collecting fn's results into a slice ordered by index.
func Map[T any](ctx context.Context, workers, n int, fn func(i int) T) ([]T, error) {
	out := make([]T, n)
	if err := ForEach(ctx, workers, n, func(i int) {
		out[i] = fn(i)
	}); err != nil {
		return nil, err
	}
	return out, nil
}
