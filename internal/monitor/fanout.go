package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"odin/internal/check"

	"golang.org/x/sync/errgroup"
)

var errPanicked = errors.New("panicked")

// withTimeout runs fn with a deadline and returns as soon as either fn
// finishes or the deadline passes, even when fn ignores its context. A panic
// in fn is returned as an error.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %v", errPanicked, r)}
			}
		}()
		v, err := fn(tctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-tctx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, context.Cause(ctx)
		}
		return zero, fmt.Errorf("gave up after %s: %w", timeout, tctx.Err())
	}
}

// fanOut runs fn once per id with at most limit calls in flight and waits
// for all of them. fn owns its error handling; nothing is propagated.
func fanOut(ctx context.Context, limit int, ids []ContainerID, fn func(context.Context, ContainerID)) {
	check.Assertf(limit > 0, "fan-out limit must be positive, got %d", limit)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, id)
			return nil
		})
	}
	_ = g.Wait()
}
