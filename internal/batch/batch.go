// Package batch runs a slice of items through a worker function in
// fixed-size concurrent groups, pausing between groups. External APIs
// (search, page fetch) throttle bursts, so the pipeline feeds them a
// bounded number of in-flight requests at a time.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config controls how a batch run is paced.
type Config struct {
	// Concurrency is the number of items processed at once. Values < 1
	// fall back to 1.
	Concurrency int
	// Delay is the pause inserted between successive groups. Zero means
	// no pause.
	Delay time.Duration
}

func (c Config) normalized() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	return c
}

// Run calls fn once per item, Concurrency items at a time, sleeping Delay
// between groups. Item errors are collected, not fatal: the returned slice
// has one entry per item, nil on success. Run itself only returns an error
// when ctx is cancelled, in which case entries for unprocessed items are
// left nil.
func Run[T any](ctx context.Context, cfg Config, items []T, fn func(ctx context.Context, idx int, item T) error) ([]error, error) {
	cfg = cfg.normalized()
	errs := make([]error, len(items))

	for start := 0; start < len(items); start += cfg.Concurrency {
		if err := ctx.Err(); err != nil {
			return errs, err
		}

		end := min(start+cfg.Concurrency, len(items))
		g, gCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				errs[i] = fn(gCtx, i, items[i])
				return nil
			})
		}
		// Workers always return nil; per-item failures live in errs.
		_ = g.Wait()

		if end < len(items) && cfg.Delay > 0 {
			timer := time.NewTimer(cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errs, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return errs, nil
}

// Failed counts the non-nil entries in a Run result.
func Failed(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
