package async

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool is an explicit worker budget handed to the components that fan out
// work. It holds no goroutines of its own; each Run call starts at most
// Size() of them.
type Pool struct {
	size int
}

// NewPool returns a pool of the given size. A non-positive size uses the
// number of available CPUs.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{size: size}
}

func (p *Pool) Size() int { return p.size }

// Workers returns min(Size(), limit). A non-positive limit means no extra cap.
func (p *Pool) Workers(limit int) int {
	if limit > 0 && limit < p.size {
		return limit
	}
	return p.size
}

// Run calls task for every index in [0, n) with at most Workers(limit) tasks
// in flight. The first task error stops scheduling of the remaining indexes;
// tasks already running keep the parent ctx and are left to finish. Run
// returns that error, or the parent context's error if it was cancelled.
func (p *Pool) Run(ctx context.Context, n, limit int, task func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers(limit))

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		idx := i
		g.Go(func() error {
			// queued behind the limit while a sibling failed
			if gctx.Err() != nil {
				return nil
			}
			return task(ctx, idx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
