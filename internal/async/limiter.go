package async

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many live jobs run at once across the process.
type Limiter struct {
	sem   *semaphore.Weighted
	slots int64
	inUse atomic.Int64
}

// NewLimiter returns a limiter with the given number of slots (minimum 1).
func NewLimiter(slots int) *Limiter {
	if slots <= 0 {
		slots = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(slots)), slots: int64(slots)}
}

// Acquire blocks until a slot frees or ctx is done. The returned release
// func must be called exactly once; extra calls are ignored.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	l.inUse.Add(1)

	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			l.inUse.Add(-1)
			l.sem.Release(1)
		}
	}, nil
}

// InUse is the number of slots currently held.
func (l *Limiter) InUse() int { return int(l.inUse.Load()) }

func (l *Limiter) Slots() int { return int(l.slots) }
