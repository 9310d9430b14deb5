package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolWorkers(t *testing.T) {
	p := NewPool(4)
	assert.Equal(t, 4, p.Size())
	assert.Equal(t, 2, p.Workers(2))
	assert.Equal(t, 4, p.Workers(16))
	assert.Equal(t, 4, p.Workers(0))

	assert.Positive(t, NewPool(0).Size())
}

func TestPoolRunVisitsEveryIndex(t *testing.T) {
	for _, size := range []int{1, 2, 16} {
		p := NewPool(size)
		seen := make([]int, 50)
		err := p.Run(context.Background(), len(seen), 0, func(_ context.Context, i int) error {
			seen[i]++
			return nil
		})
		require.NoError(t, err)
		for i, n := range seen {
			assert.Equal(t, 1, n, "index %d with pool size %d", i, size)
		}
	}
}

func TestPoolRunRespectsLimit(t *testing.T) {
	p := NewPool(8)
	var cur, peak atomic.Int32
	err := p.Run(context.Background(), 20, 3, func(_ context.Context, _ int) error {
		n := cur.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		cur.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPoolRunStopsSchedulingAfterError(t *testing.T) {
	p := NewPool(1)
	boom := errors.New("boom")

	var mu sync.Mutex
	var ran []int
	err := p.Run(context.Background(), 10, 0, func(_ context.Context, i int) error {
		mu.Lock()
		ran = append(ran, i)
		mu.Unlock()
		if i == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.NotContains(t, ran, 9)
	assert.Less(t, len(ran), 10)
}

func TestPoolRunParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := NewPool(2).Run(ctx, 5, 0, func(context.Context, int) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestPoolRunLetsRunningSiblingsFinish(t *testing.T) {
	p := NewPool(2)
	fatal := errors.New("document gone")

	var siblingErr atomic.Value
	finished := make(chan struct{})
	err := p.Run(context.Background(), 2, 0, func(ctx context.Context, i int) error {
		if i == 0 {
			time.Sleep(10 * time.Millisecond)
			return fatal
		}
		defer close(finished)
		time.Sleep(50 * time.Millisecond)
		siblingErr.Store(fmt.Sprint(ctx.Err()))
		return nil
	})
	require.ErrorIs(t, err, fatal)

	<-finished
	assert.Equal(t, "<nil>", siblingErr.Load())
}
