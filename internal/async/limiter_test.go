package async

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBlocksAtCapacity(t *testing.T) {
	l := NewLimiter(2)
	r1, err := l.Acquire(context.Background())
	require.NoError(t, err)
	r2, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, l.InUse())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	r1()
	r1() // double release is a no-op
	assert.Equal(t, 1, l.InUse())

	r3, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, l.InUse())
	r3()
	r2()
	assert.Zero(t, l.InUse())
}

func TestLimiterWaiterWakesOnRelease(t *testing.T) {
	l := NewLimiter(1)
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)

	got := make(chan struct{})
	go func() {
		r, err := l.Acquire(context.Background())
		if err == nil {
			r()
		}
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("acquired while slot was held")
	case <-time.After(20 * time.Millisecond):
	}
	release()

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestNewLimiterMinimumOneSlot(t *testing.T) {
	assert.Equal(t, 1, NewLimiter(0).Slots())
	assert.Equal(t, 3, NewLimiter(3).Slots())
}
