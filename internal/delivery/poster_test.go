package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

func failingThen(okAfter int32) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= okAfter {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	return srv, &calls
}

func TestPosterRetriesUntilSuccess(t *testing.T) {
	srv, calls := failingThen(2)
	defer srv.Close()

	var failed bool
	p := NewPoster(srv.URL, srv.Client(), Policy{MaxAttempts: 3, Delay: FixedDelay(time.Millisecond)},
		func(Delivery, error) { failed = true }, nil)

	require.NoError(t, p.Post(context.Background(), Delivery{FileID: "a.pdf"}))
	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, failed)
}

func TestPosterGivesUpAndCallsBack(t *testing.T) {
	srv, calls := failingThen(100)
	defer srv.Close()

	var (
		gotDelivery Delivery
		gotErr      error
	)
	p := NewPoster(srv.URL, srv.Client(), Policy{MaxAttempts: 3, Delay: FixedDelay(time.Millisecond)},
		func(d Delivery, err error) { gotDelivery, gotErr = d, err }, nil)

	err := p.Post(context.Background(), Delivery{FileID: "b.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDeliveryFailure)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "b.pdf", gotDelivery.FileID)
	assert.ErrorIs(t, gotErr, common.ErrDeliveryFailure)
}

func TestPosterUsesDelayPerAttempt(t *testing.T) {
	srv, _ := failingThen(100)
	defer srv.Close()

	var seen []int
	delay := func(attempt int) time.Duration {
		seen = append(seen, attempt)
		return 0
	}
	p := NewPoster(srv.URL, srv.Client(), Policy{MaxAttempts: 4, Delay: delay}, nil, nil)
	require.Error(t, p.Post(context.Background(), Delivery{FileID: "c.pdf"}))
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestPosterStopsOnCancel(t *testing.T) {
	srv, calls := failingThen(100)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoster(srv.URL, srv.Client(), Policy{MaxAttempts: 5, Delay: func(int) time.Duration {
		cancel()
		return time.Hour
	}}, nil, nil)

	err := p.Post(ctx, Delivery{FileID: "d.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDeliveryFailure)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPosterPayload(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPoster(srv.URL, srv.Client(), DefaultPolicy(), nil, nil)
	require.NoError(t, p.Post(context.Background(), Delivery{
		FileID:         "e.pdf",
		SearchKeywords: "CLAIM|VIN",
		Response:       []map[string]any{{"pageNO": 1}},
	}))
	assert.Equal(t, "e.pdf", body["file_id"])
	assert.Equal(t, "CLAIM|VIN", body["search_keywords"])
	assert.Len(t, body["imageToTextSearchResponse"], 1)
}

type blockingSender struct {
	release chan struct{}
	mu      sync.Mutex
	posted  []string
}

func (b *blockingSender) Post(_ context.Context, d Delivery) error {
	<-b.release
	b.mu.Lock()
	b.posted = append(b.posted, d.FileID)
	b.mu.Unlock()
	return nil
}

func TestDispatcherNeverBlocks(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	var dropped atomic.Int32
	d := NewDispatcher(sender, nil, WithWorkers(1), WithQueueSize(1),
		WithDropHandler(func(_ Delivery, err error) {
			if errors.Is(err, common.ErrDeliveryFailure) {
				dropped.Add(1)
			}
		}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		// one in flight, one queued, the rest dropped
		for i := 0; i < 5; i++ {
			d.Enqueue(Delivery{FileID: "f.pdf"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked")
	}
	assert.GreaterOrEqual(t, dropped.Load(), int32(3))

	close(sender.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Shutdown(ctx)

	assert.False(t, d.Enqueue(Delivery{FileID: "late.pdf"}))
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.NotEmpty(t, sender.posted)
	assert.LessOrEqual(t, len(sender.posted), 2)
}

func TestDropHandlerMayEnqueue(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	close(sender.release)
	var d *Dispatcher
	var fallbacks atomic.Int32
	d = NewDispatcher(sender, nil, WithWorkers(1), WithDropHandler(func(job Delivery, _ error) {
		if job.FileID != "fallback.pdf" {
			fallbacks.Add(1)
			d.Enqueue(Delivery{FileID: "fallback.pdf"})
		}
	}))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Shutdown(ctx)

	done := make(chan bool)
	go func() { done <- d.Enqueue(Delivery{FileID: "late.pdf"}) }()
	select {
	case queued := <-done:
		assert.False(t, queued)
	case <-time.After(time.Second):
		t.Fatal("Enqueue deadlocked inside the drop handler")
	}
	assert.Equal(t, int32(1), fallbacks.Load())
}
