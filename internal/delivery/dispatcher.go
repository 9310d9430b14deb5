package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/metrics"
)

// Sender delivers one result; *Poster is the production implementation.
type Sender interface {
	Post(ctx context.Context, d Delivery) error
}

// Dispatcher posts deliveries on background workers so callers never wait
// on the downstream system.
type Dispatcher struct {
	sender  Sender
	logger  *zap.SugaredLogger
	workers int
	timeout time.Duration
	onDrop  FailureFunc

	ch   chan Delivery
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Dispatcher)

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.ch = make(chan Delivery, n)
		}
	}
}

// WithPostTimeout bounds one Post call including its retries.
func WithPostTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithDropHandler is told about deliveries rejected by a full or closed queue.
func WithDropHandler(fn FailureFunc) Option {
	return func(d *Dispatcher) { d.onDrop = fn }
}

func NewDispatcher(sender Sender, logger *zap.SugaredLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		logger:  common.OrNop(logger),
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Delivery, 64),
	}
	for _, o := range opts {
		o(d)
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go func(workerID int) {
				defer d.wg.Done()
				d.logger.Debugw("delivery worker started", "worker_id", workerID)

				for job := range d.ch {
					ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
					// failures are reported through the sender's callback
					_ = d.sender.Post(ctx, job)
					cancel()
				}

				d.logger.Debugw("delivery worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue hands job to the workers without blocking. It reports false when
// the queue is full or shutting down; the drop handler is then invoked
// without any dispatcher lock held, so it may call Enqueue itself.
func (d *Dispatcher) Enqueue(job Delivery) bool {
	if reason := d.offer(job); reason != "" {
		d.drop(job, reason)
		return false
	}
	d.logger.Debugw("delivery queued", "file_id", job.FileID)
	return true
}

// offer returns why job was not queued, or "" once it is.
func (d *Dispatcher) offer(job Delivery) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "dispatcher is shutting down"
	}
	select {
	case d.ch <- job:
		return ""
	default:
		return "delivery queue full"
	}
}

func (d *Dispatcher) drop(job Delivery, reason string) {
	metrics.Deliveries.WithLabelValues("dropped").Inc()
	d.logger.Warnw("delivery dropped", "file_id", job.FileID, "reason", reason)
	if d.onDrop != nil {
		d.onDrop(job, fmt.Errorf("%w: %s", common.ErrDeliveryFailure, reason))
	}
}

// Shutdown stops accepting work and waits for queued deliveries or ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.ch)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); d.wg.Wait() }()

	select {
	case <-ctx.Done():
		d.logger.Warnw("delivery shutdown interrupted by context")
	case <-done:
		d.logger.Infow("delivery queue drained, shutdown complete")
	}
}
