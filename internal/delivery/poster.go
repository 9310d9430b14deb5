package delivery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/metrics"
)

// Delivery is one completed search result bound for the downstream system.
type Delivery struct {
	FileID         string `json:"file_id"`
	SearchKeywords string `json:"search_keywords"`
	Response       any    `json:"imageToTextSearchResponse"`
}

// Policy bounds the delivery attempts. Delay returns the wait before attempt
// n+1 after attempt n (1-based) failed.
type Policy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
}

// FixedDelay waits d between every attempt.
func FixedDelay(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// DefaultPolicy makes three attempts two seconds apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: FixedDelay(2 * time.Second)}
}

// FailureFunc is called once a delivery exhausted its attempts. err wraps
// common.ErrDeliveryFailure.
type FailureFunc func(d Delivery, err error)

// Poster sends deliveries with retries.
type Poster struct {
	url       string
	client    *http.Client
	policy    Policy
	onFailure FailureFunc
	logger    *zap.SugaredLogger
}

func NewPoster(url string, client *http.Client, policy Policy, onFailure FailureFunc, logger *zap.SugaredLogger) *Poster {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.Delay == nil {
		policy.Delay = FixedDelay(0)
	}
	return &Poster{
		url:       url,
		client:    client,
		policy:    policy,
		onFailure: onFailure,
		logger:    common.OrNop(logger),
	}
}

// Post tries d up to MaxAttempts times. On final failure the failure
// callback runs and the same error is returned.
func (p *Poster) Post(ctx context.Context, d Delivery) error {
	var (
		lastErr  error
		attempts int
	)
retry:
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		attempts = attempt
		_, status, err := SendJSON(ctx, p.client, p.url, d, p.logger)
		if err == nil {
			metrics.Deliveries.WithLabelValues("ok").Inc()
			p.logger.Infow("result delivered", "file_id", d.FileID, "attempt", attempt, "status", status)
			return nil
		}
		lastErr = err
		p.logger.Warnw("delivery attempt failed",
			"file_id", d.FileID,
			"attempt", attempt,
			"max_attempts", p.policy.MaxAttempts,
			"status", status,
			"error", err,
		)
		if attempt == p.policy.MaxAttempts {
			break
		}
		select {
		case <-time.After(p.policy.Delay(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retry
		}
	}

	err := fmt.Errorf("%w: %s after %d attempts: %v", common.ErrDeliveryFailure, d.FileID, attempts, lastErr)
	metrics.Deliveries.WithLabelValues("failed").Inc()
	p.logger.Errorw("result delivery failed", "file_id", d.FileID, "error", lastErr)
	if p.onFailure != nil {
		p.onFailure(d, err)
	}
	return err
}
