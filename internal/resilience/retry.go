// Package resilience provides the command retry policy used by tier adapters.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/southerncoder/tradecache/internal/types"
)

// Retry implements exponential backoff with jitter for tier I/O commands.
// The cache orchestrator never retries; only adapters hold one of these.
type Retry struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	totalRetries atomic.Int64
}

// NewRetry builds a retry policy from the tier's maxRetries/retryDelay knobs.
// maxRetries counts attempts after the first; zero disables retrying.
func NewRetry(maxRetries int, retryDelay time.Duration) *Retry {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}
	return &Retry{
		maxAttempts:    maxRetries + 1,
		initialBackoff: retryDelay,
		maxBackoff:     2 * time.Second,
	}
}

// Do runs fn, retrying retryable failures with backoff until the attempt
// budget or the context runs out.
func (r *Retry) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == r.maxAttempts {
			break
		}

		r.totalRetries.Add(1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}

	return lastErr
}

// TotalRetries reports how many retry sleeps have occurred.
func (r *Retry) TotalRetries() int64 {
	return r.totalRetries.Load()
}

func (r *Retry) backoff(attempt int) time.Duration {
	d := float64(r.initialBackoff) * math.Pow(2, float64(attempt-1))
	if d > float64(r.maxBackoff) {
		d = float64(r.maxBackoff)
	}

	// ±25% jitter
	spread := d * 0.25
	d += (rand.Float64() * 2 * spread) - spread

	return time.Duration(d)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// A clean miss or a deliberately disabled tier never warrants a retry.
	if types.IsCacheMiss(err) || errors.Is(err, types.ErrTierDisabled) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
