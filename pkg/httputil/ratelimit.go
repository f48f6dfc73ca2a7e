package httputil

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum delay between requests per key. Each
// external service gets its own key so Nominatim and Overpass delays
// are tracked independently. Safe for concurrent use; concurrent
// waiters each pay their own delay.
type RateLimiter struct {
	mu          sync.Mutex
	lastRequest map[string]time.Time
	minDelay    time.Duration
}

// NewRateLimiter creates a rate limiter with the given minimum delay
// between requests to the same key.
func NewRateLimiter(minDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		lastRequest: make(map[string]time.Time),
		minDelay:    minDelay,
	}
}

// Wait blocks until the minimum delay since the last request for key
// has elapsed, then records this request. Returns early with ctx.Err()
// if the context is cancelled while waiting.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	r.mu.Lock()
	var wait time.Duration
	if last, ok := r.lastRequest[key]; ok {
		if elapsed := time.Since(last); elapsed < r.minDelay {
			wait = r.minDelay - elapsed
		}
	}
	// Reserve the slot before sleeping so concurrent waiters queue up
	// rather than stampeding when the delay expires.
	r.lastRequest[key] = time.Now().Add(wait)
	r.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
