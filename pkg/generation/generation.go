// Package generation defines the text-generation boundary used to
// answer grounded prompts.
package generation

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrUpstreamUnavailable is returned once a generator has exhausted its
// own retry policy against the upstream API.
var ErrUpstreamUnavailable = errors.New("generation upstream unavailable")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RateLimiter spaces calls to a generation API. It combines a token
// bucket with a retry-at timestamp recorded from 429 responses, and is
// owned by the generator client rather than shared process-wide.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter enforcing a minimum interval between
// calls.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		now:     time.Now,
	}
}

// Wait blocks until a call may be made, honoring both the minimum
// interval and any backoff recorded from a rate-limit response.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError pushes the next permitted call out by the given
// backoff, typically taken from a 429 response.
func (r *RateLimiter) RecordRateLimitError(backoff time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	retryAt := r.now().Add(backoff)
	if retryAt.After(r.retryAt) {
		r.retryAt = retryAt
	}
}
