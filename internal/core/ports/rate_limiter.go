package ports

import (
	"context"
	"time"
)

// RateLimitRepository provides low-level atomic operations for rate limiting counters.
// Implementations MUST be concurrency-safe.
type RateLimitRepository interface {
	// IncrementWindow atomically increments the counter for key in the current fixed window
	// and ensures it expires after ttl. Returns the updated count and the window start.
	IncrementWindow(ctx context.Context, key string, window time.Duration, ttl time.Duration) (count int, windowStart time.Time, err error)
}

// RateLimiterService is a keyed fixed-window limiter.
type RateLimiterService interface {
	// Allow consumes one unit for key.
	// remaining: additional requests allowed in the current window (>=0)
	// reset: when the current window ends
	Allow(ctx context.Context, key string) (allowed bool, remaining int, limit int, reset time.Time, err error)
}
