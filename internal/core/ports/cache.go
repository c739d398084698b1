package ports

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value cache used in front of slower stores.
// Errors are advisory: callers fall back to the primary store.
type Cache interface {
	// Get reports ok=false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value with ttl; ttl <= 0 keeps it until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
}
