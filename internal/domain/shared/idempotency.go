package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied request keys so that a retried
// submission (for example a payment) is not applied twice.
type IdempotencyStore interface {
	// MarkProcessed marks a key as seen for ttl.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether a key has been seen
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key so the request it guarded can be submitted again
	Release(ctx context.Context, key string) error

	// Close releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key blocks a repeated submission. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether the guard is active. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
