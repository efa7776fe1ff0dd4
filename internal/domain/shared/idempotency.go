package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys that have already been accepted so
// a retried document submission does not post its movements twice.
type IdempotencyStore interface {
	// MarkProcessed records key with a TTL.
	// Returns true if the key was newly recorded, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key is currently recorded.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets key, allowing the request to be submitted again.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long an accepted key blocks replays. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
