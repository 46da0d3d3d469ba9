package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event deliveries already ran their side
// effect. Keys expire after the TTL given when they were marked.
type IdempotencyStore interface {
	// MarkProcessed claims key. It reports false when another delivery
	// already holds it.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release drops a claim after a failed attempt so a retry runs again.
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig controls the idempotent handler wrapper
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps keys for a day, longer than the outbox
// retry window.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
