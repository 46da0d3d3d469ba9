package cache

import (
	"context"
	"fmt"

	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the coordination backends. With Redis enabled both the
// idempotency store and the order locker are shared across instances;
// otherwise they are process-local.
type Factory struct {
	redisConfig           config.RedisConfig
	lockOptions           LockOptions
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory backends. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, lockOpts LockOptions, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		lockOptions:           lockOpts,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Connect dials Redis when it is enabled. A failed dial either falls back
// to in-memory backends or is returned, per WithInMemoryFallback.
func (f *Factory) Connect(ctx context.Context) error {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory idempotency store and order locks")
		return nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.client = client
		f.logger.Info("using Redis idempotency store and order locks", zap.String("addr", f.redisConfig.Addr()))
		return nil
	}

	if !f.allowInMemoryFallback {
		return fmt.Errorf("redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory backends. "+
		"Duplicate event processing and concurrent edits are possible across instances.",
		zap.Error(err),
	)
	return nil
}

// Distributed reports whether the backends are shared through Redis
func (f *Factory) Distributed() bool {
	return f.client != nil
}

// IdempotencyStore returns the idempotency store for event handlers
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client != nil {
		return NewRedisIdempotencyStore(f.client, "")
	}
	return NewInMemoryIdempotencyStore(0)
}

// OrderLocker returns the lock used to serialize order mutations
func (f *Factory) OrderLocker() Locker {
	if f.client != nil {
		return NewRedisOrderLocker(f.client, f.lockOptions, f.logger)
	}
	return NewInMemoryOrderLocker(f.lockOptions)
}

// Ping checks the Redis connection when one is in use
func (f *Factory) Ping(ctx context.Context) error {
	if f.client == nil {
		return nil
	}
	return f.client.Ping(ctx).Err()
}

// Close closes the Redis client when one is in use
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
