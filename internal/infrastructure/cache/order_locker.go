package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockPrefix   = "purchasing:lock:"
	lockPollInterval    = 25 * time.Millisecond
	defaultLockTimeout  = 5 * time.Second
	defaultLockLifetime = 30 * time.Second
)

// ErrLockTimeout is returned when a lock could not be acquired in time.
// It is a concurrency conflict so callers can retry the request.
var ErrLockTimeout = shared.NewDomainError(shared.CodeConcurrencyConflict, "Order is being modified by another request")

// Locker grants exclusive access to a key until the returned release runs
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LockOptions bounds how long Acquire waits and how long a lock lives
type LockOptions struct {
	// Timeout is the longest Acquire waits for a held lock
	Timeout time.Duration
	// TTL expires a Redis lock whose holder died without releasing it
	TTL time.Duration
}

func (o LockOptions) withDefaults() LockOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultLockTimeout
	}
	if o.TTL <= 0 {
		o.TTL = defaultLockLifetime
	}
	return o
}

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOrderLocker is a lease lock on Redis shared by every instance
type RedisOrderLocker struct {
	client *redis.Client
	prefix string
	opts   LockOptions
	logger *zap.Logger
}

// NewRedisOrderLocker creates a Redis-backed locker
func NewRedisOrderLocker(client *redis.Client, opts LockOptions, logger *zap.Logger) *RedisOrderLocker {
	return &RedisOrderLocker{
		client: client,
		prefix: defaultLockPrefix,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Acquire blocks until the lock is held, the timeout passes or ctx ends
func (l *RedisOrderLocker) Acquire(ctx context.Context, key string) (func(), error) {
	key = l.prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisOrderLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release regardless.
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

var (
	_ Locker = (*RedisOrderLocker)(nil)
	_ Locker = (*InMemoryOrderLocker)(nil)
)

// InMemoryOrderLocker serializes access per key within one process
type InMemoryOrderLocker struct {
	mu      sync.Mutex
	locks   map[string]*keyLock
	timeout time.Duration
}

type keyLock struct {
	ch      chan struct{} // buffered(1); holding the token means holding the lock
	waiters int
}

// NewInMemoryOrderLocker creates a process-local locker
func NewInMemoryOrderLocker(opts LockOptions) *InMemoryOrderLocker {
	return &InMemoryOrderLocker{
		locks:   make(map[string]*keyLock),
		timeout: opts.withDefaults().Timeout,
	}
}

// Acquire blocks until the lock is held, the timeout passes or ctx ends
func (l *InMemoryOrderLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case kl.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-kl.ch
				l.done(key, kl)
			})
		}, nil
	case <-timer.C:
		l.done(key, kl)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		l.done(key, kl)
		return nil, ctx.Err()
	}
}

// done drops the key once nobody holds or waits for it
func (l *InMemoryOrderLocker) done(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, key)
	}
}

// Held returns how many keys are currently held or awaited
func (l *InMemoryOrderLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
