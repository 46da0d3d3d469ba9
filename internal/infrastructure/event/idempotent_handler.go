package event

import (
	"context"
	"sync/atomic"

	"github.com/opsdash/purchasing/internal/domain/shared"
	"go.uber.org/zap"
)

// HandlerStats counts what an IdempotentHandler did with its deliveries
type HandlerStats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// IdempotentHandler runs the wrapped handler at most once per event. Keys
// are scoped by the handler name, so two handlers of one event type each
// see every event. A failed run releases its key so the outbox retry can
// run the handler again.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides shared.DefaultIdempotencyConfig
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// NewIdempotentHandler wraps handler under name
func NewIdempotentHandler(
	name string,
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger.With(zap.String("handler", name)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name is the scope of this handler's idempotency keys
func (h *IdempotentHandler) Name() string {
	return h.name
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle claims the event key and runs the wrapped handler. When the store
// is unreachable the event is handled anyway: a duplicate side effect is
// preferred over a lost one.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.run(ctx, event, "")
	}

	key := h.name + ":" + event.EventID().String()
	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("idempotency store unavailable, handling event anyway",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		key = ""
	case !fresh:
		h.duplicates.Add(1)
		h.logger.Debug("skipping duplicate delivery",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}
	return h.run(ctx, event, key)
}

// run invokes the wrapped handler and releases key on failure
func (h *IdempotentHandler) run(ctx context.Context, event shared.DomainEvent, key string) error {
	err := h.handler.Handle(ctx, event)
	if err == nil {
		h.processed.Add(1)
		return nil
	}

	h.failed.Add(1)
	h.logger.Error("event handler failed",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.Error(err),
	)
	if key != "" {
		if relErr := h.store.Release(ctx, key); relErr != nil {
			h.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
	}
	return err
}

// Stats returns a snapshot of the delivery counters
func (h *IdempotentHandler) Stats() HandlerStats {
	return HandlerStats{
		Processed:  h.processed.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
