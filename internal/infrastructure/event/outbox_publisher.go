package event

import (
	"context"
	"fmt"

	"github.com/opsdash/purchasing/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher serializes domain events into outbox rows. It never talks
// to the bus; the OutboxProcessor relays the rows after commit.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// NewOutboxPublisher returns a publisher whose rows are retried up to
// maxRetries times before they become dead letters.
func NewOutboxPublisher(serializer *EventSerializer, maxRetries int) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer, maxRetries: maxRetries}
}

// SaveEvents writes events through txProvider, which must be the *gorm.DB
// transaction the repository is saving the aggregate in.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox: expected *gorm.DB transaction, got %T", txProvider)
	}

	entries, err := p.entries(events)
	if err != nil {
		return err
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

func (p *OutboxPublisher) entries(events []shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	out := make([]*shared.OutboxEntry, len(events))
	for i, ev := range events {
		payload, err := p.serializer.Serialize(ev)
		if err != nil {
			return nil, fmt.Errorf("outbox: %s: %w", ev.EventType(), err)
		}
		out[i] = shared.NewOutboxEntry(ev, payload, p.maxRetries)
	}
	return out, nil
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
