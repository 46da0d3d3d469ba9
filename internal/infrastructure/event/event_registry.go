package event

import (
	"github.com/opsdash/purchasing/internal/domain/purchasing"
)

// RegisterAllEvents registers every domain event type with the serializer.
// The outbox processor needs them to rebuild events from stored payloads.
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.RegisterAll(purchasing.EventPrototypes())
}
