package purchasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
)

// OrderFilter narrows a purchase order listing
type OrderFilter struct {
	shared.Filter
	Status     *Status
	SupplierID *uuid.UUID
	Search     string
}

// PurchaseOrderRepository persists purchase orders
type PurchaseOrderRepository interface {
	// FindByID loads an order with its items and history
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// Save inserts the order when expectedVersion is 0, otherwise updates it
	// only if the stored version still equals expectedVersion. On success the
	// order's Version is advanced and its pending events are written to the
	// outbox in the same transaction.
	Save(ctx context.Context, order *PurchaseOrder, expectedVersion int) error

	// List returns orders without their history
	List(ctx context.Context, filter OrderFilter) ([]*PurchaseOrder, int64, error)

	// CountByStatus returns the number of orders per status
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
