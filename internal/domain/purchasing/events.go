package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
)

// AggregateTypePurchaseOrder is the aggregate type for purchase orders
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants for purchase orders
const (
	EventTypePurchaseOrderCreated   = "PurchaseOrderCreated"
	EventTypePurchaseOrderSent      = "PurchaseOrderSent"
	EventTypePurchaseOrderConfirmed = "PurchaseOrderConfirmed"
	EventTypeGoodsReceived          = "GoodsReceived"
	EventTypePurchaseOrderCompleted = "PurchaseOrderCompleted"
	EventTypePurchaseOrderCancelled = "PurchaseOrderCancelled"
)

// PurchaseOrderCreatedEvent is raised when an order is created
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string    `json:"order_number"`
	SupplierID  uuid.UUID `json:"supplier_id"`
}

// PurchaseOrderSentEvent is raised when an order is sent to its supplier
type PurchaseOrderSentEvent struct {
	shared.BaseDomainEvent
	OrderNumber  string           `json:"order_number"`
	Supplier     SupplierSnapshot `json:"supplier"`
	ExpectedDate *time.Time       `json:"expected_date,omitempty"`
	ItemCount    int              `json:"item_count"`
	TotalUnits   int              `json:"total_units"`
}

// PurchaseOrderConfirmedEvent is raised when the supplier confirms the order
type PurchaseOrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// ReceivedLine is one stock-increase instruction carried by GoodsReceivedEvent
type ReceivedLine struct {
	ItemID    uuid.UUID `json:"item_id"`
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Quantity  int       `json:"quantity"`
}

// GoodsReceivedEvent is raised for every non-empty receipt
type GoodsReceivedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string         `json:"order_number"`
	Lines       []ReceivedLine `json:"lines"`
	Complete    bool           `json:"complete"`
}

// PurchaseOrderCompletedEvent is raised when all goods have been received
type PurchaseOrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	TotalUnits  int    `json:"total_units"`
}

// PurchaseOrderCancelledEvent is raised when an order is cancelled
type PurchaseOrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNumber    string `json:"order_number"`
	PreviousStatus Status `json:"previous_status"`
	Reason         string `json:"reason"`
}

func (p *PurchaseOrder) base(eventType string, at time.Time) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypePurchaseOrder, p.ID, at)
}

func newGoodsReceivedEvent(p *PurchaseOrder, r *Receipt, at time.Time) *GoodsReceivedEvent {
	lines := make([]ReceivedLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ReceivedLine{ItemID: l.ItemID, ProductID: l.ProductID, SKU: l.SKU, Quantity: l.Quantity}
	}
	return &GoodsReceivedEvent{
		BaseDomainEvent: p.base(EventTypeGoodsReceived, at),
		OrderNumber:     p.OrderNumber,
		Lines:           lines,
		Complete:        r.IsComplete(),
	}
}

// EventPrototypes returns one zero value per event type for serializer registration
func EventPrototypes() map[string]shared.DomainEvent {
	return map[string]shared.DomainEvent{
		EventTypePurchaseOrderCreated:   &PurchaseOrderCreatedEvent{},
		EventTypePurchaseOrderSent:      &PurchaseOrderSentEvent{},
		EventTypePurchaseOrderConfirmed: &PurchaseOrderConfirmedEvent{},
		EventTypeGoodsReceived:          &GoodsReceivedEvent{},
		EventTypePurchaseOrderCompleted: &PurchaseOrderCompletedEvent{},
		EventTypePurchaseOrderCancelled: &PurchaseOrderCancelledEvent{},
	}
}
