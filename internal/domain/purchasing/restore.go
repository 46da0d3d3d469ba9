package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
)

// State is the persisted form of a purchase order
type State struct {
	ID              uuid.UUID
	OrderNumber     string
	Supplier        SupplierSnapshot
	Status          Status
	ExpectedDate    *time.Time
	PaymentTerms    string
	ShippingAddress string
	Notes           string
	CancelReason    string
	SentAt          *time.Time
	ConfirmedAt     *time.Time
	ReceivedAt      *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int
	Items           []OrderItem
	History         []HistoryEvent
}

// Snapshot captures the order's persisted state. Pending domain events are not included.
func (p *PurchaseOrder) Snapshot() State {
	return State{
		ID:              p.ID,
		OrderNumber:     p.OrderNumber,
		Supplier:        p.Supplier,
		Status:          p.Status,
		ExpectedDate:    copyTime(p.ExpectedDate),
		PaymentTerms:    p.PaymentTerms,
		ShippingAddress: p.ShippingAddress,
		Notes:           p.Notes,
		CancelReason:    p.CancelReason,
		SentAt:          copyTime(p.SentAt),
		ConfirmedAt:     copyTime(p.ConfirmedAt),
		ReceivedAt:      copyTime(p.ReceivedAt),
		CancelledAt:     copyTime(p.CancelledAt),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		Version:         p.Version,
		Items:           p.ledger.Items(),
		History:         p.history.Entries(),
	}
}

// Restore rebuilds an order from persisted state without raising events or history
func Restore(s State, opts ...Option) *PurchaseOrder {
	p := &PurchaseOrder{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        s.ID,
				CreatedAt: s.CreatedAt,
				UpdatedAt: s.UpdatedAt,
			},
			Version: s.Version,
		},
		OrderNumber:     s.OrderNumber,
		Supplier:        s.Supplier,
		Status:          s.Status,
		ExpectedDate:    copyTime(s.ExpectedDate),
		PaymentTerms:    s.PaymentTerms,
		ShippingAddress: s.ShippingAddress,
		Notes:           s.Notes,
		CancelReason:    s.CancelReason,
		SentAt:          copyTime(s.SentAt),
		ConfirmedAt:     copyTime(s.ConfirmedAt),
		ReceivedAt:      copyTime(s.ReceivedAt),
		CancelledAt:     copyTime(s.CancelledAt),
		ledger:          NewLedger(s.Items...),
		history:         NewHistory(s.History...),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clone returns an independent copy of the order's state
func (p *PurchaseOrder) Clone() *PurchaseOrder {
	c := Restore(p.Snapshot())
	c.clock = p.clock
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
