package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root
type PurchaseOrderModel struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Version         int                         `gorm:"not null;default:1"`
	CreatedAt       time.Time                   `gorm:"not null;index"`
	UpdatedAt       time.Time                   `gorm:"not null"`
	OrderNumber     string                      `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierID      uuid.UUID                   `gorm:"type:uuid;not null;index"`
	SupplierName    string                      `gorm:"type:varchar(200);not null;default:''"`
	SupplierEmail   string                      `gorm:"type:varchar(200);not null;default:''"`
	SupplierPhone   string                      `gorm:"type:varchar(50);not null;default:''"`
	SupplierAddress string                      `gorm:"type:varchar(500);not null;default:''"`
	Status          purchasing.Status           `gorm:"type:varchar(20);not null;default:'draft';index"`
	ExpectedDate    *time.Time                  `gorm:"index"`
	PaymentTerms    string                      `gorm:"type:varchar(200);not null;default:''"`
	ShippingAddress string                      `gorm:"type:varchar(500);not null;default:''"`
	Notes           string                      `gorm:"type:text"`
	CancelReason    string                      `gorm:"type:varchar(500)"`
	SentAt          *time.Time
	ConfirmedAt     *time.Time
	ReceivedAt      *time.Time
	CancelledAt     *time.Time
	Items           []PurchaseOrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
	History         []PurchaseOrderHistoryModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder.
// Items and history are taken from whatever associations were preloaded.
func (m *PurchaseOrderModel) ToDomain(opts ...purchasing.Option) *purchasing.PurchaseOrder {
	state := purchasing.State{
		ID:          m.ID,
		OrderNumber: m.OrderNumber,
		Supplier: purchasing.SupplierSnapshot{
			ID:      m.SupplierID,
			Name:    m.SupplierName,
			Email:   m.SupplierEmail,
			Phone:   m.SupplierPhone,
			Address: m.SupplierAddress,
		},
		Status:          m.Status,
		ExpectedDate:    m.ExpectedDate,
		PaymentTerms:    m.PaymentTerms,
		ShippingAddress: m.ShippingAddress,
		Notes:           m.Notes,
		CancelReason:    m.CancelReason,
		SentAt:          m.SentAt,
		ConfirmedAt:     m.ConfirmedAt,
		ReceivedAt:      m.ReceivedAt,
		CancelledAt:     m.CancelledAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Version:         m.Version,
		Items:           make([]purchasing.OrderItem, len(m.Items)),
		History:         make([]purchasing.HistoryEvent, len(m.History)),
	}
	for i := range m.Items {
		state.Items[i] = m.Items[i].ToDomain()
	}
	for i := range m.History {
		state.History[i] = m.History[i].ToDomain()
	}
	return purchasing.Restore(state, opts...)
}

// FromDomain populates the order row from a domain PurchaseOrder. Items and
// history are left empty; the repository writes them separately.
func (m *PurchaseOrderModel) FromDomain(o *purchasing.PurchaseOrder) {
	m.ID = o.ID
	m.Version = o.Version
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
	m.OrderNumber = o.OrderNumber
	m.SupplierID = o.Supplier.ID
	m.SupplierName = o.Supplier.Name
	m.SupplierEmail = o.Supplier.Email
	m.SupplierPhone = o.Supplier.Phone
	m.SupplierAddress = o.Supplier.Address
	m.Status = o.Status
	m.ExpectedDate = o.ExpectedDate
	m.PaymentTerms = o.PaymentTerms
	m.ShippingAddress = o.ShippingAddress
	m.Notes = o.Notes
	m.CancelReason = o.CancelReason
	m.SentAt = o.SentAt
	m.ConfirmedAt = o.ConfirmedAt
	m.ReceivedAt = o.ReceivedAt
	m.CancelledAt = o.CancelledAt
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder
func PurchaseOrderModelFromDomain(o *purchasing.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// UpdateColumns returns the mutable header columns written on update
func (m *PurchaseOrderModel) UpdateColumns() map[string]any {
	return map[string]any{
		"status":           m.Status,
		"expected_date":    m.ExpectedDate,
		"payment_terms":    m.PaymentTerms,
		"shipping_address": m.ShippingAddress,
		"notes":            m.Notes,
		"cancel_reason":    m.CancelReason,
		"sent_at":          m.SentAt,
		"confirmed_at":     m.ConfirmedAt,
		"received_at":      m.ReceivedAt,
		"cancelled_at":     m.CancelledAt,
		"updated_at":       m.UpdatedAt,
		"version":          m.Version,
	}
}

// PurchaseOrderItemModel is the persistence model for one order line
type PurchaseOrderItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName      string          `gorm:"type:varchar(200);not null;default:''"`
	SKU              string          `gorm:"column:sku;type:varchar(100);not null;default:''"`
	Quantity         int             `gorm:"not null"`
	ReceivedQuantity int             `gorm:"not null;default:0"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountPercent  decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	Position         int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *PurchaseOrderItemModel) ToDomain() purchasing.OrderItem {
	return purchasing.OrderItem{
		ID:               m.ID,
		ProductID:        m.ProductID,
		ProductName:      m.ProductName,
		SKU:              m.SKU,
		Quantity:         m.Quantity,
		ReceivedQuantity: m.ReceivedQuantity,
		UnitPrice:        m.UnitPrice,
		DiscountPercent:  m.DiscountPercent,
		Position:         m.Position,
	}
}

// PurchaseOrderItemModelFromDomain creates a new persistence model from a domain OrderItem
func PurchaseOrderItemModelFromDomain(orderID uuid.UUID, i purchasing.OrderItem) *PurchaseOrderItemModel {
	return &PurchaseOrderItemModel{
		ID:               i.ID,
		OrderID:          orderID,
		ProductID:        i.ProductID,
		ProductName:      i.ProductName,
		SKU:              i.SKU,
		Quantity:         i.Quantity,
		ReceivedQuantity: i.ReceivedQuantity,
		UnitPrice:        i.UnitPrice,
		DiscountPercent:  i.DiscountPercent,
		Position:         i.Position,
	}
}

// PurchaseOrderHistoryModel is the persistence model for one audit entry.
// Rows are inserted once and never updated.
type PurchaseOrderHistoryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_po_history_order_seq,priority:1"`
	Sequence  int       `gorm:"not null;uniqueIndex:idx_po_history_order_seq,priority:2"`
	Action    string    `gorm:"type:varchar(50);not null"`
	Actor     string    `gorm:"type:varchar(200);not null"`
	Timestamp time.Time `gorm:"not null"`
	Details   string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PurchaseOrderHistoryModel) TableName() string {
	return "purchase_order_history"
}

// ToDomain converts the persistence model to a domain HistoryEvent
func (m *PurchaseOrderHistoryModel) ToDomain() purchasing.HistoryEvent {
	return purchasing.HistoryEvent{
		ID:        m.ID,
		Sequence:  m.Sequence,
		Action:    purchasing.HistoryAction(m.Action),
		Actor:     m.Actor,
		Timestamp: m.Timestamp,
		Details:   m.Details,
	}
}

// PurchaseOrderHistoryModelFromDomain creates a new persistence model from a domain HistoryEvent
func PurchaseOrderHistoryModelFromDomain(orderID uuid.UUID, e purchasing.HistoryEvent) *PurchaseOrderHistoryModel {
	return &PurchaseOrderHistoryModel{
		ID:        e.ID,
		OrderID:   orderID,
		Sequence:  e.Sequence,
		Action:    string(e.Action),
		Actor:     e.Actor,
		Timestamp: e.Timestamp,
		Details:   e.Details,
	}
}

// All returns every model managed by the schema, in dependency order
func All() []any {
	return []any{
		&PurchaseOrderModel{},
		&PurchaseOrderItemModel{},
		&PurchaseOrderHistoryModel{},
		&OutboxEntryModel{},
	}
}
