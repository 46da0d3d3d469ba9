package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/shopspring/decimal"
)

// ==================== Commands ====================

// Caller identifies who issues a command and which version they last saw.
// ExpectedVersion 0 skips the check.
type Caller struct {
	Actor           string
	ExpectedVersion int
}

// CreateOrderRequest represents a request to create a purchase order
type CreateOrderRequest struct {
	SupplierID      uuid.UUID  `json:"supplier_id" binding:"required"`
	SupplierName    string     `json:"supplier_name" binding:"max=200"`
	ExpectedDate    *time.Time `json:"expected_date"`
	PaymentTerms    string     `json:"payment_terms" binding:"max=100"`
	ShippingAddress string     `json:"shipping_address" binding:"max=500"`
	Notes           string     `json:"notes" binding:"max=2000"`
}

// AddItemRequest represents a request to add a line item. Name, SKU and price
// default to the catalog's values when a catalog is configured.
type AddItemRequest struct {
	ProductID       uuid.UUID        `json:"product_id" binding:"required"`
	ProductName     string           `json:"product_name" binding:"max=200"`
	SKU             string           `json:"sku" binding:"max=50"`
	Quantity        int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice       *decimal.Decimal `json:"unit_price" binding:"omitempty,gte=0"`
	DiscountPercent decimal.Decimal  `json:"discount_percent" binding:"gte=0,lte=100"`
}

// UpdateItemRequest represents a request to edit a line item
type UpdateItemRequest struct {
	Quantity        int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice       *decimal.Decimal `json:"unit_price" binding:"omitempty,gte=0"`
	DiscountPercent *decimal.Decimal `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
}

// ReceiveRequest maps item ids to received quantities
type ReceiveRequest struct {
	Quantities map[uuid.UUID]int `json:"quantities" binding:"required"`
}

// CancelRequest represents a request to cancel an order
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListFilter represents the query parameters of an order listing
type ListFilter struct {
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=created_at updated_at expected_date order_number status"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status     string     `form:"status"`
	SupplierID *uuid.UUID `form:"supplier_id"`
	Search     string     `form:"search"`
}

// ==================== Views ====================

// SupplierView is the supplier snapshot stored on an order
type SupplierView struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Address string    `json:"address,omitempty"`
}

// ItemView is a line item with its derived figures
type ItemView struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	ReceivedQuantity int             `json:"received_quantity"`
	PendingQuantity  int             `json:"pending_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	Subtotal         decimal.Decimal `json:"subtotal"`
}

// TotalsView is the monetary summary of an order
type TotalsView struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	ItemCount  int             `json:"item_count"`
	TotalUnits int             `json:"total_units"`
	Currency   string          `json:"currency,omitempty"`
}

// HistoryView is one audit entry
type HistoryView struct {
	Sequence  int       `json:"sequence"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}

// OrderView is the full read model of an order
type OrderView struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	Status            string          `json:"status"`
	Supplier          SupplierView    `json:"supplier"`
	ExpectedDate      *time.Time      `json:"expected_date,omitempty"`
	PaymentTerms      string          `json:"payment_terms,omitempty"`
	ShippingAddress   string          `json:"shipping_address,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	Items             []ItemView      `json:"items"`
	Totals            TotalsView      `json:"totals"`
	TotalUnits        int             `json:"total_units"`
	ReceivedUnits     int             `json:"received_units"`
	CompletionPercent decimal.Decimal `json:"completion_percent"`
	AllowedActions    []string        `json:"allowed_actions"`
	History           []HistoryView   `json:"history"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	ConfirmedAt       *time.Time      `json:"confirmed_at,omitempty"`
	ReceivedAt        *time.Time      `json:"received_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// OrderListItem is the summary row of an order listing
type OrderListItem struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	Status            string          `json:"status"`
	SupplierID        uuid.UUID       `json:"supplier_id"`
	SupplierName      string          `json:"supplier_name"`
	ExpectedDate      *time.Time      `json:"expected_date,omitempty"`
	ItemCount         int             `json:"item_count"`
	Total             decimal.Decimal `json:"total"`
	CompletionPercent decimal.Decimal `json:"completion_percent"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ReceiptView describes what a receive call applied
type ReceiptView struct {
	Order    *OrderView        `json:"order"`
	Previous string            `json:"previous_status"`
	Lines    []ReceiptLineView `json:"lines"`
	Applied  bool              `json:"applied"`
}

// ReceiptLineView is one applied receipt line
type ReceiptLineView struct {
	ItemID      uuid.UUID `json:"item_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
}

// StatusSummary counts orders per status
type StatusSummary struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
	Open   int64            `json:"open"`
}

// ==================== Converters ====================

// ToOrderView converts a domain order to its read model
func ToOrderView(order *purchasing.PurchaseOrder, policy purchasing.TaxPolicy) *OrderView {
	summary := order.Summarize(policy)

	items := order.Items()
	itemViews := make([]ItemView, len(items))
	for i := range items {
		itemViews[i] = toItemView(&items[i])
	}

	history := order.History()
	historyViews := make([]HistoryView, len(history))
	for i, h := range history {
		historyViews[i] = toHistoryView(h)
	}

	actions := make([]string, len(summary.Triggers))
	for i, t := range summary.Triggers {
		actions[i] = string(t)
	}

	return &OrderView{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Supplier: SupplierView{
			ID:      order.Supplier.ID,
			Name:    order.Supplier.Name,
			Email:   order.Supplier.Email,
			Phone:   order.Supplier.Phone,
			Address: order.Supplier.Address,
		},
		ExpectedDate:      order.ExpectedDate,
		PaymentTerms:      order.PaymentTerms,
		ShippingAddress:   order.ShippingAddress,
		Notes:             order.Notes,
		CancelReason:      order.CancelReason,
		Items:             itemViews,
		Totals:            toTotalsView(summary.Totals),
		TotalUnits:        summary.TotalUnits,
		ReceivedUnits:     summary.ReceivedUnits,
		CompletionPercent: summary.CompletionPercent,
		AllowedActions:    actions,
		History:           historyViews,
		SentAt:            order.SentAt,
		ConfirmedAt:       order.ConfirmedAt,
		ReceivedAt:        order.ReceivedAt,
		CancelledAt:       order.CancelledAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
		Version:           order.Version,
	}
}

// ToOrderListItem converts a domain order to a listing row
func ToOrderListItem(order *purchasing.PurchaseOrder, policy purchasing.TaxPolicy) OrderListItem {
	summary := order.Summarize(policy)
	return OrderListItem{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            string(order.Status),
		SupplierID:        order.Supplier.ID,
		SupplierName:      order.Supplier.Name,
		ExpectedDate:      order.ExpectedDate,
		ItemCount:         summary.Totals.ItemCount,
		Total:             summary.Totals.Total,
		CompletionPercent: summary.CompletionPercent,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
		Version:           order.Version,
	}
}

// ToHistoryViews converts audit entries
func ToHistoryViews(entries []purchasing.HistoryEvent) []HistoryView {
	out := make([]HistoryView, len(entries))
	for i, e := range entries {
		out[i] = toHistoryView(e)
	}
	return out
}

func toItemView(item *purchasing.OrderItem) ItemView {
	return ItemView{
		ID:               item.ID,
		ProductID:        item.ProductID,
		ProductName:      item.ProductName,
		SKU:              item.SKU,
		Quantity:         item.Quantity,
		ReceivedQuantity: item.ReceivedQuantity,
		PendingQuantity:  item.PendingQuantity(),
		UnitPrice:        item.UnitPrice,
		DiscountPercent:  item.DiscountPercent,
		Subtotal:         item.Subtotal().Round(2),
	}
}

func toTotalsView(t purchasing.Totals) TotalsView {
	return TotalsView{
		Subtotal:   t.Subtotal,
		Tax:        t.Tax,
		Total:      t.Total,
		ItemCount:  t.ItemCount,
		TotalUnits: t.TotalUnits,
	}
}

func toHistoryView(e purchasing.HistoryEvent) HistoryView {
	return HistoryView{
		Sequence:  e.Sequence,
		Action:    string(e.Action),
		Actor:     e.Actor,
		Timestamp: e.Timestamp,
		Details:   e.Details,
	}
}

func toReceiptView(order *OrderView, r *purchasing.Receipt) *ReceiptView {
	lines := make([]ReceiptLineView, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ReceiptLineView{ItemID: l.ItemID, ProductName: l.ProductName, Quantity: l.Quantity}
	}
	return &ReceiptView{
		Order:    order,
		Previous: string(r.Previous),
		Lines:    lines,
		Applied:  !r.IsEmpty(),
	}
}
