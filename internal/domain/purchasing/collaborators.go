package purchasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierDirectory resolves supplier contact details
type SupplierDirectory interface {
	Lookup(ctx context.Context, supplierID uuid.UUID) (SupplierSnapshot, error)
}

// CatalogProduct is a product as known by the catalog, with its list price
type CatalogProduct struct {
	ProductRef
	UnitPrice decimal.Decimal
}

// ProductCatalog resolves product names, SKUs and list prices
type ProductCatalog interface {
	Lookup(ctx context.Context, productID uuid.UUID) (CatalogProduct, error)
}

// StockReceipt is a single stock-increase instruction sent to inventory
type StockReceipt struct {
	IdempotencyKey string    `json:"idempotency_key"`
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	ItemID         uuid.UUID `json:"item_id"`
	ProductID      uuid.UUID `json:"product_id"`
	SKU            string    `json:"sku"`
	Quantity       int       `json:"quantity"`
}

// InventoryService increases stock for received goods. Calls carrying the
// same idempotency key must be applied at most once.
type InventoryService interface {
	ReceiveStock(ctx context.Context, receipt StockReceipt) error
}

// SupplierNotification tells a supplier about a sent order
type SupplierNotification struct {
	OrderID      uuid.UUID        `json:"order_id"`
	OrderNumber  string           `json:"order_number"`
	Supplier     SupplierSnapshot `json:"supplier"`
	ItemCount    int              `json:"item_count"`
	TotalUnits   int              `json:"total_units"`
	ExpectedDate string           `json:"expected_date,omitempty"`
}

// NotificationService delivers messages to suppliers
type NotificationService interface {
	NotifySupplier(ctx context.Context, n SupplierNotification) error
}
