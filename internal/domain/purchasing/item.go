package purchasing

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	// maxUnitPrice is the first value that no longer fits decimal(18,4)
	maxUnitPrice = decimal.New(1, 14)
)

const (
	// MaxQuantity matches the INTEGER quantity columns
	MaxQuantity = math.MaxInt32
	// PriceScale and DiscountScale match the decimal(18,4) and decimal(7,4) columns
	PriceScale    = 4
	DiscountScale = 4
)

// ProductRef is the product snapshot captured when an item is added
type ProductRef struct {
	ProductID uuid.UUID
	Name      string
	SKU       string
}

// OrderItem is one ordered line and its receiving progress
type OrderItem struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	ProductName      string
	SKU              string
	Quantity         int
	ReceivedQuantity int
	UnitPrice        decimal.Decimal
	DiscountPercent  decimal.Decimal
	Position         int
}

// ItemUpdate carries the editable fields of a line. Quantity is required;
// nil price or discount leaves the current value.
type ItemUpdate struct {
	Quantity        int
	UnitPrice       *decimal.Decimal
	DiscountPercent *decimal.Decimal
}

// NewOrderItem creates a validated line item
func NewOrderItem(product ProductRef, quantity int, unitPrice, discountPercent decimal.Decimal) (*OrderItem, error) {
	if product.ProductID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "product is required")
	}
	if err := validateLine(quantity, unitPrice, discountPercent); err != nil {
		return nil, err
	}
	return &OrderItem{
		ID:              uuid.New(),
		ProductID:       product.ProductID,
		ProductName:     product.Name,
		SKU:             product.SKU,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: discountPercent,
	}, nil
}

func validateQuantity(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("quantity must be positive, got %d", quantity))
	}
	if quantity > MaxQuantity {
		return shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("quantity cannot exceed %d, got %d", MaxQuantity, quantity))
	}
	return nil
}

func exceedsScale(d decimal.Decimal, places int32) bool {
	return !d.Equal(d.Round(places))
}

func validateLine(quantity int, unitPrice, discountPercent decimal.Decimal) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidPrice, "unit price cannot be negative")
	}
	if unitPrice.GreaterThanOrEqual(maxUnitPrice) {
		return shared.NewDomainError(shared.CodeInvalidPrice,
			fmt.Sprintf("unit price must be below %s", maxUnitPrice))
	}
	if exceedsScale(unitPrice, PriceScale) {
		return shared.NewDomainError(shared.CodeInvalidPrice,
			fmt.Sprintf("unit price allows at most %d decimal places", PriceScale))
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return shared.NewDomainError(shared.CodeInvalidDiscount, "discount percent must be between 0 and 100")
	}
	if exceedsScale(discountPercent, DiscountScale) {
		return shared.NewDomainError(shared.CodeInvalidDiscount,
			fmt.Sprintf("discount percent allows at most %d decimal places", DiscountScale))
	}
	return nil
}

// Subtotal is quantity * unitPrice * (1 - discountPercent/100)
func (i *OrderItem) Subtotal() decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(i.DiscountPercent.Div(hundred))
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Mul(factor)
}

// PendingQuantity returns how many units are still expected
func (i *OrderItem) PendingQuantity() int {
	return i.Quantity - i.ReceivedQuantity
}

// IsFullyReceived returns true once every ordered unit has arrived
func (i *OrderItem) IsFullyReceived() bool {
	return i.ReceivedQuantity >= i.Quantity
}

// IsPartiallyReceived returns true when some but not all units arrived
func (i *OrderItem) IsPartiallyReceived() bool {
	return i.ReceivedQuantity > 0 && i.ReceivedQuantity < i.Quantity
}
