package purchasing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is applied when no tax policy is configured
var DefaultTaxRate = decimal.NewFromFloat(0.21)

// TaxPolicy decides the tax rate applied to an order's subtotal
type TaxPolicy interface {
	TaxRate(order *PurchaseOrder) decimal.Decimal
}

// FlatTax applies one rate to every order
type FlatTax struct {
	Rate decimal.Decimal
}

// TaxRate implements TaxPolicy
func (f FlatTax) TaxRate(*PurchaseOrder) decimal.Decimal {
	return f.Rate
}

// Totals is the monetary summary of a ledger
type Totals struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	ItemCount  int
	TotalUnits int
}

// Ledger owns the ordered line items of a purchase order
type Ledger struct {
	items []*OrderItem
}

// NewLedger builds a ledger from existing items, ordered by position
func NewLedger(items ...OrderItem) Ledger {
	l := Ledger{items: make([]*OrderItem, 0, len(items))}
	for i := range items {
		it := items[i]
		l.items = append(l.items, &it)
	}
	sort.SliceStable(l.items, func(a, b int) bool {
		return l.items[a].Position < l.items[b].Position
	})
	return l
}

// Len returns the number of lines
func (l *Ledger) Len() int {
	return len(l.items)
}

// Items returns copies of the lines in display order
func (l *Ledger) Items() []OrderItem {
	out := make([]OrderItem, len(l.items))
	for i, it := range l.items {
		out[i] = *it
	}
	return out
}

// Find returns the line with the given id
func (l *Ledger) Find(itemID uuid.UUID) (*OrderItem, bool) {
	for _, it := range l.items {
		if it.ID == itemID {
			return it, true
		}
	}
	return nil, false
}

func (l *Ledger) findByProduct(productID uuid.UUID) (*OrderItem, bool) {
	for _, it := range l.items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return nil, false
}

// add appends a line, or merges quantities into the existing line for the
// same product. Price and discount are last-write-wins on merge.
func (l *Ledger) add(product ProductRef, quantity int, unitPrice, discount decimal.Decimal) (OrderItem, bool, error) {
	if existing, ok := l.findByProduct(product.ProductID); ok {
		if err := validateLine(quantity, unitPrice, discount); err != nil {
			return OrderItem{}, false, err
		}
		if quantity > MaxQuantity-existing.Quantity {
			return OrderItem{}, false, shared.NewDomainError(shared.CodeInvalidQuantity,
				fmt.Sprintf("merged quantity cannot exceed %d", MaxQuantity))
		}
		existing.Quantity += quantity
		existing.UnitPrice = unitPrice
		existing.DiscountPercent = discount
		if product.Name != "" {
			existing.ProductName = product.Name
		}
		if product.SKU != "" {
			existing.SKU = product.SKU
		}
		return *existing, true, nil
	}

	item, err := NewOrderItem(product, quantity, unitPrice, discount)
	if err != nil {
		return OrderItem{}, false, err
	}
	item.Position = l.nextPosition()
	l.items = append(l.items, item)
	return *item, false, nil
}

func (l *Ledger) update(itemID uuid.UUID, upd ItemUpdate) (before, after OrderItem, err error) {
	item, ok := l.Find(itemID)
	if !ok {
		return OrderItem{}, OrderItem{}, itemNotFound(itemID)
	}
	price := item.UnitPrice
	if upd.UnitPrice != nil {
		price = *upd.UnitPrice
	}
	discount := item.DiscountPercent
	if upd.DiscountPercent != nil {
		discount = *upd.DiscountPercent
	}
	if err := validateLine(upd.Quantity, price, discount); err != nil {
		return OrderItem{}, OrderItem{}, err
	}

	before = *item
	item.Quantity = upd.Quantity
	item.UnitPrice = price
	item.DiscountPercent = discount
	return before, *item, nil
}

func (l *Ledger) remove(itemID uuid.UUID) (OrderItem, error) {
	for i, it := range l.items {
		if it.ID == itemID {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return *it, nil
		}
	}
	return OrderItem{}, itemNotFound(itemID)
}

func (l *Ledger) nextPosition() int {
	next := 0
	for _, it := range l.items {
		if it.Position >= next {
			next = it.Position + 1
		}
	}
	return next
}

// Totals computes subtotal, tax and total at the given rate. Amounts are
// rounded to cents.
func (l *Ledger) Totals(taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range l.items {
		subtotal = subtotal.Add(it.Subtotal())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      subtotal.Add(tax),
		ItemCount:  len(l.items),
		TotalUnits: l.TotalUnits(),
	}
}

// TotalUnits sums ordered quantities
func (l *Ledger) TotalUnits() int {
	n := 0
	for _, it := range l.items {
		n += it.Quantity
	}
	return n
}

// ReceivedUnits sums received quantities
func (l *Ledger) ReceivedUnits() int {
	n := 0
	for _, it := range l.items {
		n += it.ReceivedQuantity
	}
	return n
}

func itemNotFound(itemID uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(shared.CodeItemNotFound, fmt.Sprintf("item %s not found on purchase order", itemID))
}

func describeItemChange(before, after OrderItem) string {
	var changes []string
	if before.Quantity != after.Quantity {
		changes = append(changes, fmt.Sprintf("quantity %d -> %d", before.Quantity, after.Quantity))
	}
	if !before.UnitPrice.Equal(after.UnitPrice) {
		changes = append(changes, fmt.Sprintf("unit price %s -> %s", before.UnitPrice.StringFixed(2), after.UnitPrice.StringFixed(2)))
	}
	if !before.DiscountPercent.Equal(after.DiscountPercent) {
		changes = append(changes, fmt.Sprintf("discount %s%% -> %s%%", before.DiscountPercent.String(), after.DiscountPercent.String()))
	}
	if len(changes) == 0 {
		return after.ProductName + ": no changes"
	}
	return after.ProductName + ": " + strings.Join(changes, ", ")
}
