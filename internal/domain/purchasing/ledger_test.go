package purchasing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderItem_Subtotal(t *testing.T) {
	item := OrderItem{
		Quantity:        3,
		UnitPrice:       decimal.RequireFromString("19.99"),
		DiscountPercent: decimal.NewFromInt(50),
	}
	assert.True(t, decimal.RequireFromString("29.985").Equal(item.Subtotal()))
}

func TestNewOrderItem_Validation(t *testing.T) {
	product := ProductRef{ProductID: uuid.New(), Name: "Widget"}

	tests := []struct {
		name     string
		product  ProductRef
		qty      int
		price    string
		discount string
		code     string
	}{
		{"missing product", ProductRef{}, 1, "1", "0", "INVALID_INPUT"},
		{"zero quantity", product, 0, "1", "0", "INVALID_QUANTITY"},
		{"negative quantity", product, -2, "1", "0", "INVALID_QUANTITY"},
		{"negative price", product, 1, "-0.01", "0", "INVALID_PRICE"},
		{"negative discount", product, 1, "1", "-1", "INVALID_DISCOUNT"},
		{"discount over 100", product, 1, "1", "100.5", "INVALID_DISCOUNT"},
		{"quantity over column range", product, MaxQuantity + 1, "1", "0", "INVALID_QUANTITY"},
		{"price over column range", product, 1, "100000000000000", "0", "INVALID_PRICE"},
		{"price with five decimals", product, 1, "0.00005", "0", "INVALID_PRICE"},
		{"discount with five decimals", product, 1, "1", "12.34567", "INVALID_DISCOUNT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrderItem(tt.product, tt.qty,
				decimal.RequireFromString(tt.price), decimal.RequireFromString(tt.discount))
			requireCode(t, err, tt.code)
		})
	}

	item, err := NewOrderItem(product, 1, decimal.Zero, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, item.Subtotal().IsZero())

	item, err = NewOrderItem(product, MaxQuantity, decimal.RequireFromString("0.00010"), decimal.RequireFromString("12.3456"))
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, item.Quantity)
}

func TestLedger_AddMergeRejectsOverflow(t *testing.T) {
	var l Ledger
	product := ProductRef{ProductID: uuid.New(), Name: "Bolt"}
	_, _, err := l.add(product, MaxQuantity-1, decimal.NewFromInt(2), decimal.Zero)
	require.NoError(t, err)

	_, _, err = l.add(product, 2, decimal.NewFromInt(3), decimal.Zero)
	requireCode(t, err, "INVALID_QUANTITY")

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, MaxQuantity-1, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(2).Equal(items[0].UnitPrice))

	merged, _, err := l.add(product, 1, decimal.NewFromInt(2), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, merged.Quantity)
}

func TestLedger_AddMergesSameProduct(t *testing.T) {
	var l Ledger
	product := ProductRef{ProductID: uuid.New(), Name: "Bolt", SKU: "B-1"}

	first, merged, err := l.add(product, 5, decimal.NewFromInt(2), decimal.Zero)
	require.NoError(t, err)
	assert.False(t, merged)

	second, merged, err := l.add(product, 3, decimal.NewFromInt(3), decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, merged)

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 8, second.Quantity)
	assert.True(t, decimal.NewFromInt(3).Equal(second.UnitPrice))
	assert.True(t, decimal.NewFromInt(5).Equal(second.DiscountPercent))
}

func TestLedger_AddMergeRejectsInvalidWithoutChange(t *testing.T) {
	var l Ledger
	product := ProductRef{ProductID: uuid.New(), Name: "Bolt"}
	_, _, err := l.add(product, 5, decimal.NewFromInt(2), decimal.Zero)
	require.NoError(t, err)

	_, _, err = l.add(product, 0, decimal.NewFromInt(9), decimal.Zero)
	requireCode(t, err, "INVALID_QUANTITY")

	items := l.Items()
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(2).Equal(items[0].UnitPrice))
}

func TestLedger_PositionsAndRemove(t *testing.T) {
	var l Ledger
	a, _, _ := l.add(ProductRef{ProductID: uuid.New(), Name: "A"}, 1, decimal.NewFromInt(1), decimal.Zero)
	b, _, _ := l.add(ProductRef{ProductID: uuid.New(), Name: "B"}, 1, decimal.NewFromInt(1), decimal.Zero)
	assert.Equal(t, 0, a.Position)
	assert.Equal(t, 1, b.Position)

	_, err := l.remove(a.ID)
	require.NoError(t, err)
	c, _, _ := l.add(ProductRef{ProductID: uuid.New(), Name: "C"}, 1, decimal.NewFromInt(1), decimal.Zero)
	assert.Equal(t, 2, c.Position)

	_, err = l.remove(a.ID)
	requireCode(t, err, "ITEM_NOT_FOUND")

	restored := NewLedger(c, b)
	items := restored.Items()
	assert.Equal(t, "B", items[0].ProductName)
	assert.Equal(t, "C", items[1].ProductName)
}

func TestLedger_Update(t *testing.T) {
	var l Ledger
	item, _, _ := l.add(ProductRef{ProductID: uuid.New(), Name: "A"}, 2, decimal.NewFromInt(10), decimal.Zero)

	price := decimal.NewFromInt(12)
	before, after, err := l.update(item.ID, ItemUpdate{Quantity: 4, UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, 2, before.Quantity)
	assert.Equal(t, 4, after.Quantity)
	assert.True(t, price.Equal(after.UnitPrice))
	assert.Equal(t, "A: quantity 2 -> 4, unit price 10.00 -> 12.00", describeItemChange(before, after))

	_, _, err = l.update(item.ID, ItemUpdate{Quantity: 0})
	requireCode(t, err, "INVALID_QUANTITY")
	got, _ := l.Find(item.ID)
	assert.Equal(t, 4, got.Quantity)

	_, _, err = l.update(uuid.New(), ItemUpdate{Quantity: 1})
	requireCode(t, err, "ITEM_NOT_FOUND")
}

func TestLedger_Totals(t *testing.T) {
	var l Ledger
	_, _, _ = l.add(ProductRef{ProductID: uuid.New(), Name: "A"}, 10, decimal.NewFromInt(100), decimal.NewFromInt(10))
	_, _, _ = l.add(ProductRef{ProductID: uuid.New(), Name: "B"}, 3, decimal.RequireFromString("0.333"), decimal.Zero)

	totals := l.Totals(DefaultTaxRate)
	assert.True(t, decimal.RequireFromString("901").Equal(totals.Subtotal), totals.Subtotal.String())
	assert.True(t, decimal.RequireFromString("189.21").Equal(totals.Tax), totals.Tax.String())
	assert.True(t, decimal.RequireFromString("1090.21").Equal(totals.Total), totals.Total.String())
	assert.Equal(t, 2, totals.ItemCount)
	assert.Equal(t, 13, totals.TotalUnits)

	empty := (&Ledger{}).Totals(DefaultTaxRate)
	assert.True(t, empty.Total.IsZero())
	assert.Equal(t, 0, empty.ItemCount)
}
