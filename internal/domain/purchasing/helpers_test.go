package purchasing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestOrder(t *testing.T) *PurchaseOrder {
	t.Helper()
	expected := testNow.AddDate(0, 0, 14)
	order, err := NewPurchaseOrder(CreateParams{
		Supplier: SupplierSnapshot{
			ID:    uuid.New(),
			Name:  "Acme Supplies",
			Email: "orders@acme.test",
		},
		ExpectedDate:    &expected,
		PaymentTerms:    "NET30",
		ShippingAddress: "1 Dock Road",
	}, "alice", WithClock(fixedClock))
	require.NoError(t, err)
	return order
}

func addTestItem(t *testing.T, order *PurchaseOrder, name string, qty int, price, discount int64) OrderItem {
	t.Helper()
	item, err := order.AddItem(
		ProductRef{ProductID: uuid.New(), Name: name, SKU: "SKU-" + name},
		qty, decimal.NewFromInt(price), decimal.NewFromInt(discount), "alice")
	require.NoError(t, err)
	return item
}

// confirmedOrder returns a confirmed order with a single line of 10 units
func confirmedOrder(t *testing.T) (*PurchaseOrder, OrderItem) {
	t.Helper()
	order := newTestOrder(t)
	item := addTestItem(t, order, "Widget", 10, 100, 10)
	require.NoError(t, order.Send("alice"))
	require.NoError(t, order.Confirm("bob"))
	return order, item
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	require.Equal(t, code, de.Code, de.Message)
}
