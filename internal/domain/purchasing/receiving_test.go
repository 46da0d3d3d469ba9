package purchasing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLineLedger(t *testing.T) (*Ledger, OrderItem, OrderItem) {
	t.Helper()
	l := &Ledger{}
	a, _, err := l.add(ProductRef{ProductID: uuid.New(), Name: "Widget", SKU: "W-1"}, 10, decimal.NewFromInt(5), decimal.Zero)
	require.NoError(t, err)
	b, _, err := l.add(ProductRef{ProductID: uuid.New(), Name: "Bolt", SKU: "B-1"}, 4, decimal.NewFromInt(1), decimal.Zero)
	require.NoError(t, err)
	return l, a, b
}

func TestPlanReceipt(t *testing.T) {
	l, a, b := twoLineLedger(t)

	lines, err := planReceipt(l, map[uuid.UUID]int{b.ID: 4, a.ID: 6})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, a.ID, lines[0].ItemID, "lines follow ledger order")
	assert.Equal(t, 6, lines[0].Quantity)
	assert.Equal(t, b.ID, lines[1].ItemID)

	receipt := Receipt{Lines: lines}
	assert.Equal(t, "Widget: 6 units, Bolt: 4 units", receipt.Details())
	assert.Equal(t, 10, receipt.Units())

	// planning never mutates
	got, _ := l.Find(a.ID)
	assert.Equal(t, 0, got.ReceivedQuantity)
}

func TestPlanReceipt_DropsZeros(t *testing.T) {
	l, a, b := twoLineLedger(t)
	lines, err := planReceipt(l, map[uuid.UUID]int{a.ID: 0, b.ID: 1})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, b.ID, lines[0].ItemID)

	lines, err = planReceipt(l, map[uuid.UUID]int{a.ID: 0})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPlanReceipt_Errors(t *testing.T) {
	l, a, _ := twoLineLedger(t)

	_, err := planReceipt(l, map[uuid.UUID]int{a.ID: 11})
	requireCode(t, err, "RECEIVE_QUANTITY_EXCEEDED")

	_, err = planReceipt(l, map[uuid.UUID]int{a.ID: -1})
	requireCode(t, err, "INVALID_QUANTITY")

	_, err = planReceipt(l, map[uuid.UUID]int{a.ID: 1, uuid.New(): 1})
	requireCode(t, err, "ITEM_NOT_FOUND")
}

func TestReconcile(t *testing.T) {
	l, a, b := twoLineLedger(t)
	assert.Equal(t, StatusConfirmed, reconcile(l, StatusConfirmed))

	applyReceipt(l, []ReceiptLine{{ItemID: a.ID, Quantity: 10}})
	assert.Equal(t, StatusPartial, reconcile(l, StatusConfirmed), "one full line, one empty line is partial")

	applyReceipt(l, []ReceiptLine{{ItemID: b.ID, Quantity: 4}})
	assert.Equal(t, StatusReceived, reconcile(l, StatusPartial))

	assert.Equal(t, StatusConfirmed, reconcile(&Ledger{}, StatusConfirmed))
}
