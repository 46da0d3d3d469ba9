package purchasing

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Creation
// ============================================

func TestNewPurchaseOrder(t *testing.T) {
	order := newTestOrder(t)

	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, StatusDraft, order.Status)
	assert.Equal(t, 1, order.Version)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "PO-20240501-"), order.OrderNumber)
	assert.Len(t, order.OrderNumber, len("PO-20240501-")+6)
	assert.Equal(t, testNow, order.CreatedAt)

	history := order.History()
	require.Len(t, history, 1)
	assert.Equal(t, ActionCreated, history[0].Action)
	assert.Equal(t, "alice", history[0].Actor)

	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypePurchaseOrderCreated, events[0].EventType())
	assert.Equal(t, order.ID, events[0].AggregateID())
}

func TestNewPurchaseOrder_RequiresSupplier(t *testing.T) {
	_, err := NewPurchaseOrder(CreateParams{}, "alice")
	requireCode(t, err, shared.CodeInvalidInput)
}

func TestNewPurchaseOrder_DefaultsActor(t *testing.T) {
	order, err := NewPurchaseOrder(CreateParams{Supplier: SupplierSnapshot{ID: uuid.New()}}, "  ")
	require.NoError(t, err)
	assert.Equal(t, SystemActor, order.History()[0].Actor)
}

// ============================================
// Lifecycle scenarios
// ============================================

func TestPurchaseOrder_TotalsScenario(t *testing.T) {
	order := newTestOrder(t)
	addTestItem(t, order, "Widget", 10, 100, 10)

	totals := order.Totals(DefaultTaxRate)
	assert.True(t, decimal.NewFromInt(900).Equal(totals.Subtotal), totals.Subtotal.String())
	assert.True(t, decimal.NewFromInt(189).Equal(totals.Tax), totals.Tax.String())
	assert.True(t, decimal.NewFromInt(1089).Equal(totals.Total), totals.Total.String())
	assert.Equal(t, 1, totals.ItemCount)
	assert.Equal(t, 10, totals.TotalUnits)
}

func TestPurchaseOrder_FullLifecycle(t *testing.T) {
	order := newTestOrder(t)
	item := addTestItem(t, order, "Widget", 10, 100, 10)

	// send
	before := order.HistoryLen()
	require.NoError(t, order.Send("alice"))
	assert.Equal(t, StatusSent, order.Status)
	assert.NotNil(t, order.SentAt)
	require.Equal(t, before+1, order.HistoryLen())
	assert.Equal(t, ActionSent, order.History()[before].Action)

	// confirm
	require.NoError(t, order.Confirm("bob"))
	assert.Equal(t, StatusConfirmed, order.Status)
	assert.NotNil(t, order.ConfirmedAt)

	// partial receipt
	receipt, err := order.Receive(map[uuid.UUID]int{item.ID: 6}, "carol")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, receipt.Status)
	assert.Equal(t, StatusConfirmed, receipt.Previous)
	got, err := order.Item(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.ReceivedQuantity)
	assert.Equal(t, StatusPartial, order.Status)
	assert.True(t, decimal.NewFromInt(60).Equal(order.CompletionPercent()))
	last := order.History()[order.HistoryLen()-1]
	assert.Equal(t, ActionPartialReceipt, last.Action)
	assert.Equal(t, "Widget: 6 units", last.Details)

	// complete receipt
	receipt, err = order.Receive(map[uuid.UUID]int{item.ID: 4}, "carol")
	require.NoError(t, err)
	assert.True(t, receipt.IsComplete())
	got, _ = order.Item(item.ID)
	assert.Equal(t, 10, got.ReceivedQuantity)
	assert.Equal(t, StatusReceived, order.Status)
	assert.NotNil(t, order.ReceivedAt)
	assert.True(t, decimal.NewFromInt(100).Equal(order.CompletionPercent()))
	assert.Equal(t, ActionCompleteReceipt, order.History()[order.HistoryLen()-1].Action)

	// terminal
	_, err = order.Receive(map[uuid.UUID]int{item.ID: 0}, "carol")
	requireCode(t, err, shared.CodeInvalidTransition)
	err = order.Cancel("too late", "alice")
	requireCode(t, err, shared.CodeInvalidTransition)

	// created, item added, sent, confirmed, partial, complete
	assert.Equal(t, 6, order.HistoryLen())
}

func TestPurchaseOrder_CancelEmptyDraft(t *testing.T) {
	order := newTestOrder(t)

	require.NoError(t, order.Cancel("", "alice"))
	assert.Equal(t, StatusCancelled, order.Status)
	assert.NotNil(t, order.CancelledAt)
	assert.Equal(t, "no reason given", order.History()[1].Details)

	_, err := order.AddItem(ProductRef{ProductID: uuid.New(), Name: "Late"}, 1, decimal.NewFromInt(1), decimal.Zero, "alice")
	requireCode(t, err, shared.CodeInvalidState)
	assert.Equal(t, 2, order.HistoryLen())
}

func TestPurchaseOrder_CancelRecordsReasonAndEvent(t *testing.T) {
	order, _ := confirmedOrder(t)
	order.ClearDomainEvents()

	require.NoError(t, order.Cancel("  supplier out of stock ", "bob"))
	assert.Equal(t, "supplier out of stock", order.CancelReason)

	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	cancelled, ok := events[0].(*PurchaseOrderCancelledEvent)
	require.True(t, ok)
	assert.Equal(t, StatusConfirmed, cancelled.PreviousStatus)
	assert.Equal(t, "supplier out of stock", cancelled.Reason)
}

func TestPurchaseOrder_InvalidTransitionsLeaveOrderUnchanged(t *testing.T) {
	order := newTestOrder(t)
	addTestItem(t, order, "Widget", 1, 1, 0)
	before := order.Snapshot()

	requireCode(t, order.Confirm("bob"), shared.CodeInvalidTransition)
	_, err := order.Receive(map[uuid.UUID]int{}, "bob")
	requireCode(t, err, shared.CodeInvalidTransition)

	assert.Equal(t, before, order.Snapshot())
}

// ============================================
// Items
// ============================================

func TestPurchaseOrder_ItemChangesOnlyInDraft(t *testing.T) {
	order, item := confirmedOrder(t)
	historyLen := order.HistoryLen()

	_, err := order.AddItem(ProductRef{ProductID: uuid.New()}, 1, decimal.NewFromInt(1), decimal.Zero, "alice")
	requireCode(t, err, shared.CodeInvalidState)

	_, err = order.UpdateItem(item.ID, ItemUpdate{Quantity: 3}, "alice")
	requireCode(t, err, shared.CodeInvalidState)

	requireCode(t, order.RemoveItem(item.ID, "alice"), shared.CodeInvalidState)
	assert.Equal(t, historyLen, order.HistoryLen())
}

func TestPurchaseOrder_UpdateAndRemoveItem(t *testing.T) {
	order := newTestOrder(t)
	item := addTestItem(t, order, "Widget", 2, 10, 0)

	discount := decimal.NewFromInt(25)
	updated, err := order.UpdateItem(item.ID, ItemUpdate{Quantity: 4, DiscountPercent: &discount}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(updated.Subtotal()))
	assert.Equal(t, ActionItemUpdated, order.History()[2].Action)

	_, err = order.UpdateItem(item.ID, ItemUpdate{Quantity: 0}, "alice")
	requireCode(t, err, shared.CodeInvalidQuantity)
	assert.Equal(t, 3, order.HistoryLen())

	require.NoError(t, order.RemoveItem(item.ID, "alice"))
	assert.Empty(t, order.Items())
	assert.Equal(t, ActionItemRemoved, order.History()[3].Action)

	requireCode(t, order.RemoveItem(item.ID, "alice"), shared.CodeItemNotFound)
	assert.Equal(t, 4, order.HistoryLen())
}

func TestPurchaseOrder_AddItemMerges(t *testing.T) {
	order := newTestOrder(t)
	product := ProductRef{ProductID: uuid.New(), Name: "Widget"}

	_, err := order.AddItem(product, 2, decimal.NewFromInt(10), decimal.Zero, "alice")
	require.NoError(t, err)
	merged, err := order.AddItem(product, 3, decimal.NewFromInt(8), decimal.Zero, "alice")
	require.NoError(t, err)

	assert.Len(t, order.Items(), 1)
	assert.Equal(t, 5, merged.Quantity)
	assert.Equal(t, "Widget: +3 units, now 5 at 8.00", order.History()[2].Details)
}

func TestPurchaseOrder_AddItemMergeOverflow(t *testing.T) {
	order := newTestOrder(t)
	product := ProductRef{ProductID: uuid.New(), Name: "Widget"}

	_, err := order.AddItem(product, MaxQuantity, decimal.NewFromInt(1), decimal.Zero, "alice")
	require.NoError(t, err)
	historyLen := order.HistoryLen()

	_, err = order.AddItem(product, 2, decimal.NewFromInt(1), decimal.Zero, "alice")
	requireCode(t, err, shared.CodeInvalidQuantity)

	assert.Equal(t, historyLen, order.HistoryLen())
	assert.Equal(t, MaxQuantity, order.Items()[0].Quantity)
	assert.Equal(t, MaxQuantity, order.Totals(DefaultTaxRate).TotalUnits)
}

// ============================================
// Validation
// ============================================

func TestPurchaseOrder_SendRequiresCompleteOrder(t *testing.T) {
	order := newTestOrder(t)
	order.ExpectedDate = nil

	err := order.Send("alice")
	requireCode(t, err, shared.CodeValidationFailed)
	assert.Equal(t, shared.CodeInvalidInput, shared.Category(err))
	assert.Contains(t, err.Error(), "expected date is required")
	assert.Contains(t, err.Error(), "at least one item is required")

	assert.Equal(t, StatusDraft, order.Status)
	assert.Equal(t, 1, order.HistoryLen())
}

// ============================================
// Receiving
// ============================================

func TestPurchaseOrder_ReceiveIsAllOrNothing(t *testing.T) {
	order := newTestOrder(t)
	a := addTestItem(t, order, "Widget", 10, 1, 0)
	b := addTestItem(t, order, "Bolt", 2, 1, 0)
	require.NoError(t, order.Send("alice"))
	require.NoError(t, order.Confirm("bob"))
	before := order.Snapshot()

	_, err := order.Receive(map[uuid.UUID]int{a.ID: 5, b.ID: 3}, "carol")
	requireCode(t, err, shared.CodeReceiveQuantityExceeded)
	assert.Equal(t, shared.CodeInvalidInput, shared.Category(err))

	_, err = order.Receive(map[uuid.UUID]int{a.ID: 5, uuid.New(): 1}, "carol")
	requireCode(t, err, shared.CodeItemNotFound)
	assert.Equal(t, shared.CodeNotFound, shared.Category(err))

	assert.Equal(t, before, order.Snapshot())
}

func TestPurchaseOrder_ReceiveZerosIsNoop(t *testing.T) {
	order, item := confirmedOrder(t)
	order.ClearDomainEvents()
	before := order.Snapshot()

	receipt, err := order.Receive(map[uuid.UUID]int{item.ID: 0}, "carol")
	require.NoError(t, err)
	assert.True(t, receipt.IsEmpty())
	assert.Equal(t, StatusConfirmed, receipt.Status)

	receipt, err = order.Receive(nil, "carol")
	require.NoError(t, err)
	assert.True(t, receipt.IsEmpty())

	assert.Equal(t, before, order.Snapshot())
	assert.Empty(t, order.GetDomainEvents())
}

func TestPurchaseOrder_ReceiveEvents(t *testing.T) {
	order, item := confirmedOrder(t)
	order.ClearDomainEvents()

	_, err := order.Receive(map[uuid.UUID]int{item.ID: 10}, "carol")
	require.NoError(t, err)

	events := order.GetDomainEvents()
	require.Len(t, events, 2)
	received, ok := events[0].(*GoodsReceivedEvent)
	require.True(t, ok)
	assert.True(t, received.Complete)
	require.Len(t, received.Lines, 1)
	assert.Equal(t, item.ProductID, received.Lines[0].ProductID)
	assert.Equal(t, 10, received.Lines[0].Quantity)
	assert.Equal(t, EventTypePurchaseOrderCompleted, events[1].EventType())
}

func TestPurchaseOrder_ReceivedInvariantAcrossLines(t *testing.T) {
	order := newTestOrder(t)
	a := addTestItem(t, order, "Widget", 3, 1, 0)
	b := addTestItem(t, order, "Bolt", 2, 1, 0)
	require.NoError(t, order.Send("alice"))
	require.NoError(t, order.Confirm("bob"))

	steps := []map[uuid.UUID]int{
		{a.ID: 1},
		{a.ID: 2},
		{b.ID: 1},
		{b.ID: 1},
	}
	for _, step := range steps {
		_, err := order.Receive(step, "carol")
		require.NoError(t, err)

		allReceived := true
		for _, it := range order.Items() {
			assert.LessOrEqual(t, it.ReceivedQuantity, it.Quantity)
			if it.ReceivedQuantity != it.Quantity {
				allReceived = false
			}
		}
		assert.Equal(t, allReceived, order.Status == StatusReceived)
	}
	assert.Equal(t, StatusReceived, order.Status)
}

// ============================================
// History and projections
// ============================================

func TestPurchaseOrder_HistoryTimestampsNonDecreasing(t *testing.T) {
	now := testNow
	order, err := NewPurchaseOrder(CreateParams{Supplier: SupplierSnapshot{ID: uuid.New()}}, "alice",
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	now = testNow.Add(-time.Hour)
	_, err = order.AddItem(ProductRef{ProductID: uuid.New(), Name: "W"}, 1, decimal.NewFromInt(1), decimal.Zero, "alice")
	require.NoError(t, err)

	history := order.History()
	assert.False(t, history[1].Timestamp.Before(history[0].Timestamp))
	assert.Equal(t, testNow, order.UpdatedAt)
}

func TestPurchaseOrder_Summarize(t *testing.T) {
	order, item := confirmedOrder(t)
	_, err := order.Receive(map[uuid.UUID]int{item.ID: 3}, "carol")
	require.NoError(t, err)

	summary := order.Summarize(FlatTax{Rate: decimal.RequireFromString("0.10")})
	assert.Equal(t, StatusPartial, summary.Status)
	assert.True(t, decimal.NewFromInt(90).Equal(summary.Totals.Tax))
	assert.Equal(t, 10, summary.TotalUnits)
	assert.Equal(t, 3, summary.ReceivedUnits)
	assert.True(t, decimal.NewFromInt(30).Equal(summary.CompletionPercent))
	assert.Equal(t, []Trigger{TriggerReceive, TriggerCancel}, summary.Triggers)

	empty := newTestOrder(t)
	assert.True(t, empty.CompletionPercent().IsZero())
	assert.True(t, decimal.Zero.Equal(empty.Summarize(nil).Totals.Total))
}

func TestPurchaseOrder_SnapshotRoundTrip(t *testing.T) {
	order, item := confirmedOrder(t)
	_, err := order.Receive(map[uuid.UUID]int{item.ID: 6}, "carol")
	require.NoError(t, err)

	restored := Restore(order.Snapshot())

	assert.Equal(t, order.Status, restored.Status)
	assert.Equal(t, order.Version, restored.Version)
	assert.Equal(t, order.Totals(DefaultTaxRate), restored.Totals(DefaultTaxRate))
	assert.Equal(t, order.History(), restored.History())
	assert.Empty(t, restored.GetDomainEvents())

	clone := order.Clone()
	require.NoError(t, clone.Cancel("", "alice"))
	assert.Equal(t, StatusPartial, order.Status)
}
