package purchasing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/opsdash/purchasing/internal/infrastructure/cache"
	"github.com/opsdash/purchasing/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// confirmedServiceOrder creates a confirmed order with one line through the service
func confirmedServiceOrder(t *testing.T, svc *PurchaseOrderService, quantity int) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	caller := Caller{Actor: "alice"}
	expected := time.Now().AddDate(0, 0, 7)

	view, err := svc.Create(ctx, CreateOrderRequest{
		SupplierID:   testSupplierID,
		SupplierName: "Acme",
		ExpectedDate: &expected,
	}, caller)
	require.NoError(t, err)

	price := decimal.NewFromInt(5)
	view, err = svc.AddItem(ctx, view.ID, AddItemRequest{
		ProductID:   uuid.New(),
		ProductName: "Widget",
		Quantity:    quantity,
		UnitPrice:   &price,
	}, caller)
	require.NoError(t, err)
	_, err = svc.Send(ctx, view.ID, caller)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, view.ID, caller)
	require.NoError(t, err)
	return view.ID, view.Items[0].ID
}

func TestPurchaseOrderService_ConcurrentReceiveIsSerialized(t *testing.T) {
	repo := persistence.NewInMemoryPurchaseOrderRepository(zap.NewNop())
	locker := cache.NewInMemoryOrderLocker(cache.LockOptions{Timeout: 10 * time.Second})
	svc := NewPurchaseOrderService(repo, locker, zap.NewNop())

	const quantity = 10
	const workers = 30
	orderID, itemID := confirmedServiceOrder(t, svc, quantity)
	before, err := svc.GetByID(context.Background(), orderID)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		applied  int
		rejected []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			receipt, err := svc.Receive(context.Background(), orderID, ReceiveRequest{
				Quantities: map[uuid.UUID]int{itemID: 1},
			}, Caller{Actor: "dock"})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected = append(rejected, err)
				return
			}
			if receipt.Applied {
				applied++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, quantity, applied)
	require.Len(t, rejected, workers-quantity)
	for _, err := range rejected {
		assert.True(t,
			shared.IsCode(err, shared.CodeReceiveQuantityExceeded) || shared.IsCode(err, shared.CodeInvalidTransition),
			err.Error())
	}

	after, err := svc.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, string(purchasing.StatusReceived), after.Status)
	assert.Equal(t, quantity, after.Items[0].ReceivedQuantity)
	assert.Len(t, after.History, len(before.History)+quantity)
	assert.Equal(t, before.Version+quantity, after.Version)
	assert.Equal(t, 0, locker.Held())
}
