package purchasing

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/stretchr/testify/mock"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Save(ctx context.Context, order *purchasing.PurchaseOrder, expectedVersion int) error {
	args := m.Called(ctx, order, expectedVersion)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) List(ctx context.Context, filter purchasing.OrderFilter) ([]*purchasing.PurchaseOrder, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*purchasing.PurchaseOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseOrderRepository) CountByStatus(ctx context.Context) (map[purchasing.Status]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[purchasing.Status]int64), args.Error(1)
}

// MockSupplierDirectory mocks the supplier directory
type MockSupplierDirectory struct {
	mock.Mock
}

func (m *MockSupplierDirectory) Lookup(ctx context.Context, supplierID uuid.UUID) (purchasing.SupplierSnapshot, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).(purchasing.SupplierSnapshot), args.Error(1)
}

// MockProductCatalog mocks the product catalog
type MockProductCatalog struct {
	mock.Mock
}

func (m *MockProductCatalog) Lookup(ctx context.Context, productID uuid.UUID) (purchasing.CatalogProduct, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(purchasing.CatalogProduct), args.Error(1)
}

// MockInventoryService mocks the inventory collaborator
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) ReceiveStock(ctx context.Context, receipt purchasing.StockReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

// MockNotificationService mocks the supplier notification collaborator
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) NotifySupplier(ctx context.Context, n purchasing.SupplierNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// recordingLocker is an in-process locker that records acquired keys
type recordingLocker struct {
	mu       sync.Mutex
	acquired []string
	held     int
	fail     bool
}

func (l *recordingLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return nil, errors.New("lock unavailable")
	}
	l.acquired = append(l.acquired, key)
	l.held++
	return func() {
		l.mu.Lock()
		l.held--
		l.mu.Unlock()
	}, nil
}
