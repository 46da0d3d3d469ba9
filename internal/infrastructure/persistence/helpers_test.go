package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/opsdash/purchasing/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// setupTestDB opens an in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// newMockDB creates a GORM postgres connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func newTestOrder(t *testing.T, supplierName string) *purchasing.PurchaseOrder {
	t.Helper()
	expected := testNow.AddDate(0, 0, 14)
	order, err := purchasing.NewPurchaseOrder(purchasing.CreateParams{
		Supplier: purchasing.SupplierSnapshot{
			ID:      uuid.New(),
			Name:    supplierName,
			Email:   "orders@example.test",
			Phone:   "+34 600 000 000",
			Address: "1 Harbour Road",
		},
		ExpectedDate:    &expected,
		PaymentTerms:    "Net 30",
		ShippingAddress: "Warehouse 4",
		Notes:           "handle with care",
	}, "alice", purchasing.WithClock(fixedClock))
	require.NoError(t, err)
	return order
}

func addTestItem(t *testing.T, order *purchasing.PurchaseOrder, name string, qty int, price, discount int64) purchasing.OrderItem {
	t.Helper()
	item, err := order.AddItem(purchasing.ProductRef{
		ProductID: uuid.New(),
		Name:      name,
		SKU:       "SKU-" + name,
	}, qty, decimal.NewFromInt(price), decimal.NewFromInt(discount), "alice")
	require.NoError(t, err)
	return item
}

// recordingOutbox captures events handed to the outbox inside a transaction
type recordingOutbox struct {
	events []shared.DomainEvent
	sawTx  bool
	err    error
}

func (r *recordingOutbox) SaveEvents(_ context.Context, txProvider any, events ...shared.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	_, r.sawTx = txProvider.(*gorm.DB)
	r.events = append(r.events, events...)
	return nil
}

// recordingPublisher captures events published by the in-memory repository
type recordingPublisher struct {
	events []shared.DomainEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	r.events = append(r.events, events...)
	return r.err
}
