package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/opsdash/purchasing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements purchasing.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
	opts        []purchasing.Option
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository.
// Options are applied to every order it loads.
func NewGormPurchaseOrderRepository(db *gorm.DB, opts ...purchasing.Option) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db, opts: opts}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormPurchaseOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID loads a purchase order with its items and history
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedBy("position")).
		Preload("History", orderedBy("sequence")).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(id)
		}
		return nil, fmt.Errorf("find purchase order: %w", err)
	}
	return model.ToDomain(r.opts...), nil
}

// Save inserts the order when expectedVersion is 0 and otherwise updates it
// under an optimistic version check. Items are synchronised, new history
// entries are appended and pending events go to the outbox, all in one
// transaction.
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *purchasing.PurchaseOrder, expectedVersion int) error {
	newVersion := order.Version
	if expectedVersion > 0 {
		newVersion = expectedVersion + 1
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.PurchaseOrderModelFromDomain(order)
		model.Version = newVersion

		if expectedVersion == 0 {
			if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
				return fmt.Errorf("insert purchase order: %w", err)
			}
		} else if err := r.updateOrder(tx, model, expectedVersion); err != nil {
			return err
		}

		if err := r.syncItems(tx, order); err != nil {
			return err
		}
		if err := r.appendHistory(tx, order); err != nil {
			return err
		}

		events := order.GetDomainEvents()
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	order.Version = newVersion
	order.ClearDomainEvents()
	return nil
}

func (r *GormPurchaseOrderRepository) updateOrder(tx *gorm.DB, model *models.PurchaseOrderModel, expectedVersion int) error {
	result := tx.Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(model.UpdateColumns())
	if result.Error != nil {
		return fmt.Errorf("update purchase order: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.PurchaseOrderModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("check purchase order: %w", err)
	}
	if count == 0 {
		return orderNotFound(model.ID)
	}
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		fmt.Sprintf("purchase order %s was modified by another process (expected version %d)", model.ID, expectedVersion))
}

// syncItems deletes lines no longer on the order and upserts the rest
func (r *GormPurchaseOrderRepository) syncItems(tx *gorm.DB, order *purchasing.PurchaseOrder) error {
	items := order.Items()
	ids := make([]uuid.UUID, len(items))
	rows := make([]*models.PurchaseOrderItemModel, len(items))
	for i, item := range items {
		ids[i] = item.ID
		rows[i] = models.PurchaseOrderItemModelFromDomain(order.ID, item)
	}

	del := tx.Where("order_id = ?", order.ID)
	if len(ids) > 0 {
		del = del.Where("id NOT IN ?", ids)
	}
	if err := del.Delete(&models.PurchaseOrderItemModel{}).Error; err != nil {
		return fmt.Errorf("delete removed items: %w", err)
	}

	if len(rows) == 0 {
		return nil
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_name", "sku", "quantity", "received_quantity",
			"unit_price", "discount_percent", "position",
		}),
	}).Create(&rows).Error; err != nil {
		return fmt.Errorf("upsert items: %w", err)
	}
	return nil
}

// appendHistory inserts entries newer than the last stored sequence
func (r *GormPurchaseOrderRepository) appendHistory(tx *gorm.DB, order *purchasing.PurchaseOrder) error {
	var stored int
	if err := tx.Model(&models.PurchaseOrderHistoryModel{}).
		Where("order_id = ?", order.ID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&stored).Error; err != nil {
		return fmt.Errorf("read history sequence: %w", err)
	}

	entries := order.HistorySince(stored)
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.PurchaseOrderHistoryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.PurchaseOrderHistoryModelFromDomain(order.ID, e)
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// List returns a page of orders with their items but without history
func (r *GormPurchaseOrderRepository) List(ctx context.Context, filter purchasing.OrderFilter) ([]*purchasing.PurchaseOrder, int64, error) {
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count purchase orders: %w", err)
	}

	var rows []models.PurchaseOrderModel
	if err := r.applyPagination(query, filter.Filter).
		Preload("Items", orderedBy("position")).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list purchase orders: %w", err)
	}

	orders := make([]*purchasing.PurchaseOrder, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain(r.opts...)
	}
	return orders, total, nil
}

type statusCount struct {
	Status purchasing.Status
	Count  int64
}

// CountByStatus returns the number of orders in each status
func (r *GormPurchaseOrderRepository) CountByStatus(ctx context.Context) (map[purchasing.Status]int64, error) {
	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count purchase orders by status: %w", err)
	}

	counts := make(map[purchasing.Status]int64, len(purchasing.AllStatuses()))
	for _, s := range purchasing.AllStatuses() {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *GormPurchaseOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter purchasing.OrderFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(supplier_name) LIKE ? OR LOWER(notes) LIKE ?",
			pattern, pattern, pattern)
	}
	return query
}

func (r *GormPurchaseOrderRepository) applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = query.Order(resolveOrderSort(filter).clause())

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

func orderedBy(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(column + " ASC")
	}
}

func orderNotFound(id uuid.UUID) error {
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("purchase order %s not found", id))
}

// Ensure GormPurchaseOrderRepository implements the repository port
var _ purchasing.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
