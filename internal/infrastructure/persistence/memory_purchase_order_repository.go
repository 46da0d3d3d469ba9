package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryPurchaseOrderRepository keeps orders in process memory. It enforces
// the same version check as the GORM repository and hands committed events to
// an optional publisher instead of an outbox.
type InMemoryPurchaseOrderRepository struct {
	mu        sync.RWMutex
	orders    map[uuid.UUID]purchasing.State
	publisher shared.EventPublisher
	logger    *zap.Logger
	opts      []purchasing.Option
}

// NewInMemoryPurchaseOrderRepository creates an empty repository
func NewInMemoryPurchaseOrderRepository(logger *zap.Logger, opts ...purchasing.Option) *InMemoryPurchaseOrderRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryPurchaseOrderRepository{
		orders: make(map[uuid.UUID]purchasing.State),
		logger: logger,
		opts:   opts,
	}
}

// SetEventPublisher sets where events go after a successful save
func (r *InMemoryPurchaseOrderRepository) SetEventPublisher(publisher shared.EventPublisher) {
	r.publisher = publisher
}

// FindByID returns a copy of the stored order
func (r *InMemoryPurchaseOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	r.mu.RLock()
	state, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, orderNotFound(id)
	}
	return purchasing.Restore(state, r.opts...), nil
}

// Save stores the order under an optimistic version check
func (r *InMemoryPurchaseOrderRepository) Save(ctx context.Context, order *purchasing.PurchaseOrder, expectedVersion int) error {
	r.mu.Lock()
	stored, exists := r.orders[order.ID]
	switch {
	case expectedVersion == 0 && exists:
		r.mu.Unlock()
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("purchase order %s already exists", order.ID))
	case expectedVersion > 0 && !exists:
		r.mu.Unlock()
		return orderNotFound(order.ID)
	case expectedVersion > 0 && stored.Version != expectedVersion:
		r.mu.Unlock()
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("purchase order %s was modified by another process (expected version %d)", order.ID, expectedVersion))
	}

	if expectedVersion > 0 {
		order.Version = expectedVersion + 1
	}
	r.orders[order.ID] = order.Snapshot()
	r.mu.Unlock()

	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if r.publisher != nil && len(events) > 0 {
		if err := r.publisher.Publish(ctx, events...); err != nil {
			r.logger.Warn("failed to publish purchase order events",
				zap.String("order_id", order.ID.String()),
				zap.Int("event_count", len(events)),
				zap.Error(err),
			)
		}
	}
	return nil
}

// List returns a page of matching orders
func (r *InMemoryPurchaseOrderRepository) List(_ context.Context, filter purchasing.OrderFilter) ([]*purchasing.PurchaseOrder, int64, error) {
	r.mu.RLock()
	matched := make([]purchasing.State, 0, len(r.orders))
	for _, s := range r.orders {
		if matchesFilter(s, filter) {
			matched = append(matched, s)
		}
	}
	r.mu.RUnlock()

	sortStates(matched, filter.Filter)
	total := int64(len(matched))

	if filter.PageSize > 0 {
		start := min(filter.Offset(), len(matched))
		end := min(start+filter.PageSize, len(matched))
		matched = matched[start:end]
	}

	orders := make([]*purchasing.PurchaseOrder, len(matched))
	for i, s := range matched {
		s.History = nil
		orders[i] = purchasing.Restore(s, r.opts...)
	}
	return orders, total, nil
}

// CountByStatus returns the number of orders in each status
func (r *InMemoryPurchaseOrderRepository) CountByStatus(_ context.Context) (map[purchasing.Status]int64, error) {
	counts := make(map[purchasing.Status]int64, len(purchasing.AllStatuses()))
	for _, s := range purchasing.AllStatuses() {
		counts[s] = 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.orders {
		counts[s.Status]++
	}
	return counts, nil
}

func matchesFilter(s purchasing.State, f purchasing.OrderFilter) bool {
	if f.Status != nil && s.Status != *f.Status {
		return false
	}
	if f.SupplierID != nil && s.Supplier.ID != *f.SupplierID {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		return strings.Contains(strings.ToLower(s.OrderNumber), search) ||
			strings.Contains(strings.ToLower(s.Supplier.Name), search) ||
			strings.Contains(strings.ToLower(s.Notes), search)
	}
	return true
}

func sortStates(states []purchasing.State, f shared.Filter) {
	order := resolveOrderSort(f)
	field, asc := order.Column, order.Asc

	compare := func(a, b purchasing.State) int {
		switch field {
		case "updated_at":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case "order_number":
			return strings.Compare(a.OrderNumber, b.OrderNumber)
		case "status":
			return strings.Compare(string(a.Status), string(b.Status))
		case "expected_date":
			switch {
			case a.ExpectedDate == nil && b.ExpectedDate == nil:
				return 0
			case a.ExpectedDate == nil:
				return -1
			case b.ExpectedDate == nil:
				return 1
			}
			return a.ExpectedDate.Compare(*b.ExpectedDate)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(states, func(i, j int) bool {
		c := compare(states[i], states[j])
		if c == 0 {
			c = strings.Compare(states[i].ID.String(), states[j].ID.String())
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

// Ensure InMemoryPurchaseOrderRepository implements the repository port
var _ purchasing.PurchaseOrderRepository = (*InMemoryPurchaseOrderRepository)(nil)
