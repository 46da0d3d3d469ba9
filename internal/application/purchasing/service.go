package purchasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/opsdash/purchasing/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/opsdash/purchasing/internal/application/purchasing"

// OrderLocker serializes mutations of a single order across requests
type OrderLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// PurchaseOrderService runs purchase order commands and queries
type PurchaseOrderService struct {
	orderRepo purchasing.PurchaseOrderRepository
	locker    OrderLocker
	suppliers purchasing.SupplierDirectory
	catalog   purchasing.ProductCatalog
	taxPolicy purchasing.TaxPolicy
	currency  string
	logger    *zap.Logger
	tracer    trace.Tracer
	clock     func() time.Time
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(orderRepo purchasing.PurchaseOrderRepository, locker OrderLocker, log *zap.Logger) *PurchaseOrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PurchaseOrderService{
		orderRepo: orderRepo,
		locker:    locker,
		taxPolicy: purchasing.FlatTax{Rate: purchasing.DefaultTaxRate},
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		clock:     time.Now,
	}
}

// SetSupplierDirectory sets the directory used to snapshot supplier details at creation
func (s *PurchaseOrderService) SetSupplierDirectory(d purchasing.SupplierDirectory) {
	s.suppliers = d
}

// SetProductCatalog sets the catalog used to resolve products when adding items
func (s *PurchaseOrderService) SetProductCatalog(c purchasing.ProductCatalog) {
	s.catalog = c
}

// SetTaxPolicy sets the policy used for totals
func (s *PurchaseOrderService) SetTaxPolicy(p purchasing.TaxPolicy) {
	if p != nil {
		s.taxPolicy = p
	}
}

// SetCurrency sets the ISO currency code reported with order totals
func (s *PurchaseOrderService) SetCurrency(code string) {
	s.currency = code
}

// SetTracer overrides the tracer
func (s *PurchaseOrderService) SetTracer(t trace.Tracer) {
	s.tracer = t
}

// SetClock overrides the time source of new orders
func (s *PurchaseOrderService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Create creates a draft purchase order
func (s *PurchaseOrderService) Create(ctx context.Context, req CreateOrderRequest, caller Caller) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "purchasing.Create",
		trace.WithAttributes(attribute.String("supplier.id", req.SupplierID.String())))
	defer span.End()

	supplier := purchasing.SupplierSnapshot{ID: req.SupplierID, Name: req.SupplierName}
	if s.suppliers != nil && req.SupplierID != uuid.Nil {
		found, err := s.suppliers.Lookup(ctx, req.SupplierID)
		if err != nil {
			return nil, s.fail(span, fmt.Errorf("lookup supplier: %w", err))
		}
		supplier = found
		supplier.ID = req.SupplierID
	}

	order, err := purchasing.NewPurchaseOrder(purchasing.CreateParams{
		Supplier:        supplier,
		ExpectedDate:    req.ExpectedDate,
		PaymentTerms:    req.PaymentTerms,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}, caller.Actor, purchasing.WithClock(s.clock))
	if err != nil {
		return nil, s.fail(span, err)
	}

	if err := s.orderRepo.Save(ctx, order, 0); err != nil {
		return nil, s.fail(span, err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	logger.WithLogger(ctx, s.logger).Info("purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("supplier_id", supplier.ID.String()),
	)
	return s.view(order), nil
}

// AddItem adds a line to a draft order
func (s *PurchaseOrderService) AddItem(ctx context.Context, orderID uuid.UUID, req AddItemRequest, caller Caller) (*OrderView, error) {
	product := purchasing.ProductRef{ProductID: req.ProductID, Name: req.ProductName, SKU: req.SKU}
	price := decimal.Zero
	if req.UnitPrice != nil {
		price = *req.UnitPrice
	}

	ctx, span := s.startSpan(ctx, "AddItem", orderID)
	defer span.End()

	if s.catalog != nil && req.ProductID != uuid.Nil {
		found, err := s.catalog.Lookup(ctx, req.ProductID)
		if err != nil {
			return nil, s.fail(span, fmt.Errorf("lookup product: %w", err))
		}
		if product.Name == "" {
			product.Name = found.Name
		}
		if product.SKU == "" {
			product.SKU = found.SKU
		}
		if req.UnitPrice == nil {
			price = found.UnitPrice
		}
	}

	return s.apply(ctx, span, "AddItem", orderID, caller, func(order *purchasing.PurchaseOrder) error {
		_, err := order.AddItem(product, req.Quantity, price, req.DiscountPercent, caller.Actor)
		return err
	})
}

// UpdateItem edits a line of a draft order
func (s *PurchaseOrderService) UpdateItem(ctx context.Context, orderID, itemID uuid.UUID, req UpdateItemRequest, caller Caller) (*OrderView, error) {
	return s.mutate(ctx, "UpdateItem", orderID, caller, func(order *purchasing.PurchaseOrder) error {
		_, err := order.UpdateItem(itemID, purchasing.ItemUpdate{
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			DiscountPercent: req.DiscountPercent,
		}, caller.Actor)
		return err
	})
}

// RemoveItem deletes a line from a draft order
func (s *PurchaseOrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID, caller Caller) (*OrderView, error) {
	return s.mutate(ctx, "RemoveItem", orderID, caller, func(order *purchasing.PurchaseOrder) error {
		return order.RemoveItem(itemID, caller.Actor)
	})
}

// Send sends a draft order to its supplier
func (s *PurchaseOrderService) Send(ctx context.Context, orderID uuid.UUID, caller Caller) (*OrderView, error) {
	return s.mutate(ctx, "Send", orderID, caller, func(order *purchasing.PurchaseOrder) error {
		return order.Send(caller.Actor)
	})
}

// Confirm records the supplier's confirmation
func (s *PurchaseOrderService) Confirm(ctx context.Context, orderID uuid.UUID, caller Caller) (*OrderView, error) {
	return s.mutate(ctx, "Confirm", orderID, caller, func(order *purchasing.PurchaseOrder) error {
		return order.Confirm(caller.Actor)
	})
}

// Cancel cancels a non-terminal order
func (s *PurchaseOrderService) Cancel(ctx context.Context, orderID uuid.UUID, req CancelRequest, caller Caller) (*OrderView, error) {
	return s.mutate(ctx, "Cancel", orderID, caller, func(order *purchasing.PurchaseOrder) error {
		return order.Cancel(req.Reason, caller.Actor)
	})
}

// Receive applies received quantities. A request that receives nothing is
// not persisted and returns the unchanged order.
func (s *PurchaseOrderService) Receive(ctx context.Context, orderID uuid.UUID, req ReceiveRequest, caller Caller) (*ReceiptView, error) {
	var receipt *purchasing.Receipt
	view, err := s.mutate(ctx, "Receive", orderID, caller, func(order *purchasing.PurchaseOrder) error {
		r, err := order.Receive(req.Quantities, caller.Actor)
		if err != nil {
			return err
		}
		receipt = r
		if r.IsEmpty() {
			return errNothingChanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toReceiptView(view, receipt), nil
}

// GetByID returns an order with its items, totals and history
func (s *PurchaseOrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "purchasing.GetByID",
		trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return s.view(order), nil
}

// GetHistory returns the audit log of an order
func (s *PurchaseOrderService) GetHistory(ctx context.Context, orderID uuid.UUID) ([]HistoryView, error) {
	ctx, span := s.tracer.Start(ctx, "purchasing.GetHistory",
		trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return ToHistoryViews(order.History()), nil
}

// List returns a page of orders
func (s *PurchaseOrderService) List(ctx context.Context, filter ListFilter) (shared.Paginated[OrderListItem], error) {
	ctx, span := s.tracer.Start(ctx, "purchasing.List")
	defer span.End()

	domainFilter := purchasing.OrderFilter{
		Filter:     shared.DefaultFilter(),
		SupplierID: filter.SupplierID,
		Search:     filter.Search,
	}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		status, err := purchasing.ParseStatus(filter.Status)
		if err != nil {
			return shared.Paginated[OrderListItem]{}, s.fail(span, err)
		}
		domainFilter.Status = &status
	}

	orders, total, err := s.orderRepo.List(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[OrderListItem]{}, s.fail(span, err)
	}

	items := make([]OrderListItem, len(orders))
	for i, o := range orders {
		items[i] = ToOrderListItem(o, s.taxPolicy)
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// GetStatusSummary counts orders per status
func (s *PurchaseOrderService) GetStatusSummary(ctx context.Context) (*StatusSummary, error) {
	ctx, span := s.tracer.Start(ctx, "purchasing.GetStatusSummary")
	defer span.End()

	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, s.fail(span, err)
	}

	summary := &StatusSummary{Counts: make(map[string]int64, len(purchasing.AllStatuses()))}
	for _, st := range purchasing.AllStatuses() {
		n := counts[st]
		summary.Counts[string(st)] = n
		summary.Total += n
		if !st.IsTerminal() {
			summary.Open += n
		}
	}
	return summary, nil
}

// errNothingChanged aborts a mutation that applied nothing, without error
var errNothingChanged = errors.New("nothing changed")

// mutate loads an order under its lock, applies fn and saves the result with
// an optimistic version check.
func (s *PurchaseOrderService) mutate(ctx context.Context, op string, orderID uuid.UUID, caller Caller, fn func(*purchasing.PurchaseOrder) error) (*OrderView, error) {
	ctx, span := s.startSpan(ctx, op, orderID)
	defer span.End()
	return s.apply(ctx, span, op, orderID, caller, fn)
}

func (s *PurchaseOrderService) startSpan(ctx context.Context, op string, orderID uuid.UUID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "purchasing."+op,
		trace.WithAttributes(attribute.String("order.id", orderID.String())))
}

// apply is mutate inside a span the caller already started
func (s *PurchaseOrderService) apply(ctx context.Context, span trace.Span, op string, orderID uuid.UUID, caller Caller, fn func(*purchasing.PurchaseOrder) error) (*OrderView, error) {
	release, err := s.locker.Acquire(ctx, LockKey(orderID))
	if err != nil {
		return nil, s.fail(span, err)
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if caller.ExpectedVersion > 0 && caller.ExpectedVersion != order.Version {
		return nil, s.fail(span, shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("purchase order was modified: expected version %d, current version %d",
				caller.ExpectedVersion, order.Version)))
	}

	expected := order.Version
	fromStatus := order.Status
	if err := fn(order); err != nil {
		if errors.Is(err, errNothingChanged) {
			return s.view(order), nil
		}
		return nil, s.fail(span, err)
	}

	if err := s.orderRepo.Save(ctx, order, expected); err != nil {
		return nil, s.fail(span, err)
	}

	span.SetAttributes(
		attribute.String("order.status", string(order.Status)),
		attribute.Int("order.version", order.Version),
	)
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("order_id", order.ID.String()),
		zap.String("operation", op),
		zap.Int("version", order.Version),
	)
	if fromStatus != order.Status {
		log.Info("purchase order status changed",
			zap.String("from", string(fromStatus)),
			zap.String("to", string(order.Status)),
		)
	} else {
		log.Debug("purchase order updated")
	}
	return s.view(order), nil
}

func (s *PurchaseOrderService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// LockKey is the lock name guarding one order
func LockKey(orderID uuid.UUID) string {
	return "purchase-order:" + orderID.String()
}

func (s *PurchaseOrderService) view(order *purchasing.PurchaseOrder) *OrderView {
	v := ToOrderView(order, s.taxPolicy)
	v.Totals.Currency = s.currency
	return v
}
