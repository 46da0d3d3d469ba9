package purchasing

import (
	"context"
	"fmt"

	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"go.uber.org/zap"
)

// SupplierNotificationHandler notifies the supplier when an order is sent
type SupplierNotificationHandler struct {
	notifier purchasing.NotificationService
	logger   *zap.Logger
}

// NewSupplierNotificationHandler creates a new SupplierNotificationHandler
func NewSupplierNotificationHandler(notifier purchasing.NotificationService, logger *zap.Logger) *SupplierNotificationHandler {
	return &SupplierNotificationHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *SupplierNotificationHandler) EventTypes() []string {
	return []string{purchasing.EventTypePurchaseOrderSent}
}

// Handle processes a PurchaseOrderSentEvent
func (h *SupplierNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	sent, ok := event.(*purchasing.PurchaseOrderSentEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			purchasing.EventTypePurchaseOrderSent, event.EventType())
	}

	n := purchasing.SupplierNotification{
		OrderID:     sent.AggregateID(),
		OrderNumber: sent.OrderNumber,
		Supplier:    sent.Supplier,
		ItemCount:   sent.ItemCount,
		TotalUnits:  sent.TotalUnits,
	}
	if sent.ExpectedDate != nil {
		n.ExpectedDate = sent.ExpectedDate.Format("2006-01-02")
	}

	if err := h.notifier.NotifySupplier(ctx, n); err != nil {
		h.logger.Warn("supplier notification failed",
			zap.String("order_id", n.OrderID.String()),
			zap.String("supplier_id", n.Supplier.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("notify supplier: %w", err)
	}

	h.logger.Info("supplier notified",
		zap.String("order_id", n.OrderID.String()),
		zap.String("order_number", n.OrderNumber),
	)
	return nil
}

var _ shared.EventHandler = (*SupplierNotificationHandler)(nil)
