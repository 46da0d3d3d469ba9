package purchasing

import (
	"context"
	"fmt"

	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"go.uber.org/zap"
)

// GoodsReceivedHandler handles GoodsReceivedEvent and increases stock for
// every received line
type GoodsReceivedHandler struct {
	inventory purchasing.InventoryService
	logger    *zap.Logger
}

// NewGoodsReceivedHandler creates a new handler for goods received events
func NewGoodsReceivedHandler(inventory purchasing.InventoryService, logger *zap.Logger) *GoodsReceivedHandler {
	return &GoodsReceivedHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *GoodsReceivedHandler) EventTypes() []string {
	return []string{purchasing.EventTypeGoodsReceived}
}

// Handle processes a GoodsReceivedEvent
func (h *GoodsReceivedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	received, ok := event.(*purchasing.GoodsReceivedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", purchasing.EventTypeGoodsReceived),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			purchasing.EventTypeGoodsReceived, event.EventType())
	}

	h.logger.Info("processing goods received event",
		zap.String("order_id", received.AggregateID().String()),
		zap.String("order_number", received.OrderNumber),
		zap.Int("lines", len(received.Lines)),
		zap.Bool("complete", received.Complete),
	)

	var lastErr error
	successCount := 0
	for _, line := range received.Lines {
		receipt := purchasing.StockReceipt{
			IdempotencyKey: StockReceiptKey(received, line),
			OrderID:        received.AggregateID(),
			OrderNumber:    received.OrderNumber,
			ItemID:         line.ItemID,
			ProductID:      line.ProductID,
			SKU:            line.SKU,
			Quantity:       line.Quantity,
		}
		if err := h.inventory.ReceiveStock(ctx, receipt); err != nil {
			h.logger.Error("failed to increase stock for received line",
				zap.String("order_id", receipt.OrderID.String()),
				zap.String("product_id", line.ProductID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		successCount++
	}

	h.logger.Info("goods received processing completed",
		zap.String("order_id", received.AggregateID().String()),
		zap.Int("total_lines", len(received.Lines)),
		zap.Int("success_count", successCount),
		zap.Bool("has_errors", lastErr != nil),
	)

	if lastErr != nil {
		return fmt.Errorf("some lines failed to process: %w", lastErr)
	}
	return nil
}

// StockReceiptKey identifies one stock instruction across redeliveries
func StockReceiptKey(event *purchasing.GoodsReceivedEvent, line purchasing.ReceivedLine) string {
	return event.EventID().String() + ":" + line.ItemID.String()
}

var _ shared.EventHandler = (*GoodsReceivedHandler)(nil)
