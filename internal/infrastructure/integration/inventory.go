package integration

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the receipt key so inventory applies a
// redelivered receipt only once
const IdempotencyKeyHeader = "Idempotency-Key"

// InventoryClient posts stock receipts to the inventory service
type InventoryClient struct {
	client *resty.Client
	logger *zap.Logger
}

// NewInventoryClient creates a client for POST {base}/stock/receipts
func NewInventoryClient(cfg config.IntegrationsConfig, logger *zap.Logger) *InventoryClient {
	return &InventoryClient{
		client: newRestClient(cfg.InventoryServiceURL, cfg, logger),
		logger: logger,
	}
}

// ReceiveStock increases stock for one received line
func (c *InventoryClient) ReceiveStock(ctx context.Context, receipt purchasing.StockReceipt) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(IdempotencyKeyHeader, receipt.IdempotencyKey).
		SetBody(receipt).
		Post("/stock/receipts")
	if err := checkResponse(resp, err, "receive stock"); err != nil {
		return err
	}

	c.logger.Debug("stock receipt accepted",
		zap.String("idempotency_key", receipt.IdempotencyKey),
		zap.String("product_id", receipt.ProductID.String()),
		zap.Int("quantity", receipt.Quantity),
	)
	return nil
}

var _ purchasing.InventoryService = (*InventoryClient)(nil)
