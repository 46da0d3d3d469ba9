package integration

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NotificationClient asks the notification service to message suppliers
type NotificationClient struct {
	client *resty.Client
}

// NewNotificationClient creates a client for POST {base}/notifications/suppliers
func NewNotificationClient(cfg config.IntegrationsConfig, logger *zap.Logger) *NotificationClient {
	return &NotificationClient{client: newRestClient(cfg.NotificationServiceURL, cfg, logger)}
}

// NotifySupplier sends the order-sent notification
func (c *NotificationClient) NotifySupplier(ctx context.Context, n purchasing.SupplierNotification) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(IdempotencyKeyHeader, "po-sent:"+n.OrderID.String()).
		SetBody(n).
		Post("/notifications/suppliers")
	return checkResponse(resp, err, "notify supplier")
}

// LogNotifier logs notifications instead of delivering them. It stands in
// when no notification service is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifySupplier logs the notification
func (n *LogNotifier) NotifySupplier(_ context.Context, msg purchasing.SupplierNotification) error {
	n.logger.Info("supplier notification (not delivered, no notification service configured)",
		zap.String("order_number", msg.OrderNumber),
		zap.String("supplier_email", msg.Supplier.Email),
		zap.Int("item_count", msg.ItemCount),
	)
	return nil
}

var (
	_ purchasing.NotificationService = (*NotificationClient)(nil)
	_ purchasing.NotificationService = (*LogNotifier)(nil)
)
