// Package integration holds HTTP clients for the services around purchasing:
// the supplier directory, the product catalog, inventory and notifications.
package integration

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Clients bundles the configured collaborators. A collaborator without a
// base URL is left nil.
type Clients struct {
	Suppliers     *SupplierDirectoryClient
	Catalog       *ProductCatalogClient
	Inventory     *InventoryClient
	Notifications *NotificationClient
}

// New builds a client for every collaborator that has a base URL
func New(cfg config.IntegrationsConfig, logger *zap.Logger) *Clients {
	c := &Clients{}
	if cfg.SupplierDirectoryURL != "" {
		c.Suppliers = NewSupplierDirectoryClient(cfg, logger)
	}
	if cfg.ProductCatalogURL != "" {
		c.Catalog = NewProductCatalogClient(cfg, logger)
	}
	if cfg.InventoryServiceURL != "" {
		c.Inventory = NewInventoryClient(cfg, logger)
	}
	if cfg.NotificationServiceURL != "" {
		c.Notifications = NewNotificationClient(cfg, logger)
	}
	return c
}

// apiError is the error body the collaborators return
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newRestClient builds a resty client with shared timeout and retry policy.
// Only transport errors and 5xx/429 responses are retried.
func newRestClient(baseURL string, cfg config.IntegrationsConfig, logger *zap.Logger) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	wait := max(cfg.RetryWait, 100*time.Millisecond)

	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(4*wait).
		SetHeader("Accept", "application/json").
		SetError(&apiError{}).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		}).
		OnError(func(req *resty.Request, err error) {
			logger.Warn("integration request failed",
				zap.String("method", req.Method),
				zap.String("url", req.URL),
				zap.Error(err),
			)
		})
}

// checkResponse maps a collaborator response onto the error taxonomy
func checkResponse(resp *resty.Response, err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !resp.IsError() {
		return nil
	}

	msg := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
		msg = e.Message
	}

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("%s: %s", what, msg))
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("%s: %s", what, msg))
	case http.StatusConflict:
		return shared.NewDomainError(shared.CodeConcurrencyConflict, fmt.Sprintf("%s: %s", what, msg))
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", what, resp.StatusCode(), msg)
	}
}
