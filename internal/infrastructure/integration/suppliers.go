package integration

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"go.uber.org/zap"
)

type supplierResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Phone   string    `json:"phone"`
	Address string    `json:"address"`
}

// SupplierDirectoryClient resolves suppliers over HTTP
type SupplierDirectoryClient struct {
	client *resty.Client
}

// NewSupplierDirectoryClient creates a client for GET {base}/suppliers/{id}
func NewSupplierDirectoryClient(cfg config.IntegrationsConfig, logger *zap.Logger) *SupplierDirectoryClient {
	return &SupplierDirectoryClient{client: newRestClient(cfg.SupplierDirectoryURL, cfg, logger)}
}

// Lookup returns the supplier's contact snapshot
func (c *SupplierDirectoryClient) Lookup(ctx context.Context, supplierID uuid.UUID) (purchasing.SupplierSnapshot, error) {
	var body supplierResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", supplierID.String()).
		SetResult(&body).
		Get("/suppliers/{id}")
	if err := checkResponse(resp, err, "supplier lookup"); err != nil {
		return purchasing.SupplierSnapshot{}, err
	}

	return purchasing.SupplierSnapshot{
		ID:      supplierID,
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Address: body.Address,
	}, nil
}

var _ purchasing.SupplierDirectory = (*SupplierDirectoryClient)(nil)
