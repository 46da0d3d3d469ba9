package integration

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/purchasing"
	"github.com/opsdash/purchasing/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type productResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ProductCatalogClient resolves products over HTTP
type ProductCatalogClient struct {
	client *resty.Client
}

// NewProductCatalogClient creates a client for GET {base}/products/{id}
func NewProductCatalogClient(cfg config.IntegrationsConfig, logger *zap.Logger) *ProductCatalogClient {
	return &ProductCatalogClient{client: newRestClient(cfg.ProductCatalogURL, cfg, logger)}
}

// Lookup returns the product's name, SKU and list price
func (c *ProductCatalogClient) Lookup(ctx context.Context, productID uuid.UUID) (purchasing.CatalogProduct, error) {
	var body productResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", productID.String()).
		SetResult(&body).
		Get("/products/{id}")
	if err := checkResponse(resp, err, "product lookup"); err != nil {
		return purchasing.CatalogProduct{}, err
	}

	return purchasing.CatalogProduct{
		ProductRef: purchasing.ProductRef{
			ProductID: productID,
			Name:      body.Name,
			SKU:       body.SKU,
		},
		UnitPrice: body.UnitPrice,
	}, nil
}

var _ purchasing.ProductCatalog = (*ProductCatalogClient)(nil)
