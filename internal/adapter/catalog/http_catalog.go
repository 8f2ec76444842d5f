package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/port"
)

// HTTPCatalog reads products from the back-office API that owns them.
type HTTPCatalog struct {
	httpClient *resty.Client
}

var _ port.ProductCatalog = (*HTTPCatalog)(nil)

type productResponse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Parts []partResponse `json:"parts"`
}

type partResponse struct {
	Name         string  `json:"name"`
	Measurements *string `json:"measurements"`
	Quantity     int     `json:"quantity"`
}

func NewHTTPCatalog(baseURL string, timeout time.Duration) *HTTPCatalog {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &HTTPCatalog{httpClient: client}
}

func (c *HTTPCatalog) GetProductWithParts(ctx context.Context, productID string) (*domain.Product, error) {
	var out productResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", productID).
		SetResult(&out).
		Get("/api/products/{id}")
	if err != nil {
		return nil, fmt.Errorf("request product: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("catalog returned %s", resp.Status())
	}

	product := &domain.Product{
		ID:    out.ID,
		Name:  out.Name,
		Parts: make([]domain.Part, 0, len(out.Parts)),
	}
	if product.ID == "" {
		product.ID = productID
	}
	for _, p := range out.Parts {
		product.Parts = append(product.Parts, domain.Part{
			Name:         p.Name,
			Measurements: p.Measurements,
			UnitQuantity: p.Quantity,
		})
	}
	return product, nil
}
