package port

import (
	"context"

	"github.com/rl1809/production-schedule/internal/core/domain"
)

type ProductCatalog interface {
	// GetProductWithParts returns nil, nil when the product does not exist
	GetProductWithParts(ctx context.Context, productID string) (*domain.Product, error)
}
