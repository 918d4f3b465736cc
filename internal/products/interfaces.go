package products

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines catalog persistence
type RepositoryInterface interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter, limit, offset int) ([]*Product, int64, error)
	UpdateImageURL(ctx context.Context, id uuid.UUID, url string) error
}
