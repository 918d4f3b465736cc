package recommendations

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryInterface defines the purchase history queries
type RepositoryInterface interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	SalesSince(ctx context.Context, since time.Time) ([]ProductStat, error)
	CoPurchased(ctx context.Context, productID uuid.UUID) ([]ProductCount, error)
	ProductsInCategories(ctx context.Context, categories []string, limit int) ([]Product, error)
	PurchasedBy(ctx context.Context, userID uuid.UUID) ([]ProductCount, error)
	PeerPurchases(ctx context.Context, userID uuid.UUID) ([]ProductCount, error)
}
