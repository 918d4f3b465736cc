package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisclient "github.com/armysmp/storefront/pkg/redis"
	"github.com/google/uuid"
)

const (
	keyPrefix = "cart:"
	cartTTL   = 7 * 24 * time.Hour

	// SessionHeader carries the anonymous cart session id
	SessionHeader = "X-Session-ID"
)

// CartItem is one product line in a cart
type CartItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Name      string    `json:"name" validate:"notblank,max=255"`
	Price     float64   `json:"price" validate:"gte=0"`
	Quantity  int       `json:"quantity" validate:"min=1,max=999"`
}

// SaveRequest replaces the contents of a cart
type SaveRequest struct {
	Items []CartItem `json:"items" validate:"max=100,dive"`
}

// Store keeps session carts in Redis
type Store struct {
	client *redisclient.Client
}

// NewStore creates a new cart store
func NewStore(client *redisclient.Client) *Store {
	return &Store{client: client}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// GetItems returns the cart for sessionID; a missing cart is empty
func (s *Store) GetItems(ctx context.Context, sessionID string) ([]CartItem, error) {
	items := []CartItem{}
	err := s.client.GetJSON(ctx, key(sessionID), &items)
	if errors.Is(err, redisclient.ErrCacheMiss) {
		return []CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return items, nil
}

// SaveItems replaces the cart and refreshes its TTL
func (s *Store) SaveItems(ctx context.Context, sessionID string, items []CartItem) error {
	if len(items) == 0 {
		return s.Clear(ctx, sessionID)
	}
	if err := s.client.SetJSON(ctx, key(sessionID), items, cartTTL); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Clear removes the cart
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Delete(ctx, key(sessionID)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
