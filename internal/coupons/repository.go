package coupons

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCouponNotFound = errors.New("coupon not found")

// Repository handles coupon persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new coupons repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetCouponByCode retrieves a coupon; codes are stored upper-case
func (r *Repository) GetCouponByCode(ctx context.Context, code string) (*Coupon, error) {
	query := `
		SELECT code, discount_type, discount_value, min_order_value, max_uses,
		       used_count, expires_at, active, created_at
		FROM coupons
		WHERE code = UPPER($1)
	`

	var c Coupon
	err := r.db.QueryRow(ctx, query, code).Scan(
		&c.Code,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MinOrderValue,
		&c.MaxUses,
		&c.UsedCount,
		&c.ExpiresAt,
		&c.Active,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &c, nil
}

// IncrementUsage bumps used_count atomically
func (r *Repository) IncrementUsage(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE code = UPPER($1)`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}
