package coupons

import "context"

// RepositoryInterface defines coupon persistence
type RepositoryInterface interface {
	GetCouponByCode(ctx context.Context, code string) (*Coupon, error)
	IncrementUsage(ctx context.Context, code string) error
}
