package coupons

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/armysmp/storefront/pkg/common"
)

// Service validates and redeems coupons
type Service struct {
	repo RepositoryInterface
	now  func() time.Time
}

// NewService creates a new coupon service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Validate resolves code against subtotal. Unusable coupons yield a 400.
func (s *Service) Validate(ctx context.Context, code string, subtotal float64) (*CouponContext, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	coupon, err := s.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, common.NewBadRequestError("invalid coupon code", err)
		}
		return nil, common.NewInternalError("failed to load coupon", err)
	}

	switch {
	case !coupon.Active:
		return nil, common.NewBadRequestError("coupon is not active", nil)
	case coupon.Expired(s.now()):
		return nil, common.NewBadRequestError("coupon has expired", nil)
	case coupon.Exhausted():
		return nil, common.NewBadRequestError("coupon usage limit reached", nil)
	case subtotal < coupon.MinOrderValue:
		return nil, common.NewBadRequestError(
			fmt.Sprintf("order must be at least %.2f to use this coupon", coupon.MinOrderValue), nil).
			WithDetail("min_order_value", coupon.MinOrderValue)
	}

	discount := discountFor(coupon, subtotal)
	final := roundMoney(subtotal - discount)

	return &CouponContext{
		Code:       coupon.Code,
		Discount:   discount,
		FinalTotal: &final,
	}, nil
}

// IncrementUsage records one redemption
func (s *Service) IncrementUsage(ctx context.Context, code string) error {
	if err := s.repo.IncrementUsage(ctx, strings.ToUpper(strings.TrimSpace(code))); err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	return nil
}

func discountFor(c *Coupon, subtotal float64) float64 {
	var d float64
	switch c.DiscountType {
	case DiscountPercent:
		d = subtotal * c.DiscountValue / 100
	case DiscountFixed:
		d = c.DiscountValue
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return roundMoney(d)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
