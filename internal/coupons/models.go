package coupons

import "time"

// DiscountType is how a coupon reduces the subtotal
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Coupon is a redeemable discount code
type Coupon struct {
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	MinOrderValue float64      `json:"min_order_value"`
	MaxUses       int          `json:"max_uses"`
	UsedCount     int          `json:"used_count"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Exhausted reports whether the coupon reached its usage cap
func (c *Coupon) Exhausted() bool {
	return c.MaxUses > 0 && c.UsedCount >= c.MaxUses
}

// Expired reports whether the coupon is past its expiry at now
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// CouponContext is a resolved coupon applied to a subtotal
type CouponContext struct {
	Code       string   `json:"code"`
	Discount   float64  `json:"discount"`
	FinalTotal *float64 `json:"final_total,omitempty"`
}

// ValidateRequest checks a code against a cart subtotal
type ValidateRequest struct {
	Code     string  `json:"code" validate:"notblank,max=32"`
	Subtotal float64 `json:"subtotal" validate:"gte=0"`
}
