package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/armysmp/storefront/internal/cart"
	"github.com/google/uuid"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment state of an order
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// OrderItem is a priced line of an order
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Subtotal  float64   `json:"subtotal"`
}

// Order is the stored order including internal risk columns
type Order struct {
	ID                uuid.UUID     `json:"id"`
	OrderNumber       string        `json:"order_number"`
	UserID            *uuid.UUID    `json:"user_id,omitempty"`
	MinecraftUsername string        `json:"minecraft_username"`
	Email             string        `json:"email,omitempty"`
	Items             []OrderItem   `json:"items"`
	Subtotal          float64       `json:"subtotal"`
	Discount          float64       `json:"discount"`
	Total             float64       `json:"total"`
	CouponCode        string        `json:"coupon_code,omitempty"`
	Status            OrderStatus   `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	PaymentReference  string        `json:"payment_reference,omitempty"`
	RiskScore         *int          `json:"risk_score,omitempty"`
	RiskLevel         string        `json:"risk_level,omitempty"`
	IPAddress         string        `json:"ip_address,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// OrderResponse is the customer-facing projection of an order
type OrderResponse struct {
	ID                uuid.UUID     `json:"id"`
	OrderNumber       string        `json:"order_number"`
	MinecraftUsername string        `json:"minecraft_username"`
	Items             []OrderItem   `json:"items"`
	Subtotal          float64       `json:"subtotal"`
	Discount          float64       `json:"discount"`
	Total             float64       `json:"total"`
	CouponCode        string        `json:"coupon_code,omitempty"`
	Status            OrderStatus   `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ToResponse strips internal fields
func (o *Order) ToResponse() *OrderResponse {
	return &OrderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		MinecraftUsername: o.MinecraftUsername,
		Items:             o.Items,
		Subtotal:          o.Subtotal,
		Discount:          o.Discount,
		Total:             o.Total,
		CouponCode:        o.CouponCode,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// CreateOrderRequest is a checkout submission. UserID and SessionID are
// filled from the request, not the body.
type CreateOrderRequest struct {
	UserID            *uuid.UUID      `json:"-"`
	SessionID         string          `json:"-"`
	MinecraftUsername string          `json:"minecraft_username" validate:"max=64"`
	Email             string          `json:"email" validate:"omitempty,email,max=255"`
	Items             []cart.CartItem `json:"items" validate:"max=100,dive"`
	PaymentReference  string          `json:"payment_reference" validate:"max=64"`
	CouponCode        string          `json:"coupon_code" validate:"max=32"`
}

// RequestMeta is what the edge tells us about the caller
type RequestMeta struct {
	IP        string
	UserAgent string
	Country   string
	City      string
}

// OrderFilter narrows admin order listings
type OrderFilter struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Search        string
}

// UpdateStatusRequest changes fulfilment or payment state
type UpdateStatusRequest struct {
	Status        OrderStatus   `json:"status" validate:"omitempty,oneof=pending processing completed cancelled"`
	PaymentStatus PaymentStatus `json:"payment_status" validate:"omitempty,oneof=pending paid failed refunded"`
}

// BulkDeleteRequest removes several orders at once
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
}

// DashboardStats summarises order volume and revenue
type DashboardStats struct {
	TotalOrders      int64   `json:"total_orders"`
	PendingOrders    int64   `json:"pending_orders"`
	ProcessingOrders int64   `json:"processing_orders"`
	CompletedOrders  int64   `json:"completed_orders"`
	CancelledOrders  int64   `json:"cancelled_orders"`
	TotalRevenue     float64 `json:"total_revenue"`
	OrdersToday      int64   `json:"orders_today"`
	RevenueToday     float64 `json:"revenue_today"`
}

const (
	orderNumberPrefix  = "ASMP"
	orderNumberCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	orderNumberGroup   = 6
)

// GenerateOrderNumber returns a human-readable order number such as
// ASMP-7KQ2MD-X9PLR4
func GenerateOrderNumber() (string, error) {
	first, err := randomGroup(orderNumberGroup)
	if err != nil {
		return "", err
	}
	second, err := randomGroup(orderNumberGroup)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, first, second), nil
}

func randomGroup(n int) (string, error) {
	charsetLen := big.NewInt(int64(len(orderNumberCharset)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}
		buf[i] = orderNumberCharset[idx.Int64()]
	}
	return string(buf), nil
}
