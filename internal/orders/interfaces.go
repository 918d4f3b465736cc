package orders

import (
	"context"
	"time"

	"github.com/armysmp/storefront/internal/cart"
	"github.com/armysmp/storefront/internal/coupons"
	"github.com/armysmp/storefront/internal/fraud"
	"github.com/armysmp/storefront/internal/notifications"
	"github.com/armysmp/storefront/internal/users"
	"github.com/google/uuid"
)

// RepositoryInterface defines order persistence
type RepositoryInterface interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)
	PaymentReferenceExists(ctx context.Context, reference string) (bool, error)
	UpdateRisk(ctx context.Context, id uuid.UUID, score int, level string) error
	ListOrders(ctx context.Context, filter OrderFilter, limit, offset int) ([]*Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus, paymentStatus PaymentStatus) (*Order, error)
	DeleteOrders(ctx context.Context, ids []uuid.UUID) (int64, error)
	GetDashboardStats(ctx context.Context, dayStart time.Time) (*DashboardStats, error)
}

// CouponService resolves and redeems discount codes
type CouponService interface {
	Validate(ctx context.Context, code string, subtotal float64) (*coupons.CouponContext, error)
	IncrementUsage(ctx context.Context, code string) error
}

// FraudEngine scores orders and maintains account aggregates. Every method
// is best-effort.
type FraudEngine interface {
	AnalyzeOrder(ctx context.Context, order fraud.OrderSnapshot, user *users.User, ip, userAgent string) *fraud.RiskAssessment
	CreateFraudAlert(ctx context.Context, a *fraud.RiskAssessment, orderID uuid.UUID, orderNumber, minecraftUsername string) *fraud.FraudAlert
	UpdateUserFraudStats(ctx context.Context, userID uuid.UUID, orderValue float64, ip string) bool
	RaiseUserRiskScore(ctx context.Context, userID uuid.UUID, score int) bool
}

// UserLookup loads the account placing an order
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// CartStore reads and clears session carts
type CartStore interface {
	GetItems(ctx context.Context, sessionID string) ([]cart.CartItem, error)
	Clear(ctx context.Context, sessionID string) error
}

// OrderNotifier announces placed orders
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, order *notifications.OrderPlaced)
}

// Dispatcher runs best-effort work detached from the request
type Dispatcher interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
}
