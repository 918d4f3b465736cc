package fraud

import (
	"context"
	"time"

	"github.com/armysmp/storefront/internal/users"
	"github.com/google/uuid"
)

// RepositoryInterface defines alert persistence and the order reads the
// engine needs
type RepositoryInterface interface {
	CreateAlert(ctx context.Context, alert *FraudAlert) error
	GetAlertByID(ctx context.Context, id uuid.UUID) (*FraudAlert, error)
	ListAlerts(ctx context.Context, filter AlertFilter, limit, offset int) ([]*FraudAlert, int64, error)
	ListAlertsByEmail(ctx context.Context, email string, limit int) ([]*FraudAlert, error)
	UpdateAlertReview(ctx context.Context, id uuid.UUID, review AlertReview) (*FraudAlert, error)
	GetAlertStats(ctx context.Context, dayStart, weekStart time.Time) (*FraudStats, error)

	CountOrdersByEmailSince(ctx context.Context, email string, since time.Time) (int, error)
	ListOrdersByEmail(ctx context.Context, email string, limit int) ([]*OrderSummary, error)
	GetOrderSummary(ctx context.Context, orderID uuid.UUID) (*OrderSummary, error)
}

// UserStore is the account persistence the engine reads and mutates
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
	MutateUser(ctx context.Context, id uuid.UUID, fn func(u *users.User) error) (*users.User, error)
	CountBlockedUsers(ctx context.Context) (int64, error)
}

// BlacklistStore holds IP addresses copied from blocked accounts
type BlacklistStore interface {
	Contains(ctx context.Context, ip string) (bool, error)
	AddAll(ctx context.Context, ips []string) error
	Size(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]string, error)
}

// AlertNotifier is told about every persisted alert; implementations must not block
type AlertNotifier interface {
	FraudAlertCreated(ctx context.Context, alert *FraudAlert)
	UserBlocked(ctx context.Context, userID uuid.UUID, ips []string)
}
