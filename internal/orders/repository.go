package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/armysmp/storefront/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound             = errors.New("order not found")
	ErrDuplicatePaymentReference = errors.New("payment reference already used")
	ErrDuplicateOrderNumber      = errors.New("order number already exists")
)

const (
	paymentReferenceConstraint = "orders_payment_reference_key"
	orderNumberConstraint      = "orders_order_number_key"
)

const orderColumns = `
	id, order_number, user_id, minecraft_username, COALESCE(email, ''), items,
	subtotal, discount, total, COALESCE(coupon_code, ''), status, payment_status,
	COALESCE(payment_reference, ''), risk_score, COALESCE(risk_level, ''),
	COALESCE(ip_address, ''), created_at, updated_at`

// Repository handles order persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new orders repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var itemsJSON []byte
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.MinecraftUsername, &o.Email, &itemsJSON,
		&o.Subtotal, &o.Discount, &o.Total, &o.CouponCode, &o.Status, &o.PaymentStatus,
		&o.PaymentReference, &o.RiskScore, &o.RiskLevel,
		&o.IPAddress, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	return &o, nil
}

// CreateOrder inserts a new order
func (r *Repository) CreateOrder(ctx context.Context, order *Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, order_number, user_id, minecraft_username, email, items,
			subtotal, discount, total, coupon_code, status, payment_status,
			payment_reference, ip_address
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, NULLIF($10, ''),
			$11, $12, NULLIF($13, ''), NULLIF($14, ''))
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.MinecraftUsername,
		order.Email,
		itemsJSON,
		order.Subtotal,
		order.Discount,
		order.Total,
		order.CouponCode,
		order.Status,
		order.PaymentStatus,
		order.PaymentReference,
		order.IPAddress,
	).Scan(&order.CreatedAt, &order.UpdatedAt)

	switch {
	case database.IsUniqueViolation(err, paymentReferenceConstraint):
		return ErrDuplicatePaymentReference
	case database.IsUniqueViolation(err, orderNumberConstraint):
		return ErrDuplicateOrderNumber
	}
	return err
}

// GetOrderByID retrieves an order by ID
func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRow(ctx, query, id))
}

// GetOrderByNumber retrieves an order by its public number
func (r *Repository) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return scanOrder(r.db.QueryRow(ctx, query, orderNumber))
}

// PaymentReferenceExists reports whether an order already carries reference
func (r *Repository) PaymentReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE payment_reference = $1)`,
		reference,
	).Scan(&exists)
	return exists, err
}

// UpdateRisk stores the fraud score on the order
func (r *Repository) UpdateRisk(ctx context.Context, id uuid.UUID, score int, level string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET risk_score = $2, risk_level = $3 WHERE id = $1`,
		id, score, level,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListOrders retrieves a page of orders with the total matching count
func (r *Repository) ListOrders(ctx context.Context, filter OrderFilter, limit, offset int) ([]*Order, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(order_number ILIKE $%d OR minecraft_username ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]*Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus sets the fulfilment and/or payment status. Empty values keep
// the stored state.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus, paymentStatus PaymentStatus) (*Order, error) {
	query := `
		UPDATE orders
		SET status = COALESCE(NULLIF($2, ''), status),
		    payment_status = COALESCE(NULLIF($3, ''), payment_status),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns

	return scanOrder(r.db.QueryRow(ctx, query, id, string(status), string(paymentStatus)))
}

// DeleteOrders removes the given orders and returns how many existed
func (r *Repository) DeleteOrders(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetDashboardStats aggregates order counts and paid revenue
func (r *Repository) GetDashboardStats(ctx context.Context, dayStart time.Time) (*DashboardStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(total) FILTER (WHERE payment_status = 'paid'), 0),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COALESCE(SUM(total) FILTER (WHERE payment_status = 'paid' AND created_at >= $1), 0)
		FROM orders
	`

	var stats DashboardStats
	err := r.db.QueryRow(ctx, query, dayStart).Scan(
		&stats.TotalOrders,
		&stats.PendingOrders,
		&stats.ProcessingOrders,
		&stats.CompletedOrders,
		&stats.CancelledOrders,
		&stats.TotalRevenue,
		&stats.OrdersToday,
		&stats.RevenueToday,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
