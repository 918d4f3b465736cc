package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAlertNotFound = errors.New("fraud alert not found")
	ErrOrderNotFound = errors.New("order not found")
)

const alertColumns = `
	id, order_id, COALESCE(order_number, ''), COALESCE(user_email, ''),
	COALESCE(minecraft_username, ''), risk_score, risk_level, flags, order_value,
	COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(geo_country, ''),
	COALESCE(geo_city, ''), status, COALESCE(reviewed_by, ''), reviewed_at,
	COALESCE(notes, ''), action_taken, created_at, updated_at`

const orderSummaryColumns = `
	id, order_number, minecraft_username, COALESCE(email, ''), total,
	status, payment_status, risk_score, created_at`

// Repository handles fraud alert persistence and order lookups
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new fraud repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanAlert(row pgx.Row) (*FraudAlert, error) {
	var a FraudAlert
	var flagsJSON []byte
	err := row.Scan(
		&a.ID, &a.OrderID, &a.OrderNumber, &a.UserEmail,
		&a.MinecraftUsername, &a.RiskScore, &a.RiskLevel, &flagsJSON, &a.OrderValue,
		&a.IPAddress, &a.UserAgent, &a.Geolocation.Country,
		&a.Geolocation.City, &a.Status, &a.ReviewedBy, &a.ReviewedAt,
		&a.Notes, &a.ActionTaken, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(flagsJSON, &a.Flags); err != nil {
		a.Flags = []RiskFlag{}
	}
	return &a, nil
}

func collectAlerts(rows pgx.Rows) ([]*FraudAlert, error) {
	defer rows.Close()

	alerts := make([]*FraudAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanOrderSummary(row pgx.Row) (*OrderSummary, error) {
	var o OrderSummary
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.MinecraftUsername, &o.Email, &o.Total,
		&o.Status, &o.PaymentStatus, &o.RiskScore, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// CreateAlert inserts a new fraud alert
func (r *Repository) CreateAlert(ctx context.Context, alert *FraudAlert) error {
	flagsJSON, err := json.Marshal(alert.Flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}

	query := `
		INSERT INTO fraud_alerts (
			id, order_id, order_number, user_email, minecraft_username,
			risk_score, risk_level, flags, order_value, ip_address, user_agent,
			geo_country, geo_city, status, action_taken, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11,
			NULLIF($12, ''), NULLIF($13, ''), $14, $15, $16, $17)
	`

	_, err = r.db.Exec(ctx, query,
		alert.ID,
		alert.OrderID,
		alert.OrderNumber,
		alert.UserEmail,
		alert.MinecraftUsername,
		alert.RiskScore,
		alert.RiskLevel,
		flagsJSON,
		alert.OrderValue,
		alert.IPAddress,
		alert.UserAgent,
		alert.Geolocation.Country,
		alert.Geolocation.City,
		alert.Status,
		alert.ActionTaken,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	return err
}

// GetAlertByID retrieves a fraud alert by ID
func (r *Repository) GetAlertByID(ctx context.Context, id uuid.UUID) (*FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE id = $1`
	return scanAlert(r.db.QueryRow(ctx, query, id))
}

// ListAlerts retrieves a page of alerts with the total matching count
func (r *Repository) ListAlerts(ctx context.Context, filter AlertFilter, limit, offset int) ([]*FraudAlert, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RiskLevel != "" {
		args = append(args, filter.RiskLevel)
		conditions = append(conditions, fmt.Sprintf("risk_level = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fraud_alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM fraud_alerts%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		alertColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}

	alerts, err := collectAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// ListAlertsByEmail retrieves the latest alerts raised for an email
func (r *Repository) ListAlertsByEmail(ctx context.Context, email string, limit int) ([]*FraudAlert, error) {
	query := `SELECT ` + alertColumns + `
		FROM fraud_alerts
		WHERE LOWER(user_email) = LOWER($1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, email, limit)
	if err != nil {
		return nil, err
	}
	return collectAlerts(rows)
}

// UpdateAlertReview applies a staff review. Empty notes or action keep the
// stored value.
func (r *Repository) UpdateAlertReview(ctx context.Context, id uuid.UUID, review AlertReview) (*FraudAlert, error) {
	query := `
		UPDATE fraud_alerts
		SET status = $2,
		    reviewed_by = $3,
		    reviewed_at = $4,
		    notes = COALESCE(NULLIF($5, ''), notes),
		    action_taken = COALESCE(NULLIF($6, ''), action_taken),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + alertColumns

	return scanAlert(r.db.QueryRow(ctx, query,
		id, review.Status, review.ReviewedBy, review.ReviewedAt, review.Notes, string(review.ActionTaken),
	))
}

// GetAlertStats counts alerts for the dashboard
func (r *Repository) GetAlertStats(ctx context.Context, dayStart, weekStart time.Time) (*FraudStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'pending' AND risk_level = 'critical'),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*) FILTER (WHERE status <> 'pending' AND reviewed_at >= $1)
		FROM fraud_alerts
	`

	var stats FraudStats
	err := r.db.QueryRow(ctx, query, dayStart, weekStart).Scan(
		&stats.TotalAlerts,
		&stats.PendingAlerts,
		&stats.CriticalPending,
		&stats.AlertsToday,
		&stats.AlertsThisWeek,
		&stats.ResolvedToday,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CountOrdersByEmailSince counts orders placed with email at or after since
func (r *Repository) CountOrdersByEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE LOWER(email) = LOWER($1) AND created_at >= $2`,
		email, since,
	).Scan(&count)
	return count, err
}

// ListOrdersByEmail retrieves the latest orders placed with email
func (r *Repository) ListOrdersByEmail(ctx context.Context, email string, limit int) ([]*OrderSummary, error) {
	query := `SELECT ` + orderSummaryColumns + `
		FROM orders
		WHERE LOWER(email) = LOWER($1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*OrderSummary, 0)
	for rows.Next() {
		order, err := scanOrderSummary(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// GetOrderSummary retrieves one order by id
func (r *Repository) GetOrderSummary(ctx context.Context, orderID uuid.UUID) (*OrderSummary, error) {
	query := `SELECT ` + orderSummaryColumns + ` FROM orders WHERE id = $1`
	return scanOrderSummary(r.db.QueryRow(ctx, query, orderID))
}
