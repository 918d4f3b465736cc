package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/armysmp/storefront/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

const userColumns = `
	id, email, username, auth_method, COALESCE(password_hash, ''),
	risk_score, total_orders, total_spent, avg_order_value, last_order_at,
	flag_count, ip_addresses, login_history, is_blocked, blocked_at,
	created_at, updated_at`

// Repository handles account persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new users repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var historyJSON []byte
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.AuthMethod, &u.PasswordHash,
		&u.RiskScore, &u.TotalOrders, &u.TotalSpent, &u.AvgOrderValue, &u.LastOrderAt,
		&u.FlagCount, &u.IPAddresses, &historyJSON, &u.IsBlocked, &u.BlockedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &u.LoginHistory); err != nil {
			return nil, fmt.Errorf("decode login history: %w", err)
		}
	}
	if u.IPAddresses == nil {
		u.IPAddresses = []string{}
	}
	return &u, nil
}

// CreateUser inserts a new account
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, username, auth_method, password_hash)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.AuthMethod, user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	switch {
	case database.IsUniqueViolation(err, "users_email_key"):
		return ErrEmailTaken
	case database.IsUniqueViolation(err, "users_username_key"):
		return ErrUsernameTaken
	}
	return err
}

// GetUserByID returns the account with the given id
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetUserByEmail returns the account registered with email (case-insensitive)
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// MutateUser locks the row, applies fn to the loaded user, and writes back the
// mutable fields in the same transaction. Concurrent callers for the same user
// are serialized by the row lock.
func (r *Repository) MutateUser(ctx context.Context, id uuid.UUID, fn func(u *User) error) (*User, error) {
	var updated *User
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
		u, err := scanUser(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}

		if err := fn(u); err != nil {
			return err
		}

		historyJSON, err := json.Marshal(u.LoginHistory)
		if err != nil {
			return fmt.Errorf("encode login history: %w", err)
		}
		if u.LoginHistory == nil {
			historyJSON = []byte("[]")
		}

		update := `
			UPDATE users SET
				risk_score = $2, total_orders = $3, total_spent = $4, avg_order_value = $5,
				last_order_at = $6, flag_count = $7, ip_addresses = $8, login_history = $9,
				is_blocked = $10, blocked_at = $11, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		if err := tx.QueryRow(ctx, update,
			u.ID, u.RiskScore, u.TotalOrders, u.TotalSpent, u.AvgOrderValue,
			u.LastOrderAt, u.FlagCount, u.IPAddresses, historyJSON,
			u.IsBlocked, u.BlockedAt,
		).Scan(&u.UpdatedAt); err != nil {
			return err
		}

		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CountBlockedUsers returns the number of blocked accounts
func (r *Repository) CountBlockedUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_blocked`).Scan(&count)
	return count, err
}
