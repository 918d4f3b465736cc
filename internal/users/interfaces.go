package users

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryInterface defines the persistence operations for accounts
type RepositoryInterface interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	MutateUser(ctx context.Context, id uuid.UUID, fn func(u *User) error) (*User, error)
	CountBlockedUsers(ctx context.Context) (int64, error)
}

// LoginRecorder records authentication attempts against the account
type LoginRecorder interface {
	RecordLogin(ctx context.Context, userID uuid.UUID, ip, userAgent string, success bool) bool
}
