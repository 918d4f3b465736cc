package users

import (
	"context"
	"errors"
	"time"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/armysmp/storefront/pkg/security"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service handles customer accounts
type Service struct {
	repo      RepositoryInterface
	logins    LoginRecorder
	jwtSecret string
	tokenTTL  time.Duration
}

// NewService creates a new account service
func NewService(repo RepositoryInterface, logins LoginRecorder, jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		logins:    logins,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Register creates a local account and signs the customer in
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.NewInternalError("failed to hash password", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        security.SanitizeEmail(req.Email),
		Username:     security.SanitizeString(req.Username),
		AuthMethod:   AuthMethodLocal,
		PasswordHash: string(hash),
		IPAddresses:  []string{},
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			return nil, common.NewConflictError("email already registered")
		case errors.Is(err, ErrUsernameTaken):
			return nil, common.NewConflictError("username already taken")
		}
		return nil, common.NewInternalError("failed to create account", err)
	}

	return s.issueToken(user)
}

// Login verifies credentials. Every attempt against an existing account is
// recorded in its login history.
func (s *Service) Login(ctx context.Context, req *LoginRequest, ip, userAgent string) (*AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, security.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, common.NewUnauthorizedError("invalid email or password")
		}
		return nil, common.NewInternalError("failed to load account", err)
	}

	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logins.RecordLogin(ctx, user.ID, ip, userAgent, false)
		return nil, common.NewUnauthorizedError("invalid email or password")
	}

	if user.IsBlocked {
		s.logins.RecordLogin(ctx, user.ID, ip, userAgent, false)
		logger.WithContext(ctx).Warn("Blocked account attempted login",
			zap.String("user_id", user.ID.String()),
			zap.String("ip", ip),
		)
		return nil, common.NewForbiddenError("account is blocked")
	}

	s.logins.RecordLogin(ctx, user.ID, ip, userAgent, true)
	return s.issueToken(user)
}

// GetProfile returns the account of the signed-in customer
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, common.NewNotFoundError("user not found", err)
		}
		return nil, err
	}
	user.LoginHistory = nil
	return user, nil
}

func (s *Service) issueToken(user *User) (*AuthResponse, error) {
	token, err := middleware.GenerateToken(s.jwtSecret, user.ID, user.Email, user.Username, middleware.RoleCustomer, s.tokenTTL)
	if err != nil {
		return nil, common.NewInternalError("failed to issue token", err)
	}
	user.LoginHistory = nil
	return &AuthResponse{Token: token, User: user}, nil
}
