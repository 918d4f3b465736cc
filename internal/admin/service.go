package admin

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/armysmp/storefront/internal/fraud"
	"github.com/armysmp/storefront/internal/orders"
	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/config"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var loginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "admin_login_attempts_total",
	Help: "Total number of staff login attempts by result",
}, []string{"result"})

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// OrderStats provides the order side of the dashboard
type OrderStats interface {
	GetDashboardStats(ctx context.Context) (*orders.DashboardStats, error)
}

// FraudStats provides the fraud side of the dashboard
type FraudStats interface {
	GetFraudStats(ctx context.Context) (*fraud.FraudStats, error)
}

// Service authenticates staff and builds the dashboard
type Service struct {
	cfg       config.AdminConfig
	jwtSecret string
	tokenTTL  time.Duration
	orders    OrderStats
	fraud     FraudStats
	now       func() time.Time
}

// NewService creates a new admin service
func NewService(cfg config.AdminConfig, jwtSecret string, tokenTTL time.Duration, orderStats OrderStats, fraudStats FraudStats) *Service {
	return &Service{
		cfg:       cfg,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		orders:    orderStats,
		fraud:     fraudStats,
		now:       time.Now,
	}
}

// AccountID is the stable identity carried in staff tokens
func AccountID(username string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://armysmp.net/admin/"+username))
}

// Login checks the staff password and, when configured, the TOTP code
func (s *Service) Login(ctx context.Context, req *LoginRequest, ip string) (*LoginResponse, error) {
	log := logger.WithContext(ctx).With(zap.String("ip", ip))

	if s.cfg.PasswordHash == "" {
		loginAttemptsTotal.WithLabelValues("disabled").Inc()
		return nil, common.NewForbiddenError("admin login is not configured")
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		loginAttemptsTotal.WithLabelValues("bad_credentials").Inc()
		log.Warn("Admin login rejected", zap.String("username", req.Username))
		return nil, common.NewUnauthorizedError("invalid credentials")
	}

	if s.cfg.TOTPSecret != "" {
		if req.OTP == "" {
			loginAttemptsTotal.WithLabelValues("otp_required").Inc()
			return nil, common.NewUnauthorizedError("one-time code required").WithDetail("otp_required", true)
		}
		valid, err := totp.ValidateCustom(req.OTP, s.cfg.TOTPSecret, s.now().UTC(), totpOpts)
		if err != nil || !valid {
			loginAttemptsTotal.WithLabelValues("bad_otp").Inc()
			log.Warn("Admin login rejected: invalid one-time code", zap.String("username", req.Username))
			return nil, common.NewUnauthorizedError("invalid one-time code")
		}
	}

	token, err := middleware.GenerateToken(s.jwtSecret, AccountID(s.cfg.Username), "", s.cfg.Username, middleware.RoleAdmin, s.tokenTTL)
	if err != nil {
		return nil, common.NewInternalError("failed to issue token", err)
	}

	loginAttemptsTotal.WithLabelValues("success").Inc()
	log.Info("Admin signed in", zap.String("username", s.cfg.Username))
	return &LoginResponse{Token: token, ExpiresAt: s.now().Add(s.tokenTTL)}, nil
}

// Dashboard combines order and fraud statistics
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	orderStats, err := s.orders.GetDashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	fraudStats, err := s.fraud.GetFraudStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Orders: orderStats, Fraud: fraudStats}, nil
}
