package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/armysmp/storefront/internal/users"
	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	recentAlertsLimit = 10
	recentOrdersLimit = 10
)

// Service scores orders and manages the alert review lifecycle
type Service struct {
	repo      RepositoryInterface
	users     UserStore
	blacklist BlacklistStore
	notifier  AlertNotifier
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithNow overrides the clock
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets the receiver of alert and block events
func WithNotifier(n AlertNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a new fraud service
func NewService(repo RepositoryInterface, userStore UserStore, blacklist BlacklistStore, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		users:     userStore,
		blacklist: blacklist,
		notifier:  noopNotifier{},
		tracer:    otel.Tracer("github.com/armysmp/storefront/internal/fraud"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeOrder scores an order that has already been persisted. It never
// fails: any lookup error or panic yields a low-risk, unflagged assessment.
func (s *Service) AnalyzeOrder(ctx context.Context, order OrderSnapshot, user *users.User, ip, userAgent string) (assessment *RiskAssessment) {
	now := s.now()

	ctx, span := s.tracer.Start(ctx, "fraud.analyze_order",
		trace.WithAttributes(
			attribute.Float64("order.total", order.Total),
			attribute.Bool("order.guest", user == nil),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			assessment = s.failOpen(ctx, span, order, ip, userAgent, now, fmt.Errorf("panic: %v", r))
		}
	}()

	sig, err := s.collectSignals(ctx, order, user, ip, now)
	if err != nil {
		return s.failOpen(ctx, span, order, ip, userAgent, now, err)
	}

	flags, score := evaluate(sig)
	level := LevelForScore(score)

	assessment = baseAssessment(order, ip, userAgent, now)
	assessment.RiskScore = score
	assessment.RiskLevel = level
	assessment.Flags = flags
	assessment.ShouldFlag = level != RiskLevelLow
	assessment.ShouldBlock = level == RiskLevelCritical
	if user != nil {
		assessment.Email = user.Email
	}

	recordAssessment(assessment)
	span.SetAttributes(
		attribute.Int("fraud.risk_score", score),
		attribute.String("fraud.risk_level", string(level)),
		attribute.StringSlice("fraud.flags", assessment.FlagTypes()),
	)

	if assessment.ShouldFlag {
		logger.WithContext(ctx).Warn("Order flagged by fraud engine",
			zap.Int("risk_score", score),
			zap.String("risk_level", string(level)),
			zap.Strings("flags", assessment.FlagTypes()),
			zap.String("ip", ip),
		)
	}

	return assessment
}

func (s *Service) collectSignals(ctx context.Context, order OrderSnapshot, user *users.User, ip string, now time.Time) (*signals, error) {
	sig := &signals{order: order, user: user, ip: ip, now: now}

	if ip != "" {
		blacklisted, err := s.blacklist.Contains(ctx, ip)
		if err != nil {
			return nil, fmt.Errorf("check blacklist: %w", err)
		}
		sig.blacklisted = blacklisted
	}

	email := order.Email
	if user != nil {
		email = user.Email
	}
	if email != "" {
		count, err := s.repo.CountOrdersByEmailSince(ctx, email, now.Add(-RapidOrderWindow))
		if err != nil {
			return nil, fmt.Errorf("count recent orders: %w", err)
		}
		sig.recentOrders = count
	}

	return sig, nil
}

func baseAssessment(order OrderSnapshot, ip, userAgent string, now time.Time) *RiskAssessment {
	return &RiskAssessment{
		RiskScore:   0,
		RiskLevel:   RiskLevelLow,
		Flags:       []RiskFlag{},
		Timestamp:   now,
		IPAddress:   ip,
		UserAgent:   userAgent,
		OrderValue:  order.Total,
		Email:       order.Email,
		Geolocation: Geolocation{Country: order.Country, City: order.City},
	}
}

func (s *Service) failOpen(ctx context.Context, span trace.Span, order OrderSnapshot, ip, userAgent string, now time.Time, err error) *RiskAssessment {
	analysisFailuresTotal.Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "fraud analysis failed open")
	logger.WithContext(ctx).Error("Fraud analysis failed, treating order as low risk",
		zap.Error(err),
		zap.String("ip", ip),
	)
	a := baseAssessment(order, ip, userAgent, now)
	recordAssessment(a)
	return a
}

// CreateFraudAlert persists a pending alert for a flagged order. Returns nil
// when the alert could not be stored.
func (s *Service) CreateFraudAlert(ctx context.Context, a *RiskAssessment, orderID uuid.UUID, orderNumber, minecraftUsername string) *FraudAlert {
	if a == nil {
		return nil
	}

	now := s.now()
	alert := &FraudAlert{
		ID:                uuid.New(),
		OrderNumber:       orderNumber,
		UserEmail:         a.Email,
		MinecraftUsername: minecraftUsername,
		RiskScore:         a.RiskScore,
		RiskLevel:         a.RiskLevel,
		Flags:             a.Flags,
		OrderValue:        a.OrderValue,
		IPAddress:         a.IPAddress,
		UserAgent:         a.UserAgent,
		Geolocation:       a.Geolocation,
		Status:            AlertStatusPending,
		ActionTaken:       ActionNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if orderID != uuid.Nil {
		alert.OrderID = &orderID
	}

	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		logger.WithContext(ctx).Error("Failed to create fraud alert",
			zap.Error(err),
			zap.String("order_number", orderNumber),
		)
		return nil
	}

	alertsCreatedTotal.WithLabelValues(string(alert.RiskLevel)).Inc()
	s.notifier.FraudAlertCreated(ctx, alert)
	return alert
}

// UpdateUserFraudStats folds a completed order into the account aggregates
func (s *Service) UpdateUserFraudStats(ctx context.Context, userID uuid.UUID, orderValue float64, ip string) bool {
	now := s.now()
	_, err := s.users.MutateUser(ctx, userID, func(u *users.User) error {
		u.RecordOrder(orderValue, ip, now)
		return nil
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to update user fraud stats",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return false
	}
	return true
}

// RaiseUserRiskScore keeps the account score at the highest order score seen
func (s *Service) RaiseUserRiskScore(ctx context.Context, userID uuid.UUID, score int) bool {
	_, err := s.users.MutateUser(ctx, userID, func(u *users.User) error {
		if score > u.RiskScore {
			u.RiskScore = score
		}
		return nil
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to raise user risk score",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return false
	}
	return true
}

// RecordLogin appends an authentication attempt to the account history
func (s *Service) RecordLogin(ctx context.Context, userID uuid.UUID, ip, userAgent string, success bool) bool {
	entry := users.LoginEntry{
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: s.now(),
		Success:   success,
	}
	_, err := s.users.MutateUser(ctx, userID, func(u *users.User) error {
		u.AppendLogin(entry)
		return nil
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to record login",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return false
	}
	return true
}

// BlockUser blocks the account and blacklists every IP it has used.
// Returns false when the account does not exist or the update failed.
func (s *Service) BlockUser(ctx context.Context, userID uuid.UUID) bool {
	if err := s.BlockAccount(ctx, userID); err != nil {
		logger.WithContext(ctx).Warn("Failed to block user",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return false
	}
	return true
}

// BlockAccount is BlockUser with the failure reason surfaced as an AppError
func (s *Service) BlockAccount(ctx context.Context, userID uuid.UUID) error {
	var ips []string
	_, err := s.users.MutateUser(ctx, userID, func(u *users.User) error {
		u.Block(s.now())
		ips = append([]string(nil), u.IPAddresses...)
		return nil
	})
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return common.NewNotFoundError("user not found", err)
		}
		return common.NewInternalError("failed to block user", err)
	}

	if err := s.blacklist.AddAll(ctx, ips); err != nil {
		return common.NewInternalError("failed to blacklist user IPs", err)
	}

	usersBlockedTotal.Inc()
	logger.WithContext(ctx).Info("User blocked",
		zap.String("user_id", userID.String()),
		zap.Int("blacklisted_ips", len(ips)),
	)
	s.notifier.UserBlocked(ctx, userID, ips)
	return nil
}

// GetFraudStats summarizes alerts, blocked accounts and the blacklist
func (s *Service) GetFraudStats(ctx context.Context) (*FraudStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)

	stats, err := s.repo.GetAlertStats(ctx, dayStart, weekStart)
	if err != nil {
		return nil, common.NewInternalError("failed to load fraud stats", err)
	}

	blocked, err := s.users.CountBlockedUsers(ctx)
	if err != nil {
		return nil, common.NewInternalError("failed to count blocked users", err)
	}
	stats.BlockedUsers = blocked

	size, err := s.blacklist.Size(ctx)
	if err != nil {
		return nil, common.NewInternalError("failed to read blacklist", err)
	}
	stats.BlacklistedIPsCount = size

	return stats, nil
}

// GetUserRiskProfile returns an account with its latest alerts and orders
func (s *Service) GetUserRiskProfile(ctx context.Context, userID uuid.UUID) (*UserRiskProfile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, common.NewNotFoundError("user not found", err)
		}
		return nil, common.NewInternalError("failed to load user", err)
	}

	alerts, err := s.repo.ListAlertsByEmail(ctx, user.Email, recentAlertsLimit)
	if err != nil {
		return nil, common.NewInternalError("failed to load alerts", err)
	}

	orders, err := s.repo.ListOrdersByEmail(ctx, user.Email, recentOrdersLimit)
	if err != nil {
		return nil, common.NewInternalError("failed to load orders", err)
	}

	return &UserRiskProfile{
		User:         toUserRiskSummary(user),
		RecentAlerts: alerts,
		RecentOrders: orders,
	}, nil
}

// ListAlerts returns a page of alerts matching filter, newest first
func (s *Service) ListAlerts(ctx context.Context, filter AlertFilter, limit, offset int) ([]*FraudAlert, int64, error) {
	alerts, total, err := s.repo.ListAlerts(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list alerts", err)
	}
	return alerts, total, nil
}

// GetAlertDetail returns an alert with its order and account context
func (s *Service) GetAlertDetail(ctx context.Context, alertID uuid.UUID) (*AlertDetail, error) {
	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	detail := &AlertDetail{Alert: alert}

	if alert.OrderID != nil {
		order, err := s.repo.GetOrderSummary(ctx, *alert.OrderID)
		switch {
		case err == nil:
			detail.Order = order
		case !errors.Is(err, ErrOrderNotFound):
			return nil, common.NewInternalError("failed to load order", err)
		}
	}

	if alert.UserEmail != "" {
		user, err := s.users.GetUserByEmail(ctx, alert.UserEmail)
		switch {
		case err == nil:
			detail.User = toUserRiskSummary(user)
		case !errors.Is(err, users.ErrUserNotFound):
			return nil, common.NewInternalError("failed to load user", err)
		}
	}

	return detail, nil
}

// ReviewAlert records a staff decision. Moving an alert to blocked also
// blocks the account registered with the alert's email, if there is one.
func (s *Service) ReviewAlert(ctx context.Context, alertID uuid.UUID, reviewer string, req *ReviewAlertRequest) (*FraudAlert, error) {
	alert, err := s.getAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	action := req.ActionTaken
	if req.Status == AlertStatusBlocked && action == "" {
		action = ActionBlocked
	}

	updated, err := s.repo.UpdateAlertReview(ctx, alertID, AlertReview{
		Status:      req.Status,
		ReviewedBy:  reviewer,
		ReviewedAt:  s.now(),
		Notes:       req.Notes,
		ActionTaken: action,
	})
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil, common.NewNotFoundError("alert not found", err)
		}
		return nil, common.NewInternalError("failed to review alert", err)
	}

	logger.WithContext(ctx).Info("Fraud alert reviewed",
		zap.String("alert_id", alertID.String()),
		zap.String("status", string(req.Status)),
		zap.String("reviewed_by", reviewer),
	)

	if req.Status == AlertStatusBlocked && alert.UserEmail != "" {
		user, err := s.users.GetUserByEmail(ctx, alert.UserEmail)
		switch {
		case err == nil:
			s.BlockUser(ctx, user.ID)
		case errors.Is(err, users.ErrUserNotFound):
			logger.WithContext(ctx).Info("Blocked alert belongs to a guest checkout",
				zap.String("alert_id", alertID.String()),
			)
		default:
			logger.WithContext(ctx).Error("Failed to resolve alert owner", zap.Error(err))
		}
	}

	return updated, nil
}

// ListBlacklist returns the blacklisted IP addresses
func (s *Service) ListBlacklist(ctx context.Context) ([]string, error) {
	ips, err := s.blacklist.List(ctx)
	if err != nil {
		return nil, common.NewInternalError("failed to read blacklist", err)
	}
	return ips, nil
}

func (s *Service) getAlert(ctx context.Context, alertID uuid.UUID) (*FraudAlert, error) {
	alert, err := s.repo.GetAlertByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil, common.NewNotFoundError("alert not found", err)
		}
		return nil, common.NewInternalError("failed to load alert", err)
	}
	return alert, nil
}

func toUserRiskSummary(u *users.User) *UserRiskSummary {
	return &UserRiskSummary{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		RiskScore:     u.RiskScore,
		TotalOrders:   u.TotalOrders,
		TotalSpent:    u.TotalSpent,
		AvgOrderValue: u.AvgOrderValue,
		LastOrderAt:   u.LastOrderAt,
		FlagCount:     u.FlagCount,
		IPAddresses:   u.IPAddresses,
		IsBlocked:     u.IsBlocked,
		BlockedAt:     u.BlockedAt,
		CreatedAt:     u.CreatedAt,
	}
}

type noopNotifier struct{}

func (noopNotifier) FraudAlertCreated(context.Context, *FraudAlert) {}
func (noopNotifier) UserBlocked(context.Context, uuid.UUID, []string) {}
