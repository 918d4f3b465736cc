package orders

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/armysmp/storefront/internal/cart"
	"github.com/armysmp/storefront/internal/fraud"
	"github.com/armysmp/storefront/internal/notifications"
	"github.com/armysmp/storefront/internal/users"
	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/armysmp/storefront/pkg/security"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	orderNumberAttempts = 3
	maxUsernameLength   = 64
)

var paymentReferencePattern = regexp.MustCompile(`^[a-zA-Z0-9]{12,22}$`)

// Service handles checkout and order administration
type Service struct {
	repo       RepositoryInterface
	coupons    CouponService
	fraud      FraudEngine
	users      UserLookup
	carts      CartStore
	notifier   OrderNotifier
	dispatcher Dispatcher
	now        func() time.Time
}

// NewService creates a new orders service
func NewService(
	repo RepositoryInterface,
	couponService CouponService,
	fraudEngine FraudEngine,
	userLookup UserLookup,
	carts CartStore,
	notifier OrderNotifier,
	dispatcher Dispatcher,
) *Service {
	return &Service{
		repo:       repo,
		coupons:    couponService,
		fraud:      fraudEngine,
		users:      userLookup,
		carts:      carts,
		notifier:   notifier,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// CreateOrder validates a checkout, persists the order and runs the
// best-effort side effects. Only validation and persistence errors are
// returned to the caller.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest, meta RequestMeta) (*OrderResponse, error) {
	log := logger.WithContext(ctx)

	username := strings.TrimSpace(req.MinecraftUsername)
	if username == "" {
		ordersRejectedTotal.WithLabelValues("missing_username").Inc()
		return nil, common.NewBadRequestError("minecraft username is required", nil)
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		ordersRejectedTotal.WithLabelValues("invalid_username").Inc()
		return nil, common.NewBadRequestError("minecraft username must be at most 64 characters", nil).
			WithDetail("max_length", maxUsernameLength)
	}

	items := req.Items
	if len(items) == 0 && req.SessionID != "" {
		stored, err := s.carts.GetItems(ctx, req.SessionID)
		if err != nil {
			log.Warn("Failed to load session cart", zap.Error(err))
		}
		items = stored
	}
	if len(items) == 0 {
		ordersRejectedTotal.WithLabelValues("empty_cart").Inc()
		return nil, common.NewBadRequestError("cart is empty", nil)
	}

	reference := strings.TrimSpace(req.PaymentReference)
	if reference != "" {
		if !paymentReferencePattern.MatchString(reference) {
			ordersRejectedTotal.WithLabelValues("invalid_payment_reference").Inc()
			return nil, common.NewUnprocessableError("payment reference must be 12-22 alphanumeric characters")
		}
		exists, err := s.repo.PaymentReferenceExists(ctx, reference)
		if err != nil {
			return nil, common.NewInternalError("failed to check payment reference", err)
		}
		if exists {
			ordersRejectedTotal.WithLabelValues("duplicate_payment_reference").Inc()
			return nil, duplicateReferenceError()
		}
	}

	lines, subtotal := priceItems(items)
	total := subtotal
	var discount float64
	var couponCode string

	if code := strings.TrimSpace(req.CouponCode); code != "" {
		coupon, err := s.coupons.Validate(ctx, code, subtotal)
		if err != nil {
			ordersRejectedTotal.WithLabelValues("invalid_coupon").Inc()
			return nil, err
		}
		couponCode = coupon.Code
		discount = coupon.Discount
		total = applyCoupon(subtotal, coupon.Discount, coupon.FinalTotal)
	}

	user := s.loadUser(ctx, req.UserID)
	email := security.SanitizeEmail(req.Email)
	if user != nil && user.Email != "" {
		email = security.SanitizeEmail(user.Email)
	}

	order := &Order{
		ID:                uuid.New(),
		UserID:            req.UserID,
		MinecraftUsername: security.SanitizeHTML(username),
		Email:             email,
		Items:             lines,
		Subtotal:          subtotal,
		Discount:          discount,
		Total:             total,
		CouponCode:        couponCode,
		Status:            StatusPending,
		PaymentStatus:     PaymentPending,
		PaymentReference:  reference,
		IPAddress:         meta.IP,
	}

	if err := s.insertOrder(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicatePaymentReference) {
			ordersRejectedTotal.WithLabelValues("duplicate_payment_reference").Inc()
			return nil, duplicateReferenceError()
		}
		return nil, common.NewInternalError("failed to create order", err)
	}

	ordersCreatedTotal.Inc()
	orderValueHistogram.Observe(order.Total)
	log.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total),
	)

	if couponCode != "" {
		s.dispatcher.Go(ctx, "coupon_usage", func(ctx context.Context) error {
			return s.coupons.IncrementUsage(ctx, couponCode)
		})
	}

	s.assessRisk(ctx, order, user, meta)
	s.notifier.OrderPlaced(ctx, placedEvent(order))

	if req.SessionID != "" {
		if err := s.carts.Clear(ctx, req.SessionID); err != nil {
			log.Warn("Failed to clear session cart", zap.Error(err))
		}
	}

	return order.ToResponse(), nil
}

// insertOrder assigns an order number and persists, regenerating the number
// on the rare collision
func (s *Service) insertOrder(ctx context.Context, order *Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber, err = GenerateOrderNumber()
		if err != nil {
			return err
		}
		err = s.repo.CreateOrder(ctx, order)
		if !errors.Is(err, ErrDuplicateOrderNumber) {
			return err
		}
	}
	return err
}

// loadUser resolves the signed-in customer. A failed lookup checks out and
// scores the order as a guest.
func (s *Service) loadUser(ctx context.Context, userID *uuid.UUID) *users.User {
	if userID == nil {
		return nil
	}
	user, err := s.users.GetUserByID(ctx, *userID)
	if err != nil {
		logger.WithContext(ctx).Warn("Failed to load ordering user, scoring as guest",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil
	}
	return user
}

// assessRisk scores the persisted order and updates the account aggregates.
// Nothing here can fail the checkout.
func (s *Service) assessRisk(ctx context.Context, order *Order, user *users.User, meta RequestMeta) {
	log := logger.WithContext(ctx)

	assessment := s.fraud.AnalyzeOrder(ctx, fraud.OrderSnapshot{
		Total:   order.Total,
		Email:   order.Email,
		Country: meta.Country,
		City:    meta.City,
	}, user, meta.IP, meta.UserAgent)

	if assessment != nil {
		if err := s.repo.UpdateRisk(ctx, order.ID, assessment.RiskScore, string(assessment.RiskLevel)); err != nil {
			log.Warn("Failed to store order risk", zap.Error(err), zap.String("order_id", order.ID.String()))
		} else {
			score := assessment.RiskScore
			order.RiskScore = &score
			order.RiskLevel = string(assessment.RiskLevel)
		}

		if assessment.ShouldFlag {
			s.fraud.CreateFraudAlert(ctx, assessment, order.ID, order.OrderNumber, order.MinecraftUsername)
		}
	}

	if user != nil {
		s.fraud.UpdateUserFraudStats(ctx, user.ID, order.Total, meta.IP)
		if assessment != nil {
			s.fraud.RaiseUserRiskScore(ctx, user.ID, assessment.RiskScore)
		}
	}
}

// GetOrder returns the full order for staff
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, common.NewNotFoundError("order not found", err)
		}
		return nil, common.NewInternalError("failed to load order", err)
	}
	return order, nil
}

// TrackOrder returns the public projection of an order by its number
func (s *Service) TrackOrder(ctx context.Context, orderNumber string) (*OrderResponse, error) {
	order, err := s.repo.GetOrderByNumber(ctx, strings.ToUpper(strings.TrimSpace(orderNumber)))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, common.NewNotFoundError("order not found", err)
		}
		return nil, common.NewInternalError("failed to load order", err)
	}
	return order.ToResponse(), nil
}

// ListOrders returns a page of orders for staff
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter, limit, offset int) ([]*Order, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, common.NewBadRequestError("invalid status filter", nil)
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, 0, common.NewBadRequestError("invalid payment status filter", nil)
	}

	orders, total, err := s.repo.ListOrders(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list orders", err)
	}
	return orders, total, nil
}

// UpdateStatus changes the fulfilment and/or payment status
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req *UpdateStatusRequest) (*Order, error) {
	if req.Status == "" && req.PaymentStatus == "" {
		return nil, common.NewBadRequestError("status or payment_status is required", nil)
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, common.NewBadRequestError("invalid status", nil)
	}
	if req.PaymentStatus != "" && !req.PaymentStatus.Valid() {
		return nil, common.NewBadRequestError("invalid payment status", nil)
	}

	order, err := s.repo.UpdateStatus(ctx, id, req.Status, req.PaymentStatus)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, common.NewNotFoundError("order not found", err)
		}
		return nil, common.NewInternalError("failed to update order", err)
	}

	logger.WithContext(ctx).Info("Order status updated",
		zap.String("order_id", id.String()),
		zap.String("status", string(order.Status)),
		zap.String("payment_status", string(order.PaymentStatus)),
	)
	return order, nil
}

// BulkDelete removes orders and returns how many were deleted
func (s *Service) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, common.NewBadRequestError("no order ids given", nil)
	}

	deleted, err := s.repo.DeleteOrders(ctx, ids)
	if err != nil {
		return 0, common.NewInternalError("failed to delete orders", err)
	}

	logger.WithContext(ctx).Info("Orders deleted",
		zap.Int("requested", len(ids)),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

// GetDashboardStats summarises orders for the back office
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := s.repo.GetDashboardStats(ctx, dayStart)
	if err != nil {
		return nil, common.NewInternalError("failed to load order stats", err)
	}
	return stats, nil
}

func duplicateReferenceError() *common.AppError {
	return common.NewConflictError("payment reference already used").WithDetail("duplicate", true)
}

// priceItems sanitizes item names and computes line and order subtotals
func priceItems(items []cart.CartItem) ([]OrderItem, float64) {
	lines := make([]OrderItem, 0, len(items))
	var subtotal float64
	for _, it := range items {
		line := roundMoney(it.Price * float64(it.Quantity))
		lines = append(lines, OrderItem{
			ProductID: it.ProductID,
			Name:      security.SanitizeHTML(it.Name),
			Price:     it.Price,
			Quantity:  it.Quantity,
			Subtotal:  line,
		})
		subtotal += line
	}
	return lines, roundMoney(subtotal)
}

// applyCoupon prefers the coupon's final total, otherwise subtracts the
// discount without going below zero
func applyCoupon(subtotal, discount float64, finalTotal *float64) float64 {
	if finalTotal != nil {
		return roundMoney(*finalTotal)
	}
	return roundMoney(math.Max(subtotal-discount, 0))
}

func placedEvent(o *Order) *notifications.OrderPlaced {
	items := make([]notifications.OrderItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = notifications.OrderItem{Name: it.Name, Quantity: it.Quantity, Subtotal: it.Subtotal}
	}
	return &notifications.OrderPlaced{
		OrderID:           o.ID,
		OrderNumber:       o.OrderNumber,
		MinecraftUsername: o.MinecraftUsername,
		Email:             o.Email,
		Items:             items,
		Subtotal:          o.Subtotal,
		Discount:          o.Discount,
		Total:             o.Total,
		CouponCode:        o.CouponCode,
		CreatedAt:         o.CreatedAt,
	}
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
