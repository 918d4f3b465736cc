package orders

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/armysmp/storefront/internal/cart"
	"github.com/armysmp/storefront/internal/coupons"
	"github.com/armysmp/storefront/internal/fraud"
	"github.com/armysmp/storefront/internal/notifications"
	"github.com/armysmp/storefront/internal/users"
	"github.com/armysmp/storefront/pkg/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateOrder(ctx context.Context, order *Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *mockRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	args := m.Called(ctx, orderNumber)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *mockRepository) PaymentReferenceExists(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) UpdateRisk(ctx context.Context, id uuid.UUID, score int, level string) error {
	args := m.Called(ctx, id, score, level)
	return args.Error(0)
}

func (m *mockRepository) ListOrders(ctx context.Context, filter OrderFilter, limit, offset int) ([]*Order, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	orders, _ := args.Get(0).([]*Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus, paymentStatus PaymentStatus) (*Order, error) {
	args := m.Called(ctx, id, status, paymentStatus)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *mockRepository) DeleteOrders(ctx context.Context, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepository) GetDashboardStats(ctx context.Context, dayStart time.Time) (*DashboardStats, error) {
	args := m.Called(ctx, dayStart)
	stats, _ := args.Get(0).(*DashboardStats)
	return stats, args.Error(1)
}

type mockCoupons struct {
	mock.Mock
}

func (m *mockCoupons) Validate(ctx context.Context, code string, subtotal float64) (*coupons.CouponContext, error) {
	args := m.Called(ctx, code, subtotal)
	cc, _ := args.Get(0).(*coupons.CouponContext)
	return cc, args.Error(1)
}

func (m *mockCoupons) IncrementUsage(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

type mockFraud struct {
	mock.Mock
}

func (m *mockFraud) AnalyzeOrder(ctx context.Context, order fraud.OrderSnapshot, user *users.User, ip, userAgent string) *fraud.RiskAssessment {
	args := m.Called(ctx, order, user, ip, userAgent)
	a, _ := args.Get(0).(*fraud.RiskAssessment)
	return a
}

func (m *mockFraud) CreateFraudAlert(ctx context.Context, a *fraud.RiskAssessment, orderID uuid.UUID, orderNumber, minecraftUsername string) *fraud.FraudAlert {
	args := m.Called(ctx, a, orderID, orderNumber, minecraftUsername)
	alert, _ := args.Get(0).(*fraud.FraudAlert)
	return alert
}

func (m *mockFraud) UpdateUserFraudStats(ctx context.Context, userID uuid.UUID, orderValue float64, ip string) bool {
	args := m.Called(ctx, userID, orderValue, ip)
	return args.Bool(0)
}

func (m *mockFraud) RaiseUserRiskScore(ctx context.Context, userID uuid.UUID, score int) bool {
	args := m.Called(ctx, userID, score)
	return args.Bool(0)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*users.User)
	return u, args.Error(1)
}

type mockCarts struct {
	mock.Mock
}

func (m *mockCarts) GetItems(ctx context.Context, sessionID string) ([]cart.CartItem, error) {
	args := m.Called(ctx, sessionID)
	items, _ := args.Get(0).([]cart.CartItem)
	return items, args.Error(1)
}

func (m *mockCarts) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) OrderPlaced(ctx context.Context, order *notifications.OrderPlaced) {
	m.Called(ctx, order)
}

// inlineDispatcher runs work synchronously so tests can assert on it
type inlineDispatcher struct {
	names []string
	errs  []error
}

func (d *inlineDispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	d.names = append(d.names, name)
	d.errs = append(d.errs, fn(ctx))
}

type testDeps struct {
	repo       *mockRepository
	coupons    *mockCoupons
	fraud      *mockFraud
	users      *mockUsers
	carts      *mockCarts
	notifier   *mockNotifier
	dispatcher *inlineDispatcher
}

func newTestService() (*Service, *testDeps) {
	d := &testDeps{
		repo:       new(mockRepository),
		coupons:    new(mockCoupons),
		fraud:      new(mockFraud),
		users:      new(mockUsers),
		carts:      new(mockCarts),
		notifier:   new(mockNotifier),
		dispatcher: &inlineDispatcher{},
	}
	svc := NewService(d.repo, d.coupons, d.fraud, d.users, d.carts, d.notifier, d.dispatcher)
	return svc, d
}

// assertNoSideEffects checks that a rejected checkout touched nothing
func (d *testDeps) assertNoSideEffects(t *testing.T) {
	t.Helper()
	d.repo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	d.fraud.AssertNotCalled(t, "AnalyzeOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.fraud.AssertNotCalled(t, "UpdateUserFraudStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.notifier.AssertNotCalled(t, "OrderPlaced", mock.Anything, mock.Anything)
	d.coupons.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything)
	d.carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	assert.Empty(t, d.dispatcher.names)
}

func lowRisk() *fraud.RiskAssessment {
	return &fraud.RiskAssessment{RiskScore: 0, RiskLevel: fraud.RiskLevelLow, Flags: []fraud.RiskFlag{}}
}

var meta = RequestMeta{IP: "203.0.113.7", UserAgent: "Mozilla/5.0", Country: "US", City: "Austin"}

func sampleItems() []cart.CartItem {
	return []cart.CartItem{
		{ProductID: uuid.New(), Name: "VIP Rank", Price: 499, Quantity: 1},
		{ProductID: uuid.New(), Name: "Crate Key", Price: 25.5, Quantity: 2},
	}
}

func requireAppError(t *testing.T, err error, code int) *common.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestCreateOrder_GuestCheckout(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()

	d.repo.On("CreateOrder", ctx, mock.MatchedBy(func(o *Order) bool {
		return o.Subtotal == 550 && o.Total == 550 && o.Status == StatusPending &&
			o.PaymentStatus == PaymentPending && o.UserID == nil && o.Email == "steve@example.com"
	})).Return(nil).Once()
	d.fraud.On("AnalyzeOrder", ctx, fraud.OrderSnapshot{Total: 550, Email: "steve@example.com", Country: "US", City: "Austin"},
		(*users.User)(nil), meta.IP, meta.UserAgent).Return(lowRisk()).Once()
	d.repo.On("UpdateRisk", ctx, mock.Anything, 0, "low").Return(nil).Once()
	d.notifier.On("OrderPlaced", ctx, mock.MatchedBy(func(p *notifications.OrderPlaced) bool {
		return p.Total == 550 && len(p.Items) == 2
	})).Once()

	resp, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		MinecraftUsername: "  Steve ",
		Email:             "Steve@Example.com",
		Items:             sampleItems(),
	}, meta)

	require.NoError(t, err)
	assert.Equal(t, "Steve", resp.MinecraftUsername)
	assert.Regexp(t, `^ASMP-`, resp.OrderNumber)
	assert.Equal(t, 51.0, resp.Items[1].Subtotal)
	d.fraud.AssertNotCalled(t, "CreateFraudAlert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.fraud.AssertNotCalled(t, "UpdateUserFraudStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.carts.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	d.repo.AssertExpectations(t)
	d.notifier.AssertExpectations(t)
}

func TestCreateOrder_SignedInFlaggedWithCoupon(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()
	user := &users.User{ID: uuid.New(), Email: "alex@example.com"}
	final := 449.1
	flagged := &fraud.RiskAssessment{RiskScore: 55, RiskLevel: fraud.RiskLevelHigh, ShouldFlag: true}

	d.users.On("GetUserByID", ctx, user.ID).Return(user, nil).Once()
	d.coupons.On("Validate", ctx, "spring10", 499.0).
		Return(&coupons.CouponContext{Code: "SPRING10", Discount: 49.9, FinalTotal: &final}, nil).Once()
	d.coupons.On("IncrementUsage", ctx, "SPRING10").Return(nil).Once()
	d.repo.On("CreateOrder", ctx, mock.MatchedBy(func(o *Order) bool {
		return o.Total == 449.1 && o.Discount == 49.9 && o.CouponCode == "SPRING10" && *o.UserID == user.ID
	})).Return(nil).Once()
	d.fraud.On("AnalyzeOrder", ctx, mock.Anything, user, meta.IP, meta.UserAgent).Return(flagged).Once()
	d.repo.On("UpdateRisk", ctx, mock.Anything, 55, "high").Return(nil).Once()
	d.fraud.On("CreateFraudAlert", ctx, flagged, mock.Anything, mock.Anything, "Steve").Return(&fraud.FraudAlert{}).Once()
	d.fraud.On("UpdateUserFraudStats", ctx, user.ID, 449.1, meta.IP).Return(true).Once()
	d.fraud.On("RaiseUserRiskScore", ctx, user.ID, 55).Return(true).Once()
	d.notifier.On("OrderPlaced", ctx, mock.Anything).Once()
	d.carts.On("Clear", ctx, "sess-1").Return(nil).Once()

	resp, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		UserID:            &user.ID,
		SessionID:         "sess-1",
		MinecraftUsername: "Steve",
		Items:             []cart.CartItem{{ProductID: uuid.New(), Name: "VIP Rank", Price: 499, Quantity: 1}},
		CouponCode:        "spring10",
	}, meta)

	require.NoError(t, err)
	assert.Equal(t, 449.1, resp.Total)
	assert.Equal(t, []string{"coupon_usage"}, d.dispatcher.names)
	d.fraud.AssertExpectations(t)
	d.coupons.AssertExpectations(t)
	d.carts.AssertExpectations(t)
}

func TestCreateOrder_SignedInStoresAccountEmail(t *testing.T) {
	tests := []struct {
		name      string
		bodyEmail string
	}{
		{name: "no email in body", bodyEmail: ""},
		{name: "different email in body", bodyEmail: "other@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService()
			ctx := context.Background()
			user := &users.User{ID: uuid.New(), Email: "Alex@Example.com"}

			var stored *Order
			d.users.On("GetUserByID", ctx, user.ID).Return(user, nil).Once()
			d.repo.On("CreateOrder", ctx, mock.Anything).Run(func(args mock.Arguments) {
				stored = args.Get(1).(*Order)
			}).Return(nil).Once()
			d.fraud.On("AnalyzeOrder", ctx, mock.MatchedBy(func(o fraud.OrderSnapshot) bool {
				return o.Email == "alex@example.com"
			}), user, meta.IP, meta.UserAgent).Return(lowRisk()).Once()
			d.repo.On("UpdateRisk", ctx, mock.Anything, 0, "low").Return(nil).Once()
			d.fraud.On("UpdateUserFraudStats", ctx, user.ID, 550.0, meta.IP).Return(true).Once()
			d.fraud.On("RaiseUserRiskScore", ctx, user.ID, 0).Return(true).Once()
			d.notifier.On("OrderPlaced", ctx, mock.MatchedBy(func(p *notifications.OrderPlaced) bool {
				return p.Email == "alex@example.com"
			})).Once()

			_, err := svc.CreateOrder(ctx, &CreateOrderRequest{
				UserID:            &user.ID,
				MinecraftUsername: "Alex",
				Email:             tt.bodyEmail,
				Items:             sampleItems(),
			}, meta)

			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, "alex@example.com", stored.Email)
			d.users.AssertExpectations(t)
			d.fraud.AssertExpectations(t)
			d.notifier.AssertExpectations(t)
		})
	}
}

func TestCreateOrder_EscapedUsernameFitsColumn(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()
	username := strings.Repeat("=", maxUsernameLength)

	var stored *Order
	d.repo.On("CreateOrder", ctx, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*Order)
	}).Return(nil).Once()
	d.fraud.On("AnalyzeOrder", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(lowRisk()).Once()
	d.repo.On("UpdateRisk", ctx, mock.Anything, 0, "low").Return(nil).Once()
	d.notifier.On("OrderPlaced", ctx, mock.Anything).Once()

	_, err := svc.CreateOrder(ctx, &CreateOrderRequest{MinecraftUsername: username, Items: sampleItems()}, meta)

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, strings.Repeat("&#x3D;", maxUsernameLength), stored.MinecraftUsername)
	assert.LessOrEqual(t, len(stored.MinecraftUsername), 384)
}

func TestCreateOrder_UsesSessionCart(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()

	d.carts.On("GetItems", ctx, "sess-2").Return(sampleItems(), nil).Once()
	d.repo.On("CreateOrder", ctx, mock.MatchedBy(func(o *Order) bool { return len(o.Items) == 2 })).Return(nil).Once()
	d.fraud.On("AnalyzeOrder", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(lowRisk()).Once()
	d.repo.On("UpdateRisk", ctx, mock.Anything, 0, "low").Return(nil).Once()
	d.notifier.On("OrderPlaced", ctx, mock.Anything).Once()
	d.carts.On("Clear", ctx, "sess-2").Return(errors.New("redis down")).Once()

	resp, err := svc.CreateOrder(ctx, &CreateOrderRequest{SessionID: "sess-2", MinecraftUsername: "Steve"}, meta)

	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	d.carts.AssertExpectations(t)
}

func TestCreateOrder_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		req       *CreateOrderRequest
		setupMock func(d *testDeps)
		wantCode  int
		duplicate bool
	}{
		{
			name:     "missing username",
			req:      &CreateOrderRequest{MinecraftUsername: "   ", Items: sampleItems()},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "username too long",
			req:      &CreateOrderRequest{MinecraftUsername: strings.Repeat("/", maxUsernameLength+1), Items: sampleItems()},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "empty cart",
			req:      &CreateOrderRequest{MinecraftUsername: "Steve"},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "empty session cart",
			req:  &CreateOrderRequest{MinecraftUsername: "Steve", SessionID: "sess-3"},
			setupMock: func(d *testDeps) {
				d.carts.On("GetItems", mock.Anything, "sess-3").Return([]cart.CartItem{}, nil).Once()
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed payment reference",
			req:      &CreateOrderRequest{MinecraftUsername: "Steve", Items: sampleItems(), PaymentReference: "ABC-123"},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "payment reference too short",
			req:      &CreateOrderRequest{MinecraftUsername: "Steve", Items: sampleItems(), PaymentReference: "ABC12345678"},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "duplicate payment reference",
			req:  &CreateOrderRequest{MinecraftUsername: "Steve", Items: sampleItems(), PaymentReference: "PAYREF123456"},
			setupMock: func(d *testDeps) {
				d.repo.On("PaymentReferenceExists", mock.Anything, "PAYREF123456").Return(true, nil).Once()
			},
			wantCode:  http.StatusConflict,
			duplicate: true,
		},
		{
			name: "invalid coupon",
			req:  &CreateOrderRequest{MinecraftUsername: "Steve", Items: sampleItems(), CouponCode: "NOPE"},
			setupMock: func(d *testDeps) {
				d.coupons.On("Validate", mock.Anything, "NOPE", 550.0).
					Return(nil, common.NewBadRequestError("invalid coupon code", nil)).Once()
			},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService()
			if tt.setupMock != nil {
				tt.setupMock(d)
			}

			resp, err := svc.CreateOrder(context.Background(), tt.req, meta)

			assert.Nil(t, resp)
			appErr := requireAppError(t, err, tt.wantCode)
			if tt.duplicate {
				assert.Equal(t, true, appErr.Details["duplicate"])
			}
			d.assertNoSideEffects(t)
		})
	}
}

func TestCreateOrder_DuplicateReferenceRace(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()

	d.repo.On("PaymentReferenceExists", ctx, "PAYREF123456").Return(false, nil).Once()
	d.repo.On("CreateOrder", ctx, mock.Anything).Return(ErrDuplicatePaymentReference).Once()

	_, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		MinecraftUsername: "Steve",
		Items:             sampleItems(),
		PaymentReference:  "PAYREF123456",
	}, meta)

	appErr := requireAppError(t, err, http.StatusConflict)
	assert.Equal(t, true, appErr.Details["duplicate"])
	d.fraud.AssertNotCalled(t, "AnalyzeOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.notifier.AssertNotCalled(t, "OrderPlaced", mock.Anything, mock.Anything)
}

func TestCreateOrder_RetriesOrderNumberCollision(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()

	var numbers []string
	d.repo.On("CreateOrder", ctx, mock.Anything).Run(func(args mock.Arguments) {
		numbers = append(numbers, args.Get(1).(*Order).OrderNumber)
	}).Return(ErrDuplicateOrderNumber).Once()
	d.repo.On("CreateOrder", ctx, mock.Anything).Return(nil).Once()
	d.fraud.On("AnalyzeOrder", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(lowRisk()).Once()
	d.repo.On("UpdateRisk", ctx, mock.Anything, 0, "low").Return(nil).Once()
	d.notifier.On("OrderPlaced", ctx, mock.Anything).Once()

	resp, err := svc.CreateOrder(ctx, &CreateOrderRequest{MinecraftUsername: "Steve", Items: sampleItems()}, meta)

	require.NoError(t, err)
	require.Len(t, numbers, 1)
	d.repo.AssertNumberOfCalls(t, "CreateOrder", 2)
	assert.NotEmpty(t, resp.OrderNumber)
}

func TestCreateOrder_SideEffectFailuresDoNotFailCheckout(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	d.users.On("GetUserByID", ctx, userID).Return(nil, users.ErrUserNotFound).Once()
	d.repo.On("CreateOrder", ctx, mock.Anything).Return(nil).Once()
	d.fraud.On("AnalyzeOrder", ctx, mock.Anything, (*users.User)(nil), mock.Anything, mock.Anything).Return(lowRisk()).Once()
	d.repo.On("UpdateRisk", ctx, mock.Anything, 0, "low").Return(errors.New("connection reset")).Once()
	d.notifier.On("OrderPlaced", ctx, mock.Anything).Once()

	resp, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		UserID:            &userID,
		MinecraftUsername: "Steve",
		Items:             sampleItems(),
	}, meta)

	require.NoError(t, err)
	assert.NotNil(t, resp)
	d.fraud.AssertNotCalled(t, "UpdateUserFraudStats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_SanitizesNames(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()

	d.repo.On("CreateOrder", ctx, mock.MatchedBy(func(o *Order) bool {
		return o.MinecraftUsername == "&lt;b&gt;Steve&lt;&#x2F;b&gt;" &&
			o.Items[0].Name == "Key &amp; &quot;Crate&quot;"
	})).Return(nil).Once()
	d.fraud.On("AnalyzeOrder", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(lowRisk()).Once()
	d.repo.On("UpdateRisk", ctx, mock.Anything, 0, "low").Return(nil).Once()
	d.notifier.On("OrderPlaced", ctx, mock.Anything).Once()

	_, err := svc.CreateOrder(ctx, &CreateOrderRequest{
		MinecraftUsername: "<b>Steve</b>",
		Items:             []cart.CartItem{{ProductID: uuid.New(), Name: `Key & "Crate"`, Price: 10, Quantity: 1}},
	}, meta)

	require.NoError(t, err)
	d.repo.AssertExpectations(t)
}

func TestApplyCoupon(t *testing.T) {
	final := 12.5
	tests := []struct {
		name       string
		subtotal   float64
		discount   float64
		finalTotal *float64
		want       float64
	}{
		{"final total wins", 100, 10, &final, 12.5},
		{"discount subtracted", 100, 10, nil, 90},
		{"floored at zero", 20, 50, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyCoupon(tt.subtotal, tt.discount, tt.finalTotal))
		})
	}
}

func TestTrackOrder(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()
	score := 90

	d.repo.On("GetOrderByNumber", ctx, "ASMP-AAAAAA-BBBBBB").
		Return(&Order{OrderNumber: "ASMP-AAAAAA-BBBBBB", RiskScore: &score}, nil).Once()
	d.repo.On("GetOrderByNumber", ctx, "ASMP-MISSIN-GGGGGG").Return(nil, ErrOrderNotFound).Once()

	resp, err := svc.TrackOrder(ctx, " asmp-aaaaaa-bbbbbb ")
	require.NoError(t, err)
	assert.Equal(t, "ASMP-AAAAAA-BBBBBB", resp.OrderNumber)

	_, err = svc.TrackOrder(ctx, "ASMP-MISSIN-GGGGGG")
	requireAppError(t, err, http.StatusNotFound)
}

func TestUpdateStatus(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		req       *UpdateStatusRequest
		setupMock func(repo *mockRepository)
		wantCode  int
	}{
		{
			name:     "nothing to change",
			req:      &UpdateStatusRequest{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown status",
			req:      &UpdateStatusRequest{Status: "shipped"},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "not found",
			req:  &UpdateStatusRequest{Status: StatusCompleted},
			setupMock: func(repo *mockRepository) {
				repo.On("UpdateStatus", mock.Anything, id, StatusCompleted, PaymentStatus("")).Return(nil, ErrOrderNotFound).Once()
			},
			wantCode: http.StatusNotFound,
		},
		{
			name: "payment only",
			req:  &UpdateStatusRequest{PaymentStatus: PaymentPaid},
			setupMock: func(repo *mockRepository) {
				repo.On("UpdateStatus", mock.Anything, id, OrderStatus(""), PaymentPaid).
					Return(&Order{ID: id, Status: StatusPending, PaymentStatus: PaymentPaid}, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newTestService()
			if tt.setupMock != nil {
				tt.setupMock(d.repo)
			}

			order, err := svc.UpdateStatus(context.Background(), id, tt.req)

			if tt.wantCode != 0 {
				requireAppError(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PaymentPaid, order.PaymentStatus)
		})
	}
}

func TestBulkDelete(t *testing.T) {
	svc, d := newTestService()
	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	_, err := svc.BulkDelete(ctx, nil)
	requireAppError(t, err, http.StatusBadRequest)

	d.repo.On("DeleteOrders", ctx, ids).Return(int64(1), nil).Once()
	deleted, err := svc.BulkDelete(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestListOrders_InvalidFilter(t *testing.T) {
	svc, d := newTestService()

	_, _, err := svc.ListOrders(context.Background(), OrderFilter{Status: "lost"}, 20, 0)

	requireAppError(t, err, http.StatusBadRequest)
	d.repo.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetDashboardStats(t *testing.T) {
	svc, d := newTestService()
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC) }
	dayStart := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	d.repo.On("GetDashboardStats", mock.Anything, dayStart).
		Return(&DashboardStats{TotalOrders: 4, TotalRevenue: 1200}, nil).Once()

	stats, err := svc.GetDashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalOrders)
	d.repo.AssertExpectations(t)
}
