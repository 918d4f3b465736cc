package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*AuthResponse)
	return resp, args.Error(1)
}

func (m *mockAccountService) Login(ctx context.Context, req *LoginRequest, ip, userAgent string) (*AuthResponse, error) {
	args := m.Called(ctx, req, ip, userAgent)
	resp, _ := args.Get(0).(*AuthResponse)
	return resp, args.Error(1)
}

func (m *mockAccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func setupTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	c.Request = req
	return c, w
}

func TestHandler_Register_ValidationError(t *testing.T) {
	svc := new(mockAccountService)
	h := NewHandler(svc)

	c, w := setupTestContext(http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "nope"})
	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestHandler_Register_Created(t *testing.T) {
	svc := new(mockAccountService)
	h := NewHandler(svc)

	svc.On("Register", mock.Anything, mock.AnythingOfType("*users.RegisterRequest")).
		Return(&AuthResponse{Token: "tok", User: &User{Username: "Steve"}}, nil).Once()

	c, w := setupTestContext(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "steve@example.com", "username": "Steve", "password": "diamonds123",
	})
	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestHandler_Login_AppError(t *testing.T) {
	svc := new(mockAccountService)
	h := NewHandler(svc)

	svc.On("Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, common.NewForbiddenError("account is blocked")).Once()

	c, w := setupTestContext(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "steve@example.com", "password": "diamonds123",
	})
	h.Login(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_Me_Unauthorized(t *testing.T) {
	h := NewHandler(new(mockAccountService))

	c, w := setupTestContext(http.MethodGet, "/api/v1/auth/me", nil)
	h.Me(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_Me_Success(t *testing.T) {
	svc := new(mockAccountService)
	h := NewHandler(svc)
	id := uuid.New()

	svc.On("GetProfile", mock.Anything, id).Return(&User{ID: id, Username: "Steve"}, nil).Once()

	c, w := setupTestContext(http.MethodGet, "/api/v1/auth/me", nil)
	c.Set("user_id", id.String())
	h.Me(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
