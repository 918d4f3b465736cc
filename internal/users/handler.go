package users

import (
	"context"
	"net/http"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountService is the subset of Service used by the handler
type AccountService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest, ip, userAgent string) (*AuthResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*User, error)
}

// Handler handles HTTP requests for customer accounts
type Handler struct {
	service AccountService
}

// NewHandler creates a new accounts handler
func NewHandler(service AccountService) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*common.AppError); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

// Register creates an account
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	resp, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "failed to register")
		return
	}

	common.CreatedResponse(c, resp)
}

// Login signs a customer in
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err, "failed to login")
		return
	}

	common.SuccessResponse(c, resp)
}

// Me returns the signed-in customer's account
// GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to load profile")
		return
	}

	common.SuccessResponse(c, user)
}

// RegisterRoutes registers account routes
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.GET("/me", middleware.AuthMiddleware(jwtSecret), h.Me)
	}
}
