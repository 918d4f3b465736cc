package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
)

// BackOffice is the subset of Service used by the handler
type BackOffice interface {
	Login(ctx context.Context, req *LoginRequest, ip string) (*LoginResponse, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
}

// Handler handles HTTP requests for the back office
type Handler struct {
	service        BackOffice
	requestTimeout time.Duration
}

// NewHandler creates a new admin handler. Dashboard requests are cut off
// after requestTimeout.
func NewHandler(service BackOffice, requestTimeout time.Duration) *Handler {
	return &Handler{service: service, requestTimeout: requestTimeout}
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*common.AppError); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

// Login signs a staff member in
// POST /api/v1/admin/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req, c.ClientIP())
	if err != nil {
		respondError(c, err, "failed to login")
		return
	}

	common.SuccessResponse(c, resp)
}

// Dashboard returns order and fraud statistics
// GET /api/v1/admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load dashboard")
		return
	}

	common.SuccessResponse(c, dashboard)
}

func timeoutResponse(c *gin.Context) {
	common.ErrorResponse(c, http.StatusGatewayTimeout, "request timed out")
}

// RegisterRoutes registers back-office routes
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	admin := r.Group("/api/v1/admin")
	admin.POST("/login", h.Login)
	admin.GET("/dashboard",
		middleware.AuthMiddleware(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
		timeout.New(
			timeout.WithTimeout(h.requestTimeout),
			timeout.WithResponse(timeoutResponse),
		),
		h.Dashboard,
	)
}
