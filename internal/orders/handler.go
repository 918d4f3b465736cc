package orders

import (
	"context"
	"net/http"

	"github.com/armysmp/storefront/internal/cart"
	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/armysmp/storefront/pkg/pagination"
	"github.com/armysmp/storefront/pkg/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Edge headers set by the CDN in front of the storefront
const (
	countryHeader = "CF-IPCountry"
	cityHeader    = "CF-IPCity"
)

const maxUserAgentLen = 512

// OrderService is the subset of Service used by the handler
type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest, meta RequestMeta) (*OrderResponse, error)
	TrackOrder(ctx context.Context, orderNumber string) (*OrderResponse, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter, limit, offset int) ([]*Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req *UpdateStatusRequest) (*Order, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// Handler handles HTTP requests for orders
type Handler struct {
	service OrderService
}

// NewHandler creates a new orders handler
func NewHandler(service OrderService) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*common.AppError); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

// CreateOrder places an order from the request body or the session cart
// POST /api/v1/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	if userID, err := middleware.GetUserID(c); err == nil {
		req.UserID = &userID
	}
	req.SessionID = c.GetHeader(cart.SessionHeader)

	meta := RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: security.TruncateString(c.Request.UserAgent(), maxUserAgentLen),
		Country:   c.GetHeader(countryHeader),
		City:      c.GetHeader(cityHeader),
	}

	order, err := h.service.CreateOrder(c.Request.Context(), &req, meta)
	if err != nil {
		respondError(c, err, "failed to create order")
		return
	}

	common.CreatedResponse(c, order)
}

// TrackOrder returns the public status of an order
// GET /api/v1/orders/track/:number
func (h *Handler) TrackOrder(c *gin.Context) {
	order, err := h.service.TrackOrder(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err, "failed to track order")
		return
	}

	common.SuccessResponse(c, order)
}

// ListOrders lists orders for staff
// GET /api/v1/admin/orders?status=pending&payment_status=paid&search=steve
func (h *Handler) ListOrders(c *gin.Context) {
	params := pagination.ParseParams(c)
	filter := OrderFilter{
		Status:        OrderStatus(c.Query("status")),
		PaymentStatus: PaymentStatus(c.Query("payment_status")),
		Search:        c.Query("search"),
	}

	orders, total, err := h.service.ListOrders(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list orders")
		return
	}

	common.SuccessResponseWithMeta(c, orders, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetOrder returns one order including its risk fields
// GET /api/v1/admin/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get order")
		return
	}

	common.SuccessResponse(c, order)
}

// UpdateStatus changes an order's status
// PATCH /api/v1/admin/orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdateStatusRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "failed to update order")
		return
	}

	common.SuccessResponse(c, order)
}

// BulkDelete removes several orders
// DELETE /api/v1/admin/orders
func (h *Handler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	deleted, err := h.service.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, err, "failed to delete orders")
		return
	}

	common.SuccessResponse(c, gin.H{"deleted": deleted})
}

// RegisterRoutes registers public and staff order routes
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	public := r.Group("/api/v1/orders")
	{
		public.POST("", middleware.OptionalAuth(jwtSecret), h.CreateOrder)
		public.GET("/track/:number", h.TrackOrder)
	}

	admin := r.Group("/api/v1/admin/orders")
	admin.Use(middleware.AuthMiddleware(jwtSecret))
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.GET("", h.ListOrders)
		admin.GET("/:id", h.GetOrder)
		admin.PATCH("/:id/status", h.UpdateStatus)
		admin.DELETE("", h.BulkDelete)
	}
}
