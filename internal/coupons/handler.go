package coupons

import (
	"context"
	"net/http"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// Validator is the subset of Service used by the handler
type Validator interface {
	Validate(ctx context.Context, code string, subtotal float64) (*CouponContext, error)
}

// Handler handles HTTP requests for coupons
type Handler struct {
	service Validator
}

// NewHandler creates a new coupons handler
func NewHandler(service Validator) *Handler {
	return &Handler{service: service}
}

// Validate previews a coupon against a subtotal
// POST /api/v1/coupons/validate
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	result, err := h.service.Validate(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to validate coupon")
		return
	}

	common.SuccessResponse(c, result)
}

// RegisterRoutes registers coupon routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	coupons := r.Group("/api/v1/coupons")
	{
		coupons.POST("/validate", h.Validate)
	}
}
