package cart

import (
	"context"
	"net/http"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// StoreInterface is the cart persistence used by the handler
type StoreInterface interface {
	GetItems(ctx context.Context, sessionID string) ([]CartItem, error)
	SaveItems(ctx context.Context, sessionID string, items []CartItem) error
	Clear(ctx context.Context, sessionID string) error
}

// Handler handles HTTP requests for the session cart
type Handler struct {
	store StoreInterface
}

// NewHandler creates a new cart handler
func NewHandler(store StoreInterface) *Handler {
	return &Handler{store: store}
}

func sessionID(c *gin.Context) (string, bool) {
	id := c.GetHeader(SessionHeader)
	if id == "" || len(id) > 128 {
		common.ErrorResponse(c, http.StatusBadRequest, "missing or invalid "+SessionHeader+" header")
		return "", false
	}
	return id, true
}

// Get returns the cart
// GET /api/v1/cart
func (h *Handler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	items, err := h.store.GetItems(c.Request.Context(), id)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load cart")
		return
	}

	common.SuccessResponse(c, gin.H{"items": items})
}

// Save replaces the cart
// PUT /api/v1/cart
func (h *Handler) Save(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req SaveRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	if err := h.store.SaveItems(c.Request.Context(), id, req.Items); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to save cart")
		return
	}

	common.SuccessResponse(c, gin.H{"items": req.Items})
}

// Clear empties the cart
// DELETE /api/v1/cart
func (h *Handler) Clear(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.store.Clear(c.Request.Context(), id); err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	common.SuccessResponse(c, gin.H{"message": "cart cleared"})
}

// RegisterRoutes registers cart routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	cart := r.Group("/api/v1/cart")
	{
		cart.GET("", h.Get)
		cart.PUT("", h.Save)
		cart.DELETE("", h.Clear)
	}
}
