package recommendations

import (
	"context"
	"net/http"
	"strconv"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Recommender is the subset of Service used by the handler
type Recommender interface {
	Trending(ctx context.Context, days, limit int) ([]Recommendation, error)
	FrequentlyBoughtTogether(ctx context.Context, productID uuid.UUID, limit int) ([]Recommendation, error)
	Personalized(ctx context.Context, userID uuid.UUID, limit int) ([]Recommendation, error)
}

// Handler handles HTTP requests for recommendations
type Handler struct {
	service Recommender
}

// NewHandler creates a new recommendations handler
func NewHandler(service Recommender) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*common.AppError); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}

// Trending returns the best-selling products
// GET /api/v1/recommendations/trending?days=7&limit=10
func (h *Handler) Trending(c *gin.Context) {
	days := queryInt(c, "days", DefaultTrendingDays)
	limit := queryInt(c, "limit", DefaultLimit)

	recs, err := h.service.Trending(c.Request.Context(), days, limit)
	if err != nil {
		respondError(c, err, "failed to load trending products")
		return
	}

	common.SuccessResponse(c, recs)
}

// BoughtTogether returns products often ordered with the given one
// GET /api/v1/recommendations/products/:id/together
func (h *Handler) BoughtTogether(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid product ID")
		return
	}

	recs, err := h.service.FrequentlyBoughtTogether(c.Request.Context(), productID, queryInt(c, "limit", DefaultLimit))
	if err != nil {
		respondError(c, err, "failed to load recommendations")
		return
	}

	common.SuccessResponse(c, recs)
}

// ForMe returns recommendations for the signed-in customer
// GET /api/v1/recommendations/me
func (h *Handler) ForMe(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	recs, err := h.service.Personalized(c.Request.Context(), userID, queryInt(c, "limit", DefaultLimit))
	if err != nil {
		respondError(c, err, "failed to load recommendations")
		return
	}

	common.SuccessResponse(c, recs)
}

// RegisterRoutes registers recommendation routes
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	recs := r.Group("/api/v1/recommendations")
	{
		recs.GET("/trending", h.Trending)
		recs.GET("/products/:id/together", h.BoughtTogether)
		recs.GET("/me", middleware.AuthMiddleware(jwtSecret), h.ForMe)
	}
}
