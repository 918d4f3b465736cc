package fraud

import (
	"context"
	"net/http"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/armysmp/storefront/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminService is the subset of Service used by the admin handler
type AdminService interface {
	ListAlerts(ctx context.Context, filter AlertFilter, limit, offset int) ([]*FraudAlert, int64, error)
	GetAlertDetail(ctx context.Context, alertID uuid.UUID) (*AlertDetail, error)
	ReviewAlert(ctx context.Context, alertID uuid.UUID, reviewer string, req *ReviewAlertRequest) (*FraudAlert, error)
	GetFraudStats(ctx context.Context) (*FraudStats, error)
	GetUserRiskProfile(ctx context.Context, userID uuid.UUID) (*UserRiskProfile, error)
	BlockAccount(ctx context.Context, userID uuid.UUID) error
	ListBlacklist(ctx context.Context) ([]string, error)
}

// Handler handles HTTP requests for fraud review
type Handler struct {
	service AdminService
}

// NewHandler creates a new fraud handler
func NewHandler(service AdminService) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*common.AppError); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

func parseUUIDParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}

// ListAlerts lists fraud alerts
// GET /api/v1/admin/fraud/alerts?status=pending&risk_level=critical
func (h *Handler) ListAlerts(c *gin.Context) {
	params := pagination.ParseParams(c)
	var filter AlertFilter
	if err := middleware.ValidateQuery(c, &filter); err != nil {
		middleware.RespondWithValidationError(c, err)
		return
	}

	alerts, total, err := h.service.ListAlerts(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list alerts")
		return
	}

	common.SuccessResponseWithMeta(c, alerts, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetAlert returns an alert with its order and account context
// GET /api/v1/admin/fraud/alerts/:id
func (h *Handler) GetAlert(c *gin.Context) {
	alertID, ok := parseUUIDParam(c, "id", "invalid alert ID")
	if !ok {
		return
	}

	detail, err := h.service.GetAlertDetail(c.Request.Context(), alertID)
	if err != nil {
		respondError(c, err, "failed to get alert")
		return
	}

	common.SuccessResponse(c, detail)
}

// ReviewAlert records a staff decision on an alert
// PATCH /api/v1/admin/fraud/alerts/:id
func (h *Handler) ReviewAlert(c *gin.Context) {
	alertID, ok := parseUUIDParam(c, "id", "invalid alert ID")
	if !ok {
		return
	}

	var req ReviewAlertRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	alert, err := h.service.ReviewAlert(c.Request.Context(), alertID, middleware.GetUsername(c), &req)
	if err != nil {
		respondError(c, err, "failed to review alert")
		return
	}

	common.SuccessResponse(c, alert)
}

// GetStats returns alert queue statistics
// GET /api/v1/admin/fraud/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.GetFraudStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to get fraud stats")
		return
	}

	common.SuccessResponse(c, stats)
}

// GetUserProfile returns an account's risk profile
// GET /api/v1/admin/fraud/users/:id/profile
func (h *Handler) GetUserProfile(c *gin.Context) {
	userID, ok := parseUUIDParam(c, "id", "invalid user ID")
	if !ok {
		return
	}

	profile, err := h.service.GetUserRiskProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get user risk profile")
		return
	}

	common.SuccessResponse(c, profile)
}

// BlockUser blocks an account and blacklists its IPs
// POST /api/v1/admin/fraud/users/:id/block
func (h *Handler) BlockUser(c *gin.Context) {
	userID, ok := parseUUIDParam(c, "id", "invalid user ID")
	if !ok {
		return
	}

	if err := h.service.BlockAccount(c.Request.Context(), userID); err != nil {
		respondError(c, err, "failed to block user")
		return
	}

	common.SuccessResponse(c, gin.H{"user_id": userID, "blocked": true})
}

// ListBlacklist returns the blacklisted IPs
// GET /api/v1/admin/fraud/blacklist
func (h *Handler) ListBlacklist(c *gin.Context) {
	ips, err := h.service.ListBlacklist(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to get blacklist")
		return
	}

	common.SuccessResponse(c, gin.H{"ips": ips, "count": len(ips)})
}

// RegisterRoutes registers fraud review routes for staff
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	admin := r.Group("/api/v1/admin/fraud")
	admin.Use(middleware.AuthMiddleware(jwtSecret))
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.GET("/alerts", h.ListAlerts)
		admin.GET("/alerts/:id", h.GetAlert)
		admin.PATCH("/alerts/:id", h.ReviewAlert)
		admin.GET("/stats", h.GetStats)
		admin.GET("/users/:id/profile", h.GetUserProfile)
		admin.POST("/users/:id/block", h.BlockUser)
		admin.GET("/blacklist", h.ListBlacklist)
	}
}
