package products

import (
	"context"
	"io"
	"net/http"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/middleware"
	"github.com/armysmp/storefront/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const imageField = "image"

// Catalog is the subset of Service used by the handler
type Catalog interface {
	ListProducts(ctx context.Context, filter ProductFilter, limit, offset int) ([]*Product, int64, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	UploadImage(ctx context.Context, id uuid.UUID, upload ImageUpload, body io.Reader) (*Product, error)
}

// Handler handles HTTP requests for the catalog
type Handler struct {
	service Catalog
}

// NewHandler creates a new products handler
func NewHandler(service Catalog) *Handler {
	return &Handler{service: service}
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*common.AppError); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid product id")
		return uuid.Nil, false
	}
	return id, true
}

// ListProducts lists active products
// GET /api/v1/products?category=
func (h *Handler) ListProducts(c *gin.Context) {
	params := pagination.ParseParams(c)
	filter := ProductFilter{Category: c.Query("category")}

	products, total, err := h.service.ListProducts(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list products")
		return
	}

	common.SuccessResponseWithMeta(c, products, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetProduct returns one product
// GET /api/v1/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to get product")
		return
	}

	common.SuccessResponse(c, product)
}

// UploadImage replaces a product's image from a multipart form
// POST /api/v1/admin/products/:id/image
func (h *Handler) UploadImage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	header, err := c.FormFile(imageField)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "image file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "failed to read image")
		return
	}
	defer file.Close()

	upload := ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	product, err := h.service.UploadImage(c.Request.Context(), id, upload, file)
	if err != nil {
		respondError(c, err, "failed to upload image")
		return
	}

	common.SuccessResponse(c, product)
}

// RegisterRoutes registers catalog routes
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	public := r.Group("/api/v1/products")
	{
		public.GET("", h.ListProducts)
		public.GET("/:id", h.GetProduct)
	}

	admin := r.Group("/api/v1/admin/products")
	admin.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("/:id/image", h.UploadImage)
	}
}
