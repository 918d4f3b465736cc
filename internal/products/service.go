package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/logger"
	"github.com/armysmp/storefront/pkg/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Service serves the catalog and manages product images
type Service struct {
	repo         RepositoryInterface
	images       storage.Storage
	maxImageSize int64
}

// NewService creates a new products service. images may be nil, which
// disables uploads.
func NewService(repo RepositoryInterface, images storage.Storage, maxImageSizeMB int) *Service {
	return &Service{
		repo:         repo,
		images:       images,
		maxImageSize: int64(maxImageSizeMB) << 20,
	}
}

// ListProducts returns a page of the catalog
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter, limit, offset int) ([]*Product, int64, error) {
	products, total, err := s.repo.ListProducts(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list products", err)
	}
	return products, total, nil
}

// GetProduct returns one active product
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, common.NewNotFoundError("product not found", err)
		}
		return nil, common.NewInternalError("failed to get product", err)
	}
	if !product.Active {
		return nil, common.NewNotFoundError("product not found", nil)
	}
	return product, nil
}

// UploadImage stores a new product image and removes the one it replaces
func (s *Service) UploadImage(ctx context.Context, id uuid.UUID, upload ImageUpload, body io.Reader) (*Product, error) {
	if s.images == nil {
		return nil, common.NewAppError(http.StatusServiceUnavailable, "image storage is not configured", nil)
	}
	if upload.Size <= 0 {
		return nil, common.NewBadRequestError("image is empty", nil)
	}
	if upload.Size > s.maxImageSize {
		return nil, common.NewAppError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("image exceeds %d MB", s.maxImageSize>>20), nil)
	}

	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.GetMimeTypeFromExtension(upload.Filename)
	}
	if !storage.ValidateMimeType(contentType, allowedImageTypes) {
		return nil, common.NewAppError(http.StatusUnsupportedMediaType, "image must be jpeg, png, gif or webp", nil)
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, common.NewNotFoundError("product not found", err)
		}
		return nil, common.NewInternalError("failed to get product", err)
	}

	result, err := s.images.Upload(ctx, storage.GenerateProductImageKey(id, upload.Filename), body, upload.Size, contentType)
	if err != nil {
		return nil, common.NewInternalError("failed to upload image", err)
	}

	if err := s.repo.UpdateImageURL(ctx, id, result.URL); err != nil {
		if delErr := s.images.Delete(ctx, result.Key); delErr != nil {
			logger.WithContext(ctx).Warn("failed to remove orphaned image", zap.String("key", result.Key), zap.Error(delErr))
		}
		return nil, common.NewInternalError("failed to save image", err)
	}

	if oldKey, ok := s.images.KeyFromURL(product.ImageURL); ok {
		if err := s.images.Delete(ctx, oldKey); err != nil {
			logger.WithContext(ctx).Warn("failed to remove replaced image", zap.String("key", oldKey), zap.Error(err))
		}
	}

	product.ImageURL = result.URL
	logger.WithContext(ctx).Info("product image updated",
		zap.String("product_id", id.String()),
		zap.String("key", result.Key),
	)
	return product, nil
}
