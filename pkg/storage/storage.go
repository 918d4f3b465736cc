package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadResult contains the result of an upload operation
type UploadResult struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Storage is the object store holding catalog images
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	// GetURL returns the public URL for a key
	GetURL(key string) string
	// KeyFromURL reverses GetURL; ok is false for URLs outside this store
	KeyFromURL(url string) (key string, ok bool)
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// GenerateProductImageKey generates a unique storage key for a product image
func GenerateProductImageKey(productID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	uniqueID := uuid.New().String()[:8]

	// Format: products/{product_id}/{timestamp}_{unique_id}{ext}
	return fmt.Sprintf("products/%s/%s_%s%s",
		productID.String(),
		time.Now().UTC().Format("20060102"),
		uniqueID,
		ext,
	)
}

// ValidateMimeType checks if the mime type is allowed. Entries like
// "image/*" match a whole family.
func ValidateMimeType(mimeType string, allowedTypes []string) bool {
	if len(allowedTypes) == 0 {
		return true
	}

	mimeType = strings.ToLower(mimeType)
	for _, allowed := range allowedTypes {
		if strings.ToLower(allowed) == mimeType {
			return true
		}
		if strings.HasSuffix(allowed, "/*") && strings.HasPrefix(mimeType, strings.TrimSuffix(allowed, "*")) {
			return true
		}
	}
	return false
}

// GetMimeTypeFromExtension returns the image MIME type for filename
func GetMimeTypeFromExtension(filename string) string {
	if mime, ok := imageTypes[strings.ToLower(path.Ext(filename))]; ok {
		return mime
	}
	return "application/octet-stream"
}

