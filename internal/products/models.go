package products

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	ImageURL  string    `json:"image_url,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductFilter narrows catalog listings
type ProductFilter struct {
	Category      string
	IncludeHidden bool
}

// ImageUpload is a decoded multipart image
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
}
