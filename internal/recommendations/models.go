package recommendations

import "github.com/google/uuid"

// Product is the catalog view used for recommendations
type Product struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Price    float64   `json:"price"`
	ImageURL string    `json:"image_url,omitempty"`
}

// ProductStat is a product's sales volume over a window
type ProductStat struct {
	Product    Product
	Quantity   int
	OrderCount int
}

// ProductCount pairs a product with how many orders it appears in
type ProductCount struct {
	Product Product
	Count   int
}

// Recommendation is a ranked product
type Recommendation struct {
	Product
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

const (
	ReasonTrending       = "trending"
	ReasonBoughtTogether = "frequently_bought_together"
	ReasonSameCategory   = "same_category"
	ReasonSimilarUsers   = "customers_like_you"
	ReasonCategory       = "category_affinity"
)
