package recommendations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/armysmp/storefront/pkg/common"
	"github.com/armysmp/storefront/pkg/logger"
	redisclient "github.com/armysmp/storefront/pkg/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTrendingDays = 7
	DefaultLimit        = 10
	MaxLimit            = 50

	trendingCacheTTL = 10 * time.Minute

	quantityWeight   = 1
	orderCountWeight = 2
)

// Service ranks products from order history
type Service struct {
	repo  RepositoryInterface
	cache *redisclient.Client
	now   func() time.Time
}

// NewService creates a new recommendations service. cache may be nil.
func NewService(repo RepositoryInterface, cache *redisclient.Client) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func trendingKey(days, limit int) string {
	return fmt.Sprintf("recs:trending:%d:%d", days, limit)
}

// Trending ranks products by units sold plus twice the number of orders over
// the trailing days. Results are cached.
func (s *Service) Trending(ctx context.Context, days, limit int) ([]Recommendation, error) {
	if days <= 0 {
		days = DefaultTrendingDays
	}
	limit = normalizeLimit(limit)
	key := trendingKey(days, limit)

	if s.cache != nil {
		var cached []Recommendation
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redisclient.ErrCacheMiss) {
			logger.WithContext(ctx).Warn("Trending cache read failed", zap.Error(err))
		}
	}

	recs, err := s.computeTrending(ctx, days, limit)
	if err != nil {
		return nil, common.NewInternalError("failed to compute trending products", err)
	}

	s.storeTrending(ctx, key, recs)
	return recs, nil
}

// WarmTrending recomputes the default trending entry
func (s *Service) WarmTrending(ctx context.Context) error {
	recs, err := s.computeTrending(ctx, DefaultTrendingDays, DefaultLimit)
	if err != nil {
		return err
	}
	s.storeTrending(ctx, trendingKey(DefaultTrendingDays, DefaultLimit), recs)
	return nil
}

func (s *Service) storeTrending(ctx context.Context, key string, recs []Recommendation) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, recs, trendingCacheTTL); err != nil {
		logger.WithContext(ctx).Warn("Trending cache write failed", zap.Error(err))
	}
}

func (s *Service) computeTrending(ctx context.Context, days, limit int) ([]Recommendation, error) {
	since := s.now().AddDate(0, 0, -days)
	stats, err := s.repo.SalesSince(ctx, since)
	if err != nil {
		return nil, err
	}

	recs := make([]Recommendation, 0, len(stats))
	for _, st := range stats {
		recs = append(recs, Recommendation{
			Product: st.Product,
			Score:   float64(st.Quantity*quantityWeight + st.OrderCount*orderCountWeight),
			Reason:  ReasonTrending,
		})
	}
	rank(recs)
	return truncate(recs, limit), nil
}

// FrequentlyBoughtTogether ranks products by how often they share an order
// with productID, topped up with products from the same category
func (s *Service) FrequentlyBoughtTogether(ctx context.Context, productID uuid.UUID, limit int) ([]Recommendation, error) {
	limit = normalizeLimit(limit)

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, common.NewNotFoundError("product not found", err)
		}
		return nil, common.NewInternalError("failed to load product", err)
	}

	counts, err := s.repo.CoPurchased(ctx, productID)
	if err != nil {
		return nil, common.NewInternalError("failed to load co-purchases", err)
	}

	b := newBuilder(limit, map[uuid.UUID]bool{productID: true})
	b.addCounts(counts, ReasonBoughtTogether)

	if !b.full() {
		same, err := s.repo.ProductsInCategories(ctx, []string{product.Category}, limit+1)
		if err != nil {
			logger.WithContext(ctx).Warn("Category fallback failed", zap.Error(err))
		} else {
			b.addProducts(same, ReasonSameCategory)
		}
	}

	return b.result(), nil
}

// Personalized combines purchases of similar customers with the user's
// category affinity and fills the rest with trending products. Products the
// user already bought are never returned.
func (s *Service) Personalized(ctx context.Context, userID uuid.UUID, limit int) ([]Recommendation, error) {
	limit = normalizeLimit(limit)
	log := logger.WithContext(ctx)

	purchased, err := s.repo.PurchasedBy(ctx, userID)
	if err != nil {
		return nil, common.NewInternalError("failed to load purchase history", err)
	}

	owned := make(map[uuid.UUID]bool, len(purchased))
	for _, pc := range purchased {
		owned[pc.Product.ID] = true
	}
	b := newBuilder(limit, owned)

	if len(purchased) > 0 {
		peers, err := s.repo.PeerPurchases(ctx, userID)
		if err != nil {
			log.Warn("Peer purchases query failed", zap.Error(err))
		} else {
			b.addCounts(peers, ReasonSimilarUsers)
		}

		if !b.full() {
			categories := favouriteCategories(purchased)
			related, err := s.repo.ProductsInCategories(ctx, categories, limit+len(owned))
			if err != nil {
				log.Warn("Category affinity query failed", zap.Error(err))
			} else {
				b.addProducts(related, ReasonCategory)
			}
		}
	}

	if !b.full() {
		trending, err := s.Trending(ctx, DefaultTrendingDays, MaxLimit)
		if err != nil {
			log.Warn("Trending top-up failed", zap.Error(err))
		} else {
			b.addRecommendations(trending)
		}
	}

	return b.result(), nil
}

// favouriteCategories orders the user's categories by purchase count
func favouriteCategories(purchased []ProductCount) []string {
	weight := make(map[string]int)
	for _, pc := range purchased {
		weight[pc.Product.Category] += pc.Count
	}
	categories := make([]string, 0, len(weight))
	for c := range weight {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if weight[categories[i]] != weight[categories[j]] {
			return weight[categories[i]] > weight[categories[j]]
		}
		return categories[i] < categories[j]
	})
	return categories
}

// rank sorts by score descending, then name for a stable order
func rank(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Name < recs[j].Name
	})
}

func truncate(recs []Recommendation, limit int) []Recommendation {
	if len(recs) > limit {
		return recs[:limit]
	}
	return recs
}

// builder accumulates unique recommendations up to a limit
type builder struct {
	limit   int
	exclude map[uuid.UUID]bool
	out     []Recommendation
}

func newBuilder(limit int, exclude map[uuid.UUID]bool) *builder {
	seen := make(map[uuid.UUID]bool, len(exclude))
	for id := range exclude {
		seen[id] = true
	}
	return &builder{limit: limit, exclude: seen, out: make([]Recommendation, 0, limit)}
}

func (b *builder) full() bool {
	return len(b.out) >= b.limit
}

func (b *builder) add(r Recommendation) {
	if b.full() || b.exclude[r.ID] {
		return
	}
	b.exclude[r.ID] = true
	b.out = append(b.out, r)
}

func (b *builder) addCounts(counts []ProductCount, reason string) {
	recs := make([]Recommendation, 0, len(counts))
	for _, pc := range counts {
		recs = append(recs, Recommendation{Product: pc.Product, Score: float64(pc.Count), Reason: reason})
	}
	rank(recs)
	b.addRecommendations(recs)
}

func (b *builder) addProducts(products []Product, reason string) {
	for _, p := range products {
		b.add(Recommendation{Product: p, Reason: reason})
	}
}

func (b *builder) addRecommendations(recs []Recommendation) {
	for _, r := range recs {
		b.add(r)
	}
}

func (b *builder) result() []Recommendation {
	return b.out
}
