package recommendations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProductNotFound = errors.New("product not found")

const productColumns = `p.id, p.name, p.category, p.price, COALESCE(p.image_url, '')`

// orderLines expands order items into (order, user, product, quantity) rows,
// ignoring cancelled orders
const orderLines = `
	SELECT o.id AS order_id, o.user_id, o.created_at, i.product_id, i.quantity
	FROM orders o
	CROSS JOIN LATERAL jsonb_to_recordset(o.items) AS i(product_id uuid, quantity int)
	WHERE o.status <> 'cancelled'`

// Repository runs recommendation queries against order history
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new recommendations repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanProduct(row pgx.Row, extra ...interface{}) (Product, error) {
	var p Product
	dest := append([]interface{}{&p.ID, &p.Name, &p.Category, &p.Price, &p.ImageURL}, extra...)
	err := row.Scan(dest...)
	return p, err
}

func collectCounts(rows pgx.Rows) ([]ProductCount, error) {
	defer rows.Close()

	out := make([]ProductCount, 0)
	for rows.Next() {
		var pc ProductCount
		p, err := scanProduct(rows, &pc.Count)
		if err != nil {
			return nil, err
		}
		pc.Product = p
		out = append(out, pc)
	}
	return out, rows.Err()
}

// GetProduct returns an active product
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1 AND p.active`
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SalesSince returns units sold and order counts per active product
func (r *Repository) SalesSince(ctx context.Context, since time.Time) ([]ProductStat, error) {
	query := `
		SELECT ` + productColumns + `, SUM(l.quantity)::int, COUNT(DISTINCT l.order_id)::int
		FROM (` + orderLines + `) l
		JOIN products p ON p.id = l.product_id AND p.active
		WHERE l.created_at >= $1
		GROUP BY p.id`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]ProductStat, 0)
	for rows.Next() {
		var s ProductStat
		p, err := scanProduct(rows, &s.Quantity, &s.OrderCount)
		if err != nil {
			return nil, err
		}
		s.Product = p
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// CoPurchased counts how many orders containing productID also contain each
// other product
func (r *Repository) CoPurchased(ctx context.Context, productID uuid.UUID) ([]ProductCount, error) {
	query := `
		WITH lines AS (` + orderLines + `)
		SELECT ` + productColumns + `, COUNT(DISTINCT l.order_id)::int
		FROM lines l
		JOIN products p ON p.id = l.product_id AND p.active
		WHERE l.product_id <> $1
		  AND l.order_id IN (SELECT order_id FROM lines WHERE product_id = $1)
		GROUP BY p.id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	return collectCounts(rows)
}

// ProductsInCategories lists active products in any of categories
func (r *Repository) ProductsInCategories(ctx context.Context, categories []string, limit int) ([]Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		WHERE p.active AND p.category = ANY($1)
		ORDER BY p.created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, categories, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// PurchasedBy returns the products a user has bought with their order counts
func (r *Repository) PurchasedBy(ctx context.Context, userID uuid.UUID) ([]ProductCount, error) {
	query := `
		SELECT ` + productColumns + `, COUNT(DISTINCT l.order_id)::int
		FROM (` + orderLines + `) l
		JOIN products p ON p.id = l.product_id
		WHERE l.user_id = $1
		GROUP BY p.id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectCounts(rows)
}

// PeerPurchases counts purchases by other users who share at least one
// purchased product with userID
func (r *Repository) PeerPurchases(ctx context.Context, userID uuid.UUID) ([]ProductCount, error) {
	query := `
		WITH lines AS (` + orderLines + `),
		mine AS (SELECT DISTINCT product_id FROM lines WHERE user_id = $1),
		peers AS (
			SELECT DISTINCT user_id FROM lines
			WHERE user_id IS NOT NULL AND user_id <> $1
			  AND product_id IN (SELECT product_id FROM mine)
		)
		SELECT ` + productColumns + `, COUNT(DISTINCT l.order_id)::int
		FROM lines l
		JOIN products p ON p.id = l.product_id AND p.active
		WHERE l.user_id IN (SELECT user_id FROM peers)
		GROUP BY p.id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectCounts(rows)
}
