package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/philipxlee/bazingamart/internal/domain"
)

// ProductRepo serves the public catalog: read-only views over listings.
type ProductRepo struct{ db sqlx.ExtContext }

func NewProductRepo(db sqlx.ExtContext) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) ListAvailable(ctx context.Context, limit, offset int) ([]domain.Listing, error) {
	out := []domain.Listing{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
	  SELECT `+listingColumns+`
	  FROM listings
	  WHERE available = 1
	  ORDER BY product_id, seller_id
	  LIMIT ? OFFSET ?
	`, limit, offset)
	return out, err
}

func (r *ProductRepo) CountAvailable(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM listings WHERE available = 1`)
	return n, err
}

// ByProduct returns every seller's listing of one product, cheapest first.
func (r *ProductRepo) ByProduct(ctx context.Context, productID string) ([]domain.Listing, error) {
	out := []domain.Listing{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
	  SELECT `+listingColumns+`
	  FROM listings
	  WHERE product_id = ?
	  ORDER BY CAST(price AS REAL), seller_id
	`, productID)
	return out, err
}

func (r *ProductRepo) Search(ctx context.Context, q, category string, limit, offset int) ([]domain.Listing, error) {
	where := `available = 1`
	args := []any{}
	if q != "" {
		where += ` AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}
	if category != "" {
		where += ` AND category = ?`
		args = append(args, category)
	}

	query := `
	  SELECT ` + listingColumns + `
	  FROM listings
	  WHERE ` + where + `
	  ORDER BY name, product_id, seller_id
	  LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	out := []domain.Listing{}
	err := sqlx.SelectContext(ctx, r.db, &out, query, args...)
	return out, err
}

// TopExpensive returns the k highest priced listings.
func (r *ProductRepo) TopExpensive(ctx context.Context, k int) ([]domain.Listing, error) {
	out := []domain.Listing{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
	  SELECT `+listingColumns+`
	  FROM listings
	  ORDER BY CAST(price AS REAL) DESC, product_id
	  LIMIT ?
	`, k)
	return out, err
}
