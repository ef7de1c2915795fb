package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type CategoryRepo struct{ db sqlx.ExtContext }

func NewCategoryRepo(db sqlx.ExtContext) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns the distinct non-empty categories of available listings.
func (r *CategoryRepo) List(ctx context.Context) ([]string, error) {
	out := []string{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
	  SELECT DISTINCT category
	  FROM listings
	  WHERE category != '' AND available = 1
	  ORDER BY category
	`)
	return out, err
}
