package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/philipxlee/bazingamart/internal/domain"
)

const reviewColumns = `id, author_id, COALESCE(product_id,'') AS product_id, COALESCE(seller_id,'') AS seller_id,
    stars, body, upvotes, COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at`

type ReviewRepo struct{ db sqlx.ExtContext }

func NewReviewRepo(db sqlx.ExtContext) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts a review of either a product or a seller and returns its id.
func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews(author_id, product_id, seller_id, stars, body, created_at)
		VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, rv.AuthorID, nullable(rv.ProductID), nullable(rv.SellerID), rv.Stars, rv.Body)
	if isUniqueViolation(err) {
		return 0, ErrDuplicateReview
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *ReviewRepo) Get(ctx context.Context, id int64) (domain.Review, error) {
	var rv domain.Review
	err := sqlx.GetContext(ctx, r.db, &rv, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, ErrReviewNotFound
	}
	return rv, err
}

func (r *ReviewRepo) Update(ctx context.Context, id int64, stars int, body string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET stars = ?, body = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, stars, body, id)
	return affectedOne(res, err, ErrReviewNotFound)
}

func (r *ReviewRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	return affectedOne(res, err, ErrReviewNotFound)
}

func (r *ReviewRepo) Upvote(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reviews SET upvotes = upvotes + 1 WHERE id = ?`, id)
	return affectedOne(res, err, ErrReviewNotFound)
}

// ByProduct lists reviews of a product, most upvoted first.
func (r *ReviewRepo) ByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	out := []domain.Review{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE product_id = ?
		ORDER BY upvotes DESC, id DESC
	`, productID)
	return out, err
}

func (r *ReviewRepo) BySeller(ctx context.Context, sellerID string) ([]domain.Review, error) {
	out := []domain.Review{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE seller_id = ?
		ORDER BY upvotes DESC, id DESC
	`, sellerID)
	return out, err
}

// ByAuthor returns an author's most recent reviews.
func (r *ReviewRepo) ByAuthor(ctx context.Context, authorID string, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = 5
	}
	out := []domain.Review{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE author_id = ?
		ORDER BY datetime(created_at) DESC, id DESC
		LIMIT ?
	`, authorID, limit)
	return out, err
}
