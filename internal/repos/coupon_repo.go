package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/philipxlee/bazingamart/internal/domain"
)

type CouponRepo struct{ db sqlx.ExtContext }

func NewCouponRepo(db sqlx.ExtContext) *CouponRepo { return &CouponRepo{db: db} }

// Get looks a code up case-insensitively.
func (r *CouponRepo) Get(ctx context.Context, code string) (domain.Coupon, error) {
	var c domain.Coupon
	err := sqlx.GetContext(ctx, r.db, &c, `
		SELECT code, discount_percentage FROM coupons WHERE UPPER(code) = ?
	`, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coupon{}, ErrCouponNotFound
	}
	return c, err
}

func (r *CouponRepo) Upsert(ctx context.Context, c domain.Coupon) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coupons(code, discount_percentage) VALUES(?, ?)
		ON CONFLICT(code) DO UPDATE SET discount_percentage = excluded.discount_percentage
	`, c.Code, c.DiscountPercentage)
	return err
}
