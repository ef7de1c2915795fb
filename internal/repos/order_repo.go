package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/philipxlee/bazingamart/internal/domain"
)

const orderColumns = `id, user_id, total_price, COALESCE(coupon_code,'') AS coupon_code, status, COALESCE(created_at,'') AS created_at`

type OrderRepo struct{ db sqlx.ExtContext }

func NewOrderRepo(db sqlx.ExtContext) *OrderRepo { return &OrderRepo{db: db} }

// SellerItem is a line item as seen by the seller who has to ship it.
type SellerItem struct {
	domain.LineItem
	BuyerID   string `db:"buyer_id" json:"buyer_id"`
	OrderedAt string `db:"ordered_at" json:"ordered_at"`
}

// Upsert creates the order for a completed cart. An existing order keeps its
// status; only total and coupon are refreshed.
func (r *OrderRepo) Upsert(ctx context.Context, orderID, userID string, total decimal.Decimal, coupon string) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO orders(id, user_id, total_price, coupon_code, status, created_at)
	  VALUES(?, ?, ?, ?, 'Incomplete', CURRENT_TIMESTAMP)
	  ON CONFLICT(id) DO UPDATE SET
	    total_price = excluded.total_price,
	    coupon_code = excluded.coupon_code
	`, orderID, userID, total, nullable(coupon))
	return err
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (domain.Order, error) {
	var o domain.Order
	err := sqlx.GetContext(ctx, r.db, &o, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ErrOrderNotFound
	}
	return o, err
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Order{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = ?
		ORDER BY datetime(created_at) DESC, id
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	return out, err
}

// ItemStatuses returns the current status of every line item of an order.
func (r *OrderRepo) ItemStatuses(ctx context.Context, orderID string) ([]domain.FulfillmentStatus, error) {
	out := []domain.FulfillmentStatus{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT status FROM cart_items WHERE cart_id = ? ORDER BY id
	`, orderID)
	return out, err
}

func (r *OrderRepo) SetStatus(ctx context.Context, orderID string, st domain.FulfillmentStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(st), orderID)
	return affectedOne(res, err, ErrOrderNotFound)
}

// SellerItems lists a seller's sold line items, optionally filtered by status.
func (r *OrderRepo) SellerItems(ctx context.Context, sellerID string, statuses ...domain.FulfillmentStatus) ([]SellerItem, error) {
	query := `
	  SELECT ci.id, ci.cart_id, ci.product_id, ci.seller_id,
	         COALESCE(l.name, ci.product_id) AS name,
	         ci.quantity, ci.unit_price, ci.status,
	         (l.product_id IS NOT NULL) AS listing_exists,
	         o.user_id AS buyer_id,
	         COALESCE(o.created_at,'') AS ordered_at
	  FROM cart_items ci
	  JOIN orders o ON o.id = ci.cart_id
	  LEFT JOIN listings l ON l.product_id = ci.product_id AND l.seller_id = ci.seller_id
	  WHERE ci.seller_id = ?`
	args := []any{sellerID}
	if len(statuses) > 0 {
		in, inArgs, err := sqlx.In(` AND ci.status IN (?)`, statuses)
		if err != nil {
			return nil, err
		}
		query += in
		args = append(args, inArgs...)
	}
	query += ` ORDER BY datetime(o.created_at) DESC, ci.id`

	out := []SellerItem{}
	err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(query), args...)
	return out, err
}
