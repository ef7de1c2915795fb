package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/philipxlee/bazingamart/internal/domain"
)

type CartRepo struct{ db sqlx.ExtContext }

func NewCartRepo(db sqlx.ExtContext) *CartRepo { return &CartRepo{db: db} }

// PendingCart returns the user's single pending cart or ErrNoPendingCart.
func (r *CartRepo) PendingCart(ctx context.Context, userID string) (domain.Cart, error) {
	var c domain.Cart
	err := sqlx.GetContext(ctx, r.db, &c, `
		SELECT id, user_id, status, COALESCE(coupon_code,'') AS coupon_code
		FROM carts
		WHERE user_id = ? AND status = 'Pending'
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, ErrNoPendingCart
	}
	return c, err
}

// EnsurePendingCart returns the pending cart, creating an empty one if needed.
func (r *CartRepo) EnsurePendingCart(ctx context.Context, userID string) (domain.Cart, error) {
	c, err := r.PendingCart(ctx, userID)
	if !errors.Is(err, ErrNoPendingCart) {
		return c, err
	}
	c = domain.Cart{ID: uuid.NewString(), UserID: userID, Status: domain.CartPending}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO carts(id, user_id, status, updated_at)
		VALUES(?, ?, 'Pending', CURRENT_TIMESTAMP)
	`, c.ID, c.UserID); err != nil {
		// lost a race against another request of the same user
		if isUniqueViolation(err) {
			return r.PendingCart(ctx, userID)
		}
		return domain.Cart{}, err
	}
	return c, nil
}

// Items returns a cart's (or order's) line items ordered by primary key.
// Name comes from the listing when it still exists.
func (r *CartRepo) Items(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	out := []domain.LineItem{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
	  SELECT ci.id, ci.cart_id, ci.product_id, ci.seller_id,
	         COALESCE(l.name, ci.product_id) AS name,
	         ci.quantity, ci.unit_price, ci.status,
	         (l.product_id IS NOT NULL) AS listing_exists
	  FROM cart_items ci
	  LEFT JOIN listings l ON l.product_id = ci.product_id AND l.seller_id = ci.seller_id
	  WHERE ci.cart_id = ?
	  ORDER BY ci.id
	`, cartID)
	return out, err
}

// ItemQty returns the quantity of a listing already in the cart, 0 if absent.
func (r *CartRepo) ItemQty(ctx context.Context, cartID, productID, sellerID string) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, r.db, &qty, `
		SELECT quantity FROM cart_items
		WHERE cart_id = ? AND product_id = ? AND seller_id = ?
	`, cartID, productID, sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

// AddItem inserts a line or adds qty to an existing one. The unit price is
// only taken from the first add.
func (r *CartRepo) AddItem(ctx context.Context, cartID, productID, sellerID string, qty int, price decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items(cart_id, product_id, seller_id, quantity, unit_price, created_at)
		VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(cart_id, product_id, seller_id) DO UPDATE
		SET quantity = cart_items.quantity + excluded.quantity, updated_at = CURRENT_TIMESTAMP
	`, cartID, productID, sellerID, qty, price)
	return err
}

func (r *CartRepo) SetItemQty(ctx context.Context, cartID, productID, sellerID string, qty int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ?, updated_at = CURRENT_TIMESTAMP
		WHERE cart_id = ? AND product_id = ? AND seller_id = ?
	`, qty, cartID, productID, sellerID)
	return affectedOne(res, err, ErrLineItemNotFound)
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, productID, sellerID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE cart_id = ? AND product_id = ? AND seller_id = ?
	`, cartID, productID, sellerID)
	return affectedOne(res, err, ErrLineItemNotFound)
}

// SetCoupon stores code on the cart; "" clears it.
func (r *CartRepo) SetCoupon(ctx context.Context, cartID, code string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE carts SET coupon_code = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, nullable(code), cartID)
	return err
}

// MarkCompleted flips a pending cart to Completed.
func (r *CartRepo) MarkCompleted(ctx context.Context, cartID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts SET status = 'Completed', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'Pending'
	`, cartID)
	return affectedOne(res, err, ErrCartNotPending)
}

// SetItemStatus updates one line item's fulfillment status.
func (r *CartRepo) SetItemStatus(ctx context.Context, cartID, productID, sellerID string, st domain.FulfillmentStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE cart_id = ? AND product_id = ? AND seller_id = ?
	`, string(st), cartID, productID, sellerID)
	return affectedOne(res, err, ErrLineItemNotFound)
}

func affectedOne(res sql.Result, err, none error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}
