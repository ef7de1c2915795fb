package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/philipxlee/bazingamart/internal/domain"
)

const listingColumns = `product_id, seller_id, name, category, description, image_url, price, quantity, available,
    COALESCE(updated_at,'') AS updated_at`

// InventoryRepo owns per-listing stock: lookups by (product, seller), seller
// inventory pages and the checkout decrement.
type InventoryRepo struct{ db sqlx.ExtContext }

func NewInventoryRepo(db sqlx.ExtContext) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) Get(ctx context.Context, productID, sellerID string) (domain.Listing, error) {
	var l domain.Listing
	err := sqlx.GetContext(ctx, r.db, &l, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE product_id = ? AND seller_id = ?
	`, productID, sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, ErrListingNotFound
	}
	return l, err
}

// ListBySeller returns all listings of a seller, available or not.
func (r *InventoryRepo) ListBySeller(ctx context.Context, sellerID string) ([]domain.Listing, error) {
	rows := []domain.Listing{}
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE seller_id = ?
		ORDER BY name, product_id
	`, sellerID)
	return rows, err
}

// Qty returns current stock of a listing, or ErrListingNotFound.
func (r *InventoryRepo) Qty(ctx context.Context, productID, sellerID string) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, r.db, &qty, `
		SELECT quantity FROM listings
		WHERE product_id = ? AND seller_id = ?
	`, productID, sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrListingNotFound
	}
	return qty, err
}

// Decrement atomically subtracts "by" units if enough stock exists.
func (r *InventoryRepo) Decrement(ctx context.Context, productID, sellerID string, by int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listings
		SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND seller_id = ? AND quantity >= ?
	`, by, productID, sellerID, by)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s from seller %s", ErrInsufficientStock, productID, sellerID)
	}
	return nil
}

// Upsert creates or replaces a seller's listing.
func (r *InventoryRepo) Upsert(ctx context.Context, l domain.Listing) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO listings(product_id, seller_id, name, category, description, image_url, price, quantity, available, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(product_id, seller_id) DO UPDATE SET
		  name = excluded.name,
		  category = excluded.category,
		  description = excluded.description,
		  image_url = excluded.image_url,
		  price = excluded.price,
		  quantity = excluded.quantity,
		  available = excluded.available,
		  updated_at = CURRENT_TIMESTAMP
	`, l.ProductID, l.SellerID, l.Name, l.Category, l.Description, l.ImageURL, l.Price, l.Quantity, l.Available)
	return err
}
