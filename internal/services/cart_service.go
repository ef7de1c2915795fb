package services

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/repos"
)

var (
	ErrNoPendingCart      = repos.ErrNoPendingCart
	ErrNotEnoughStock     = errors.New("requested quantity exceeds stock")
	ErrListingUnavailable = errors.New("listing is not available")
	ErrUnknownCoupon      = errors.New("unknown coupon code")
)

type CartService struct {
	DB *sqlx.DB
}

func NewCartService(db *sqlx.DB) *CartService {
	return &CartService{DB: db}
}

type CartView struct {
	CartID     string            `json:"cart_id,omitempty"`
	Items      []domain.LineItem `json:"items"`
	CouponCode string            `json:"coupon_code,omitempty"`
	Quote
}

// Add puts qty units of a listing in the user's pending cart, creating the
// cart when needed. The price is snapshotted on the first add.
func (s *CartService) Add(ctx context.Context, userID, productID, sellerID string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	return repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		l, err := repos.NewInventoryRepo(tx).Get(ctx, productID, sellerID)
		if err != nil {
			return err
		}
		if !l.Available {
			return ErrListingUnavailable
		}
		carts := repos.NewCartRepo(tx)
		cart, err := carts.EnsurePendingCart(ctx, userID)
		if err != nil {
			return err
		}
		have, err := carts.ItemQty(ctx, cart.ID, productID, sellerID)
		if err != nil {
			return err
		}
		if have+qty > l.Quantity {
			return ErrNotEnoughStock
		}
		return carts.AddItem(ctx, cart.ID, productID, sellerID, qty, l.Price)
	})
}

// UpdateQuantity sets a line's quantity; qty <= 0 removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID, sellerID string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, userID, productID, sellerID)
	}
	return repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		carts := repos.NewCartRepo(tx)
		cart, err := carts.PendingCart(ctx, userID)
		if err != nil {
			return err
		}
		l, err := repos.NewInventoryRepo(tx).Get(ctx, productID, sellerID)
		if err != nil {
			return err
		}
		if qty > l.Quantity {
			return ErrNotEnoughStock
		}
		return carts.SetItemQty(ctx, cart.ID, productID, sellerID, qty)
	})
}

func (s *CartService) Remove(ctx context.Context, userID, productID, sellerID string) error {
	carts := repos.NewCartRepo(s.DB)
	cart, err := carts.PendingCart(ctx, userID)
	if err != nil {
		return err
	}
	return carts.RemoveItem(ctx, cart.ID, productID, sellerID)
}

// ApplyCoupon attaches code to the pending cart; an empty code clears it.
func (s *CartService) ApplyCoupon(ctx context.Context, userID, code string) error {
	return repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		carts := repos.NewCartRepo(tx)
		cart, err := carts.EnsurePendingCart(ctx, userID)
		if err != nil {
			return err
		}
		if code == "" {
			return carts.SetCoupon(ctx, cart.ID, "")
		}
		c, err := repos.NewCouponRepo(tx).Get(ctx, code)
		if errors.Is(err, repos.ErrCouponNotFound) {
			return ErrUnknownCoupon
		}
		if err != nil {
			return err
		}
		return carts.SetCoupon(ctx, cart.ID, c.Code)
	})
}

// View prices the pending cart. A user without one gets an empty view.
func (s *CartService) View(ctx context.Context, userID string) (CartView, error) {
	carts := repos.NewCartRepo(s.DB)
	cart, err := carts.PendingCart(ctx, userID)
	if errors.Is(err, repos.ErrNoPendingCart) {
		q, _ := priceItems(ctx, nil, nil, "")
		return CartView{Items: []domain.LineItem{}, Quote: q}, nil
	}
	if err != nil {
		return CartView{}, err
	}
	items, err := carts.Items(ctx, cart.ID)
	if err != nil {
		return CartView{}, err
	}
	q, err := priceItems(ctx, repos.NewCouponRepo(s.DB), items, cart.CouponCode)
	if err != nil {
		return CartView{}, err
	}
	return CartView{CartID: cart.ID, Items: items, CouponCode: cart.CouponCode, Quote: q}, nil
}
