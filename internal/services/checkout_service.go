package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/metrics"
	"github.com/philipxlee/bazingamart/internal/repos"
)

type CheckoutOutcome string

const (
	CheckoutSuccess               CheckoutOutcome = "Success"
	CheckoutEmptyCart             CheckoutOutcome = "EmptyCart"
	CheckoutInsufficientBalance   CheckoutOutcome = "InsufficientBalance"
	CheckoutInsufficientInventory CheckoutOutcome = "InsufficientInventory"
	CheckoutTransactionFailed     CheckoutOutcome = "TransactionFailed"
)

// ErrUnknownListing means a line item points at a (product, seller) pair that
// is not in the listings table.
var ErrUnknownListing = errors.New("line item references an unknown listing")

// CheckoutResult is the terminal state of one checkout attempt. ProductName is
// set for InsufficientInventory, OrderID for Success. Cause holds the
// underlying error of a TransactionFailed outcome.
type CheckoutResult struct {
	Outcome     CheckoutOutcome `json:"outcome"`
	ProductName string          `json:"product_name,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	Cause       error           `json:"-"`
}

// Quote is the priced view of a set of line items.
type Quote struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	CouponCode string          `json:"applied_coupon,omitempty"` // empty when the cart code is unknown
	Percentage int             `json:"discount_percentage,omitempty"`
}

// priceItems sums items and applies the coupon if it exists.
func priceItems(ctx context.Context, coupons *repos.CouponRepo, items []domain.LineItem, code string) (Quote, error) {
	q := Quote{Subtotal: domain.Sum(items), Discount: decimal.Zero}
	if code != "" {
		c, err := coupons.Get(ctx, code)
		switch {
		case err == nil:
			q.CouponCode = c.Code
			q.Percentage = c.DiscountPercentage
			q.Discount = domain.Discount(q.Subtotal, c.DiscountPercentage)
		case !errors.Is(err, repos.ErrCouponNotFound):
			return Quote{}, err
		}
	}
	q.Total = q.Subtotal.Sub(q.Discount)
	return q, nil
}

type CheckoutService struct {
	DB      *sqlx.DB
	Metrics *metrics.Metrics
}

func NewCheckoutService(db *sqlx.DB, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{DB: db, Metrics: m}
}

// errStop rolls the transaction back once a business outcome is decided.
var errStop = errors.New("checkout stopped")

// SubmitCart checks out the user's pending cart. Validation and mutations run
// in one immediate-lock transaction so concurrent checkouts of the same
// listing are serialized; nothing is written unless every check passes.
//
// The buyer pays the discounted total while sellers are credited the full
// quantity x unit price of their items; the platform absorbs the discount.
//
// Business outcomes come back with a nil error. The error is non-nil only for
// invalid input: an unknown user or a line item without a listing.
func (s *CheckoutService) SubmitCart(ctx context.Context, userID string) (CheckoutResult, error) {
	var res CheckoutResult
	err := repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		var err error
		res, err = s.submit(ctx, tx, userID)
		if err == nil && res.Outcome != CheckoutSuccess {
			return errStop
		}
		return err
	})

	switch {
	case err == nil, errors.Is(err, errStop):
		// outcome already set
	case errors.Is(err, ErrUnknownListing), errors.Is(err, repos.ErrUserNotFound):
		return CheckoutResult{}, err
	default:
		res = CheckoutResult{
			Outcome:  CheckoutTransactionFailed,
			Subtotal: res.Subtotal,
			Discount: res.Discount,
			Total:    res.Total,
			Cause:    err,
		}
	}
	s.Metrics.Checkout(string(res.Outcome))
	return res, nil
}

func (s *CheckoutService) submit(ctx context.Context, tx *sqlx.Tx, userID string) (CheckoutResult, error) {
	carts := repos.NewCartRepo(tx)
	users := repos.NewUserRepo(tx)
	inv := repos.NewInventoryRepo(tx)

	cart, err := carts.PendingCart(ctx, userID)
	if errors.Is(err, repos.ErrNoPendingCart) {
		return CheckoutResult{Outcome: CheckoutEmptyCart}, nil
	}
	if err != nil {
		return CheckoutResult{}, err
	}
	items, err := carts.Items(ctx, cart.ID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(items) == 0 {
		return CheckoutResult{Outcome: CheckoutEmptyCart}, nil
	}

	q, err := priceItems(ctx, repos.NewCouponRepo(tx), items, cart.CouponCode)
	if err != nil {
		return CheckoutResult{}, err
	}
	res := CheckoutResult{Subtotal: q.Subtotal, Discount: q.Discount, Total: q.Total}

	balance, err := users.Balance(ctx, userID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if balance.LessThan(q.Total) {
		res.Outcome = CheckoutInsufficientBalance
		return res, nil
	}

	// items are in primary key order; the first short listing is reported
	for _, it := range items {
		l, err := inv.Get(ctx, it.ProductID, it.SellerID)
		if errors.Is(err, repos.ErrListingNotFound) {
			return CheckoutResult{}, fmt.Errorf("%w: product %s seller %s", ErrUnknownListing, it.ProductID, it.SellerID)
		}
		if err != nil {
			return CheckoutResult{}, err
		}
		if !l.Available || l.Quantity < it.Quantity {
			res.Outcome = CheckoutInsufficientInventory
			res.ProductName = l.Name
			return res, nil
		}
	}

	if _, err := users.AddBalance(ctx, userID, q.Total.Neg()); err != nil {
		return res, fmt.Errorf("debit buyer: %w", err)
	}

	credits := map[string]decimal.Decimal{}
	sellers := []string{}
	for _, it := range items {
		if err := inv.Decrement(ctx, it.ProductID, it.SellerID, it.Quantity); err != nil {
			return res, fmt.Errorf("decrement %s: %w", it.ProductID, err)
		}
		if _, ok := credits[it.SellerID]; !ok {
			sellers = append(sellers, it.SellerID)
		}
		credits[it.SellerID] = credits[it.SellerID].Add(it.Subtotal())
	}
	for _, sellerID := range sellers {
		if _, err := users.AddBalance(ctx, sellerID, credits[sellerID]); err != nil {
			return res, fmt.Errorf("credit seller %s: %w", sellerID, err)
		}
	}

	if err := repos.NewOrderRepo(tx).Upsert(ctx, cart.ID, userID, q.Total, q.CouponCode); err != nil {
		return res, fmt.Errorf("upsert order: %w", err)
	}
	if err := carts.MarkCompleted(ctx, cart.ID); err != nil {
		return res, fmt.Errorf("complete cart: %w", err)
	}

	res.Outcome = CheckoutSuccess
	res.OrderID = cart.ID
	return res, nil
}
