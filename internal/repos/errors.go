package repos

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrNegativeBalance   = errors.New("balance cannot go negative")
	ErrListingNotFound   = errors.New("listing not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoPendingCart     = errors.New("no pending cart")
	ErrCartNotPending    = errors.New("cart is not pending")
	ErrLineItemNotFound  = errors.New("line item not found")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrReviewNotFound    = errors.New("review not found")
	ErrDuplicateReview   = errors.New("review already exists")
)

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
