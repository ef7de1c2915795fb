package repos

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/philipxlee/bazingamart/internal/domain"
)

const (
	DemoSellerEmail = "seller@seller.com"
	DemoBuyerEmail  = "buyer@buyer.com"
	DemoPassword    = "Passw0rd!"
)

// SeedDemo loads a seller, a buyer, a handful of listings and the SAVE10
// coupon. Running it twice is a no-op.
func SeedDemo(ctx context.Context, db *sqlx.DB, bcryptCost int) error {
	return InTx(ctx, db, func(tx *sqlx.Tx) error {
		users := NewUserRepo(tx)
		if _, err := users.ByEmail(ctx, DemoSellerEmail); err == nil {
			return nil
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcryptCost)
		if err != nil {
			return err
		}
		seller := &domain.User{
			ID: "seller-1", Email: DemoSellerEmail, FirstName: "Sally", LastName: "Seller",
			Hash: string(hash), Address: "1 Market St", Balance: decimal.Zero, Seller: true,
		}
		buyer := &domain.User{
			ID: "buyer-1", Email: DemoBuyerEmail, FirstName: "Bob", LastName: "Buyer",
			Hash: string(hash), Address: "2 Main St", Balance: decimal.NewFromInt(500),
		}
		for _, u := range []*domain.User{seller, buyer} {
			if err := users.Create(ctx, u); err != nil {
				return err
			}
		}

		inv := NewInventoryRepo(tx)
		for _, l := range []domain.Listing{
			{ProductID: "p-keyboard", Name: "Mechanical Keyboard", Category: "Electronics", Description: "Tenkeyless, brown switches", Price: decimal.RequireFromString("79.99"), Quantity: 12},
			{ProductID: "p-mouse", Name: "Wireless Mouse", Category: "Electronics", Description: "Two buttons and a wheel", Price: decimal.RequireFromString("24.50"), Quantity: 3},
			{ProductID: "p-mug", Name: "Coffee Mug", Category: "Kitchen", Description: "350ml, dishwasher safe", Price: decimal.RequireFromString("9.95"), Quantity: 40},
			{ProductID: "p-novel", Name: "Paperback Novel", Category: "Books", Description: "A mystery", Price: decimal.RequireFromString("12.00"), Quantity: 0},
		} {
			l.SellerID = seller.ID
			l.Available = l.Quantity > 0
			if err := inv.Upsert(ctx, l); err != nil {
				return err
			}
		}

		return NewCouponRepo(tx).Upsert(ctx, domain.Coupon{Code: "SAVE10", DiscountPercentage: 10})
	})
}
