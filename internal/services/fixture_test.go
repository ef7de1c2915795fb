package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/repos"
)

// fixture is a migrated SQLite file database plus helpers to seed it.
type fixture struct {
	t   *testing.T
	db  *sqlx.DB
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repos.OpenDB(repos.FileDSN(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &fixture{t: t, db: db, ctx: context.Background()}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) user(id, balance string, seller bool) *domain.User {
	f.t.Helper()
	u := &domain.User{
		ID: id, Email: id + "@example.com", FirstName: id, LastName: "Test",
		Hash: "x", Balance: dec(balance), Seller: seller,
	}
	require.NoError(f.t, repos.NewUserRepo(f.db).Create(f.ctx, u))
	return u
}

func (f *fixture) listing(productID, sellerID, name, price string, qty int) {
	f.t.Helper()
	require.NoError(f.t, repos.NewInventoryRepo(f.db).Upsert(f.ctx, domain.Listing{
		ProductID: productID, SellerID: sellerID, Name: name,
		Price: dec(price), Quantity: qty, Available: qty > 0,
	}))
}

func (f *fixture) coupon(code string, pct int) {
	f.t.Helper()
	require.NoError(f.t, repos.NewCouponRepo(f.db).Upsert(f.ctx, domain.Coupon{Code: code, DiscountPercentage: pct}))
}

func (f *fixture) balance(userID string) decimal.Decimal {
	f.t.Helper()
	b, err := repos.NewUserRepo(f.db).Balance(f.ctx, userID)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) qty(productID, sellerID string) int {
	f.t.Helper()
	q, err := repos.NewInventoryRepo(f.db).Qty(f.ctx, productID, sellerID)
	require.NoError(f.t, err)
	return q
}
