package services_test

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/metrics"
	"github.com/philipxlee/bazingamart/internal/repos"
	"github.com/philipxlee/bazingamart/internal/services"
)

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

func TestSubmitCart_CouponScenario(t *testing.T) {
	f := newFixture(t)
	f.user("seller3", "0", true)
	f.user("buyer", "100.00", false)
	f.listing("7", "seller3", "Lamp", "30.00", 5)
	f.coupon("SAVE10", 10)

	carts := services.NewCartService(f.db)
	require.NoError(t, carts.Add(f.ctx, "buyer", "7", "seller3", 2))
	require.NoError(t, carts.ApplyCoupon(f.ctx, "buyer", "SAVE10"))

	m := metrics.New()
	res, err := services.NewCheckoutService(f.db, m).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	require.Equal(t, services.CheckoutSuccess, res.Outcome)
	assertMoney(t, "60", res.Subtotal)
	assertMoney(t, "6", res.Discount)
	assertMoney(t, "54", res.Total)

	assertMoney(t, "46", f.balance("buyer"))
	assertMoney(t, "60", f.balance("seller3"))
	assert.Equal(t, 3, f.qty("7", "seller3"))

	_, err = repos.NewCartRepo(f.db).PendingCart(f.ctx, "buyer")
	assert.ErrorIs(t, err, repos.ErrNoPendingCart)

	o, err := repos.NewOrderRepo(f.db).Get(f.ctx, res.OrderID)
	require.NoError(t, err)
	assertMoney(t, "54", o.TotalPrice)
	assert.Equal(t, "SAVE10", o.CouponCode)
	assert.Equal(t, domain.FulfillmentIncomplete, o.Status)
	assert.Equal(t, "buyer", o.UserID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutOutcomes.WithLabelValues("Success")))
}

func TestSubmitCart_EmptyCart(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "10", false)
	f.listing("p1", "seller", "Pen", "1.00", 3)
	checkout := services.NewCheckoutService(f.db, nil)

	res, err := checkout.SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutEmptyCart, res.Outcome)

	// a pending cart whose only line was removed is still empty
	carts := services.NewCartService(f.db)
	require.NoError(t, carts.Add(f.ctx, "buyer", "p1", "seller", 1))
	require.NoError(t, carts.UpdateQuantity(f.ctx, "buyer", "p1", "seller", 0))

	res, err = checkout.SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutEmptyCart, res.Outcome)
	assertMoney(t, "10", f.balance("buyer"))
}

func TestSubmitCart_InsufficientBalanceMutatesNothing(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "59.99", false)
	f.listing("p1", "seller", "Chair", "30.00", 5)
	require.NoError(t, services.NewCartService(f.db).Add(f.ctx, "buyer", "p1", "seller", 2))

	res, err := services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutInsufficientBalance, res.Outcome)
	assertMoney(t, "60", res.Total)

	assertMoney(t, "59.99", f.balance("buyer"))
	assertMoney(t, "0", f.balance("seller"))
	assert.Equal(t, 5, f.qty("p1", "seller"))
	_, err = repos.NewCartRepo(f.db).PendingCart(f.ctx, "buyer")
	assert.NoError(t, err)
}

func TestSubmitCart_BalanceEqualToTotalSucceeds(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "60.00", false)
	f.listing("p1", "seller", "Chair", "30.00", 2)
	require.NoError(t, services.NewCartService(f.db).Add(f.ctx, "buyer", "p1", "seller", 2))

	res, err := services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutSuccess, res.Outcome)
	assertMoney(t, "0", f.balance("buyer"))
	assert.Equal(t, 0, f.qty("p1", "seller"))
}

func TestSubmitCart_ReportsFirstShortItem(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "1000", false)
	f.listing("p-b", "seller", "Bravo", "1.00", 5)
	f.listing("p-a", "seller", "Alpha", "1.00", 5)
	f.listing("p-c", "seller", "Charlie", "1.00", 5)

	carts := services.NewCartService(f.db)
	require.NoError(t, carts.Add(f.ctx, "buyer", "p-b", "seller", 1))
	require.NoError(t, carts.Add(f.ctx, "buyer", "p-c", "seller", 3))
	require.NoError(t, carts.Add(f.ctx, "buyer", "p-a", "seller", 3))

	// stock drops under the requested quantity after the items were added
	f.listing("p-c", "seller", "Charlie", "1.00", 2)
	f.listing("p-a", "seller", "Alpha", "1.00", 1)

	res, err := services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutInsufficientInventory, res.Outcome)
	assert.Equal(t, "Charlie", res.ProductName)

	assertMoney(t, "1000", f.balance("buyer"))
	assert.Equal(t, 5, f.qty("p-b", "seller"))
}

func TestSubmitCart_UnavailableListingIsInsufficient(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "100", false)
	f.listing("p1", "seller", "Desk", "10.00", 5)
	require.NoError(t, services.NewCartService(f.db).Add(f.ctx, "buyer", "p1", "seller", 1))

	require.NoError(t, repos.NewInventoryRepo(f.db).Upsert(f.ctx, domain.Listing{
		ProductID: "p1", SellerID: "seller", Name: "Desk", Price: dec("10.00"), Quantity: 5, Available: false,
	}))

	res, err := services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutInsufficientInventory, res.Outcome)
	assert.Equal(t, "Desk", res.ProductName)
}

func TestSubmitCart_UnknownListingIsHardError(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "100", false)
	f.listing("p1", "seller", "Desk", "10.00", 5)
	require.NoError(t, services.NewCartService(f.db).Add(f.ctx, "buyer", "p1", "seller", 1))
	_, err := f.db.Exec(`DELETE FROM listings WHERE product_id = 'p1'`)
	require.NoError(t, err)

	_, err = services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "buyer")
	assert.ErrorIs(t, err, services.ErrUnknownListing)
	assertMoney(t, "100", f.balance("buyer"))
}

func TestSubmitCart_UnknownCouponGivesNoDiscount(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "100", false)
	f.listing("p1", "seller", "Desk", "10.00", 5)
	f.coupon("GONE", 50)
	carts := services.NewCartService(f.db)
	require.NoError(t, carts.Add(f.ctx, "buyer", "p1", "seller", 1))
	require.NoError(t, carts.ApplyCoupon(f.ctx, "buyer", "GONE"))
	_, err := f.db.Exec(`DELETE FROM coupons WHERE code = 'GONE'`)
	require.NoError(t, err)

	res, err := services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutSuccess, res.Outcome)
	assertMoney(t, "0", res.Discount)
	assertMoney(t, "90", f.balance("buyer"))
}

func TestSubmitCart_CreditsEverySeller(t *testing.T) {
	f := newFixture(t)
	f.user("s1", "5", true)
	f.user("s2", "0", true)
	f.user("buyer", "100", false)
	f.listing("lamp", "s1", "Lamp", "10.10", 10)
	f.listing("lamp", "s2", "Lamp", "9.90", 10)
	f.listing("rug", "s1", "Rug", "20.00", 10)
	f.coupon("HALF", 50)

	carts := services.NewCartService(f.db)
	require.NoError(t, carts.Add(f.ctx, "buyer", "lamp", "s1", 1))
	require.NoError(t, carts.Add(f.ctx, "buyer", "lamp", "s2", 2))
	require.NoError(t, carts.Add(f.ctx, "buyer", "rug", "s1", 1))
	require.NoError(t, carts.ApplyCoupon(f.ctx, "buyer", "half"))

	res, err := services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	require.Equal(t, services.CheckoutSuccess, res.Outcome)

	// subtotal 10.10 + 19.80 + 20.00 = 49.90, half off
	assertMoney(t, "49.90", res.Subtotal)
	assertMoney(t, "24.95", res.Total)
	assertMoney(t, "75.05", f.balance("buyer"))
	assertMoney(t, "35.10", f.balance("s1"))
	assertMoney(t, "19.80", f.balance("s2"))
	assert.Equal(t, 9, f.qty("lamp", "s1"))
	assert.Equal(t, 8, f.qty("lamp", "s2"))
	assert.Equal(t, 9, f.qty("rug", "s1"))
}

func TestSubmitCart_FailedCommitRollsEverythingBack(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "100", false)
	f.listing("p1", "seller", "Desk", "10.00", 5)
	require.NoError(t, services.NewCartService(f.db).Add(f.ctx, "buyer", "p1", "seller", 2))

	_, err := f.db.Exec(`CREATE TRIGGER fail_orders BEFORE INSERT ON orders BEGIN SELECT RAISE(ABORT, 'boom'); END;`)
	require.NoError(t, err)

	m := metrics.New()
	res, err := services.NewCheckoutService(f.db, m).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutTransactionFailed, res.Outcome)
	assert.Error(t, res.Cause)

	assertMoney(t, "100", f.balance("buyer"))
	assertMoney(t, "0", f.balance("seller"))
	assert.Equal(t, 5, f.qty("p1", "seller"))
	_, err = repos.NewCartRepo(f.db).PendingCart(f.ctx, "buyer")
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutOutcomes.WithLabelValues("TransactionFailed")))

	// retrying after the fault is gone succeeds
	_, err = f.db.Exec(`DROP TRIGGER fail_orders`)
	require.NoError(t, err)
	res, err = services.NewCheckoutService(f.db, m).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutSuccess, res.Outcome)
	assertMoney(t, "80", f.balance("buyer"))
}

func TestSubmitCart_ConcurrentCheckoutsDoNotOversell(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.listing("last", "seller", "Last One", "10.00", 1)

	buyers := []string{"b1", "b2", "b3", "b4"}
	carts := services.NewCartService(f.db)
	for _, b := range buyers {
		f.user(b, "100", false)
		require.NoError(t, carts.Add(f.ctx, b, "last", "seller", 1))
	}

	checkout := services.NewCheckoutService(f.db, nil)
	results := make([]services.CheckoutResult, len(buyers))
	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, b string) {
			defer wg.Done()
			results[i], errs[i] = checkout.SubmitCart(f.ctx, b)
		}(i, b)
	}
	wg.Wait()

	wins := 0
	for i := range buyers {
		require.NoError(t, errs[i])
		switch results[i].Outcome {
		case services.CheckoutSuccess:
			wins++
		case services.CheckoutInsufficientInventory:
			assert.Equal(t, "Last One", results[i].ProductName)
		default:
			t.Fatalf("unexpected outcome %s: %v", results[i].Outcome, results[i].Cause)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 0, f.qty("last", "seller"))
	assertMoney(t, "10", f.balance("seller"))
}

func TestSubmitCart_UnknownUser(t *testing.T) {
	f := newFixture(t)
	res, err := services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutEmptyCart, res.Outcome)
}

func TestSubmitCart_RepeatedFailuresLeaveStateUnchanged(t *testing.T) {
	type snapshot struct {
		buyer, seller string
		qtyA, qtyB    int
		cartItems     int
	}

	cases := []struct {
		name    string
		balance string
		stockB  int
		want    services.CheckoutOutcome
	}{
		{"insufficient balance", "20.00", 5, services.CheckoutInsufficientBalance},
		{"insufficient inventory", "500.00", 1, services.CheckoutInsufficientInventory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.user("seller", "7.50", true)
			f.user("buyer", tc.balance, false)
			f.listing("a", "seller", "Alpha", "10.00", 5)
			f.listing("b", "seller", "Bravo", "4.25", 5)
			carts := services.NewCartService(f.db)
			require.NoError(t, carts.Add(f.ctx, "buyer", "a", "seller", 1))
			require.NoError(t, carts.Add(f.ctx, "buyer", "b", "seller", 3))
			f.listing("b", "seller", "Bravo", "4.25", tc.stockB)

			take := func() snapshot {
				cv, err := carts.View(f.ctx, "buyer")
				require.NoError(t, err)
				return snapshot{
					buyer:     f.balance("buyer").String(),
					seller:    f.balance("seller").String(),
					qtyA:      f.qty("a", "seller"),
					qtyB:      f.qty("b", "seller"),
					cartItems: len(cv.Items),
				}
			}
			before := take()

			svc := services.NewCheckoutService(f.db, nil)
			var after []snapshot
			for i := 0; i < 2; i++ {
				res, err := svc.SubmitCart(f.ctx, "buyer")
				require.NoError(t, err)
				require.Equal(t, tc.want, res.Outcome)
				after = append(after, take())
			}
			assert.Equal(t, before, after[0])
			assert.Equal(t, after[0], after[1])

			var orders int
			require.NoError(t, f.db.Get(&orders, `SELECT COUNT(*) FROM orders`))
			assert.Zero(t, orders)
		})
	}
}

func TestSubmitCart_DiscountRoundsToCents(t *testing.T) {
	f := newFixture(t)
	f.user("seller", "0", true)
	f.user("buyer", "1.00", false)
	f.listing("pin", "seller", "Pin", "0.99", 5)
	f.coupon("SAVE10", 10)
	carts := services.NewCartService(f.db)
	require.NoError(t, carts.Add(f.ctx, "buyer", "pin", "seller", 1))
	require.NoError(t, carts.ApplyCoupon(f.ctx, "buyer", "SAVE10"))

	res, err := services.NewCheckoutService(f.db, nil).SubmitCart(f.ctx, "buyer")
	require.NoError(t, err)
	require.Equal(t, services.CheckoutSuccess, res.Outcome)
	assertMoney(t, "0.10", res.Discount)
	assertMoney(t, "0.89", res.Total)

	assertMoney(t, "0.11", f.balance("buyer"))
	assertMoney(t, "0.99", f.balance("seller"))
}
