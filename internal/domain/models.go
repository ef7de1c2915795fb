package domain

import "github.com/shopspring/decimal"

// Listing is one seller's offer of a product. A product id may be listed by
// several sellers, each with its own price and stock.
type Listing struct {
	ProductID   string          `db:"product_id" json:"product_id"`
	SellerID    string          `db:"seller_id" json:"seller_id"`
	Name        string          `db:"name" json:"name"`
	Category    string          `db:"category" json:"category"`
	Description string          `db:"description" json:"description"`
	ImageURL    string          `db:"image_url" json:"image_url"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Available   bool            `db:"available" json:"available"`
	UpdatedAt   string          `db:"updated_at" json:"updated_at,omitempty"`
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}

type Cart struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Status     CartStatus `db:"status" json:"status"`
	CouponCode string     `db:"coupon_code" json:"coupon_code,omitempty"`
}

// LineItem is a listing entry in a cart; once the cart is completed the same
// rows are the order's line items.
type LineItem struct {
	ID            int64             `db:"id" json:"id"`
	CartID        string            `db:"cart_id" json:"order_id"`
	ProductID     string            `db:"product_id" json:"product_id"`
	SellerID      string            `db:"seller_id" json:"seller_id"`
	Name          string            `db:"name" json:"name"`
	Quantity      int               `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal   `db:"unit_price" json:"unit_price"`
	Status        FulfillmentStatus `db:"status" json:"status"`
	ListingExists bool              `db:"listing_exists" json:"-"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID         string            `db:"id" json:"id"`
	UserID     string            `db:"user_id" json:"user_id"`
	TotalPrice decimal.Decimal   `db:"total_price" json:"total_price"`
	CouponCode string            `db:"coupon_code" json:"coupon_code,omitempty"`
	Status     FulfillmentStatus `db:"status" json:"status"`
	CreatedAt  string            `db:"created_at" json:"created_at"`
}

type Coupon struct {
	Code               string `db:"code" json:"code"`
	DiscountPercentage int    `db:"discount_percentage" json:"discount_percentage"`
}

type Review struct {
	ID        int64  `db:"id" json:"id"`
	AuthorID  string `db:"author_id" json:"author_id"`
	ProductID string `db:"product_id" json:"product_id,omitempty"`
	SellerID  string `db:"seller_id" json:"seller_id,omitempty"`
	Stars     int    `db:"stars" json:"stars"`
	Body      string `db:"body" json:"body"`
	Upvotes   int    `db:"upvotes" json:"upvotes"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// Sum adds up quantity x unit price over items.
func Sum(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Discount is pct percent of subtotal rounded to cents.
func Discount(subtotal decimal.Decimal, pct int) decimal.Decimal {
	if pct <= 0 {
		return decimal.Zero
	}
	if pct > 100 {
		pct = 100
	}
	return subtotal.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(2)
}
