package services

import (
	"context"
	"errors"
	"io"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/repos"
)

var (
	ErrNotSeller      = errors.New("user is not a seller")
	ErrInvalidListing = errors.New("invalid listing")
)

type InventoryService struct {
	Inv    *repos.InventoryRepo
	Orders *repos.OrderRepo
}

func NewInventoryService(inv *repos.InventoryRepo, orders *repos.OrderRepo) *InventoryService {
	return &InventoryService{Inv: inv, Orders: orders}
}

// CheckAvailability converts qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID, sellerID string) (domain.Availability, error) {
	l, err := s.Inv.Get(ctx, productID, sellerID)
	if err != nil {
		// No listing reads as nothing to sell.
		if errors.Is(err, repos.ErrListingNotFound) {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, err
	}

	qty := l.Quantity
	if !l.Available {
		qty = 0
	}
	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}

func (s *InventoryService) Listings(ctx context.Context, seller *domain.User) ([]domain.Listing, error) {
	if !seller.Seller {
		return nil, ErrNotSeller
	}
	return s.Inv.ListBySeller(ctx, seller.ID)
}

type ListingInput struct {
	ProductID   string
	Name        string
	Category    string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	Quantity    int
	Available   bool
}

// SaveListing creates or replaces one of the seller's listings. A listing
// with no stock is never available.
func (s *InventoryService) SaveListing(ctx context.Context, seller *domain.User, in ListingInput) (domain.Listing, error) {
	if !seller.Seller {
		return domain.Listing{}, ErrNotSeller
	}
	if in.ProductID == "" || in.Name == "" || in.Price.IsNegative() || in.Quantity < 0 {
		return domain.Listing{}, ErrInvalidListing
	}
	l := domain.Listing{
		ProductID:   in.ProductID,
		SellerID:    seller.ID,
		Name:        in.Name,
		Category:    in.Category,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price.Round(2),
		Quantity:    in.Quantity,
		Available:   in.Available && in.Quantity > 0,
	}
	if err := s.Inv.Upsert(ctx, l); err != nil {
		return domain.Listing{}, err
	}
	return s.Inv.Get(ctx, l.ProductID, l.SellerID)
}

// SellerItems lists the seller's sold line items; an empty status means all.
func (s *InventoryService) SellerItems(ctx context.Context, seller *domain.User, status string) ([]repos.SellerItem, error) {
	if !seller.Seller {
		return nil, ErrNotSeller
	}
	if status == "" {
		return s.Orders.SellerItems(ctx, seller.ID)
	}
	st, err := domain.ParseFulfillmentStatus(status)
	if err != nil {
		return nil, err
	}
	return s.Orders.SellerItems(ctx, seller.ID, st)
}

var exportHeaders = []string{"ProductID", "Name", "Category", "Price", "Quantity", "Available", "UpdatedAt"}

// Export writes the seller's listings as an xlsx workbook to w.
func (s *InventoryService) Export(ctx context.Context, seller *domain.User, w io.Writer) error {
	listings, err := s.Listings(ctx, seller)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Listings")
	if err != nil {
		return err
	}
	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}
	for _, l := range listings {
		row := sheet.AddRow()
		row.AddCell().SetValue(l.ProductID)
		row.AddCell().SetValue(l.Name)
		row.AddCell().SetValue(l.Category)
		row.AddCell().SetString(l.Price.StringFixed(2))
		row.AddCell().SetInt(l.Quantity)
		row.AddCell().SetBool(l.Available)
		row.AddCell().SetValue(l.UpdatedAt)
	}
	return file.Write(w)
}
