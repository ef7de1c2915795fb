package services

import (
	"context"
	"errors"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/repos"
)

var ErrProductNotFound = errors.New("product not found")

type CatalogService struct {
	Cats  *repos.CategoryRepo
	Prods *repos.ProductRepo
}

func NewCatalogService(cats *repos.CategoryRepo, prods *repos.ProductRepo) *CatalogService {
	return &CatalogService{Cats: cats, Prods: prods}
}

type ListingPage struct {
	Items    []domain.Listing `json:"items"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int              `json:"total,omitempty"`
}

func pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 12
	}
	return page, pageSize
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]string, error) {
	return s.Cats.List(ctx)
}

// ListAvailable pages through listings that can be bought.
func (s *CatalogService) ListAvailable(ctx context.Context, page, pageSize int) (ListingPage, error) {
	page, pageSize = pageBounds(page, pageSize)
	items, err := s.Prods.ListAvailable(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return ListingPage{}, err
	}
	total, err := s.Prods.CountAvailable(ctx)
	if err != nil {
		return ListingPage{}, err
	}
	return ListingPage{Items: items, Page: page, PageSize: pageSize, Total: total}, nil
}

// GetProduct returns every seller's listing of productID.
func (s *CatalogService) GetProduct(ctx context.Context, productID string) ([]domain.Listing, error) {
	ls, err := s.Prods.ByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(ls) == 0 {
		return nil, ErrProductNotFound
	}
	return ls, nil
}

func (s *CatalogService) Search(ctx context.Context, q, category string, page, pageSize int) (ListingPage, error) {
	page, pageSize = pageBounds(page, pageSize)
	items, err := s.Prods.Search(ctx, q, category, pageSize, (page-1)*pageSize)
	if err != nil {
		return ListingPage{}, err
	}
	return ListingPage{Items: items, Page: page, PageSize: pageSize}, nil
}

// TopExpensive returns the k priciest listings, k clamped to 1..50.
func (s *CatalogService) TopExpensive(ctx context.Context, k int) ([]domain.Listing, error) {
	if k < 1 {
		k = 5
	}
	if k > 50 {
		k = 50
	}
	return s.Prods.TopExpensive(ctx, k)
}
