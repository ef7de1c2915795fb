package services

import (
	"context"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/repos"
)

type OrderService struct {
	Carts  *repos.CartRepo
	Orders *repos.OrderRepo
}

func NewOrderService(carts *repos.CartRepo, orders *repos.OrderRepo) *OrderService {
	return &OrderService{Carts: carts, Orders: orders}
}

type OrderDetail struct {
	domain.Order
	Items []domain.LineItem `json:"items"`
}

// History returns the user's orders, newest first.
func (s *OrderService) History(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, error) {
	page, pageSize = pageBounds(page, pageSize)
	return s.Orders.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
}

// Detail returns an order with its line items. Orders of other users read as
// not found.
func (s *OrderService) Detail(ctx context.Context, userID, orderID string) (OrderDetail, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return OrderDetail{}, err
	}
	if o.UserID != userID {
		return OrderDetail{}, repos.ErrOrderNotFound
	}
	items, err := s.Carts.Items(ctx, orderID)
	if err != nil {
		return OrderDetail{}, err
	}
	return OrderDetail{Order: o, Items: items}, nil
}
