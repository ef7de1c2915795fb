package services

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/philipxlee/bazingamart/internal/domain"
	"github.com/philipxlee/bazingamart/internal/metrics"
	"github.com/philipxlee/bazingamart/internal/repos"
)

type FulfillmentOutcome string

const (
	FulfillmentUpdated            FulfillmentOutcome = "Updated"
	FulfillmentInvalidStatus      FulfillmentOutcome = "InvalidFulfillmentStatus"
	FulfillmentUnauthorizedUpdate FulfillmentOutcome = "UnauthorizedFulfillmentUpdate"
)

type FulfillmentResult struct {
	Outcome     FulfillmentOutcome       `json:"outcome"`
	OrderStatus domain.FulfillmentStatus `json:"order_status,omitempty"`
}

type FulfillmentService struct {
	DB      *sqlx.DB
	Metrics *metrics.Metrics
}

func NewFulfillmentService(db *sqlx.DB, m *metrics.Metrics) *FulfillmentService {
	return &FulfillmentService{DB: db, Metrics: m}
}

// UpdateItemStatus sets one line item's status on behalf of callerID and
// recomputes the order's aggregate from all of its line items in the same
// transaction. Only the seller of the listing may update it.
// A missing order or line item yields repos.ErrLineItemNotFound, a missing
// listing repos.ErrListingNotFound.
func (s *FulfillmentService) UpdateItemStatus(ctx context.Context, callerID, orderID, productID, sellerID, status string) (FulfillmentResult, error) {
	res, err := s.update(ctx, callerID, orderID, productID, sellerID, status)
	if err == nil {
		s.Metrics.Fulfillment(string(res.Outcome))
	}
	return res, err
}

func (s *FulfillmentService) update(ctx context.Context, callerID, orderID, productID, sellerID, status string) (FulfillmentResult, error) {
	st, err := domain.ParseFulfillmentStatus(status)
	if err != nil {
		return FulfillmentResult{Outcome: FulfillmentInvalidStatus}, nil
	}

	var res FulfillmentResult
	err = repos.InTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		l, err := repos.NewInventoryRepo(tx).Get(ctx, productID, sellerID)
		if err != nil {
			return err
		}
		if l.SellerID != callerID {
			res = FulfillmentResult{Outcome: FulfillmentUnauthorizedUpdate}
			return nil
		}

		orders := repos.NewOrderRepo(tx)
		if _, err := orders.Get(ctx, orderID); errors.Is(err, repos.ErrOrderNotFound) {
			return repos.ErrLineItemNotFound
		} else if err != nil {
			return err
		}
		if err := repos.NewCartRepo(tx).SetItemStatus(ctx, orderID, productID, sellerID, st); err != nil {
			return err
		}

		statuses, err := orders.ItemStatuses(ctx, orderID)
		if err != nil {
			return err
		}
		agg := domain.AggregateFulfillment(statuses)
		if err := orders.SetStatus(ctx, orderID, agg); err != nil {
			return err
		}
		res = FulfillmentResult{Outcome: FulfillmentUpdated, OrderStatus: agg}
		return nil
	})
	if err != nil {
		return FulfillmentResult{}, err
	}
	return res, nil
}
