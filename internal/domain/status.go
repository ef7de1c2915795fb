package domain

import (
	"errors"
	"fmt"
)

type CartStatus string

const (
	CartPending   CartStatus = "Pending"
	CartCompleted CartStatus = "Completed"
)

// FulfillmentStatus applies to both line items and the order aggregate.
type FulfillmentStatus string

const (
	FulfillmentIncomplete FulfillmentStatus = "Incomplete"
	FulfillmentFulfilled  FulfillmentStatus = "Fulfilled"
)

var ErrInvalidFulfillmentStatus = errors.New("invalid fulfillment status")

func ParseFulfillmentStatus(s string) (FulfillmentStatus, error) {
	switch FulfillmentStatus(s) {
	case FulfillmentIncomplete, FulfillmentFulfilled:
		return FulfillmentStatus(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFulfillmentStatus, s)
}

// AggregateFulfillment is Fulfilled iff every item is Fulfilled. An order with
// no items stays Incomplete.
func AggregateFulfillment(items []FulfillmentStatus) FulfillmentStatus {
	if len(items) == 0 {
		return FulfillmentIncomplete
	}
	for _, s := range items {
		if s != FulfillmentFulfilled {
			return FulfillmentIncomplete
		}
	}
	return FulfillmentFulfilled
}
