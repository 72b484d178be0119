package enums

import "fmt"

// FulfillmentStatus tracks the physical progress of an order.
type FulfillmentStatus string

const (
	FulfillmentStatusPlaced    FulfillmentStatus = "placed"
	FulfillmentStatusShipped   FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered FulfillmentStatus = "delivered"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusPlaced,
	FulfillmentStatusShipped,
	FulfillmentStatusDelivered,
}

func (f FulfillmentStatus) String() string {
	return string(f)
}

func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
