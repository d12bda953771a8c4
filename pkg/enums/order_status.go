package enums

import "fmt"

// OrderStatus tracks the lifecycle of a government purchase order.
type OrderStatus string

const (
	OrderStatusDraft              OrderStatus = "draft"
	OrderStatusPublished          OrderStatus = "published"
	OrderStatusAssigning          OrderStatus = "assigning"
	OrderStatusAssigned           OrderStatus = "assigned"
	OrderStatusInProgress         OrderStatus = "in_progress"
	OrderStatusPartiallyDelivered OrderStatus = "partially_delivered"
	OrderStatusFullyDelivered     OrderStatus = "fully_delivered"
	OrderStatusCompleted          OrderStatus = "completed"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPublished,
	OrderStatusAssigning,
	OrderStatusAssigned,
	OrderStatusInProgress,
	OrderStatusPartiallyDelivered,
	OrderStatusFullyDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
