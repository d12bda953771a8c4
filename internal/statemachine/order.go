package statemachine

import (
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// orderTransitions is the authoritative table for the order lifecycle.
// Cancellation is legal from every non-terminal state.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusDraft: {
		enums.OrderStatusPublished,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPublished: {
		enums.OrderStatusAssigning,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusAssigning: {
		enums.OrderStatusAssigned,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusAssigned: {
		enums.OrderStatusInProgress,
		// A rejection or cancellation of a pending assignment frees quantity,
		// reopening allocation.
		enums.OrderStatusAssigning,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusInProgress: {
		enums.OrderStatusPartiallyDelivered,
		enums.OrderStatusFullyDelivered,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPartiallyDelivered: {
		enums.OrderStatusFullyDelivered,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusFullyDelivered: {
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusCompleted: {},
	enums.OrderStatusCancelled: {},
}

// OrderCanTransition reports whether the order lifecycle permits from -> to.
func OrderCanTransition(from, to enums.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderAllowedNext returns the legal successor statuses for from.
func OrderAllowedNext(from enums.OrderStatus) []enums.OrderStatus {
	allowed := orderTransitions[from]
	out := make([]enums.OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

// EnsureOrderTransition returns a STATE_CONFLICT error when from -> to is not
// in the transition table.
func EnsureOrderTransition(from, to enums.OrderStatus) error {
	if OrderCanTransition(from, to) {
		return nil
	}
	return transitionError(enums.AggregateOrder, from.String(), to.String(), orderStatusStrings(orderTransitions[from]))
}

func orderStatusStrings(statuses []enums.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
