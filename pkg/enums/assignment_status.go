package enums

import "fmt"

// AssignmentStatus tracks one farm's commitment against an order.
type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusAccepted  AssignmentStatus = "accepted"
	AssignmentStatusPreparing AssignmentStatus = "preparing"
	AssignmentStatusReady     AssignmentStatus = "ready"
	AssignmentStatusInTransit AssignmentStatus = "in_transit"
	AssignmentStatusDelivered AssignmentStatus = "delivered"
	AssignmentStatusVerified  AssignmentStatus = "verified"
	AssignmentStatusPaid      AssignmentStatus = "paid"
	AssignmentStatusRejected  AssignmentStatus = "rejected"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusPending,
	AssignmentStatusAccepted,
	AssignmentStatusPreparing,
	AssignmentStatusReady,
	AssignmentStatusInTransit,
	AssignmentStatusDelivered,
	AssignmentStatusVerified,
	AssignmentStatusPaid,
	AssignmentStatusRejected,
	AssignmentStatusCancelled,
}

// String implements fmt.Stringer.
func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusPaid || s == AssignmentStatusRejected || s == AssignmentStatusCancelled
}

// CountsTowardOrder reports whether the assignment still holds order quantity.
func (s AssignmentStatus) CountsTowardOrder() bool {
	return s != AssignmentStatusRejected && s != AssignmentStatusCancelled
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
