package statemachine

import (
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// assignmentTransitions is the authoritative table for the assignment
// lifecycle. Rejection is only legal from pending; cancellation is legal from
// every state before the goods have been delivered. verified -> paid happens
// exclusively through a successful payment, never by direct status update.
var assignmentTransitions = map[enums.AssignmentStatus][]enums.AssignmentStatus{
	enums.AssignmentStatusPending: {
		enums.AssignmentStatusAccepted,
		enums.AssignmentStatusRejected,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusAccepted: {
		enums.AssignmentStatusPreparing,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusPreparing: {
		enums.AssignmentStatusReady,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusReady: {
		enums.AssignmentStatusInTransit,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusInTransit: {
		enums.AssignmentStatusDelivered,
		enums.AssignmentStatusCancelled,
	},
	enums.AssignmentStatusDelivered: {
		enums.AssignmentStatusVerified,
	},
	enums.AssignmentStatusVerified: {
		enums.AssignmentStatusPaid,
	},
	enums.AssignmentStatusPaid:      {},
	enums.AssignmentStatusRejected:  {},
	enums.AssignmentStatusCancelled: {},
}

// AssignmentCanTransition reports whether the assignment lifecycle permits
// from -> to.
func AssignmentCanTransition(from, to enums.AssignmentStatus) bool {
	for _, next := range assignmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AssignmentAllowedNext returns the legal successor statuses for from.
func AssignmentAllowedNext(from enums.AssignmentStatus) []enums.AssignmentStatus {
	allowed := assignmentTransitions[from]
	out := make([]enums.AssignmentStatus, len(allowed))
	copy(out, allowed)
	return out
}

// EnsureAssignmentTransition returns a STATE_CONFLICT error when from -> to is
// not in the transition table.
func EnsureAssignmentTransition(from, to enums.AssignmentStatus) error {
	if AssignmentCanTransition(from, to) {
		return nil
	}
	return transitionError(enums.AggregateAssignment, from.String(), to.String(), assignmentStatusStrings(assignmentTransitions[from]))
}

func assignmentStatusStrings(statuses []enums.AssignmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
