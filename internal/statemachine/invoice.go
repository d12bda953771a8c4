package statemachine

import (
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// invoiceTransitions is the authoritative table for the invoice lifecycle.
// processing exists so a payment attempt is visible mid-flight; a failed rail
// call rolls the whole transaction back, so processing is never observed
// without a subsequent paid in the same commit.
var invoiceTransitions = map[enums.InvoiceStatus][]enums.InvoiceStatus{
	enums.InvoiceStatusPending: {
		enums.InvoiceStatusApproved,
		enums.InvoiceStatusRejected,
		enums.InvoiceStatusDisputed,
	},
	enums.InvoiceStatusApproved: {
		enums.InvoiceStatusProcessing,
		enums.InvoiceStatusRejected,
		enums.InvoiceStatusDisputed,
	},
	enums.InvoiceStatusProcessing: {
		enums.InvoiceStatusPaid,
	},
	enums.InvoiceStatusPaid:     {},
	enums.InvoiceStatusRejected: {},
	enums.InvoiceStatusDisputed: {},
}

// InvoiceCanTransition reports whether the invoice lifecycle permits from -> to.
func InvoiceCanTransition(from, to enums.InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvoiceAllowedNext returns the legal successor statuses for from.
func InvoiceAllowedNext(from enums.InvoiceStatus) []enums.InvoiceStatus {
	allowed := invoiceTransitions[from]
	out := make([]enums.InvoiceStatus, len(allowed))
	copy(out, allowed)
	return out
}

// EnsureInvoiceTransition returns a STATE_CONFLICT error when from -> to is
// not in the transition table.
func EnsureInvoiceTransition(from, to enums.InvoiceStatus) error {
	if InvoiceCanTransition(from, to) {
		return nil
	}
	return transitionError(enums.AggregateInvoice, from.String(), to.String(), invoiceStatusStrings(invoiceTransitions[from]))
}

func invoiceStatusStrings(statuses []enums.InvoiceStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
