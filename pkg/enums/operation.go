package enums

import "fmt"

// Operation identifies a mutating fulfillment operation for audit entries
// and idempotency records.
type Operation string

const (
	OperationCreateOrder       Operation = "create_order"
	OperationPublish           Operation = "publish"
	OperationAutoAssign        Operation = "auto_assign"
	OperationAssignFarm        Operation = "assign_farm"
	OperationAcceptAssignment  Operation = "accept_assignment"
	OperationRejectAssignment  Operation = "reject_assignment"
	OperationMarkReady         Operation = "mark_ready"
	OperationDispatch          Operation = "dispatch"
	OperationConfirmDelivery   Operation = "confirm_delivery"
	OperationVerifyDelivery    Operation = "verify_delivery"
	OperationApproveInvoice    Operation = "approve_invoice"
	OperationProcessPayment    Operation = "process_payment"
	OperationCancelOrder       Operation = "cancel_order"
	OperationCancelAssignment  Operation = "cancel_assignment"
)

var validOperations = []Operation{
	OperationCreateOrder,
	OperationPublish,
	OperationAutoAssign,
	OperationAssignFarm,
	OperationAcceptAssignment,
	OperationRejectAssignment,
	OperationMarkReady,
	OperationDispatch,
	OperationConfirmDelivery,
	OperationVerifyDelivery,
	OperationApproveInvoice,
	OperationProcessPayment,
	OperationCancelOrder,
	OperationCancelAssignment,
}

// String implements fmt.Stringer.
func (o Operation) String() string {
	return string(o)
}

// IsValid reports whether the value is a known Operation.
func (o Operation) IsValid() bool {
	for _, candidate := range validOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOperation converts raw input into an Operation.
func ParseOperation(value string) (Operation, error) {
	for _, candidate := range validOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operation %q", value)
}
