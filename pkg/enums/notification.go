package enums

// NotificationEvent names the fire-and-forget events emitted after a commit.
type NotificationEvent string

const (
	EventOrderPublished       NotificationEvent = "order.published"
	EventOrderAssigned        NotificationEvent = "order.assigned"
	EventOrderCancelled       NotificationEvent = "order.cancelled"
	EventOrderCompleted       NotificationEvent = "order.completed"
	EventAssignmentCreated    NotificationEvent = "assignment.created"
	EventAssignmentAccepted   NotificationEvent = "assignment.accepted"
	EventAssignmentRejected   NotificationEvent = "assignment.rejected"
	EventAssignmentCancelled  NotificationEvent = "assignment.cancelled"
	EventAssignmentReady      NotificationEvent = "assignment.ready"
	EventAssignmentDispatched NotificationEvent = "assignment.dispatched"
	EventDeliveryConfirmed    NotificationEvent = "delivery.confirmed"
	EventDeliveryVerified     NotificationEvent = "delivery.verified"
	EventInvoiceCreated       NotificationEvent = "invoice.created"
	EventInvoiceApproved      NotificationEvent = "invoice.approved"
	EventInvoicePaid          NotificationEvent = "invoice.paid"
)

// String implements fmt.Stringer.
func (n NotificationEvent) String() string {
	return string(n)
}
