package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agyemangopoku/farmlink-backend/internal/recommendation"
	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
)

// CreateOrderInput creates a draft order.
type CreateOrderInput struct {
	Actor            Actor
	ProductType      string
	QuantityNeeded   int
	UnitPrice        decimal.Decimal
	TotalBudget      decimal.Decimal
	DeliveryDeadline time.Time
	PreferredRegion  string
	Notes            *string
}

// PublishOrderInput moves a draft order into the published state.
type PublishOrderInput struct {
	Actor   Actor
	OrderID uuid.UUID
}

// AutoAssignInput allocates the order's remaining quantity across the ranked
// eligible farms.
type AutoAssignInput struct {
	Actor          Actor
	OrderID        uuid.UUID
	IdempotencyKey string
}

// AssignFarmInput manually assigns one farm a share of the order.
type AssignFarmInput struct {
	Actor          Actor
	OrderID        uuid.UUID
	FarmID         uuid.UUID
	Quantity       int
	UnitPrice      *decimal.Decimal // defaults to the order's unit price
	IdempotencyKey string
}

// AcceptAssignmentInput is the farm's acceptance of its share.
type AcceptAssignmentInput struct {
	Actor        Actor
	AssignmentID uuid.UUID
}

// RejectAssignmentInput is the farm declining its share. Legal only while the
// assignment is still pending.
type RejectAssignmentInput struct {
	Actor        Actor
	AssignmentID uuid.UUID
	Reason       *string
}

// MarkReadyInput records the farm-supplied readiness date and advances the
// assignment through preparing to ready.
type MarkReadyInput struct {
	Actor        Actor
	AssignmentID uuid.UUID
	ReadyBy      time.Time
}

// DispatchInput moves a ready assignment into transit.
type DispatchInput struct {
	Actor        Actor
	AssignmentID uuid.UUID
}

// ConfirmDeliveryInput records one physical delivery event.
type ConfirmDeliveryInput struct {
	Actor             Actor
	AssignmentID      uuid.UUID
	QuantityDelivered int
	LossCount         int
	AverageUnitWeight *decimal.Decimal
	Notes             *string
	IdempotencyKey    string
}

// VerifyDeliveryInput records the verifier's quality decision on a delivery.
type VerifyDeliveryInput struct {
	Actor         Actor
	DeliveryID    uuid.UUID
	QualityPassed bool
}

// ApproveInvoiceInput approves a pending invoice for payment.
type ApproveInvoiceInput struct {
	Actor     Actor
	InvoiceID uuid.UUID
}

// ProcessPaymentInput executes payment of an approved invoice.
type ProcessPaymentInput struct {
	Actor              Actor
	InvoiceID          uuid.UUID
	DestinationAccount string
	IdempotencyKey     string
}

// CancelOrderInput cancels a non-terminal order.
type CancelOrderInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Reason  *string
}

// CancelAssignmentInput cancels an assignment before delivery.
type CancelAssignmentInput struct {
	Actor        Actor
	AssignmentID uuid.UUID
	Reason       *string
}

// OrderResult is the order's state after a mutating operation.
type OrderResult struct {
	Order       *models.Order `json:"order"`
	IsDuplicate bool          `json:"is_duplicate"`
}

// AutoAssignResult carries the allocation outcome plus the created
// assignments.
type AutoAssignResult struct {
	Order       *models.Order         `json:"order"`
	Assignments []models.Assignment   `json:"assignments"`
	Allocation  recommendation.Result `json:"allocation"`
	IsDuplicate bool                  `json:"is_duplicate"`
}

// AssignFarmResult is the manual-assignment outcome.
type AssignFarmResult struct {
	Order       *models.Order      `json:"order"`
	Assignment  *models.Assignment `json:"assignment"`
	IsDuplicate bool               `json:"is_duplicate"`
}

// AssignmentResult is the assignment's state after a mutating operation.
type AssignmentResult struct {
	Assignment  *models.Assignment `json:"assignment"`
	IsDuplicate bool               `json:"is_duplicate"`
}

// DeliveryResult carries the recorded delivery and the updated assignment.
type DeliveryResult struct {
	Delivery    *models.DeliveryConfirmation `json:"delivery"`
	Assignment  *models.Assignment           `json:"assignment"`
	IsDuplicate bool                         `json:"is_duplicate"`
}

// VerifyDeliveryResult carries the verified delivery and, when verification
// completed the assignment, the invoice generated from it.
type VerifyDeliveryResult struct {
	Delivery   *models.DeliveryConfirmation `json:"delivery"`
	Assignment *models.Assignment           `json:"assignment"`
	Invoice    *models.Invoice              `json:"invoice,omitempty"`
}

// InvoiceResult is the invoice's state after a mutating operation.
type InvoiceResult struct {
	Invoice     *models.Invoice `json:"invoice"`
	IsDuplicate bool            `json:"is_duplicate"`
}

// PaymentResult is the outcome of processPayment.
type PaymentResult struct {
	Invoice          *models.Invoice `json:"invoice"`
	PaymentReference string          `json:"payment_reference"`
	IsDuplicate      bool            `json:"is_duplicate"`
}
