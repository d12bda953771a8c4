package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/internal/statemachine"
	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

// generateInvoice prices every verified delivery of the assignment and writes
// the invoice in the caller's transaction. Called exactly once, when the last
// delivery of a fully delivered assignment is verified.
func (s *Service) generateInvoice(ctx context.Context, tx *gorm.DB, repo Repository, assignment *models.Assignment, deliveries []models.DeliveryConfirmation, actor Actor) (*models.Invoice, error) {
	subtotal := decimal.Zero
	quality := decimal.Zero
	loss := decimal.Zero
	other := decimal.Zero
	total := decimal.Zero
	for _, d := range deliveries {
		passed := d.QualityPassed != nil && *d.QualityPassed
		amounts := s.calculator.Compute(d.QuantityDelivered, assignment.UnitPrice, passed, d.LossCount)
		subtotal = subtotal.Add(amounts.Subtotal)
		quality = quality.Add(amounts.QualityDeduction)
		loss = loss.Add(amounts.LossDeduction)
		other = other.Add(amounts.OtherDeduction)
		total = total.Add(amounts.Total)
	}

	number, err := s.sequences.NextInvoiceNumber(ctx, assignment.AssignmentNumber)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "minting invoice number")
	}

	invoice := &models.Invoice{
		ID:               uuid.New(),
		AssignmentID:     assignment.ID,
		InvoiceNumber:    number,
		Subtotal:         subtotal,
		QualityDeduction: quality,
		LossDeduction:    loss,
		OtherDeduction:   other,
		TotalAmount:      total,
		Status:           enums.InvoiceStatusPending,
		CreatedByID:      actor.ID,
	}
	if err := repo.CreateInvoice(ctx, invoice); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "creating invoice")
	}
	if err := s.audit.Append(ctx, tx, enums.OperationVerifyDelivery, enums.AggregateInvoice, invoice.ID, s.auditActor(actor), nil, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// ApproveInvoice moves a pending invoice to approved. When separation of
// duties is enabled, the approver must differ from the invoice's creator.
func (s *Service) ApproveInvoice(ctx context.Context, input ApproveInvoiceInput) (result *InvoiceResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationApproveInvoice, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	lease, err := s.locker.Acquire(ctx, enums.AggregateInvoice, input.InvoiceID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var invoice *models.Invoice
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadInvoice(ctx, repo, input.InvoiceID)
		if err != nil {
			return err
		}
		if err := s.requireOrderManager(ctx, repo, loaded.AssignmentID, input.Actor); err != nil {
			return err
		}
		if s.procurement.SeparationOfDuties && loaded.CreatedByID == input.Actor.ID {
			return errors.New(errors.CodeForbidden, "invoice creator cannot approve it")
		}
		if err := statemachine.EnsureInvoiceTransition(loaded.Status, enums.InvoiceStatusApproved); err != nil {
			return err
		}

		previous := *loaded
		now := s.now()
		updates := map[string]any{
			"status":         enums.InvoiceStatusApproved,
			"approved_by_id": input.Actor.ID,
			"approved_at":    now,
		}
		if err := repo.UpdateInvoice(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "approving invoice")
		}
		loaded.Status = enums.InvoiceStatusApproved
		approverID := input.Actor.ID
		loaded.ApprovedByID = &approverID
		loaded.ApprovedAt = &now

		invoice = loaded
		return s.audit.Append(ctx, tx, enums.OperationApproveInvoice, enums.AggregateInvoice, loaded.ID, s.auditActor(input.Actor), previous, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventInvoiceApproved, enums.AggregateInvoice, invoice.ID, map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"total":          invoice.TotalAmount.StringFixed(2),
	})
	return &InvoiceResult{Invoice: invoice}, nil
}

// ProcessPayment executes the transfer for an approved invoice. The invoice
// passes through processing to paid within one commit; a rail failure rolls
// the whole transaction back, leaving the invoice approved and retryable.
func (s *Service) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (result *PaymentResult, err error) {
	started := s.now()
	duplicate := false
	defer func() { s.observe(enums.OperationProcessPayment, started, err, duplicate) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}
	if input.DestinationAccount == "" {
		return nil, errors.New(errors.CodeValidation, "destination account is required")
	}

	lease, err := s.locker.Acquire(ctx, enums.AggregateInvoice, input.InvoiceID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var replay PaymentResult
	duplicate, err = s.duplicateOf(ctx, enums.OperationProcessPayment, input.IdempotencyKey, &replay)
	if err != nil {
		return nil, err
	}
	if duplicate {
		replay.IsDuplicate = true
		return &replay, nil
	}

	outcome := &PaymentResult{}
	var completedOrder *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadInvoice(ctx, repo, input.InvoiceID)
		if err != nil {
			return err
		}
		if err := s.requireOrderManager(ctx, repo, loaded.AssignmentID, input.Actor); err != nil {
			return err
		}
		// Two validated hops. The intermediate processing state exists for
		// observers of the audit trail; the operation itself is atomic.
		if err := statemachine.EnsureInvoiceTransition(loaded.Status, enums.InvoiceStatusProcessing); err != nil {
			return err
		}
		if err := statemachine.EnsureInvoiceTransition(enums.InvoiceStatusProcessing, enums.InvoiceStatusPaid); err != nil {
			return err
		}

		transfer, err := s.rail.ExecuteTransfer(ctx, loaded.TotalAmount, input.DestinationAccount, loaded.InvoiceNumber)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "executing transfer")
		}
		if !transfer.Success {
			return errors.New(errors.CodeDependency, "payment rail declined the transfer")
		}

		previous := *loaded
		now := s.now()
		updates := map[string]any{
			"status":            enums.InvoiceStatusPaid,
			"payment_reference": transfer.ReferenceID,
			"paid_at":           now,
		}
		if err := repo.UpdateInvoice(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "recording payment")
		}
		loaded.Status = enums.InvoiceStatusPaid
		reference := transfer.ReferenceID
		loaded.PaymentReference = &reference
		loaded.PaidAt = &now

		assignment, err := s.loadAssignment(ctx, repo, loaded.AssignmentID)
		if err != nil {
			return err
		}
		if err := statemachine.EnsureAssignmentTransition(assignment.Status, enums.AssignmentStatusPaid); err != nil {
			return err
		}
		assignmentPrevious := *assignment
		if err := repo.UpdateAssignment(ctx, assignment.ID, map[string]any{"status": enums.AssignmentStatusPaid, "paid_at": now}); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "marking assignment paid")
		}
		assignment.Status = enums.AssignmentStatusPaid
		assignment.PaidAt = &now
		if err := s.audit.Append(ctx, tx, enums.OperationProcessPayment, enums.AggregateAssignment, assignment.ID, s.auditActor(input.Actor), assignmentPrevious, assignment); err != nil {
			return err
		}

		completedOrder, err = s.maybeCompleteOrder(ctx, tx, repo, assignment.OrderID, input.Actor)
		if err != nil {
			return err
		}

		if err := s.audit.Append(ctx, tx, enums.OperationProcessPayment, enums.AggregateInvoice, loaded.ID, s.auditActor(input.Actor), previous, loaded); err != nil {
			return err
		}

		outcome.Invoice = loaded
		outcome.PaymentReference = transfer.ReferenceID
		return s.tracker.WithTx(tx).Record(ctx, enums.OperationProcessPayment, input.IdempotencyKey, outcome, now)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventInvoicePaid, enums.AggregateInvoice, outcome.Invoice.ID, map[string]any{
		"invoice_number":    outcome.Invoice.InvoiceNumber,
		"payment_reference": outcome.PaymentReference,
		"total":             outcome.Invoice.TotalAmount.StringFixed(2),
	})
	if completedOrder != nil {
		s.notifyEvent(ctx, enums.EventOrderCompleted, enums.AggregateOrder, completedOrder.ID, map[string]any{
			"order_number": completedOrder.OrderNumber,
		})
	}
	return outcome, nil
}

// requireOrderManager authorizes an invoice action through the owning order.
func (s *Service) requireOrderManager(ctx context.Context, repo Repository, assignmentID uuid.UUID, actor Actor) error {
	assignment, err := s.loadAssignment(ctx, repo, assignmentID)
	if err != nil {
		return err
	}
	order, err := s.loadOrder(ctx, repo, assignment.OrderID)
	if err != nil {
		return err
	}
	if !s.permissions.CanManageOrder(ctx, actor, order) {
		return errors.New(errors.CodeForbidden, "not permitted to manage this invoice")
	}
	return nil
}

// maybeCompleteOrder closes the order once every live assignment has been
// paid and the order is fully delivered. Returns the order when it completed.
func (s *Service) maybeCompleteOrder(ctx context.Context, tx *gorm.DB, repo Repository, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.loadOrder(ctx, repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusFullyDelivered {
		return nil, nil
	}

	assignments, err := repo.ListAssignmentsForOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing assignments")
	}
	for _, a := range assignments {
		switch a.Status {
		case enums.AssignmentStatusCancelled, enums.AssignmentStatusRejected, enums.AssignmentStatusPaid:
		default:
			return nil, nil
		}
	}

	if err := s.updateOrderStatus(ctx, tx, repo, order, enums.OrderStatusCompleted, enums.OperationProcessPayment, actor); err != nil {
		return nil, err
	}
	return order, nil
}
