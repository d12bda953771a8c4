package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/internal/statemachine"
	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

// AcceptAssignment is the farm committing to its share. The first acceptance
// moves the order into in_progress.
func (s *Service) AcceptAssignment(ctx context.Context, input AcceptAssignmentInput) (result *AssignmentResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationAcceptAssignment, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	orderID, err := s.orderIDForAssignment(ctx, input.AssignmentID)
	if err != nil {
		return nil, err
	}
	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var assignment *models.Assignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadAssignment(ctx, repo, input.AssignmentID)
		if err != nil {
			return err
		}
		if !s.permissions.CanActOnAssignment(ctx, input.Actor, loaded) {
			return errors.New(errors.CodeForbidden, "not permitted to act on this assignment")
		}
		if err := statemachine.EnsureAssignmentTransition(loaded.Status, enums.AssignmentStatusAccepted); err != nil {
			return err
		}

		previous := *loaded
		now := s.now()
		updates := map[string]any{"status": enums.AssignmentStatusAccepted, "accepted_at": now}
		if err := repo.UpdateAssignment(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "accepting assignment")
		}
		loaded.Status = enums.AssignmentStatusAccepted
		loaded.AcceptedAt = &now

		order, err := s.loadOrder(ctx, repo, loaded.OrderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusAssigned {
			if err := s.updateOrderStatus(ctx, tx, repo, order, enums.OrderStatusInProgress, enums.OperationAcceptAssignment, input.Actor); err != nil {
				return err
			}
		}

		assignment = loaded
		return s.audit.Append(ctx, tx, enums.OperationAcceptAssignment, enums.AggregateAssignment, loaded.ID, s.auditActor(input.Actor), previous, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventAssignmentAccepted, enums.AggregateAssignment, assignment.ID, map[string]any{
		"assignment_number": assignment.AssignmentNumber,
		"farm_id":           assignment.FarmID.String(),
	})
	return &AssignmentResult{Assignment: assignment}, nil
}

// RejectAssignment is the farm declining its share. Legal only from pending;
// the declined quantity returns to the order's unassigned pool.
func (s *Service) RejectAssignment(ctx context.Context, input RejectAssignmentInput) (result *AssignmentResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationRejectAssignment, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	orderID, err := s.orderIDForAssignment(ctx, input.AssignmentID)
	if err != nil {
		return nil, err
	}
	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var assignment *models.Assignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadAssignment(ctx, repo, input.AssignmentID)
		if err != nil {
			return err
		}
		if !s.permissions.CanActOnAssignment(ctx, input.Actor, loaded) {
			return errors.New(errors.CodeForbidden, "not permitted to act on this assignment")
		}
		if err := statemachine.EnsureAssignmentTransition(loaded.Status, enums.AssignmentStatusRejected); err != nil {
			return err
		}

		previous := *loaded
		updates := map[string]any{"status": enums.AssignmentStatusRejected}
		if err := repo.UpdateAssignment(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "rejecting assignment")
		}
		loaded.Status = enums.AssignmentStatusRejected

		if err := s.releaseAssignedQuantity(ctx, tx, repo, loaded, loaded.QuantityAssigned, enums.OperationRejectAssignment, input.Actor); err != nil {
			return err
		}

		assignment = loaded
		return s.audit.Append(ctx, tx, enums.OperationRejectAssignment, enums.AggregateAssignment, loaded.ID, s.auditActor(input.Actor), previous, loaded)
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"assignment_number": assignment.AssignmentNumber,
		"farm_id":           assignment.FarmID.String(),
	}
	if input.Reason != nil {
		payload["reason"] = *input.Reason
	}
	s.notifyEvent(ctx, enums.EventAssignmentRejected, enums.AggregateAssignment, assignment.ID, payload)
	return &AssignmentResult{Assignment: assignment}, nil
}

// MarkReady records the farm-supplied readiness date and advances the
// assignment through preparing to ready in one unit of work.
func (s *Service) MarkReady(ctx context.Context, input MarkReadyInput) (result *AssignmentResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationMarkReady, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}
	if input.ReadyBy.IsZero() {
		return nil, errors.New(errors.CodeValidation, "readiness date is required")
	}

	orderID, err := s.orderIDForAssignment(ctx, input.AssignmentID)
	if err != nil {
		return nil, err
	}
	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var assignment *models.Assignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadAssignment(ctx, repo, input.AssignmentID)
		if err != nil {
			return err
		}
		if !s.permissions.CanActOnAssignment(ctx, input.Actor, loaded) {
			return errors.New(errors.CodeForbidden, "not permitted to act on this assignment")
		}
		// Both hops are validated so an assignment that never went through
		// acceptance cannot jump to ready.
		if err := statemachine.EnsureAssignmentTransition(loaded.Status, enums.AssignmentStatusPreparing); err != nil {
			return err
		}
		if err := statemachine.EnsureAssignmentTransition(enums.AssignmentStatusPreparing, enums.AssignmentStatusReady); err != nil {
			return err
		}

		previous := *loaded
		updates := map[string]any{"status": enums.AssignmentStatusReady, "ready_by": input.ReadyBy}
		if err := repo.UpdateAssignment(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "marking assignment ready")
		}
		loaded.Status = enums.AssignmentStatusReady
		loaded.ReadyBy = &input.ReadyBy

		assignment = loaded
		return s.audit.Append(ctx, tx, enums.OperationMarkReady, enums.AggregateAssignment, loaded.ID, s.auditActor(input.Actor), previous, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventAssignmentReady, enums.AggregateAssignment, assignment.ID, map[string]any{
		"assignment_number": assignment.AssignmentNumber,
		"ready_by":          input.ReadyBy,
	})
	return &AssignmentResult{Assignment: assignment}, nil
}

// Dispatch moves a ready assignment into transit.
func (s *Service) Dispatch(ctx context.Context, input DispatchInput) (result *AssignmentResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationDispatch, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	orderID, err := s.orderIDForAssignment(ctx, input.AssignmentID)
	if err != nil {
		return nil, err
	}
	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var assignment *models.Assignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadAssignment(ctx, repo, input.AssignmentID)
		if err != nil {
			return err
		}
		if !s.permissions.CanActOnAssignment(ctx, input.Actor, loaded) {
			return errors.New(errors.CodeForbidden, "not permitted to act on this assignment")
		}
		if err := statemachine.EnsureAssignmentTransition(loaded.Status, enums.AssignmentStatusInTransit); err != nil {
			return err
		}

		previous := *loaded
		updates := map[string]any{"status": enums.AssignmentStatusInTransit}
		if err := repo.UpdateAssignment(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "dispatching assignment")
		}
		loaded.Status = enums.AssignmentStatusInTransit

		assignment = loaded
		return s.audit.Append(ctx, tx, enums.OperationDispatch, enums.AggregateAssignment, loaded.ID, s.auditActor(input.Actor), previous, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventAssignmentDispatched, enums.AggregateAssignment, assignment.ID, map[string]any{
		"assignment_number": assignment.AssignmentNumber,
	})
	return &AssignmentResult{Assignment: assignment}, nil
}

// ConfirmDelivery records one physical delivery event. Partial deliveries are
// legal; the assignment transitions to delivered only when the cumulative
// delivered quantity reaches the assigned quantity.
func (s *Service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (result *DeliveryResult, err error) {
	started := s.now()
	duplicate := false
	defer func() { s.observe(enums.OperationConfirmDelivery, started, err, duplicate) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}
	if input.QuantityDelivered <= 0 {
		return nil, errors.New(errors.CodeValidation, "delivered quantity must be positive")
	}
	if input.LossCount < 0 || input.LossCount > input.QuantityDelivered {
		return nil, errors.New(errors.CodeValidation, "loss count must be between zero and the delivered quantity")
	}

	orderID, err := s.orderIDForAssignment(ctx, input.AssignmentID)
	if err != nil {
		return nil, err
	}
	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var replay DeliveryResult
	duplicate, err = s.duplicateOf(ctx, enums.OperationConfirmDelivery, input.IdempotencyKey, &replay)
	if err != nil {
		return nil, err
	}
	if duplicate {
		replay.IsDuplicate = true
		return &replay, nil
	}

	outcome := &DeliveryResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assignment, err := s.loadAssignment(ctx, repo, input.AssignmentID)
		if err != nil {
			return err
		}
		if !s.permissions.CanActOnAssignment(ctx, input.Actor, assignment) {
			return errors.New(errors.CodeForbidden, "not permitted to act on this assignment")
		}
		// A delivery event is only legal while the goods are in transit; the
		// transition check doubles as the status guard for partial events.
		if err := statemachine.EnsureAssignmentTransition(assignment.Status, enums.AssignmentStatusDelivered); err != nil {
			return err
		}
		if input.QuantityDelivered > assignment.QuantityOutstanding() {
			return errors.New(errors.CodeValidation, "delivered quantity exceeds the assignment's outstanding share")
		}

		now := s.now()
		delivery := &models.DeliveryConfirmation{
			ID:                uuid.New(),
			AssignmentID:      assignment.ID,
			QuantityDelivered: input.QuantityDelivered,
			AverageUnitWeight: input.AverageUnitWeight,
			LossCount:         input.LossCount,
			ConfirmedByID:     input.Actor.ID,
			Notes:             input.Notes,
		}
		if err := repo.CreateDelivery(ctx, delivery); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "recording delivery")
		}

		previous := *assignment
		assignment.QuantityDelivered += input.QuantityDelivered
		updates := map[string]any{"quantity_delivered": assignment.QuantityDelivered}
		if assignment.QuantityOutstanding() == 0 {
			updates["status"] = enums.AssignmentStatusDelivered
			updates["delivered_at"] = now
			assignment.Status = enums.AssignmentStatusDelivered
			assignment.DeliveredAt = &now
		}
		if err := repo.UpdateAssignment(ctx, assignment.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "updating assignment delivery totals")
		}

		if err := s.applyOrderDeliveryProgress(ctx, tx, repo, assignment.OrderID, input.QuantityDelivered, input.Actor); err != nil {
			return err
		}

		if err := s.audit.Append(ctx, tx, enums.OperationConfirmDelivery, enums.AggregateAssignment, assignment.ID, s.auditActor(input.Actor), previous, assignment); err != nil {
			return err
		}

		outcome.Delivery = delivery
		outcome.Assignment = assignment
		return s.tracker.WithTx(tx).Record(ctx, enums.OperationConfirmDelivery, input.IdempotencyKey, outcome, now)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventDeliveryConfirmed, enums.AggregateAssignment, outcome.Assignment.ID, map[string]any{
		"assignment_number": outcome.Assignment.AssignmentNumber,
		"quantity":          input.QuantityDelivered,
	})
	return outcome, nil
}

// VerifyDelivery records the verifier's quality decision. A failing check
// still verifies the delivery; it drives the deduction math instead of
// blocking payment. When every delivery of a fully delivered assignment is
// verified, the assignment transitions to verified and its invoice is
// generated in the same commit.
func (s *Service) VerifyDelivery(ctx context.Context, input VerifyDeliveryInput) (result *VerifyDeliveryResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationVerifyDelivery, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	delivery, err := s.loadDelivery(ctx, s.repo, input.DeliveryID)
	if err != nil {
		return nil, err
	}

	orderID, err := s.orderIDForAssignment(ctx, delivery.AssignmentID)
	if err != nil {
		return nil, err
	}
	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	outcome := &VerifyDeliveryResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadDelivery(ctx, repo, input.DeliveryID)
		if err != nil {
			return err
		}
		if loaded.Verified() {
			return errors.New(errors.CodeConflict, "delivery is already verified")
		}

		assignment, err := s.loadAssignment(ctx, repo, loaded.AssignmentID)
		if err != nil {
			return err
		}
		if !s.permissions.CanActOnAssignment(ctx, input.Actor, assignment) {
			return errors.New(errors.CodeForbidden, "not permitted to act on this assignment")
		}

		now := s.now()
		updates := map[string]any{
			"quality_passed": input.QualityPassed,
			"verified_by_id": input.Actor.ID,
			"verified_at":    now,
		}
		if err := repo.UpdateDelivery(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "verifying delivery")
		}
		qualityPassed := input.QualityPassed
		loaded.QualityPassed = &qualityPassed
		verifierID := input.Actor.ID
		loaded.VerifiedByID = &verifierID
		loaded.VerifiedAt = &now

		if err := s.audit.Append(ctx, tx, enums.OperationVerifyDelivery, enums.AggregateAssignment, assignment.ID, s.auditActor(input.Actor), nil, loaded); err != nil {
			return err
		}

		outcome.Delivery = loaded
		outcome.Assignment = assignment

		if assignment.Status != enums.AssignmentStatusDelivered {
			return nil
		}
		deliveries, err := repo.ListDeliveriesForAssignment(ctx, assignment.ID)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "listing deliveries")
		}
		for _, d := range deliveries {
			if !d.Verified() {
				return nil
			}
		}

		previous := *assignment
		statusUpdates := map[string]any{"status": enums.AssignmentStatusVerified, "verified_at": now}
		if err := statemachine.EnsureAssignmentTransition(assignment.Status, enums.AssignmentStatusVerified); err != nil {
			return err
		}
		if err := repo.UpdateAssignment(ctx, assignment.ID, statusUpdates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "verifying assignment")
		}
		assignment.Status = enums.AssignmentStatusVerified
		assignment.VerifiedAt = &now

		if err := s.audit.Append(ctx, tx, enums.OperationVerifyDelivery, enums.AggregateAssignment, assignment.ID, s.auditActor(input.Actor), previous, assignment); err != nil {
			return err
		}

		invoice, err := s.generateInvoice(ctx, tx, repo, assignment, deliveries, input.Actor)
		if err != nil {
			return err
		}
		outcome.Invoice = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventDeliveryVerified, enums.AggregateAssignment, outcome.Assignment.ID, map[string]any{
		"assignment_number": outcome.Assignment.AssignmentNumber,
		"quality_passed":    input.QualityPassed,
	})
	if outcome.Invoice != nil {
		s.notifyEvent(ctx, enums.EventInvoiceCreated, enums.AggregateInvoice, outcome.Invoice.ID, map[string]any{
			"invoice_number": outcome.Invoice.InvoiceNumber,
			"total":          outcome.Invoice.TotalAmount.StringFixed(2),
		})
	}
	return outcome, nil
}

// CancelAssignment cancels an assignment before delivery and returns its
// outstanding quantity to the order.
func (s *Service) CancelAssignment(ctx context.Context, input CancelAssignmentInput) (result *AssignmentResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationCancelAssignment, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	orderID, err := s.orderIDForAssignment(ctx, input.AssignmentID)
	if err != nil {
		return nil, err
	}
	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var assignment *models.Assignment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadAssignment(ctx, repo, input.AssignmentID)
		if err != nil {
			return err
		}
		if !s.permissions.CanActOnAssignment(ctx, input.Actor, loaded) {
			return errors.New(errors.CodeForbidden, "not permitted to act on this assignment")
		}
		if err := statemachine.EnsureAssignmentTransition(loaded.Status, enums.AssignmentStatusCancelled); err != nil {
			return err
		}

		previous := *loaded
		now := s.now()
		freed := loaded.QuantityOutstanding()
		updates := map[string]any{"status": enums.AssignmentStatusCancelled, "cancelled_at": now}
		if err := repo.UpdateAssignment(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "cancelling assignment")
		}
		loaded.Status = enums.AssignmentStatusCancelled
		loaded.CancelledAt = &now

		if err := s.releaseAssignedQuantity(ctx, tx, repo, loaded, freed, enums.OperationCancelAssignment, input.Actor); err != nil {
			return err
		}

		assignment = loaded
		return s.audit.Append(ctx, tx, enums.OperationCancelAssignment, enums.AggregateAssignment, loaded.ID, s.auditActor(input.Actor), previous, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventAssignmentCancelled, enums.AggregateAssignment, assignment.ID, map[string]any{
		"assignment_number": assignment.AssignmentNumber,
	})
	return &AssignmentResult{Assignment: assignment}, nil
}

// orderIDForAssignment resolves the order to lock before the transaction
// opens. The assignment is re-read under the lease.
func (s *Service) orderIDForAssignment(ctx context.Context, assignmentID uuid.UUID) (uuid.UUID, error) {
	assignment, err := s.loadAssignment(ctx, s.repo, assignmentID)
	if err != nil {
		return uuid.Nil, err
	}
	return assignment.OrderID, nil
}

// releaseAssignedQuantity returns freed quantity to the order's pool and
// reopens allocation when the order had been fully assigned.
func (s *Service) releaseAssignedQuantity(ctx context.Context, tx *gorm.DB, repo Repository, assignment *models.Assignment, freed int, operation enums.Operation, actor Actor) error {
	if freed <= 0 {
		return nil
	}
	order, err := s.loadOrder(ctx, repo, assignment.OrderID)
	if err != nil {
		return err
	}

	previous := *order
	order.QuantityAssigned -= freed
	if order.QuantityAssigned < 0 {
		order.QuantityAssigned = 0
	}
	updates := map[string]any{"quantity_assigned": order.QuantityAssigned}
	if order.Status == enums.OrderStatusAssigned && order.QuantityRemaining() > 0 {
		if err := statemachine.EnsureOrderTransition(order.Status, enums.OrderStatusAssigning); err != nil {
			return err
		}
		updates["status"] = enums.OrderStatusAssigning
		order.Status = enums.OrderStatusAssigning
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "returning quantity to order")
	}
	return s.audit.Append(ctx, tx, operation, enums.AggregateOrder, order.ID, s.auditActor(actor), previous, order)
}

// applyOrderDeliveryProgress advances the order's delivered totals and status
// after a confirmed delivery.
func (s *Service) applyOrderDeliveryProgress(ctx context.Context, tx *gorm.DB, repo Repository, orderID uuid.UUID, delivered int, actor Actor) error {
	order, err := s.loadOrder(ctx, repo, orderID)
	if err != nil {
		return err
	}

	previous := *order
	order.QuantityDelivered += delivered
	updates := map[string]any{"quantity_delivered": order.QuantityDelivered}

	target := enums.OrderStatusPartiallyDelivered
	if order.QuantityDelivered >= order.QuantityAssigned {
		target = enums.OrderStatusFullyDelivered
	}
	if order.Status != target && statemachine.OrderCanTransition(order.Status, target) {
		updates["status"] = target
		order.Status = target
	}

	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "updating order delivery totals")
	}
	return s.audit.Append(ctx, tx, enums.OperationConfirmDelivery, enums.AggregateOrder, order.ID, s.auditActor(actor), previous, order)
}

// updateOrderStatus applies a validated single-hop status change with audit.
func (s *Service) updateOrderStatus(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, target enums.OrderStatus, operation enums.Operation, actor Actor) error {
	if err := statemachine.EnsureOrderTransition(order.Status, target); err != nil {
		return err
	}
	previous := *order
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": target}); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "updating order status")
	}
	order.Status = target
	return s.audit.Append(ctx, tx, operation, enums.AggregateOrder, order.ID, s.auditActor(actor), previous, order)
}
