package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/internal/recommendation"
	"github.com/agyemangopoku/farmlink-backend/internal/statemachine"
	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

// CreateOrder creates a draft order with a freshly minted order number.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (result *OrderResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationCreateOrder, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}
	productType, parseErr := enums.ParseProductType(input.ProductType)
	if parseErr != nil {
		return nil, errors.New(errors.CodeValidation, parseErr.Error())
	}
	if input.QuantityNeeded <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity needed must be positive")
	}
	if input.UnitPrice.IsNegative() || input.UnitPrice.IsZero() {
		return nil, errors.New(errors.CodeValidation, "unit price must be positive")
	}
	if input.TotalBudget.IsNegative() || input.TotalBudget.IsZero() {
		return nil, errors.New(errors.CodeValidation, "total budget must be positive")
	}
	if input.DeliveryDeadline.Before(s.now()) {
		return nil, errors.New(errors.CodeValidation, "delivery deadline must be in the future")
	}

	orderNumber, err := s.sequences.NextOrderNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "minting order number")
	}

	order := &models.Order{
		ID:               uuid.New(),
		OrderNumber:      orderNumber,
		ProductType:      productType,
		QuantityNeeded:   input.QuantityNeeded,
		UnitPrice:        input.UnitPrice,
		TotalBudget:      input.TotalBudget,
		DeliveryDeadline: input.DeliveryDeadline,
		PreferredRegion:  input.PreferredRegion,
		Status:           enums.OrderStatusDraft,
		CreatedByID:      input.Actor.ID,
		Notes:            input.Notes,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "creating order")
		}
		return s.audit.Append(ctx, tx, enums.OperationCreateOrder, enums.AggregateOrder, order.ID, s.auditActor(input.Actor), nil, order)
	})
	if err != nil {
		return nil, err
	}

	return &OrderResult{Order: order}, nil
}

// PublishOrder opens a draft order to farms.
func (s *Service) PublishOrder(ctx context.Context, input PublishOrderInput) (result *OrderResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationPublish, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, input.OrderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !s.permissions.CanManageOrder(ctx, input.Actor, loaded) {
			return errors.New(errors.CodeForbidden, "not permitted to manage this order")
		}
		if err := statemachine.EnsureOrderTransition(loaded.Status, enums.OrderStatusPublished); err != nil {
			return err
		}

		previous := *loaded
		now := s.now()
		updates := map[string]any{"status": enums.OrderStatusPublished, "published_at": now}
		if err := repo.UpdateOrder(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "publishing order")
		}
		loaded.Status = enums.OrderStatusPublished
		loaded.PublishedAt = &now

		order = loaded
		return s.audit.Append(ctx, tx, enums.OperationPublish, enums.AggregateOrder, loaded.ID, s.auditActor(input.Actor), previous, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventOrderPublished, enums.AggregateOrder, order.ID, map[string]any{
		"order_number": order.OrderNumber,
		"product_type": order.ProductType.String(),
		"quantity":     order.QuantityNeeded,
	})
	return &OrderResult{Order: order}, nil
}

// AutoAssign allocates the order's remaining quantity across the ranked
// eligible farms and creates one pending assignment per allocated farm.
// Duplicate submissions with the same idempotency key replay the original
// result without re-allocating.
func (s *Service) AutoAssign(ctx context.Context, input AutoAssignInput) (result *AutoAssignResult, err error) {
	started := s.now()
	duplicate := false
	defer func() { s.observe(enums.OperationAutoAssign, started, err, duplicate) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, input.OrderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var replay AutoAssignResult
	duplicate, err = s.duplicateOf(ctx, enums.OperationAutoAssign, input.IdempotencyKey, &replay)
	if err != nil {
		return nil, err
	}
	if duplicate {
		replay.IsDuplicate = true
		return &replay, nil
	}

	outcome := &AutoAssignResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !s.permissions.CanManageOrder(ctx, input.Actor, order) {
			return errors.New(errors.CodeForbidden, "not permitted to manage this order")
		}
		if order.Status != enums.OrderStatusAssigning {
			if err := statemachine.EnsureOrderTransition(order.Status, enums.OrderStatusAssigning); err != nil {
				return err
			}
		}
		remaining := order.QuantityRemaining()
		if remaining == 0 {
			return errors.New(errors.CodeValidation, "order has no remaining quantity to assign")
		}

		pool, err := s.directory.LookupEligibleFarms(ctx, order.ProductType)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "looking up eligible farms")
		}
		pool, err = s.withoutLiveFarms(ctx, repo, order.ID, pool)
		if err != nil {
			return err
		}
		pool = s.resolveDistress(ctx, pool)

		allocation := s.engine.Recommend(recommendation.Request{
			ProductType:    order.ProductType,
			QuantityNeeded: remaining,
		}, pool)

		previous := *order
		assignments := make([]models.Assignment, 0, len(allocation.Recommendations))
		for _, rec := range allocation.Recommendations {
			if rec.QuantityAllocated == 0 {
				continue
			}
			assignment, err := s.createAssignment(ctx, tx, repo, order, rec.FarmID, rec.QuantityAllocated, order.UnitPrice, input.Actor)
			if err != nil {
				return err
			}
			assignments = append(assignments, *assignment)
		}
		if len(assignments) == 0 {
			return errors.New(errors.CodeValidation, "no eligible farm can supply this order")
		}

		order.QuantityAssigned += allocation.TotalAllocated
		newStatus := enums.OrderStatusAssigning
		if order.QuantityRemaining() == 0 {
			newStatus = enums.OrderStatusAssigned
		}
		updates := map[string]any{"quantity_assigned": order.QuantityAssigned, "status": newStatus}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "updating order allocation")
		}
		order.Status = newStatus

		if err := s.audit.Append(ctx, tx, enums.OperationAutoAssign, enums.AggregateOrder, order.ID, s.auditActor(input.Actor), previous, order); err != nil {
			return err
		}

		outcome.Order = order
		outcome.Assignments = assignments
		outcome.Allocation = allocation
		return s.tracker.WithTx(tx).Record(ctx, enums.OperationAutoAssign, input.IdempotencyKey, outcome, s.now())
	})
	if err != nil {
		return nil, err
	}

	if outcome.Order.Status == enums.OrderStatusAssigned {
		s.notifyEvent(ctx, enums.EventOrderAssigned, enums.AggregateOrder, outcome.Order.ID, map[string]any{
			"order_number": outcome.Order.OrderNumber,
			"farms":        len(outcome.Assignments),
		})
	}
	for _, assignment := range outcome.Assignments {
		s.notifyEvent(ctx, enums.EventAssignmentCreated, enums.AggregateAssignment, assignment.ID, map[string]any{
			"assignment_number": assignment.AssignmentNumber,
			"farm_id":           assignment.FarmID.String(),
			"quantity":          assignment.QuantityAssigned,
		})
	}
	return outcome, nil
}

// AssignFarm manually assigns one farm a share of the order, consuming the
// recommendation list as advice rather than a mandate.
func (s *Service) AssignFarm(ctx context.Context, input AssignFarmInput) (result *AssignFarmResult, err error) {
	started := s.now()
	duplicate := false
	defer func() { s.observe(enums.OperationAssignFarm, started, err, duplicate) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}
	if input.FarmID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "farm id is required")
	}
	if input.Quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}

	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, input.OrderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var replay AssignFarmResult
	duplicate, err = s.duplicateOf(ctx, enums.OperationAssignFarm, input.IdempotencyKey, &replay)
	if err != nil {
		return nil, err
	}
	if duplicate {
		replay.IsDuplicate = true
		return &replay, nil
	}

	outcome := &AssignFarmResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !s.permissions.CanManageOrder(ctx, input.Actor, order) {
			return errors.New(errors.CodeForbidden, "not permitted to manage this order")
		}
		if order.Status != enums.OrderStatusAssigning {
			if err := statemachine.EnsureOrderTransition(order.Status, enums.OrderStatusAssigning); err != nil {
				return err
			}
		}
		if input.Quantity > order.QuantityRemaining() {
			return errors.New(errors.CodeValidation, "quantity exceeds the order's remaining share")
		}

		live, err := repo.CountLiveAssignments(ctx, order.ID, input.FarmID)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "checking existing assignment")
		}
		if live > 0 {
			return errors.New(errors.CodeConflict, "farm already holds a live assignment for this order")
		}

		unitPrice := order.UnitPrice
		if input.UnitPrice != nil {
			if input.UnitPrice.IsNegative() || input.UnitPrice.IsZero() {
				return errors.New(errors.CodeValidation, "unit price must be positive")
			}
			unitPrice = *input.UnitPrice
		}

		previous := *order
		assignment, err := s.createAssignment(ctx, tx, repo, order, input.FarmID, input.Quantity, unitPrice, input.Actor)
		if err != nil {
			return err
		}

		order.QuantityAssigned += input.Quantity
		newStatus := enums.OrderStatusAssigning
		if order.QuantityRemaining() == 0 {
			newStatus = enums.OrderStatusAssigned
		}
		updates := map[string]any{"quantity_assigned": order.QuantityAssigned, "status": newStatus}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "updating order allocation")
		}
		order.Status = newStatus

		if err := s.audit.Append(ctx, tx, enums.OperationAssignFarm, enums.AggregateOrder, order.ID, s.auditActor(input.Actor), previous, order); err != nil {
			return err
		}

		outcome.Order = order
		outcome.Assignment = assignment
		return s.tracker.WithTx(tx).Record(ctx, enums.OperationAssignFarm, input.IdempotencyKey, outcome, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventAssignmentCreated, enums.AggregateAssignment, outcome.Assignment.ID, map[string]any{
		"assignment_number": outcome.Assignment.AssignmentNumber,
		"farm_id":           outcome.Assignment.FarmID.String(),
		"quantity":          outcome.Assignment.QuantityAssigned,
	})
	return outcome, nil
}

// CancelOrder cancels a non-terminal order. Only pending assignments are
// swept along; once a farm has accepted, its assignment must be cancelled
// explicitly first.
func (s *Service) CancelOrder(ctx context.Context, input CancelOrderInput) (result *OrderResult, err error) {
	started := s.now()
	defer func() { s.observe(enums.OperationCancelOrder, started, err, false) }()

	if err = s.requireActor(input.Actor); err != nil {
		return nil, err
	}

	lease, err := s.locker.Acquire(ctx, enums.AggregateOrder, input.OrderID)
	if err != nil {
		return nil, err
	}
	defer lease.Release(ctx)

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !s.permissions.CanManageOrder(ctx, input.Actor, loaded) {
			return errors.New(errors.CodeForbidden, "not permitted to manage this order")
		}
		if err := statemachine.EnsureOrderTransition(loaded.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		assignments, err := repo.ListAssignmentsForOrder(ctx, loaded.ID)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "listing assignments")
		}
		now := s.now()
		for _, assignment := range assignments {
			if assignment.Status.IsTerminal() {
				continue
			}
			if assignment.Status != enums.AssignmentStatusPending {
				return errors.New(errors.CodeConflict, "order has accepted assignments; cancel them explicitly first")
			}
			updates := map[string]any{"status": enums.AssignmentStatusCancelled, "cancelled_at": now}
			if err := repo.UpdateAssignment(ctx, assignment.ID, updates); err != nil {
				return errors.Wrap(errors.CodeDependency, err, "cancelling pending assignment")
			}
		}

		previous := *loaded
		updates := map[string]any{"status": enums.OrderStatusCancelled, "cancelled_at": now}
		if err := repo.UpdateOrder(ctx, loaded.ID, updates); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "cancelling order")
		}
		loaded.Status = enums.OrderStatusCancelled
		loaded.CancelledAt = &now

		order = loaded
		return s.audit.Append(ctx, tx, enums.OperationCancelOrder, enums.AggregateOrder, loaded.ID, s.auditActor(input.Actor), previous, loaded)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEvent(ctx, enums.EventOrderCancelled, enums.AggregateOrder, order.ID, map[string]any{
		"order_number": order.OrderNumber,
	})
	return &OrderResult{Order: order}, nil
}

// createAssignment mints a number, persists the assignment, and appends its
// creation audit entry. Caller owns the surrounding transaction.
func (s *Service) createAssignment(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, farmID uuid.UUID, quantity int, unitPrice decimal.Decimal, actor Actor) (*models.Assignment, error) {
	number, err := s.sequences.NextAssignmentNumber(ctx, order.OrderNumber)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "minting assignment number")
	}

	assignment := &models.Assignment{
		ID:               uuid.New(),
		OrderID:          order.ID,
		AssignmentNumber: number,
		FarmID:           farmID,
		QuantityAssigned: quantity,
		UnitPrice:        unitPrice,
		Status:           enums.AssignmentStatusPending,
	}
	if err := repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "creating assignment")
	}
	if err := s.audit.Append(ctx, tx, enums.OperationAssignFarm, enums.AggregateAssignment, assignment.ID, s.auditActor(actor), nil, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// withoutLiveFarms drops farms that already hold a live assignment for the
// order so re-running auto-assignment never double-books a supplier.
func (s *Service) withoutLiveFarms(ctx context.Context, repo Repository, orderID uuid.UUID, pool []recommendation.Farm) ([]recommendation.Farm, error) {
	filtered := make([]recommendation.Farm, 0, len(pool))
	for _, farm := range pool {
		live, err := repo.CountLiveAssignments(ctx, orderID, farm.ID)
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "checking existing assignment")
		}
		if live == 0 {
			filtered = append(filtered, farm)
		}
	}
	return filtered, nil
}

// resolveDistress fills in missing distress scores: raw signals from the
// listing are folded locally, and a farm carrying neither signals nor a score
// gets the per-farm directory lookup. Distress only boosts ranking, so a
// failed lookup leaves the farm unweighted instead of failing the operation.
func (s *Service) resolveDistress(ctx context.Context, pool []recommendation.Farm) []recommendation.Farm {
	for i := range pool {
		switch {
		case pool[i].DistressSignals != nil:
			pool[i].DistressScore = recommendation.ComputeDistressScore(*pool[i].DistressSignals)
		case pool[i].DistressScore == 0:
			score, err := s.directory.GetDistressScore(ctx, pool[i].ID)
			if err != nil {
				lctx := s.logg.WithField(ctx, "farm_id", pool[i].ID.String())
				s.logg.Warn(lctx, "distress score lookup failed, ranking farm unweighted")
				continue
			}
			pool[i].DistressScore = score
		}
	}
	return pool
}
