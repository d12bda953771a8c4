package fulfillment

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/internal/recommendation"
	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
	"github.com/agyemangopoku/farmlink-backend/pkg/pagination"
)

// GetOrder loads an order with its assignments.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderWithAssignments(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order")
	}
	return order, nil
}

// GetAssignment loads a single assignment.
func (s *Service) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	return s.loadAssignment(ctx, s.repo, id)
}

// GetInvoice loads a single invoice.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return s.loadInvoice(ctx, s.repo, id)
}

// ListOrders pages through orders newest first.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	orders, cursor, err := s.repo.ListOrders(ctx, filter, params)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeDependency, err, "listing orders")
	}
	return orders, cursor, nil
}

// ListAssignments returns every assignment of an order.
func (s *Service) ListAssignments(ctx context.Context, orderID uuid.UUID) ([]models.Assignment, error) {
	assignments, err := s.repo.ListAssignmentsForOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing assignments")
	}
	return assignments, nil
}

// ListDeliveries returns every delivery event of an assignment, oldest first.
func (s *Service) ListDeliveries(ctx context.Context, assignmentID uuid.UUID) ([]models.DeliveryConfirmation, error) {
	deliveries, err := s.repo.ListDeliveriesForAssignment(ctx, assignmentID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing deliveries")
	}
	return deliveries, nil
}

// ListInvoices returns every invoice raised against an order's assignments.
func (s *Service) ListInvoices(ctx context.Context, orderID uuid.UUID) ([]models.Invoice, error) {
	invoices, err := s.repo.ListInvoicesForOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing invoices")
	}
	return invoices, nil
}

// RecommendFarms previews the allocation the engine would produce for an
// order's remaining quantity. Read-only: nothing is assigned.
func (s *Service) RecommendFarms(ctx context.Context, orderID uuid.UUID) (*recommendation.Result, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	remaining := order.QuantityRemaining()
	if remaining == 0 {
		return &recommendation.Result{QuantityNeeded: 0, FullyAllocated: true}, nil
	}

	pool, err := s.directory.LookupEligibleFarms(ctx, order.ProductType)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "looking up eligible farms")
	}
	pool, err = s.withoutLiveFarms(ctx, s.repo, orderID, pool)
	if err != nil {
		return nil, err
	}
	pool = s.resolveDistress(ctx, pool)

	result := s.engine.Recommend(recommendation.Request{
		ProductType:    order.ProductType,
		QuantityNeeded: remaining,
	}, pool)
	return &result, nil
}

// AuditTrail returns the audit entries of one aggregate, newest first.
func (s *Service) AuditTrail(ctx context.Context, aggregateType enums.AggregateType, aggregateID uuid.UUID, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error) {
	return s.audit.TrailForAggregate(ctx, aggregateType, aggregateID, params)
}

// AuditTrailForActor returns every audit entry written by one actor.
func (s *Service) AuditTrailForActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error) {
	return s.audit.TrailForActor(ctx, actorID, params)
}
