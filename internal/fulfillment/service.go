// Package fulfillment is the orchestrator facade over the ledger, the state
// machines, the recommendation engine, and the concurrency layer. Every
// mutating operation follows the same template: acquire the aggregate lease,
// check the idempotency tracker, validate the transition, apply all writes
// (aggregate + audit + idempotency record) in one transaction, release the
// lease, then notify best-effort.
package fulfillment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/internal/audit"
	"github.com/agyemangopoku/farmlink-backend/internal/billing"
	"github.com/agyemangopoku/farmlink-backend/internal/idempotency"
	"github.com/agyemangopoku/farmlink-backend/internal/notify"
	"github.com/agyemangopoku/farmlink-backend/internal/recommendation"
	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
	"github.com/agyemangopoku/farmlink-backend/pkg/logger"
	"github.com/agyemangopoku/farmlink-backend/pkg/metrics"
)

// ServiceParams wires the orchestrator's dependencies.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Locker      Locker
	Tracker     idempotency.Tracker
	Engine      *recommendation.Engine
	Calculator  *billing.Calculator
	Audit       *audit.Service
	Dispatcher  notify.Dispatcher
	Directory   FarmDirectory
	Permissions Permissions
	Rail        PaymentRail
	Sequences   *SequenceGenerator
	Metrics     *metrics.FulfillmentMetrics
	Logger      *logger.Logger
	Procurement config.ProcurementConfig
	Now         func() time.Time
}

// Service implements the fulfillment orchestrator.
type Service struct {
	repo        Repository
	tx          txRunner
	locker      Locker
	tracker     idempotency.Tracker
	engine      *recommendation.Engine
	calculator  *billing.Calculator
	audit       *audit.Service
	dispatcher  notify.Dispatcher
	directory   FarmDirectory
	permissions Permissions
	rail        PaymentRail
	sequences   *SequenceGenerator
	metrics     *metrics.FulfillmentMetrics
	logg        *logger.Logger
	procurement config.ProcurementConfig
	now         func() time.Time
}

// NewService validates dependencies and builds the orchestrator.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stderrors.New("repository is required")
	}
	if params.Tx == nil {
		return nil, stderrors.New("transaction runner is required")
	}
	if params.Locker == nil {
		return nil, stderrors.New("locker is required")
	}
	if params.Tracker == nil {
		return nil, stderrors.New("idempotency tracker is required")
	}
	if params.Engine == nil {
		return nil, stderrors.New("recommendation engine is required")
	}
	if params.Calculator == nil {
		return nil, stderrors.New("billing calculator is required")
	}
	if params.Audit == nil {
		return nil, stderrors.New("audit service is required")
	}
	if params.Dispatcher == nil {
		return nil, stderrors.New("notification dispatcher is required")
	}
	if params.Directory == nil {
		return nil, stderrors.New("farm directory is required")
	}
	if params.Permissions == nil {
		return nil, stderrors.New("permissions collaborator is required")
	}
	if params.Rail == nil {
		return nil, stderrors.New("payment rail is required")
	}
	if params.Sequences == nil {
		return nil, stderrors.New("sequence generator is required")
	}
	if params.Logger == nil {
		return nil, stderrors.New("logger is required")
	}

	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		repo:        params.Repo,
		tx:          params.Tx,
		locker:      params.Locker,
		tracker:     params.Tracker,
		engine:      params.Engine,
		calculator:  params.Calculator,
		audit:       params.Audit,
		dispatcher:  params.Dispatcher,
		directory:   params.Directory,
		permissions: params.Permissions,
		rail:        params.Rail,
		sequences:   params.Sequences,
		metrics:     params.Metrics,
		logg:        params.Logger,
		procurement: params.Procurement,
		now:         now,
	}, nil
}

// observe records timing and outcome for a mutating operation.
func (s *Service) observe(operation enums.Operation, started time.Time, err error, duplicate bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(operation.String(), time.Since(started))
	switch {
	case err != nil:
		s.metrics.IncFailure(operation.String())
	case duplicate:
		s.metrics.IncDuplicate(operation.String())
	default:
		s.metrics.IncSuccess(operation.String())
	}
}

// duplicateOf checks the idempotency tracker and, on a hit, decodes the stored
// result snapshot into out.
func (s *Service) duplicateOf(ctx context.Context, operation enums.Operation, key string, out any) (bool, error) {
	if key == "" {
		return false, errors.New(errors.CodeValidation, "idempotency key is required")
	}
	record, err := s.tracker.Find(ctx, operation, key, s.now())
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	if err := json.Unmarshal(record.Result, out); err != nil {
		return false, errors.Wrap(errors.CodeInternal, err, "decoding idempotency snapshot")
	}
	return true, nil
}

func (s *Service) loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *Service) loadAssignment(ctx context.Context, repo Repository, id uuid.UUID) (*models.Assignment, error) {
	assignment, err := repo.FindAssignment(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "assignment not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading assignment")
	}
	return assignment, nil
}

func (s *Service) loadDelivery(ctx context.Context, repo Repository, id uuid.UUID) (*models.DeliveryConfirmation, error) {
	delivery, err := repo.FindDelivery(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "delivery not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading delivery")
	}
	return delivery, nil
}

func (s *Service) loadInvoice(ctx context.Context, repo Repository, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := repo.FindInvoice(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "invoice not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "loading invoice")
	}
	return invoice, nil
}

func (s *Service) requireActor(actor Actor) error {
	if actor.ID == uuid.Nil {
		return errors.New(errors.CodeUnauthorized, "actor identity missing")
	}
	return nil
}

func (s *Service) auditActor(actor Actor) audit.Actor {
	return audit.Actor{ID: actor.ID, Role: actor.Role}
}

// notifyEvent emits a post-commit notification. Failures never propagate.
func (s *Service) notifyEvent(ctx context.Context, name enums.NotificationEvent, aggregateType enums.AggregateType, aggregateID uuid.UUID, payload map[string]any) {
	s.dispatcher.Notify(ctx, notify.Event{
		Name:          name,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       payload,
		OccurredAt:    s.now(),
	})
}
