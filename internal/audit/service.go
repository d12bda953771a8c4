// Package audit records a write-once trail of every mutating operation. The
// orchestrator appends an entry inside the same transaction as the mutation
// it describes, so a committed state change always has its audit record.
package audit

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
	"github.com/agyemangopoku/farmlink-backend/pkg/pagination"
)

// Actor identifies who performed an operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// Service appends and queries audit entries.
type Service struct {
	repo Repository
}

// NewService validates dependencies and builds the service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, stderrors.New("audit repository is required")
	}
	return &Service{repo: repo}, nil
}

// Append snapshots the previous and new aggregate states and writes the
// entry. Call it with the transaction handle of the surrounding operation.
func (s *Service) Append(ctx context.Context, tx *gorm.DB, operation enums.Operation, aggregateType enums.AggregateType, aggregateID uuid.UUID, actor Actor, previous, next any) error {
	prevJSON, err := marshalState(previous)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "encoding previous state")
	}
	nextJSON, err := marshalState(next)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "encoding new state")
	}

	entry := models.AuditLogEntry{
		ID:            uuid.New(),
		Operation:     operation,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		PreviousState: prevJSON,
		NewState:      nextJSON,
	}
	if err := s.repo.WithTx(tx).Create(ctx, &entry); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "writing audit entry")
	}
	return nil
}

// TrailForAggregate returns the audit entries for one aggregate, newest first.
func (s *Service) TrailForAggregate(ctx context.Context, aggregateType enums.AggregateType, aggregateID uuid.UUID, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error) {
	if !aggregateType.IsValid() {
		return nil, nil, errors.New(errors.CodeValidation, "unknown aggregate type")
	}
	return s.repo.ListByAggregate(ctx, aggregateType, aggregateID, params)
}

// TrailForActor returns the audit entries produced by one actor, newest first.
func (s *Service) TrailForActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error) {
	if actorID == uuid.Nil {
		return nil, nil, errors.New(errors.CodeValidation, "actor id is required")
	}
	return s.repo.ListByActor(ctx, actorID, params)
}

func marshalState(state any) (json.RawMessage, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}
