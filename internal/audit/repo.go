package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/pagination"
)

// Repository persists and queries the append-only audit log. There is no
// update or delete on purpose.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	ListByAggregate(ctx context.Context, aggregateType enums.AggregateType, aggregateID uuid.UUID, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByAggregate(ctx context.Context, aggregateType enums.AggregateType, aggregateID uuid.UUID, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditLogEntry{}).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, aggregateID)
	return r.list(ctx, query, params)
}

func (r *repository) ListByActor(ctx context.Context, actorID uuid.UUID, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditLogEntry{}).
		Where("actor_id = ?", actorID)
	return r.list(ctx, query, params)
}

func (r *repository) list(_ context.Context, query *gorm.DB, params pagination.Params) ([]models.AuditLogEntry, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.AuditLogEntry
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		entries = entries[:normalized]
		last := entries[normalized-1]
		return entries, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return entries, nil, nil
}
