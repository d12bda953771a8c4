// Package idempotency maps an (operation, key) pair to the result snapshot of
// a previously completed financial operation. Records are written in the same
// transaction as the operation itself, so a committed operation and its
// idempotency record are inseparable.
package idempotency

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agyemangopoku/farmlink-backend/pkg/db/models"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

// Tracker checks for and records completed operations.
type Tracker interface {
	WithTx(tx *gorm.DB) Tracker
	// Find returns the stored record for (operation, key), or nil when the
	// operation has not completed before or the record expired before now.
	Find(ctx context.Context, operation enums.Operation, key string, now time.Time) (*models.IdempotencyRecord, error)
	// Record persists the result snapshot for (operation, key). Must be called
	// inside the same transaction as the operation's writes.
	Record(ctx context.Context, operation enums.Operation, key string, result any, now time.Time) error
	// PurgeExpired deletes records whose retention window has elapsed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type tracker struct {
	db        *gorm.DB
	retention time.Duration
}

// NewTracker builds a DB-backed tracker with the given retention window.
func NewTracker(db *gorm.DB, retention time.Duration) (Tracker, error) {
	if db == nil {
		return nil, stderrors.New("db is required")
	}
	if retention <= 0 {
		return nil, stderrors.New("retention must be positive")
	}
	return &tracker{db: db, retention: retention}, nil
}

func (t *tracker) WithTx(tx *gorm.DB) Tracker {
	if tx == nil {
		return t
	}
	return &tracker{db: tx, retention: t.retention}
}

func (t *tracker) Find(ctx context.Context, operation enums.Operation, key string, now time.Time) (*models.IdempotencyRecord, error) {
	if key == "" {
		return nil, nil
	}

	var record models.IdempotencyRecord
	err := t.db.WithContext(ctx).
		Where("operation = ? AND key = ?", operation, key).
		First(&record).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "looking up idempotency record")
	}

	// Expired records are purged lazily by the retention job; treat them as
	// absent so a very old retry re-executes instead of replaying stale state.
	if record.ExpiresAt.Before(now) {
		return nil, nil
	}
	return &record, nil
}

func (t *tracker) Record(ctx context.Context, operation enums.Operation, key string, result any, now time.Time) error {
	if key == "" {
		return stderrors.New("idempotency key is required")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "encoding idempotency result")
	}

	record := models.IdempotencyRecord{
		ID:          uuid.New(),
		Operation:   operation,
		Key:         key,
		Result:      payload,
		CompletedAt: now,
		ExpiresAt:   now.Add(t.retention),
	}
	if err := t.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrap(errors.CodeInternal, err, "writing idempotency record")
	}
	return nil
}

func (t *tracker) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := t.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.IdempotencyRecord{})
	if res.Error != nil {
		return 0, errors.Wrap(errors.CodeInternal, res.Error, "purging idempotency records")
	}
	return res.RowsAffected, nil
}
