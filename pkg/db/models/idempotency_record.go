package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// IdempotencyRecord maps an (operation, key) pair to the result snapshot of a
// completed financial operation. Records are written inside the same
// transaction as the operation itself and expire after a bounded retention
// window.
type IdempotencyRecord struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Operation   enums.Operation `gorm:"column:operation;type:text;not null;uniqueIndex:idx_idempotency_op_key" json:"operation"`
	Key         string          `gorm:"column:key;not null;uniqueIndex:idx_idempotency_op_key" json:"key"`
	Result      json.RawMessage `gorm:"column:result;type:jsonb;not null" json:"result"`
	CompletedAt time.Time       `gorm:"column:completed_at;not null" json:"completed_at"`
	ExpiresAt   time.Time       `gorm:"column:expires_at;not null;index" json:"expires_at"`
}
