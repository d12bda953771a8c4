package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// AuditLogEntry is a write-once record of a mutating operation. Entries are
// never updated or deleted.
type AuditLogEntry struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Operation     enums.Operation     `gorm:"column:operation;type:text;not null" json:"operation"`
	AggregateType enums.AggregateType `gorm:"column:aggregate_type;type:text;not null;index:idx_audit_aggregate" json:"aggregate_type"`
	AggregateID   uuid.UUID           `gorm:"column:aggregate_id;type:uuid;not null;index:idx_audit_aggregate" json:"aggregate_id"`
	ActorID       uuid.UUID           `gorm:"column:actor_id;type:uuid;not null;index" json:"actor_id"`
	ActorRole     string              `gorm:"column:actor_role;not null" json:"actor_role"`
	PreviousState json.RawMessage     `gorm:"column:previous_state;type:jsonb" json:"previous_state,omitempty"`
	NewState      json.RawMessage     `gorm:"column:new_state;type:jsonb" json:"new_state,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
