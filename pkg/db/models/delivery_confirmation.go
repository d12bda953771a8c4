package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryConfirmation records one physical delivery event against an
// assignment. Rows become immutable once verified.
type DeliveryConfirmation struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AssignmentID      uuid.UUID        `gorm:"column:assignment_id;type:uuid;not null;index" json:"assignment_id"`
	QuantityDelivered int              `gorm:"column:quantity_delivered;not null" json:"quantity_delivered"`
	QualityPassed     *bool            `gorm:"column:quality_passed" json:"quality_passed,omitempty"`
	AverageUnitWeight *decimal.Decimal `gorm:"column:average_unit_weight;type:numeric(8,3)" json:"average_unit_weight,omitempty"`
	LossCount         int              `gorm:"column:loss_count;not null;default:0" json:"loss_count"`
	ConfirmedByID     uuid.UUID        `gorm:"column:confirmed_by_id;type:uuid;not null" json:"confirmed_by_id"`
	VerifiedByID      *uuid.UUID       `gorm:"column:verified_by_id;type:uuid" json:"verified_by_id,omitempty"`
	VerifiedAt        *time.Time       `gorm:"column:verified_at" json:"verified_at,omitempty"`
	Notes             *string          `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// Verified reports whether the delivery has been checked by a verifier.
func (d DeliveryConfirmation) Verified() bool {
	return d.VerifiedAt != nil
}
