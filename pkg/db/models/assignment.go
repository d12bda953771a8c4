package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// Assignment is one farm's committed share of an order. At most one
// non-cancelled assignment may exist per (order, farm) pair; the partial
// unique index lives in the migration and the orchestrator re-checks under
// the order lock.
type Assignment struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID           uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	AssignmentNumber  string                 `gorm:"column:assignment_number;uniqueIndex:idx_assignments_number;not null" json:"assignment_number"`
	FarmID            uuid.UUID              `gorm:"column:farm_id;type:uuid;not null;index" json:"farm_id"`
	QuantityAssigned  int                    `gorm:"column:quantity_assigned;not null" json:"quantity_assigned"`
	QuantityDelivered int                    `gorm:"column:quantity_delivered;not null;default:0" json:"quantity_delivered"`
	UnitPrice         decimal.Decimal        `gorm:"column:unit_price;type:numeric(14,2);not null" json:"unit_price"`
	Status            enums.AssignmentStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	ReadyBy           *time.Time             `gorm:"column:ready_by" json:"ready_by,omitempty"`
	AcceptedAt        *time.Time             `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	DeliveredAt       *time.Time             `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	VerifiedAt        *time.Time             `gorm:"column:verified_at" json:"verified_at,omitempty"`
	PaidAt            *time.Time             `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CancelledAt       *time.Time             `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	Deliveries        []DeliveryConfirmation `gorm:"foreignKey:AssignmentID" json:"deliveries,omitempty"`
	Invoices          []Invoice              `gorm:"foreignKey:AssignmentID" json:"invoices,omitempty"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// QuantityOutstanding is the undelivered share of the assignment.
func (a Assignment) QuantityOutstanding() int {
	outstanding := a.QuantityAssigned - a.QuantityDelivered
	if outstanding < 0 {
		return 0
	}
	return outstanding
}
