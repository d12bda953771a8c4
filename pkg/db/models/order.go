package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// Order represents a government bulk purchase request.
//
// QuantityAssigned and QuantityDelivered are derived columns kept consistent
// by the fulfillment orchestrator under the order lock; they always satisfy
// quantity_assigned <= quantity_needed and quantity_delivered <= quantity_assigned.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNumber       string            `gorm:"column:order_number;uniqueIndex:idx_orders_order_number;not null" json:"order_number"`
	ProductType       enums.ProductType `gorm:"column:product_type;type:text;not null" json:"product_type"`
	QuantityNeeded    int               `gorm:"column:quantity_needed;not null" json:"quantity_needed"`
	QuantityAssigned  int               `gorm:"column:quantity_assigned;not null;default:0" json:"quantity_assigned"`
	QuantityDelivered int               `gorm:"column:quantity_delivered;not null;default:0" json:"quantity_delivered"`
	UnitPrice         decimal.Decimal   `gorm:"column:unit_price;type:numeric(14,2);not null" json:"unit_price"`
	TotalBudget       decimal.Decimal   `gorm:"column:total_budget;type:numeric(14,2);not null" json:"total_budget"`
	DeliveryDeadline  time.Time         `gorm:"column:delivery_deadline;not null" json:"delivery_deadline"`
	PreferredRegion   string            `gorm:"column:preferred_region" json:"preferred_region"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'draft'" json:"status"`
	CreatedByID       uuid.UUID         `gorm:"column:created_by_id;type:uuid;not null" json:"created_by_id"`
	Notes             *string           `gorm:"column:notes" json:"notes,omitempty"`
	PublishedAt       *time.Time        `gorm:"column:published_at" json:"published_at,omitempty"`
	CompletedAt       *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt       *time.Time        `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	Assignments       []Assignment      `gorm:"foreignKey:OrderID" json:"assignments,omitempty"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// QuantityRemaining is the unassigned share of the order.
func (o Order) QuantityRemaining() int {
	remaining := o.QuantityNeeded - o.QuantityAssigned
	if remaining < 0 {
		return 0
	}
	return remaining
}
