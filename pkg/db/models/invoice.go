package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// Invoice is a financial claim derived from verified deliveries of a single
// assignment. Invoices are append-only: corrections create a new invoice, a
// paid invoice is never mutated. At most one non-terminal invoice may exist
// per assignment at a time.
type Invoice struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	AssignmentID      uuid.UUID           `gorm:"column:assignment_id;type:uuid;not null;index" json:"assignment_id"`
	InvoiceNumber     string              `gorm:"column:invoice_number;uniqueIndex:idx_invoices_number;not null" json:"invoice_number"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(14,2);not null" json:"subtotal"`
	QualityDeduction  decimal.Decimal     `gorm:"column:quality_deduction;type:numeric(14,2);not null" json:"quality_deduction"`
	LossDeduction     decimal.Decimal     `gorm:"column:loss_deduction;type:numeric(14,2);not null" json:"loss_deduction"`
	OtherDeduction    decimal.Decimal     `gorm:"column:other_deduction;type:numeric(14,2);not null" json:"other_deduction"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	Status            enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	PaymentReference  *string             `gorm:"column:payment_reference" json:"payment_reference,omitempty"`
	CreatedByID       uuid.UUID           `gorm:"column:created_by_id;type:uuid;not null" json:"created_by_id"`
	ApprovedByID      *uuid.UUID          `gorm:"column:approved_by_id;type:uuid" json:"approved_by_id,omitempty"`
	ApprovedAt        *time.Time          `gorm:"column:approved_at" json:"approved_at,omitempty"`
	PaidAt            *time.Time          `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TotalDeductions sums the itemized deduction columns.
func (i Invoice) TotalDeductions() decimal.Decimal {
	return i.QualityDeduction.Add(i.LossDeduction).Add(i.OtherDeduction)
}
