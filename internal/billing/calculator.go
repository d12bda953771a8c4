// Package billing computes invoice amounts from verified deliveries. The
// penalty rates are injected at construction time; nothing here reads
// process-wide state.
package billing

import (
	stderrors "errors"

	"github.com/shopspring/decimal"

	"github.com/agyemangopoku/farmlink-backend/pkg/config"
)

// Amounts is the itemized money breakdown written onto an invoice. All values
// are rounded to two decimal places.
type Amounts struct {
	Subtotal         decimal.Decimal
	QualityDeduction decimal.Decimal
	LossDeduction    decimal.Decimal
	OtherDeduction   decimal.Decimal
	Total            decimal.Decimal
}

// Calculator turns delivery outcomes into invoice amounts.
type Calculator struct {
	mortalityPenaltyPerUnit decimal.Decimal
	qualityPenaltyPerUnit   decimal.Decimal
}

// NewCalculator builds a calculator from the configured penalty rates.
func NewCalculator(cfg config.ProcurementConfig) (*Calculator, error) {
	if cfg.MortalityPenaltyPerUnit.IsNegative() {
		return nil, stderrors.New("mortality penalty must not be negative")
	}
	if cfg.QualityPenaltyPerUnit.IsNegative() {
		return nil, stderrors.New("quality penalty must not be negative")
	}
	return &Calculator{
		mortalityPenaltyPerUnit: cfg.MortalityPenaltyPerUnit,
		qualityPenaltyPerUnit:   cfg.QualityPenaltyPerUnit,
	}, nil
}

// Compute prices a verified delivery.
//
// Subtotal is quantity x unit price. The loss deduction is per lost unit
// (loss count x mortality penalty), not per shipment. A failed quality check
// deducts the quality penalty for every delivered unit. The total is floored
// at zero; deductions never produce a negative invoice.
func (c *Calculator) Compute(quantity int, unitPrice decimal.Decimal, qualityPassed bool, lossCount int) Amounts {
	qty := decimal.NewFromInt(int64(quantity))
	subtotal := qty.Mul(unitPrice).Round(2)

	loss := decimal.Zero
	if lossCount > 0 {
		loss = decimal.NewFromInt(int64(lossCount)).Mul(c.mortalityPenaltyPerUnit).Round(2)
	}

	quality := decimal.Zero
	if !qualityPassed {
		quality = qty.Mul(c.qualityPenaltyPerUnit).Round(2)
	}

	other := decimal.Zero

	total := subtotal.Sub(quality).Sub(loss).Sub(other)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Amounts{
		Subtotal:         subtotal,
		QualityDeduction: quality,
		LossDeduction:    loss,
		OtherDeduction:   other,
		Total:            total.Round(2),
	}
}
