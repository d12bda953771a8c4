package recommendation

// DistressSignals are the six inputs of the composite distress score. Each
// component is expressed on a 0-100 scale; values outside that range are
// clamped before weighting.
type DistressSignals struct {
	InventoryAging        int `json:"inventory_aging"`
	SalesInactivity       int `json:"sales_inactivity"`
	Mortality             int `json:"mortality"`
	MarketplaceInactivity int `json:"marketplace_inactivity"`
	CapacityImbalance     int `json:"capacity_imbalance"`
	PaymentBacklog        int `json:"payment_backlog"`
}

// Component weights of the composite, in percent. They sum to 100 so the
// composite stays on the same 0-100 scale as its inputs.
const (
	weightInventoryAging        = 25
	weightSalesInactivity       = 25
	weightMortality             = 15
	weightMarketplaceInactivity = 15
	weightCapacityImbalance     = 10
	weightPaymentBacklog        = 10
)

// ComputeDistressScore folds the six signals into a 0-100 composite.
func ComputeDistressScore(s DistressSignals) int {
	total := clampScore(s.InventoryAging)*weightInventoryAging +
		clampScore(s.SalesInactivity)*weightSalesInactivity +
		clampScore(s.Mortality)*weightMortality +
		clampScore(s.MarketplaceInactivity)*weightMarketplaceInactivity +
		clampScore(s.CapacityImbalance)*weightCapacityImbalance +
		clampScore(s.PaymentBacklog)*weightPaymentBacklog

	return total / 100
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
