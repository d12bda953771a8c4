// Package recommendation ranks eligible farms for an order and allocates
// quantity across them. The output is advisory for manual assignment and
// consumed directly by auto-assignment, so it must be deterministic: the same
// pool and order always yield the same ranked list and quantities.
package recommendation

import (
	stderrors "errors"
	"sort"

	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

// ApprovalStatusApproved is the only farm approval status eligible for
// allocation; everything else is filtered out, not down-weighted.
const ApprovalStatusApproved = "approved"

// Farm is one candidate from the farm directory.
type Farm struct {
	ID                   uuid.UUID         `json:"id"`
	Region               string            `json:"region"`
	ApprovalStatus       string            `json:"approval_status"`
	ProductType          enums.ProductType `json:"product_type"`
	BusinessRegistered   bool              `json:"business_registered"`
	HasSettlementAccount bool              `json:"has_settlement_account"`
	CurrentInventory     int               `json:"current_inventory"`
	DistressScore        int               `json:"distress_score"`
	// DistressSignals is set when the directory sends raw signals instead of
	// a composite; callers fold them into DistressScore before scoring.
	DistressSignals *DistressSignals `json:"distress_signals,omitempty"`
}

// Request carries the order attributes the engine scores against.
type Request struct {
	ProductType    enums.ProductType
	QuantityNeeded int
}

// Recommendation is one ranked farm with its allocated share. Farms that rank
// but receive nothing (order already satisfied, or the farm cap bound first)
// appear with a zero quantity.
type Recommendation struct {
	FarmID            uuid.UUID `json:"farm_id"`
	Region            string    `json:"region"`
	Score             int       `json:"score"`
	QuantityAllocated int       `json:"quantity_allocated"`
	CurrentInventory  int       `json:"current_inventory"`
}

// Result is the full ranked allocation for an order.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	TotalAllocated  int              `json:"total_allocated"`
	QuantityNeeded  int              `json:"quantity_needed"`
	FullyAllocated  bool             `json:"fully_allocated"`
}

// Engine scores and allocates farms using the configured weights.
type Engine struct {
	cfg config.ProcurementConfig
}

// NewEngine validates the scoring configuration and builds an engine.
func NewEngine(cfg config.ProcurementConfig) (*Engine, error) {
	if cfg.InventoryScoreCap <= 0 {
		return nil, stderrors.New("inventory score cap must be positive")
	}
	if cfg.MaxFarmsPerOrder <= 0 {
		return nil, stderrors.New("max farms per order must be positive")
	}
	return &Engine{cfg: cfg}, nil
}

// Recommend filters, scores, ranks, and greedily allocates the pool against
// the request. Partial fulfillment is legal and reported through
// FullyAllocated/TotalAllocated.
func (e *Engine) Recommend(req Request, pool []Farm) Result {
	eligible := make([]Farm, 0, len(pool))
	for _, farm := range pool {
		if farm.ApprovalStatus != ApprovalStatusApproved {
			continue
		}
		if farm.ProductType != req.ProductType {
			continue
		}
		eligible = append(eligible, farm)
	}

	type scored struct {
		farm  Farm
		score int
	}
	ranked := make([]scored, 0, len(eligible))
	for _, farm := range eligible {
		ranked = append(ranked, scored{farm: farm, score: e.score(farm, req.QuantityNeeded)})
	}

	// Descending by score; lower farm ID wins ties so repeated calls over the
	// same pool are reproducible.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].farm.ID.String() < ranked[j].farm.ID.String()
	})

	result := Result{
		Recommendations: make([]Recommendation, 0, len(ranked)),
		QuantityNeeded:  req.QuantityNeeded,
	}

	remaining := req.QuantityNeeded
	allocatedFarms := 0
	for _, entry := range ranked {
		allocation := 0
		if remaining > 0 && allocatedFarms < e.cfg.MaxFarmsPerOrder {
			allocation = entry.farm.CurrentInventory
			if allocation > remaining {
				allocation = remaining
			}
			if allocation > 0 {
				remaining -= allocation
				allocatedFarms++
			}
		}
		result.Recommendations = append(result.Recommendations, Recommendation{
			FarmID:            entry.farm.ID,
			Region:            entry.farm.Region,
			Score:             entry.score,
			QuantityAllocated: allocation,
			CurrentInventory:  entry.farm.CurrentInventory,
		})
	}

	result.TotalAllocated = req.QuantityNeeded - remaining
	result.FullyAllocated = remaining == 0
	return result
}

// score is additive: business registration, settlement account on file,
// inventory coverage proportional to the order (capped), and the optional
// distress bonus.
func (e *Engine) score(farm Farm, quantityNeeded int) int {
	score := 0
	if farm.BusinessRegistered {
		score += e.cfg.BusinessRegistrationScore
	}
	if farm.HasSettlementAccount {
		score += e.cfg.SettlementAccountScore
	}
	score += e.inventoryScore(farm.CurrentInventory, quantityNeeded)
	if e.cfg.DistressBonusEnabled {
		score += clampScore(farm.DistressScore)
	}
	return score
}

// inventoryScore scales with the share of the order the farm could cover on
// its own, topping out at the configured cap.
func (e *Engine) inventoryScore(inventory, quantityNeeded int) int {
	if inventory <= 0 || quantityNeeded <= 0 {
		return 0
	}
	if inventory >= quantityNeeded {
		return e.cfg.InventoryScoreCap
	}
	return inventory * e.cfg.InventoryScoreCap / quantityNeeded
}
