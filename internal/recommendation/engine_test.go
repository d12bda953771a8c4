package recommendation

import (
	"testing"

	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(config.ProcurementConfig{
		BusinessRegistrationScore: 100,
		SettlementAccountScore:    50,
		InventoryScoreCap:         100,
		DistressBonusEnabled:      true,
		MaxFarmsPerOrder:          5,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func approvedFarm(id uuid.UUID, inventory int) Farm {
	return Farm{
		ID:               id,
		ApprovalStatus:   ApprovalStatusApproved,
		ProductType:      enums.ProductTypeBroiler,
		CurrentInventory: inventory,
	}
}

func TestRecommendGreedyAllocationStopsWhenSatisfied(t *testing.T) {
	engine := testEngine(t)

	// Three farms with inventories 3000/2000/1000 against an order needing
	// 5000. The first two satisfy the order; the third ranks but receives
	// nothing.
	ids := []uuid.UUID{
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse("00000000-0000-0000-0000-000000000002"),
		uuid.MustParse("00000000-0000-0000-0000-000000000003"),
	}
	pool := []Farm{
		approvedFarm(ids[1], 2000),
		approvedFarm(ids[2], 1000),
		approvedFarm(ids[0], 3000),
	}
	for i := range pool {
		pool[i].BusinessRegistered = true
	}

	result := engine.Recommend(Request{ProductType: enums.ProductTypeBroiler, QuantityNeeded: 5000}, pool)

	if !result.FullyAllocated {
		t.Fatalf("expected full allocation, got %d of %d", result.TotalAllocated, result.QuantityNeeded)
	}
	if result.TotalAllocated != 5000 {
		t.Fatalf("total allocated = %d, want 5000", result.TotalAllocated)
	}
	if len(result.Recommendations) != 3 {
		t.Fatalf("expected 3 ranked farms, got %d", len(result.Recommendations))
	}

	// Farm with the larger inventory scores higher (inventory share), so the
	// 3000-unit farm leads.
	wantQty := []int{3000, 2000, 0}
	for i, rec := range result.Recommendations {
		if rec.QuantityAllocated != wantQty[i] {
			t.Fatalf("recommendation %d allocated %d, want %d", i, rec.QuantityAllocated, wantQty[i])
		}
	}
}

func TestRecommendDeterministicTieBreakByFarmID(t *testing.T) {
	engine := testEngine(t)

	lower := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	higher := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	pool := []Farm{approvedFarm(higher, 1000), approvedFarm(lower, 1000)}

	for i := 0; i < 5; i++ {
		result := engine.Recommend(Request{ProductType: enums.ProductTypeBroiler, QuantityNeeded: 600}, pool)
		if result.Recommendations[0].FarmID != lower {
			t.Fatalf("run %d: expected lower farm id to rank first, got %s", i, result.Recommendations[0].FarmID)
		}
		if result.Recommendations[0].QuantityAllocated != 600 {
			t.Fatalf("run %d: expected 600 allocated to first farm, got %d", i, result.Recommendations[0].QuantityAllocated)
		}
	}
}

func TestRecommendHardFilters(t *testing.T) {
	engine := testEngine(t)

	pendingApproval := approvedFarm(uuid.New(), 5000)
	pendingApproval.ApprovalStatus = "pending"

	wrongProduct := approvedFarm(uuid.New(), 5000)
	wrongProduct.ProductType = enums.ProductTypeEggs

	eligible := approvedFarm(uuid.New(), 500)

	result := engine.Recommend(Request{ProductType: enums.ProductTypeBroiler, QuantityNeeded: 1000}, []Farm{pendingApproval, wrongProduct, eligible})

	if len(result.Recommendations) != 1 {
		t.Fatalf("expected only the eligible farm, got %d recommendations", len(result.Recommendations))
	}
	if result.Recommendations[0].FarmID != eligible.ID {
		t.Fatalf("unexpected farm %s", result.Recommendations[0].FarmID)
	}
	if result.FullyAllocated {
		t.Fatal("expected partial fulfillment")
	}
	if result.TotalAllocated != 500 {
		t.Fatalf("total allocated = %d, want 500", result.TotalAllocated)
	}
}

func TestRecommendScoringWeights(t *testing.T) {
	engine := testEngine(t)

	farm := approvedFarm(uuid.New(), 1000)
	farm.BusinessRegistered = true
	farm.HasSettlementAccount = true
	farm.DistressScore = 40

	result := engine.Recommend(Request{ProductType: enums.ProductTypeBroiler, QuantityNeeded: 1000}, []Farm{farm})

	// 100 registration + 50 settlement + 100 inventory cap + 40 distress.
	if got := result.Recommendations[0].Score; got != 290 {
		t.Fatalf("score = %d, want 290", got)
	}
}

func TestRecommendDistressBonusDisabled(t *testing.T) {
	engine, err := NewEngine(config.ProcurementConfig{
		BusinessRegistrationScore: 100,
		SettlementAccountScore:    50,
		InventoryScoreCap:         100,
		DistressBonusEnabled:      false,
		MaxFarmsPerOrder:          5,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	farm := approvedFarm(uuid.New(), 1000)
	farm.DistressScore = 90

	result := engine.Recommend(Request{ProductType: enums.ProductTypeBroiler, QuantityNeeded: 1000}, []Farm{farm})

	if got := result.Recommendations[0].Score; got != 100 {
		t.Fatalf("score = %d, want 100 (inventory cap only)", got)
	}
}

func TestRecommendInventoryScoreProportional(t *testing.T) {
	engine := testEngine(t)

	half := approvedFarm(uuid.MustParse("00000000-0000-0000-0000-000000000001"), 500)
	full := approvedFarm(uuid.MustParse("00000000-0000-0000-0000-000000000002"), 1000)

	result := engine.Recommend(Request{ProductType: enums.ProductTypeBroiler, QuantityNeeded: 1000}, []Farm{half, full})

	if result.Recommendations[0].FarmID != full.ID {
		t.Fatalf("expected the fully covering farm first")
	}
	if got := result.Recommendations[0].Score; got != 100 {
		t.Fatalf("full coverage score = %d, want 100", got)
	}
	if got := result.Recommendations[1].Score; got != 50 {
		t.Fatalf("half coverage score = %d, want 50", got)
	}
}

func TestRecommendMaxFarmsCap(t *testing.T) {
	engine, err := NewEngine(config.ProcurementConfig{
		InventoryScoreCap: 100,
		MaxFarmsPerOrder:  2,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	pool := []Farm{
		approvedFarm(uuid.MustParse("00000000-0000-0000-0000-000000000001"), 400),
		approvedFarm(uuid.MustParse("00000000-0000-0000-0000-000000000002"), 400),
		approvedFarm(uuid.MustParse("00000000-0000-0000-0000-000000000003"), 400),
	}

	result := engine.Recommend(Request{ProductType: enums.ProductTypeBroiler, QuantityNeeded: 1000}, pool)

	if result.FullyAllocated {
		t.Fatal("the farm cap should bind before the order is satisfied")
	}
	if result.TotalAllocated != 800 {
		t.Fatalf("total allocated = %d, want 800", result.TotalAllocated)
	}
	if result.Recommendations[2].QuantityAllocated != 0 {
		t.Fatalf("third farm allocated %d, want 0", result.Recommendations[2].QuantityAllocated)
	}
}

func TestComputeDistressScoreWeights(t *testing.T) {
	cases := []struct {
		name    string
		signals DistressSignals
		want    int
	}{
		{"all zero", DistressSignals{}, 0},
		{"all maxed", DistressSignals{100, 100, 100, 100, 100, 100}, 100},
		{"inventory aging only", DistressSignals{InventoryAging: 100}, 25},
		{"sales inactivity only", DistressSignals{SalesInactivity: 100}, 25},
		{"mortality only", DistressSignals{Mortality: 100}, 15},
		{"marketplace only", DistressSignals{MarketplaceInactivity: 100}, 15},
		{"capacity only", DistressSignals{CapacityImbalance: 100}, 10},
		{"backlog only", DistressSignals{PaymentBacklog: 100}, 10},
		{"clamps above range", DistressSignals{InventoryAging: 500}, 25},
		{"clamps below range", DistressSignals{InventoryAging: -50, SalesInactivity: 100}, 25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeDistressScore(tc.signals); got != tc.want {
				t.Fatalf("ComputeDistressScore = %d, want %d", got, tc.want)
			}
		})
	}
}
