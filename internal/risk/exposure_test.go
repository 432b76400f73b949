package risk

import (
	"testing"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// fakePositionSource is a minimal in-memory PositionSource for gate tests.
type fakePositionSource struct {
	totalExposure int
	positions     map[string]types.Position
}

func (f *fakePositionSource) TotalExposure() int { return f.totalExposure }

func (f *fakePositionSource) Position(ticker string) types.Position {
	if p, ok := f.positions[ticker]; ok {
		return p
	}
	return types.Position{Ticker: ticker}
}

func twoLegOpportunity(priceA, priceB int) types.Opportunity {
	return types.Opportunity{
		Legs: []types.Leg{
			{Ticker: "A", Side: types.SideYes, Action: types.ActionBuy, Price: priceA, Quantity: 1},
			{Ticker: "B", Side: types.SideYes, Action: types.ActionBuy, Price: priceB, Quantity: 1},
		},
		TotalCost: priceA + priceB,
	}
}

// TestExposureGate_ApprovesWithinAllLimits checks the all-three-hold path.
func TestExposureGate_ApprovesWithinAllLimits(t *testing.T) {
	src := &fakePositionSource{totalExposure: 0, positions: map[string]types.Position{}}
	gate := NewGate(src, ExposureLimits{
		MaxTotalExposureCents:     1000,
		MaxPositionPerMarket:      100,
		MaxExposurePerMarketCents: 1000,
	})

	opp := twoLegOpportunity(40, 30)
	check := gate.CheckTrade(opp, 5)

	if !check.Allowed {
		t.Fatalf("CheckTrade() denied: %s", check.Reason)
	}
	if check.MaxAllowedQuantity != 5 {
		t.Fatalf("MaxAllowedQuantity = %d, want 5", check.MaxAllowedQuantity)
	}
}

// TestExposureGate_DeniesOnTotalExposure checks the first inequality.
func TestExposureGate_DeniesOnTotalExposure(t *testing.T) {
	src := &fakePositionSource{totalExposure: 950, positions: map[string]types.Position{}}
	gate := NewGate(src, ExposureLimits{
		MaxTotalExposureCents:     1000,
		MaxPositionPerMarket:      1000,
		MaxExposurePerMarketCents: 1000000,
	})

	opp := twoLegOpportunity(40, 30) // total_cost = 70
	check := gate.CheckTrade(opp, 1) // 950 + 70 = 1020 > 1000

	if check.Allowed {
		t.Fatal("CheckTrade() approved, want denied on total exposure")
	}
	// At q=0, 950 <= 1000 holds, so max allowed is 0.
	if check.MaxAllowedQuantity != 0 {
		t.Fatalf("MaxAllowedQuantity = %d, want 0", check.MaxAllowedQuantity)
	}
}

// TestExposureGate_DeniesOnPositionLimit checks the per-market position
// inequality.
func TestExposureGate_DeniesOnPositionLimit(t *testing.T) {
	src := &fakePositionSource{
		totalExposure: 0,
		positions: map[string]types.Position{
			"A": {Ticker: "A", NetContracts: 98},
		},
	}
	gate := NewGate(src, ExposureLimits{
		MaxTotalExposureCents:     1000000,
		MaxPositionPerMarket:      100,
		MaxExposurePerMarketCents: 1000000,
	})

	opp := twoLegOpportunity(40, 30)
	check := gate.CheckTrade(opp, 5) // 98 + 5 = 103 > 100

	if check.Allowed {
		t.Fatal("CheckTrade() approved, want denied on position limit")
	}
	if check.MaxAllowedQuantity != 2 {
		t.Fatalf("MaxAllowedQuantity = %d, want 2 (100-98)", check.MaxAllowedQuantity)
	}
}

// TestExposureGate_DeniesOnPerMarketExposure checks the per-market notional
// inequality.
func TestExposureGate_DeniesOnPerMarketExposure(t *testing.T) {
	src := &fakePositionSource{
		totalExposure: 0,
		positions: map[string]types.Position{
			"A": {Ticker: "A", MarketExposure: 900},
		},
	}
	gate := NewGate(src, ExposureLimits{
		MaxTotalExposureCents:     1000000,
		MaxPositionPerMarket:      1000000,
		MaxExposurePerMarketCents: 1000,
	})

	opp := twoLegOpportunity(40, 30)
	check := gate.CheckTrade(opp, 5) // 900 + 40*5 = 1100 > 1000

	if check.Allowed {
		t.Fatal("CheckTrade() approved, want denied on per-market exposure")
	}
	if check.MaxAllowedQuantity != 2 {
		t.Fatalf("MaxAllowedQuantity = %d, want 2 ((1000-900)/40)", check.MaxAllowedQuantity)
	}
}

// TestExposureGate_AdjustQuantityForLimits checks the binary-search
// fallback converges to the same closed-form answer as CheckTrade's first
// failing constraint when a single constraint binds.
func TestExposureGate_AdjustQuantityForLimits(t *testing.T) {
	src := &fakePositionSource{
		totalExposure: 0,
		positions: map[string]types.Position{
			"A": {Ticker: "A", NetContracts: 0},
			"B": {Ticker: "B", NetContracts: 0},
		},
	}
	gate := NewGate(src, ExposureLimits{
		MaxTotalExposureCents:     350,
		MaxPositionPerMarket:      1000,
		MaxExposurePerMarketCents: 1000000,
	})

	opp := twoLegOpportunity(40, 30) // total_cost = 70

	got := gate.AdjustQuantityForLimits(opp, 10)
	if got != 5 {
		t.Fatalf("AdjustQuantityForLimits() = %d, want 5 (350/70)", got)
	}
	if !gate.CheckTrade(opp, got).Allowed {
		t.Fatalf("CheckTrade() at adjusted quantity %d should be allowed", got)
	}
	if gate.CheckTrade(opp, got+1).Allowed {
		t.Fatalf("CheckTrade() at %d should be denied (one past the adjusted max)", got+1)
	}
}

// TestExposureGate_AdjustQuantityForLimitsZeroWhenNoneFit checks the
// degenerate case where even quantity 1 is denied.
func TestExposureGate_AdjustQuantityForLimitsZeroWhenNoneFit(t *testing.T) {
	src := &fakePositionSource{totalExposure: 990, positions: map[string]types.Position{}}
	gate := NewGate(src, ExposureLimits{
		MaxTotalExposureCents:     1000,
		MaxPositionPerMarket:      1000000,
		MaxExposurePerMarketCents: 1000000,
	})

	opp := twoLegOpportunity(40, 30) // total_cost = 70; even q=1 -> 1060 > 1000

	if got := gate.AdjustQuantityForLimits(opp, 10); got != 0 {
		t.Fatalf("AdjustQuantityForLimits() = %d, want 0", got)
	}
}

// TestExposureGate_CurrentExposure passes through the ledger's synced
// total.
func TestExposureGate_CurrentExposure(t *testing.T) {
	src := &fakePositionSource{totalExposure: 1234}
	gate := NewGate(src, ExposureLimits{})

	if got := gate.CurrentExposure(); got != 1234 {
		t.Fatalf("CurrentExposure() = %d, want 1234", got)
	}
}
