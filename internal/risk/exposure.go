package risk

import (
	"fmt"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// ExposureLimits holds the three pre-trade notional/position ceilings.
type ExposureLimits struct {
	MaxTotalExposureCents    int
	MaxPositionPerMarket     int
	MaxExposurePerMarketCents int
}

// PositionSource is the minimal read surface the exposure gate needs from
// the Ledger: current per-ticker position and total exposure.
type PositionSource interface {
	Position(ticker string) types.Position
	TotalExposure() int
}

// ExposureCheck is the result of a pre-trade exposure evaluation.
type ExposureCheck struct {
	Allowed           bool
	Reason            string
	MaxAllowedQuantity int
}

// ExposureGate approves or denies a proposed trade against the three
// documented inequalities, computing the largest quantity that would fit
// when denied.
type ExposureGate struct {
	ledger PositionSource
	limits ExposureLimits
}

// NewGate creates an ExposureGate reading live state from ledger.
func NewGate(ledger PositionSource, limits ExposureLimits) *ExposureGate {
	return &ExposureGate{ledger: ledger, limits: limits}
}

// CurrentExposure returns the ledger's last-synced total exposure in cents.
func (g *ExposureGate) CurrentExposure() int {
	return g.ledger.TotalExposure()
}

// CheckTrade approves opportunity at quantity iff all three inequalities in
// spec §4.12 hold simultaneously: total exposure, per-market position, and
// per-market exposure.
func (g *ExposureGate) CheckTrade(opp types.Opportunity, quantity int) ExposureCheck {
	currentTotal := g.ledger.TotalExposure()
	projectedTotal := currentTotal + opp.TotalCost*quantity

	if projectedTotal > g.limits.MaxTotalExposureCents {
		return ExposureCheck{
			Allowed: false,
			Reason: fmt.Sprintf("would exceed total exposure limit: %d > %d",
				projectedTotal, g.limits.MaxTotalExposureCents),
			MaxAllowedQuantity: maxQuantityForLimit(currentTotal, opp.TotalCost, g.limits.MaxTotalExposureCents),
		}
	}

	for _, leg := range opp.Legs {
		pos := g.ledger.Position(leg.Ticker)

		if pos.NetContracts+quantity > g.limits.MaxPositionPerMarket {
			return ExposureCheck{
				Allowed: false,
				Reason: fmt.Sprintf("would exceed position limit for %s: %d > %d",
					leg.Ticker, pos.NetContracts+quantity, g.limits.MaxPositionPerMarket),
				MaxAllowedQuantity: max0(g.limits.MaxPositionPerMarket - pos.NetContracts),
			}
		}

		newMarketExposure := pos.MarketExposure + leg.Price*quantity
		if newMarketExposure > g.limits.MaxExposurePerMarketCents {
			return ExposureCheck{
				Allowed:            false,
				Reason:             fmt.Sprintf("would exceed per-market exposure for %s", leg.Ticker),
				MaxAllowedQuantity: maxQuantityForLimit(pos.MarketExposure, leg.Price, g.limits.MaxExposurePerMarketCents),
			}
		}
	}

	return ExposureCheck{Allowed: true, MaxAllowedQuantity: quantity}
}

// AdjustQuantityForLimits returns the largest quantity <= desired that
// CheckTrade approves: desired itself when approved, otherwise the result
// of a binary search over [0, desired].
func (g *ExposureGate) AdjustQuantityForLimits(opp types.Opportunity, desired int) int {
	if desired <= 0 {
		return 0
	}

	check := g.CheckTrade(opp, desired)
	if check.Allowed {
		return desired
	}

	low, high := 0, desired
	for low < high {
		mid := (low + high + 1) / 2
		if g.CheckTrade(opp, mid).Allowed {
			low = mid
		} else {
			high = mid - 1
		}
	}

	return low
}

// maxQuantityForLimit computes the largest q >= 0 such that
// current + perUnitCost*q <= limit, floored (rounding always toward the
// bot's disadvantage).
func maxQuantityForLimit(current, perUnitCost, limit int) int {
	if perUnitCost <= 0 {
		return 0
	}
	remaining := limit - current
	if remaining <= 0 {
		return 0
	}
	return remaining / perUnitCost
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
