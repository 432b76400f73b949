package arbitrage

import (
	"math"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// DefaultTakerFeeRate is 0.7% of potential profit on the winning leg, the
// venue's published taker fee.
const DefaultTakerFeeRate = 0.007

// EstimateFees computes the conservative upper-bound fee for a set of legs:
// for every BUY leg, ceil(rate * (100 - price) * quantity), and takes the
// maximum across legs since exactly one leg is expected to win in a
// multi-outcome trade. Losing legs pay no fee. Rounding is always toward the
// bot's disadvantage (ceil).
func EstimateFees(legs []types.Leg, rate float64) int {
	maxFee := 0
	for _, leg := range legs {
		if leg.Action != types.ActionBuy {
			continue
		}
		fee := int(math.Ceil(rate * float64(100-leg.Price) * float64(leg.Quantity)))
		if fee > maxFee {
			maxFee = fee
		}
	}
	return maxFee
}
