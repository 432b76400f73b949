package arbitrage

import (
	"fmt"
	"sort"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// StrategyName selects which strategies a Detector runs.
type StrategyName string

const (
	StrategyMultiOutcome StrategyName = "multi_outcome"
	StrategyTemporal     StrategyName = "temporal"
	StrategyCorrelated   StrategyName = "correlated"
)

// Detector coordinates the enabled strategies over a (markets, books) pair,
// collects candidates, and ranks them.
type Detector struct {
	enabled map[StrategyName]bool
	cfg     Config
}

// New creates a Detector running the given strategies.
func New(cfg Config, enabled ...StrategyName) *Detector {
	m := make(map[StrategyName]bool, len(enabled))
	for _, s := range enabled {
		m[s] = true
	}
	return &Detector{enabled: m, cfg: cfg}
}

// Scan runs every enabled strategy against event/markets and returns all
// profitable candidates found, in no particular order; use BestOf to rank.
func (d *Detector) Scan(events []types.Event, books map[string]types.OrderBook) []types.Opportunity {
	var out []types.Opportunity

	var allMarkets []types.Market
	for _, e := range events {
		allMarkets = append(allMarkets, e.Markets...)

		if d.enabled[StrategyMultiOutcome] {
			out = append(out, MultiOutcome(e, books, d.cfg)...)
		}
		if d.enabled[StrategyTemporal] {
			out = append(out, Temporal(e, books, d.cfg)...)
		}
	}

	if d.enabled[StrategyCorrelated] {
		out = append(out, Correlated(allMarkets, books, d.cfg)...)
	}

	RecordDetected(out)
	return out
}

// BestOf ranks profitable candidates by the lexicographic key
// (net_profit, confidence, max_quantity), highest first.
func BestOf(candidates []types.Opportunity) []types.Opportunity {
	ranked := make([]types.Opportunity, len(candidates))
	copy(ranked, candidates)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.NetProfit != b.NetProfit {
			return a.NetProfit > b.NetProfit
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.MaxQuantity > b.MaxQuantity
	})

	return ranked
}

// Validate re-reads current book prices and confirms the opportunity is
// still executable: every BUY leg's implied ask must be no worse than its
// committed price, every SELL leg's bid must be no worse, and every leg's
// required quantity must still be available at the quoted level. This is a
// hard gate immediately before submission.
func Validate(opp types.Opportunity, books map[string]types.OrderBook, quantity int) error {
	for _, leg := range opp.Legs {
		book, ok := books[leg.Ticker]
		if !ok {
			return fmt.Errorf("validate %s: no current book", leg.Ticker)
		}

		var currentPrice, currentQty int
		switch leg.Side {
		case types.SideYes:
			if leg.Action == types.ActionBuy {
				currentPrice, currentQty = book.ImpliedYesAsk()
			} else {
				best := book.BestYesBid()
				currentPrice, currentQty = best.Price, best.Quantity
			}
		case types.SideNo:
			if leg.Action == types.ActionBuy {
				currentPrice, currentQty = book.ImpliedNoAsk()
			} else {
				best := book.BestNoBid()
				currentPrice, currentQty = best.Price, best.Quantity
			}
		}

		if currentPrice <= 0 {
			return fmt.Errorf("validate %s: no current price", leg.Ticker)
		}

		if leg.Action == types.ActionBuy && currentPrice > leg.Price {
			return fmt.Errorf("validate %s: ask moved from %d to %d", leg.Ticker, leg.Price, currentPrice)
		}
		if leg.Action == types.ActionSell && currentPrice < leg.Price {
			return fmt.Errorf("validate %s: bid moved from %d to %d", leg.Ticker, leg.Price, currentPrice)
		}

		if currentQty < quantity {
			return fmt.Errorf("validate %s: only %d available, need %d", leg.Ticker, currentQty, quantity)
		}
	}

	return nil
}
