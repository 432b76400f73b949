// Package arbitrage implements the three pure detection strategies and the
// detector that orchestrates, ranks, and revalidates their output.
package arbitrage

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// MultiOutcome applies when event has 2-10 mutually exclusive markets. It
// reads the best implied YES ask on every market; if any is missing or
// zero, no opportunity is produced. An opportunity exists iff the asks sum
// to less than 100, since exactly one leg resolves to 100 and the rest to 0.
func MultiOutcome(event types.Event, books map[string]types.OrderBook, cfg Config) []types.Opportunity {
	n := len(event.Markets)
	if n < 2 || n > 10 {
		return nil
	}

	legs := make([]types.Leg, 0, n)
	totalCost := 0
	minQty := -1
	sumQty := 0

	for _, m := range event.Markets {
		book, ok := books[m.Ticker]
		if !ok {
			return nil
		}
		ask, qty := book.ImpliedYesAsk()
		if ask <= 0 || qty <= 0 {
			return nil
		}

		legs = append(legs, types.Leg{Ticker: m.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: ask, Quantity: 1})
		totalCost += ask
		sumQty += qty
		if minQty == -1 || qty < minQty {
			minQty = qty
		}
	}

	if totalCost >= 100 {
		return nil
	}

	grossProfit := 100 - totalCost
	estFees := EstimateFees(legs, cfg.TakerFeeRate)
	netProfit := grossProfit - estFees
	if netProfit < cfg.MinProfitCents || minQty < 1 {
		return nil
	}

	avgQty := float64(sumQty) / float64(n)
	confidence := 0.5*1.0 + 0.5*minFloat(avgQty/100.0, 1.0)

	return []types.Opportunity{{
		ID:               uuid.NewString(),
		Type:             types.OpportunityMultiOutcome,
		EventTicker:      event.Ticker,
		Legs:             legs,
		TotalCost:        totalCost,
		GuaranteedReturn: 100,
		GrossProfit:      grossProfit,
		EstFees:          estFees,
		NetProfit:        netProfit,
		MaxQuantity:      minQty,
		DetectedAt:       time.Now(),
		Confidence:       confidence,
	}}
}

// Temporal applies to consecutive pairs of markets on the same underlying
// event, ordered by expiration. If the early market's YES bid exceeds the
// late market's implied YES ask by at least MinPriceDiffCents, selling the
// early position is covered by buying the late one: if early resolves YES,
// late must also resolve YES.
func Temporal(event types.Event, books map[string]types.OrderBook, cfg Config) []types.Opportunity {
	markets := make([]types.Market, 0, len(event.Markets))
	for _, m := range event.Markets {
		if m.ExpirationTime != nil {
			markets = append(markets, m)
		}
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].ExpirationTime.Before(*markets[j].ExpirationTime)
	})

	var out []types.Opportunity

	for i := 0; i+1 < len(markets); i++ {
		early, late := markets[i], markets[i+1]
		if !early.ExpirationTime.Before(*late.ExpirationTime) {
			continue
		}

		earlyBook, ok := books[early.Ticker]
		if !ok {
			continue
		}
		lateBook, ok := books[late.Ticker]
		if !ok {
			continue
		}

		bidEarly := earlyBook.BestYesBid()
		askLate, askLateQty := lateBook.ImpliedYesAsk()
		if bidEarly.Price <= 0 || askLate <= 0 {
			continue
		}

		diff := bidEarly.Price - askLate
		if diff < cfg.MinPriceDiffCents {
			continue
		}

		maxQty := minInt(bidEarly.Quantity, askLateQty)
		if maxQty < 1 {
			continue
		}

		legs := []types.Leg{
			{Ticker: early.Ticker, Side: types.SideYes, Action: types.ActionSell, Price: bidEarly.Price, Quantity: 1},
			{Ticker: late.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: askLate, Quantity: 1},
		}

		grossProfit := diff
		estFees := EstimateFees(legs, cfg.TakerFeeRate)
		netProfit := grossProfit - estFees
		if netProfit < cfg.MinProfitCents {
			continue
		}

		out = append(out, types.Opportunity{
			ID:               uuid.NewString(),
			Type:             types.OpportunityTimeBased,
			EventTicker:      event.Ticker,
			Legs:             legs,
			TotalCost:        askLate,
			GuaranteedReturn: bidEarly.Price,
			GrossProfit:      grossProfit,
			EstFees:          estFees,
			NetProfit:        netProfit,
			MaxQuantity:      maxQty,
			DetectedAt:       time.Now(),
			Confidence:       minFloat(float64(maxQty)/100.0, 1.0),
		})
	}

	return out
}

// Correlated operates on pairs of markets matched by a CorrelationRule.
// Matching tries both orderings of the pair against the rule's two glob
// patterns.
func Correlated(markets []types.Market, books map[string]types.OrderBook, cfg Config) []types.Opportunity {
	var out []types.Opportunity

	for _, rule := range cfg.CorrelationRules {
		for i := range markets {
			for j := range markets {
				if i == j {
					continue
				}
				a, b := markets[i], markets[j]
				if !globMatch(rule.PatternA, a.Ticker) || !globMatch(rule.PatternB, b.Ticker) {
					continue
				}

				opp := evalCorrelation(rule, a, b, books, cfg)
				if opp != nil {
					out = append(out, *opp)
				}
			}
		}
	}

	return out
}

func evalCorrelation(rule CorrelationRule, a, b types.Market, books map[string]types.OrderBook, cfg Config) *types.Opportunity {
	bookA, ok := books[a.Ticker]
	if !ok {
		return nil
	}
	bookB, ok := books[b.Ticker]
	if !ok {
		return nil
	}

	switch rule.Relation {
	case RelationImplies:
		return evalImplies(a, b, bookA, bookB, cfg)
	case RelationExcludes:
		return evalExcludes(a, b, bookA, bookB, cfg)
	case RelationEquivalent:
		return evalEquivalent(a, b, bookA, bookB, cfg)
	default:
		return nil
	}
}

// evalImplies: A implies B. Violation when bid_A > ask_B: sell the
// overpriced implication, buy the cheaper implied contract.
func evalImplies(a, b types.Market, bookA, bookB types.OrderBook, cfg Config) *types.Opportunity {
	bidA := bookA.BestYesBid()
	askB, askBQty := bookB.ImpliedYesAsk()
	if bidA.Price <= 0 || askB <= 0 {
		return nil
	}
	if bidA.Price <= askB {
		return nil
	}

	legs := []types.Leg{
		{Ticker: a.Ticker, Side: types.SideYes, Action: types.ActionSell, Price: bidA.Price, Quantity: 1},
		{Ticker: b.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: askB, Quantity: 1},
	}
	return buildCorrelatedOpportunity(a.EventTicker, legs, askB, bidA.Price, bidA.Price-askB, minInt(bidA.Quantity, askBQty), cfg)
}

// evalExcludes: A excludes B (mutually exclusive). Violation when
// ask_A + ask_B < 100: structurally identical to a 2-leg multi-outcome.
func evalExcludes(a, b types.Market, bookA, bookB types.OrderBook, cfg Config) *types.Opportunity {
	askA, askAQty := bookA.ImpliedYesAsk()
	askB, askBQty := bookB.ImpliedYesAsk()
	if askA <= 0 || askB <= 0 {
		return nil
	}
	totalCost := askA + askB
	if totalCost >= 100 {
		return nil
	}

	legs := []types.Leg{
		{Ticker: a.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: askA, Quantity: 1},
		{Ticker: b.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: askB, Quantity: 1},
	}
	return buildCorrelatedOpportunity(a.EventTicker, legs, totalCost, 100, 100-totalCost, minInt(askAQty, askBQty), cfg)
}

// evalEquivalent: A and B are the same claim under different tickers.
// Violation when either side's bid-ask spread across the pair meets the
// configured threshold; sell the high bid, buy the low ask.
func evalEquivalent(a, b types.Market, bookA, bookB types.OrderBook, cfg Config) *types.Opportunity {
	bidA := bookA.BestYesBid()
	bidB := bookB.BestYesBid()
	askAFromB, askAFromBQty := bookB.ImpliedYesAsk()
	askBFromA, askBFromAQty := bookA.ImpliedYesAsk()

	if bidA.Price > 0 && askAFromB > 0 {
		if diff := bidA.Price - askAFromB; diff >= cfg.MinPriceDiffCents {
			legs := []types.Leg{
				{Ticker: a.Ticker, Side: types.SideYes, Action: types.ActionSell, Price: bidA.Price, Quantity: 1},
				{Ticker: b.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: askAFromB, Quantity: 1},
			}
			return buildCorrelatedOpportunity(a.EventTicker, legs, askAFromB, bidA.Price, diff, minInt(bidA.Quantity, askAFromBQty), cfg)
		}
	}

	if bidB.Price > 0 && askBFromA > 0 {
		if diff := bidB.Price - askBFromA; diff >= cfg.MinPriceDiffCents {
			legs := []types.Leg{
				{Ticker: b.Ticker, Side: types.SideYes, Action: types.ActionSell, Price: bidB.Price, Quantity: 1},
				{Ticker: a.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: askBFromA, Quantity: 1},
			}
			return buildCorrelatedOpportunity(a.EventTicker, legs, askBFromA, bidB.Price, diff, minInt(bidB.Quantity, askBFromAQty), cfg)
		}
	}

	return nil
}

func buildCorrelatedOpportunity(eventTicker string, legs []types.Leg, totalCost, guaranteedReturn, grossProfit, maxQty int, cfg Config) *types.Opportunity {
	if maxQty < 1 {
		return nil
	}

	estFees := EstimateFees(legs, cfg.TakerFeeRate)
	netProfit := grossProfit - estFees
	if netProfit < cfg.MinProfitCents {
		return nil
	}

	return &types.Opportunity{
		ID:               uuid.NewString(),
		Type:             types.OpportunityCorrelated,
		EventTicker:      eventTicker,
		Legs:             legs,
		TotalCost:        totalCost,
		GuaranteedReturn: guaranteedReturn,
		GrossProfit:      grossProfit,
		EstFees:          estFees,
		NetProfit:        netProfit,
		MaxQuantity:      maxQty,
		DetectedAt:       time.Now(),
		Confidence:       minFloat(float64(maxQty)/100.0, 1.0),
	}
}

func globMatch(pattern, ticker string) bool {
	ok, err := filepath.Match(pattern, ticker)
	if err != nil {
		return false
	}
	return ok
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
