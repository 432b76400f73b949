package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

func TestCorrelated_ImpliesViolation(t *testing.T) {
	markets := []types.Market{
		{Ticker: "RATE-HIKE-A", EventTicker: "EV"},
		{Ticker: "RATE-CUT-B", EventTicker: "EV"},
	}
	books := map[string]types.OrderBook{
		"RATE-HIKE-A": {Ticker: "RATE-HIKE-A", YesBids: []types.Level{{Price: 70, Quantity: 10}}},
		"RATE-CUT-B":  {Ticker: "RATE-CUT-B", NoBids: []types.Level{{Price: 50, Quantity: 10}}}, // implied ask 50
	}

	cfg := Config{
		MinProfitCents: 1,
		TakerFeeRate:   DefaultTakerFeeRate,
		CorrelationRules: []CorrelationRule{
			{PatternA: "RATE-HIKE-*", PatternB: "RATE-CUT-*", Relation: RelationImplies},
		},
	}

	opps := Correlated(markets, books, cfg)
	require.Len(t, opps, 1)
	require.Equal(t, types.OpportunityCorrelated, opps[0].Type)
	require.Equal(t, types.ActionSell, opps[0].Legs[0].Action)
}

func TestCorrelated_ExcludesViolation(t *testing.T) {
	markets := []types.Market{
		{Ticker: "X-A", EventTicker: "EV"},
		{Ticker: "X-B", EventTicker: "EV"},
	}
	books := map[string]types.OrderBook{
		"X-A": {Ticker: "X-A", NoBids: []types.Level{{Price: 65, Quantity: 10}}}, // implied ask 35
		"X-B": {Ticker: "X-B", NoBids: []types.Level{{Price: 70, Quantity: 10}}}, // implied ask 30
	}

	cfg := Config{
		MinProfitCents: 1,
		TakerFeeRate:   DefaultTakerFeeRate,
		CorrelationRules: []CorrelationRule{
			{PatternA: "X-A", PatternB: "X-B", Relation: RelationExcludes},
		},
	}

	opps := Correlated(markets, books, cfg)
	require.Len(t, opps, 1)
	require.Equal(t, 35, opps[0].NetProfit+opps[0].EstFees)
}

func TestCorrelated_NoRuleMatchProducesNoOpportunity(t *testing.T) {
	markets := []types.Market{
		{Ticker: "FOO", EventTicker: "EV"},
		{Ticker: "BAR", EventTicker: "EV"},
	}
	cfg := Config{
		CorrelationRules: []CorrelationRule{
			{PatternA: "RATE-HIKE-*", PatternB: "RATE-CUT-*", Relation: RelationImplies},
		},
	}

	opps := Correlated(markets, nil, cfg)
	require.Empty(t, opps)
}
