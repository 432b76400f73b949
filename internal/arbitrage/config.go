package arbitrage

// Relation is the kind of logical relationship a CorrelationRule asserts
// between two glob-matched ticker patterns.
type Relation string

const (
	RelationImplies    Relation = "implies"
	RelationExcludes   Relation = "excludes"
	RelationEquivalent Relation = "equivalent"
)

// CorrelationRule pairs two glob-style ticker patterns with the logical
// relationship that must hold between them.
type CorrelationRule struct {
	PatternA string
	PatternB string
	Relation Relation
}

// Config holds every threshold the strategies and fee estimator need. It is
// populated from the process configuration (min_profit_cents etc.).
type Config struct {
	MinProfitCents    int
	TakerFeeRate      float64
	MinPriceDiffCents int
	CorrelationRules  []CorrelationRule
}
