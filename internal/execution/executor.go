// Package execution submits the legs of an arbitrage opportunity as a
// coordinated order group: each leg goes out as an immediate-or-cancel limit
// order, the group's terminal status is derived from every leg's outcome,
// and any resting leg left behind by a partial fill is canceled.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/risk"
	"github.com/mselser95/kalshi-arb/internal/transport"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Config holds the executor's concurrency and submission-style knobs.
type Config struct {
	MaxConcurrentGroups int
	ParallelLegs        bool
}

// DefaultConfig matches spec §13's decision: parallel leg submission, three
// order groups in flight at once.
func DefaultConfig() Config {
	return Config{MaxConcurrentGroups: 3, ParallelLegs: true}
}

// Executor submits order groups against the venue, gated by a circuit
// breaker and exposure gate, bounded to cfg.MaxConcurrentGroups concurrent
// groups.
type Executor struct {
	rest    *transport.Client
	breaker *risk.CircuitBreaker
	gate    *risk.ExposureGate
	cfg     Config
	logger  *zap.Logger

	sem chan struct{}
}

// New creates an Executor. breaker and gate may be nil in tests that bypass
// risk checks; production callers must supply both.
func New(rest *transport.Client, breaker *risk.CircuitBreaker, gate *risk.ExposureGate, cfg Config, logger *zap.Logger) *Executor {
	if cfg.MaxConcurrentGroups <= 0 {
		cfg.MaxConcurrentGroups = 3
	}
	return &Executor{
		rest:    rest,
		breaker: breaker,
		gate:    gate,
		cfg:     cfg,
		logger:  logger,
		sem:     make(chan struct{}, cfg.MaxConcurrentGroups),
	}
}

// Execute submits opp's legs scaled to quantity as one order group. It
// blocks for a free concurrency slot, checks the circuit breaker and
// exposure gate, submits every leg, classifies the group's terminal status,
// cancels any leftover resting leg, and records the trade result with the
// circuit breaker.
func (e *Executor) Execute(ctx context.Context, opp types.Opportunity, quantity int) (types.OrderGroup, error) {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return types.OrderGroup{}, ctx.Err()
	}
	defer func() { <-e.sem }()

	start := time.Now()
	defer func() { executionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	if e.breaker != nil {
		if err := e.breaker.CheckAndAllow(); err != nil {
			rejectedByBreakerTotal.Inc()
			return types.OrderGroup{}, err
		}
	}

	if e.gate != nil {
		check := e.gate.CheckTrade(opp, quantity)
		if !check.Allowed {
			rejectedByExposureTotal.Inc()
			return types.OrderGroup{}, fmt.Errorf("exposure gate: %s", check.Reason)
		}
	}

	group := types.OrderGroup{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		Legs:          scaleLegs(opp.Legs, quantity),
		Status:        types.OrderGroupSubmitting,
	}
	groupsSubmittedTotal.Inc()

	e.logger.Info("order-group-submitting",
		zap.String("group_id", group.ID),
		zap.String("opportunity_id", opp.ID),
		zap.Int("legs", len(group.Legs)),
		zap.Int("quantity", quantity))

	orders, errs := e.submitLegs(ctx, group.ID, group.Legs)
	group.Orders = orders

	if failed := firstSubmissionError(group.Legs, errs); failed != nil {
		group.Status = types.OrderGroupFailed
		group.Error = failed.Error()
		e.cancelResting(ctx, group.Orders)
		e.finish(opp, group)
		return group, nil
	}

	group.Status = classifyGroup(group.Orders)
	if group.Status == types.OrderGroupPartial {
		e.cancelResting(ctx, group.Orders)
	}

	e.finish(opp, group)
	return group, nil
}

// finish records the realized result of group against the circuit breaker
// and emits terminal-status metrics and a structured log line.
func (e *Executor) finish(opp types.Opportunity, group types.OrderGroup) {
	groupsByStatus.WithLabelValues(string(group.Status)).Inc()

	profit := realizedProfit(opp, group)
	if e.breaker != nil {
		exposure := 0
		if e.gate != nil {
			exposure = e.gate.CurrentExposure()
		}
		e.breaker.RecordTradeResult(breakerCharge(opp, group, profit), exposure)
	}
	if profit > 0 {
		realizedProfitCents.Add(float64(profit))
	}

	e.logger.Info("order-group-finished",
		zap.String("group_id", group.ID),
		zap.String("status", string(group.Status)),
		zap.Int("profit_cents", profit))
}

// submitLegs submits every leg, in parallel or sequentially per cfg, and
// returns the resulting orders aligned by index with legs and a parallel
// slice of per-leg submission errors (nil entries on success).
func (e *Executor) submitLegs(ctx context.Context, groupID string, legs []types.Leg) ([]types.Order, []error) {
	orders := make([]types.Order, len(legs))
	errs := make([]error, len(legs))

	if !e.cfg.ParallelLegs {
		for i, leg := range legs {
			orders[i], errs[i] = e.submitLeg(ctx, groupID, leg)
		}
		return orders, errs
	}

	var wg sync.WaitGroup
	for i, leg := range legs {
		wg.Add(1)
		go func(i int, leg types.Leg) {
			defer wg.Done()
			orders[i], errs[i] = e.submitLeg(ctx, groupID, leg)
		}(i, leg)
	}
	wg.Wait()
	return orders, errs
}

type orderRequest struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Type          string `json:"type"`
	Count         int    `json:"count"`
	YesPrice      int    `json:"yes_price,omitempty"`
	NoPrice       int    `json:"no_price,omitempty"`
	ExpirationTS  int64  `json:"expiration_ts"`
}

type orderResponse struct {
	Order struct {
		OrderID        string `json:"order_id"`
		Status         string `json:"status"`
		RemainingCount int    `json:"remaining_count"`
	} `json:"order"`
}

// buildIOCOrder renders leg as an immediate-or-cancel limit order: a one
// second expiration standing in for a dedicated IOC flag until the venue's
// actual encoding is confirmed (spec §13b).
func buildIOCOrder(groupID string, leg types.Leg) orderRequest {
	req := orderRequest{
		Ticker:        leg.Ticker,
		ClientOrderID: fmt.Sprintf("%s-%s", groupID, leg.Ticker),
		Side:          string(leg.Side),
		Action:        string(leg.Action),
		Type:          string(types.OrderTypeLimit),
		Count:         leg.Quantity,
		ExpirationTS:  time.Now().Unix() + 1,
	}
	if leg.Side == types.SideYes {
		req.YesPrice = leg.Price
	} else {
		req.NoPrice = leg.Price
	}
	return req
}

// submitLeg POSTs one leg's IOC order and returns its resulting Order
// record. A venue error still yields whatever order state is known; callers
// distinguish submission failure via the returned error.
func (e *Executor) submitLeg(ctx context.Context, groupID string, leg types.Leg) (types.Order, error) {
	legsSubmittedTotal.Inc()

	req := buildIOCOrder(groupID, leg)

	var resp orderResponse
	err := e.rest.Post(ctx, "/portfolio/orders", req, &resp)
	if err != nil {
		legErrorsTotal.Inc()
		e.logger.Warn("order-leg-failed",
			zap.String("group_id", groupID),
			zap.String("ticker", leg.Ticker),
			zap.Error(err))
		return types.Order{
			ClientOrderID:  req.ClientOrderID,
			Ticker:         leg.Ticker,
			Side:           leg.Side,
			Action:         leg.Action,
			Type:           types.OrderTypeLimit,
			Status:         types.OrderStatusCanceled,
			Price:          leg.Price,
			Count:          leg.Quantity,
			RemainingCount: leg.Quantity,
		}, err
	}

	return types.Order{
		VenueOrderID:   resp.Order.OrderID,
		ClientOrderID:  req.ClientOrderID,
		Ticker:         leg.Ticker,
		Side:           leg.Side,
		Action:         leg.Action,
		Type:           types.OrderTypeLimit,
		Status:         parseOrderStatus(resp.Order.Status),
		Price:          leg.Price,
		Count:          leg.Quantity,
		RemainingCount: resp.Order.RemainingCount,
	}, nil
}

// cancelResting best-effort cancels every order left RESTING after a
// partial fill; it never returns an error since there is nothing further
// the caller can do about a failed cancel beyond logging it.
func (e *Executor) cancelResting(ctx context.Context, orders []types.Order) {
	for _, o := range orders {
		if o.Status != types.OrderStatusResting || o.VenueOrderID == "" {
			continue
		}
		if err := e.rest.Delete(ctx, "/portfolio/orders/"+o.VenueOrderID, nil); err != nil {
			e.logger.Warn("order-cancel-failed",
				zap.String("order_id", o.VenueOrderID),
				zap.String("ticker", o.Ticker),
				zap.Error(err))
		}
	}
}

func scaleLegs(legs []types.Leg, quantity int) []types.Leg {
	scaled := make([]types.Leg, len(legs))
	for i, l := range legs {
		scaled[i] = l
		scaled[i].Quantity = quantity
	}
	return scaled
}

func parseOrderStatus(s string) types.OrderStatus {
	switch s {
	case string(types.OrderStatusExecuted):
		return types.OrderStatusExecuted
	case string(types.OrderStatusPartial):
		return types.OrderStatusPartial
	case string(types.OrderStatusResting):
		return types.OrderStatusResting
	case string(types.OrderStatusCanceled):
		return types.OrderStatusCanceled
	default:
		return types.OrderStatusPending
	}
}

// classifyGroup derives the group's terminal status from its legs' orders:
// COMPLETE iff every leg fully filled, PARTIAL if at least one leg filled
// anything, FAILED if none did.
func classifyGroup(orders []types.Order) types.OrderGroupStatus {
	allFilled := true
	anyFilled := false

	for _, o := range orders {
		filled := o.Filled()
		if filled > 0 {
			anyFilled = true
		}
		if filled < o.Count {
			allFilled = false
		}
	}

	switch {
	case allFilled:
		return types.OrderGroupComplete
	case anyFilled:
		return types.OrderGroupPartial
	default:
		return types.OrderGroupFailed
	}
}

// firstSubmissionError returns the first non-nil submission error, or nil if
// every leg was at least submitted (a submitted-but-unfilled IOC leg is not
// a submission failure; it is reflected in the order's terminal status).
func firstSubmissionError(legs []types.Leg, errs []error) error {
	for i, err := range errs {
		if err == nil {
			continue
		}
		return fmt.Errorf("submit %s: %w", legs[i].Ticker, err)
	}
	return nil
}

// realizedProfit scales opp.NetProfit (a per-contract figure) by the
// minimum fill count across legs: a partially filled group only realizes
// profit on the quantity every leg actually matched.
func realizedProfit(opp types.Opportunity, group types.OrderGroup) int {
	if len(group.Orders) == 0 {
		return 0
	}

	minFilled := group.Orders[0].Filled()
	for _, o := range group.Orders[1:] {
		if o.Filled() < minFilled {
			minFilled = o.Filled()
		}
	}
	if minFilled <= 0 {
		return 0
	}

	return opp.NetProfit * minFilled
}

// breakerCharge is the profit figure recorded against the circuit breaker:
// the realized profit on a COMPLETE group, or a worst-case charge of
// -opp.TotalCost on any PARTIAL or FAILED group, mirroring the source
// engine's success/failure split (§4.9, §4.13) rather than the realized
// profit, which for a non-COMPLETE group is 0 when some leg filled nothing
// and otherwise covers only the matched quantity, and would be mistaken for
// a win or a break-even.
func breakerCharge(opp types.Opportunity, group types.OrderGroup, realized int) int {
	if group.Status == types.OrderGroupComplete {
		return realized
	}
	return -opp.TotalCost
}
