// Package ledger owns the account balance, per-ticker positions, and recent
// fills, refreshed on the engine's periodic sync tick. All other components
// read cached snapshots; the ledger is the sole writer.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/transport"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Ledger caches balance, positions, and recent fills, and computes FIFO
// realized P&L and total exposure from them.
type Ledger struct {
	rest   *transport.Client
	logger *zap.Logger

	mu        sync.RWMutex
	balance   int
	positions map[string]types.Position
	fills     []types.Fill
}

// New creates a Ledger backed by rest.
func New(rest *transport.Client, logger *zap.Logger) *Ledger {
	return &Ledger{
		rest:      rest,
		logger:    logger,
		positions: make(map[string]types.Position),
	}
}

type balanceResponse struct {
	Balance int `json:"balance"`
}

type positionsResponse struct {
	MarketPositions []struct {
		Ticker             string `json:"ticker"`
		Position           int    `json:"position"`
		MarketExposure     int    `json:"market_exposure"`
		RestingOrdersCount int    `json:"resting_orders_count"`
	} `json:"market_positions"`
}

type fillsResponse struct {
	Fills []struct {
		FillID      string `json:"fill_id"`
		OrderID     string `json:"order_id"`
		Ticker      string `json:"ticker"`
		Side        string `json:"side"`
		Action      string `json:"action"`
		Price       int    `json:"price"`
		Count       int    `json:"count"`
		CreatedTime string `json:"created_time"`
		IsTaker     bool   `json:"is_taker"`
	} `json:"fills"`
}

// Sync refreshes balance, positions, and recent fills from the venue. It is
// the only method that mutates the ledger's cached state.
func (l *Ledger) Sync(ctx context.Context) error {
	var bal balanceResponse
	if err := l.rest.Get(ctx, "/portfolio/balance", &bal); err != nil {
		return err
	}

	var pos positionsResponse
	if err := l.rest.Get(ctx, "/portfolio/positions", &pos); err != nil {
		return err
	}

	var fillsResp fillsResponse
	if err := l.rest.Get(ctx, "/portfolio/fills?limit=100", &fillsResp); err != nil {
		return err
	}

	positions := make(map[string]types.Position, len(pos.MarketPositions))
	for _, p := range pos.MarketPositions {
		positions[p.Ticker] = types.Position{
			Ticker:             p.Ticker,
			NetContracts:       p.Position,
			MarketExposure:     p.MarketExposure,
			RestingOrdersCount: p.RestingOrdersCount,
		}
	}

	fills := make([]types.Fill, 0, len(fillsResp.Fills))
	for _, f := range fillsResp.Fills {
		side := types.SideYes
		if f.Side == string(types.SideNo) {
			side = types.SideNo
		}
		action := types.ActionBuy
		if f.Action == string(types.ActionSell) {
			action = types.ActionSell
		}
		createdTime, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			l.logger.Warn("fill-created-time-unparseable", zap.String("fill_id", f.FillID), zap.String("created_time", f.CreatedTime))
		}

		fills = append(fills, types.Fill{
			ID:          f.FillID,
			OrderID:     f.OrderID,
			Ticker:      f.Ticker,
			Side:        side,
			Action:      action,
			Price:       f.Price,
			Count:       f.Count,
			CreatedTime: createdTime,
			IsTaker:     f.IsTaker,
		})
	}

	l.mu.Lock()
	l.balance = bal.Balance
	l.positions = positions
	l.fills = fills
	l.mu.Unlock()

	ledgerBalanceCents.Set(float64(bal.Balance))
	ledgerPositionsCount.Set(float64(len(positions)))
	ledgerExposureCents.Set(float64(l.TotalExposure()))

	l.logger.Info("ledger-synced", zap.Int("positions", len(positions)), zap.Int("fills", len(fills)))
	return nil
}

// Balance returns the last-synced account balance in cents.
func (l *Ledger) Balance() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance
}

// Position returns the cached position for ticker, or the zero value if
// there is none.
func (l *Ledger) Position(ticker string) types.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.positions[ticker]
}

// Positions returns every cached position with a non-zero net contract
// count, sorted by ticker.
func (l *Ledger) Positions() []types.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	positions := make([]types.Position, 0, len(l.positions))
	for _, p := range l.positions {
		if p.NetContracts != 0 {
			positions = append(positions, p)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Ticker < positions[j].Ticker })
	return positions
}

// TotalExposure is the sum of market_exposure over every cached position.
func (l *Ledger) TotalExposure() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0
	for _, p := range l.positions {
		total += p.MarketExposure
	}
	return total
}

// PnL is the realized profit-and-loss and fees accumulated from the cached
// fills buffer, matched FIFO per ticker.
type PnL struct {
	RealizedCents int
	FeesCents     int
	Trades        int
}

// RealizedPnL computes FIFO-matched realized P&L per ticker: for each closed
// buy/sell pair, profit is (sell_price - buy_price) * matched_count. Fees
// are accumulated per fill using feeRate on the winning-side potential
// profit.
func (l *Ledger) RealizedPnL(feeRate float64) PnL {
	l.mu.RLock()
	fills := make([]types.Fill, len(l.fills))
	copy(fills, l.fills)
	l.mu.RUnlock()

	byTicker := map[string][]types.Fill{}
	for _, f := range fills {
		byTicker[f.Ticker] = append(byTicker[f.Ticker], f)
	}

	var result PnL
	for _, tickerFills := range byTicker {
		realized, fees := fifoMatch(tickerFills, feeRate)
		result.RealizedCents += realized
		result.FeesCents += fees
		result.Trades += len(tickerFills)
	}
	return result
}

type lot struct {
	price int
	count int
}

func fifoMatch(fills []types.Fill, feeRate float64) (realized, fees int) {
	sorted := make([]types.Fill, len(fills))
	copy(sorted, fills)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedTime.Before(sorted[j].CreatedTime) })

	var buys, sells []lot

	for _, f := range sorted {
		if f.Action == types.ActionBuy {
			buys = append(buys, lot{price: f.Price, count: f.Count})
			fees += int(float64(100-f.Price) * feeRate * float64(f.Count))
		} else {
			sells = append(sells, lot{price: f.Price, count: f.Count})
			fees += int(float64(f.Price) * feeRate * float64(f.Count))
		}
	}

	for len(buys) > 0 && len(sells) > 0 {
		matched := min(buys[0].count, sells[0].count)
		realized += (sells[0].price - buys[0].price) * matched

		buys[0].count -= matched
		if buys[0].count == 0 {
			buys = buys[1:]
		}
		sells[0].count -= matched
		if sells[0].count == 0 {
			sells = sells[1:]
		}
	}

	return realized, fees
}
