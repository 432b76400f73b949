// Package book holds the Book Store: the single owner of every market's
// reconciled order-book, fed by REST snapshots and streaming deltas.
package book

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

const updateChannelCapacity = 100000

// Update is a change notification published after a mutation lock is
// released, so subscriber callbacks can never deadlock against the store.
type Update struct {
	Ticker string
	Book   types.OrderBook
}

// Store maintains ticker -> OrderBook and publishes notifications on every
// mutation. It is the exclusive owner of order-book records; callers receive
// immutable copies.
type Store struct {
	mu     sync.RWMutex
	books  map[string]types.OrderBook
	logger *zap.Logger
	update chan Update
}

// New creates an empty Store.
func New(logger *zap.Logger) *Store {
	return &Store{
		books:  make(map[string]types.OrderBook),
		logger: logger,
		update: make(chan Update, updateChannelCapacity),
	}
}

// Updates returns the channel of change notifications. Consumers must drain
// it promptly; a full channel causes the Store to drop and log, never to
// block a mutation.
func (s *Store) Updates() <-chan Update {
	return s.update
}

// InstallSnapshot atomically replaces the stored book for ticker and fires a
// change notification.
func (s *Store) InstallSnapshot(ticker string, yes, no []types.Level) {
	book := types.OrderBook{
		Ticker:    ticker,
		YesBids:   sortedCopy(yes),
		NoBids:    sortedCopy(no),
		Timestamp: time.Now(),
	}

	s.mu.Lock()
	s.books[ticker] = book
	s.mu.Unlock()

	snapshotsTracked.Set(float64(s.count()))
	updatesTotal.WithLabelValues("snapshot").Inc()

	s.publish(Update{Ticker: ticker, Book: book})
}

// ApplyDelta sets the absolute quantity at price on side for ticker. A
// quantity of 0 removes the level. Unknown tickers are dropped (not an
// error): deltas can race snapshots, and the next snapshot is authoritative.
func (s *Store) ApplyDelta(ticker string, side types.Side, price, quantity int) {
	start := time.Now()

	s.mu.Lock()
	book, ok := s.books[ticker]
	if !ok {
		s.mu.Unlock()
		s.logger.Info("book-delta-dropped-unknown-ticker", zap.String("ticker", ticker))
		updatesDroppedTotal.WithLabelValues("unknown_ticker").Inc()
		return
	}

	switch side {
	case types.SideYes:
		book.YesBids = applyLevel(append([]types.Level(nil), book.YesBids...), price, quantity)
	case types.SideNo:
		book.NoBids = applyLevel(append([]types.Level(nil), book.NoBids...), price, quantity)
	}
	book.Timestamp = time.Now()
	s.books[ticker] = book
	s.mu.Unlock()

	updateProcessingDuration.Observe(time.Since(start).Seconds())
	updatesTotal.WithLabelValues("delta").Inc()

	s.publish(Update{Ticker: ticker, Book: book})
}

// publish sends the update on the notification channel without blocking the
// caller; on a full channel it drops and logs at Error level rather than stall
// the mutation path.
func (s *Store) publish(u Update) {
	select {
	case s.update <- u:
	default:
		s.logger.Error("book-update-channel-full-dropping-update", zap.String("ticker", u.Ticker))
		updatesDroppedTotal.WithLabelValues("channel_full").Inc()
	}
}

// Get returns a snapshot copy of the book for ticker, or false if unknown.
func (s *Store) Get(ticker string) (types.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[ticker]
	return b, ok
}

func (s *Store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// applyLevel sets the absolute quantity at price, removing the level if
// quantity is 0, keeping the ladder sorted price-descending with unique
// prices.
func applyLevel(levels []types.Level, price, quantity int) []types.Level {
	idx := sort.Search(len(levels), func(i int) bool { return levels[i].Price <= price })

	found := idx < len(levels) && levels[idx].Price == price

	if quantity <= 0 {
		if found {
			return append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	if found {
		levels[idx].Quantity = quantity
		return levels
	}

	levels = append(levels, types.Level{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = types.Level{Price: price, Quantity: quantity}
	return levels
}

func sortedCopy(levels []types.Level) []types.Level {
	out := make([]types.Level, 0, len(levels))
	for _, l := range levels {
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}
