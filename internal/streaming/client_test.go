package streaming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

func TestBackoffFor_CapsAtSixtySeconds(t *testing.T) {
	require.Equal(t, 2*time.Second, backoffFor(1))
	require.Equal(t, 4*time.Second, backoffFor(2))
	require.Equal(t, 32*time.Second, backoffFor(5))
	require.Equal(t, 60*time.Second, backoffFor(6))
	require.Equal(t, 60*time.Second, backoffFor(10))
}

type fakeSink struct {
	snapshots map[string][2][]types.Level
	deltas    []deltaCall
}

type deltaCall struct {
	ticker   string
	side     types.Side
	price    int
	quantity int
}

func (f *fakeSink) InstallSnapshot(ticker string, yes, no []types.Level) {
	if f.snapshots == nil {
		f.snapshots = map[string][2][]types.Level{}
	}
	f.snapshots[ticker] = [2][]types.Level{yes, no}
}

func (f *fakeSink) ApplyDelta(ticker string, side types.Side, price, quantity int) {
	f.deltas = append(f.deltas, deltaCall{ticker, side, price, quantity})
}

func TestClient_HandleSnapshotAndDelta(t *testing.T) {
	sink := &fakeSink{}
	c := New("wss://example/ws", nil, sink, zaptest.NewLogger(t), nil)

	c.handleMessage([]byte(`{"type":"orderbook_snapshot","market_ticker":"ABC","yes":[[40,100]],"no":[[60,100]]}`))
	require.Len(t, sink.snapshots["ABC"][0], 1)
	require.Equal(t, 40, sink.snapshots["ABC"][0][0].Price)

	c.handleMessage([]byte(`{"type":"orderbook_delta","market_ticker":"ABC","side":"no","price":61,"quantity":50}`))
	require.Len(t, sink.deltas, 1)
	require.Equal(t, types.SideNo, sink.deltas[0].side)
	require.Equal(t, 61, sink.deltas[0].price)
}
