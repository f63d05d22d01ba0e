package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
)

func newTestCollector(t *testing.T) (*Collector, string) {
	t.Helper()
	dir := t.TempDir()
	c := NewCollector(
		filepath.Join(dir, "trades.csv"),
		filepath.Join(dir, "latency.csv"),
		filepath.Join(dir, "pnl.csv"),
		zap.NewNop(),
	)
	return c, dir
}

func fill(strategy sim.StrategyID, side sim.OrderSide, price float64, qty sim.Quantity) sim.SimulatedTrade {
	return sim.SimulatedTrade{
		Timestamp:       1_000_000_000,
		StrategyID:      strategy,
		Symbol:          "EURUSD",
		Side:            side,
		Price:           price,
		Quantity:        qty,
		ClientOrderID:   1,
		ExchangeOrderID: 1,
	}
}

func TestRecordTradeUpdatesPnL(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordTrade(fill("s1", sim.SideBuy, 100, 10))

	pnl, ok := c.PnLFor("s1", "EURUSD")
	require.True(t, ok)
	assert.EqualValues(t, 10, pnl.CurrentPosition)
	assert.Equal(t, 1000.0, pnl.TotalVolumeTraded)
	assert.Equal(t, 0.0, pnl.RealizedPnL)
}

func TestPnLAverageCostRealization(t *testing.T) {
	c, _ := newTestCollector(t)

	// Build a long position at two prices, then sell half.
	c.UpdatePnL("s1", "EURUSD", 100, 10, sim.SideBuy)
	c.UpdatePnL("s1", "EURUSD", 110, 10, sim.SideBuy) // avg cost 105
	c.UpdatePnL("s1", "EURUSD", 120, 10, sim.SideSell)

	pnl, ok := c.PnLFor("s1", "EURUSD")
	require.True(t, ok)
	assert.EqualValues(t, 10, pnl.CurrentPosition)
	assert.InDelta(t, 150.0, pnl.RealizedPnL, 1e-9, "(120-105)*10")
}

func TestPnLShortCover(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePnL("s1", "EURUSD", 100, 5, sim.SideSell)
	c.UpdatePnL("s1", "EURUSD", 90, 5, sim.SideBuy)

	pnl, ok := c.PnLFor("s1", "EURUSD")
	require.True(t, ok)
	assert.EqualValues(t, 0, pnl.CurrentPosition)
	assert.InDelta(t, 50.0, pnl.RealizedPnL, 1e-9, "(100-90)*5")
}

func TestPnLFlipThroughFlat(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePnL("s1", "EURUSD", 100, 5, sim.SideBuy)
	c.UpdatePnL("s1", "EURUSD", 104, 8, sim.SideSell)

	pnl, ok := c.PnLFor("s1", "EURUSD")
	require.True(t, ok)
	assert.EqualValues(t, -3, pnl.CurrentPosition)
	assert.InDelta(t, 20.0, pnl.RealizedPnL, 1e-9, "only the closed 5 units realize")
}

func TestPnLKeyedPerStrategyAndSymbol(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePnL("s1", "EURUSD", 100, 5, sim.SideBuy)
	c.UpdatePnL("s2", "EURUSD", 100, 7, sim.SideBuy)
	c.UpdatePnL("s1", "GBPUSD", 100, 9, sim.SideSell)

	p1, _ := c.PnLFor("s1", "EURUSD")
	p2, _ := c.PnLFor("s2", "EURUSD")
	p3, _ := c.PnLFor("s1", "GBPUSD")
	assert.EqualValues(t, 5, p1.CurrentPosition)
	assert.EqualValues(t, 7, p2.CurrentPosition)
	assert.EqualValues(t, -9, p3.CurrentPosition)
}

func TestReportFinalMetricsWritesHeaders(t *testing.T) {
	c, dir := newTestCollector(t)
	c.ReportFinalMetrics()

	trades, err := os.ReadFile(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	assert.Equal(t, "TimestampNS,StrategyID,Symbol,Side,Price,Quantity,ClientOrderID,ExchangeOrderID\n", string(trades))

	latency, err := os.ReadFile(filepath.Join(dir, "latency.csv"))
	require.NoError(t, err)
	assert.Equal(t, "EventTimestampNS,SourceDescription,LatencyNS,Notes\n", string(latency))

	pnl, err := os.ReadFile(filepath.Join(dir, "pnl.csv"))
	require.NoError(t, err)
	assert.Equal(t, "StrategyID,Symbol,FinalPosition,TotalVolumeTraded,RealizedPnL,UnrealizedPnL\n", string(pnl))
}

func TestReportFinalMetricsWritesRows(t *testing.T) {
	c, dir := newTestCollector(t)

	c.RecordTrade(fill("s1", sim.SideBuy, 1.07105, 1000))
	c.RecordLatency("s1_OrderFillAckLatency", 55*time.Microsecond, 1_000_000_001, "OrderDecisionToFillAck")
	c.ReportFinalMetrics()

	trades, err := os.ReadFile(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(trades)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1000000000,s1,EURUSD,BUY,1.07105,1000,1,1", lines[1])

	latency, err := os.ReadFile(filepath.Join(dir, "latency.csv"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(latency)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1000000001,s1_OrderFillAckLatency,55000,OrderDecisionToFillAck", lines[1])

	pnl, err := os.ReadFile(filepath.Join(dir, "pnl.csv"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(pnl)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "s1,EURUSD,1000,1071.05,0.00,0.00", lines[1])
}

func TestReportFinalMetricsIdempotent(t *testing.T) {
	c, dir := newTestCollector(t)
	c.RecordTrade(fill("s1", sim.SideBuy, 100, 1))

	c.ReportFinalMetrics()
	c.RecordTrade(fill("s1", sim.SideBuy, 100, 1))
	c.ReportFinalMetrics()

	trades, err := os.ReadFile(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(trades)), "\n")
	assert.Len(t, lines, 2, "second report must not rewrite the files")
}

type capturingPublisher struct {
	trades []sim.SimulatedTrade
}

func (p *capturingPublisher) PublishTrade(trade sim.SimulatedTrade) error {
	p.trades = append(p.trades, trade)
	return nil
}

func TestRecordTradeForwardsToPublisher(t *testing.T) {
	c, _ := newTestCollector(t)
	pub := &capturingPublisher{}
	c.SetPublisher(pub)

	c.RecordTrade(fill("s1", sim.SideSell, 99.5, 42))

	require.Len(t, pub.trades, 1)
	assert.Equal(t, sim.SideSell, pub.trades[0].Side)
	assert.EqualValues(t, 42, pub.trades[0].Quantity)
}
