package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
)

func TestStoreSaveRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	trades := []sim.SimulatedTrade{
		fill("s1", sim.SideBuy, 1.07105, 1000),
		fill("s1", sim.SideSell, 1.07110, 500),
	}
	latency := []LatencyRecord{
		{EventTime: 1_000_000_001, Source: "s1_OrderFillAckLatency", Latency: 55 * time.Microsecond, Notes: "OrderDecisionToFillAck"},
	}
	pnl := []PnLRow{
		{Strategy: "s1", Symbol: "EURUSD", Result: sim.PnL{CurrentPosition: 500, TotalVolumeTraded: 1606.6}},
	}

	require.NoError(t, store.SaveRun("run-1", trades, latency, pnl))

	count, err := store.TradeCount("run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.TradeCount("run-2")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStoreSeparateRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRun("run-a", []sim.SimulatedTrade{fill("s1", sim.SideBuy, 1, 1)}, nil, nil))
	require.NoError(t, store.SaveRun("run-b", []sim.SimulatedTrade{fill("s1", sim.SideBuy, 1, 1)}, nil, nil))

	a, err := store.TradeCount("run-a")
	require.NoError(t, err)
	b, err := store.TradeCount("run-b")
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestOpenStoreCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "results.db")
	store, err := OpenStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
