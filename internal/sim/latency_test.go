package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

func testLatencyConfig() LatencyConfig {
	return LatencyConfig{
		MarketDataFeedLatency:     100 * time.Microsecond,
		StrategyProcessingLatency: 10 * time.Microsecond,
		OrderNetworkLatency:       50 * time.Microsecond,
		ExchangeAckLatency:        20 * time.Microsecond,
		ExchangeFillLatency:       30 * time.Microsecond,
		AckNetworkLatency:         50 * time.Microsecond,
	}
}

func TestLatencyModelTransforms(t *testing.T) {
	m := NewLatencyModel(testLatencyConfig())
	t0 := simtime.Timestamp(0)

	quote := &QuoteEvent{EventBase: EventBase{ExchangeTS: t0, ArrivalTS: t0}, Symbol: "SYM"}
	assert.Equal(t, 100*time.Microsecond, m.MarketDataLatency(quote))
	assert.Equal(t, 10*time.Microsecond, m.StrategyProcessingLatency())

	exchArrival := m.OrderArrivalAtExchange(t0)
	assert.Equal(t, t0.Add(50*time.Microsecond), exchArrival)

	ackArrival := m.AckArrivalAtStrategy(exchArrival)
	assert.Equal(t, exchArrival.Add(70*time.Microsecond), ackArrival)

	fillArrival := m.FillArrivalAtStrategy(exchArrival)
	assert.Equal(t, exchArrival.Add(80*time.Microsecond), fillArrival)
}

func TestLatencyModelStrictlyIncreasing(t *testing.T) {
	m := NewLatencyModel(testLatencyConfig())
	t0 := simtime.Timestamp(1_000_000)

	assert.True(t, m.OrderArrivalAtExchange(t0).After(t0))
	assert.True(t, m.AckArrivalAtStrategy(t0).After(t0))
	assert.True(t, m.FillArrivalAtStrategy(t0).After(t0))
}

func TestLatencyModelMonotone(t *testing.T) {
	m := NewLatencyModel(testLatencyConfig())
	early := simtime.Timestamp(100)
	late := simtime.Timestamp(200)

	assert.True(t, m.OrderArrivalAtExchange(early).Before(m.OrderArrivalAtExchange(late)))
	assert.True(t, m.AckArrivalAtStrategy(early).Before(m.AckArrivalAtStrategy(late)))
	assert.True(t, m.FillArrivalAtStrategy(early).Before(m.FillArrivalAtStrategy(late)))
}

func TestLatencyModelZeroConfig(t *testing.T) {
	m := NewLatencyModel(LatencyConfig{})
	t0 := simtime.Timestamp(42)

	assert.Equal(t, t0, m.OrderArrivalAtExchange(t0))
	assert.Equal(t, t0, m.AckArrivalAtStrategy(t0))
	assert.Equal(t, t0, m.FillArrivalAtStrategy(t0))
	assert.Equal(t, time.Duration(0), m.MarketDataLatency(nil))
}

func TestLatencyModelJitterDeterministic(t *testing.T) {
	t0 := simtime.Timestamp(0)

	a := NewLatencyModel(testLatencyConfig()).WithJitter(99, 5*time.Microsecond)
	b := NewLatencyModel(testLatencyConfig()).WithJitter(99, 5*time.Microsecond)

	for i := 0; i < 50; i++ {
		assert.Equal(t, a.OrderArrivalAtExchange(t0), b.OrderArrivalAtExchange(t0),
			"same seed must reproduce the same jitter sequence")
	}
}

func TestLatencyModelJitterBounded(t *testing.T) {
	t0 := simtime.Timestamp(0)
	max := 5 * time.Microsecond
	m := NewLatencyModel(testLatencyConfig()).WithJitter(7, max)

	base := t0.Add(50 * time.Microsecond)
	for i := 0; i < 200; i++ {
		got := m.OrderArrivalAtExchange(t0)
		assert.False(t, got.Before(base))
		assert.False(t, got.After(base.Add(max)))
	}
}
