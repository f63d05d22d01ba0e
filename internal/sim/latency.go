package sim

import (
	"math/rand"
	"time"

	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

// LatencyConfig holds the duration of every simulated hop.
type LatencyConfig struct {
	// MarketDataFeedLatency: exchange source to strategy input queue.
	MarketDataFeedLatency time.Duration
	// StrategyProcessingLatency: time a strategy "thinks" before its
	// order is effectively sent.
	StrategyProcessingLatency time.Duration
	// OrderNetworkLatency: strategy output to exchange input.
	OrderNetworkLatency time.Duration
	// ExchangeAckLatency: exchange internal processing for a plain ack.
	ExchangeAckLatency time.Duration
	// ExchangeFillLatency: exchange internal processing for a fill.
	ExchangeFillLatency time.Duration
	// AckNetworkLatency: exchange output back to strategy input.
	AckNetworkLatency time.Duration
}

// DefaultLatencyConfig mirrors a co-located retail setup.
func DefaultLatencyConfig() LatencyConfig {
	return LatencyConfig{
		MarketDataFeedLatency:     50 * time.Microsecond,
		StrategyProcessingLatency: 5 * time.Microsecond,
		OrderNetworkLatency:       20 * time.Microsecond,
		ExchangeAckLatency:        10 * time.Microsecond,
		ExchangeFillLatency:       15 * time.Microsecond,
		AckNetworkLatency:         20 * time.Microsecond,
	}
}

// LatencyModel maps causal events to the simulation timestamps at which
// their consequences materialize. The base model is deterministic; an
// optional seeded jitter layers a uniform [0, max] addition onto the
// network hops.
type LatencyModel struct {
	cfg       LatencyConfig
	jitterRNG *rand.Rand
	jitterMax time.Duration
}

// NewLatencyModel builds a deterministic model from cfg.
func NewLatencyModel(cfg LatencyConfig) *LatencyModel {
	return &LatencyModel{cfg: cfg}
}

// WithJitter enables seeded uniform jitter up to max on the network
// hops. The same seed reproduces the same run.
func (m *LatencyModel) WithJitter(seed int64, max time.Duration) *LatencyModel {
	m.jitterRNG = rand.New(rand.NewSource(seed))
	m.jitterMax = max
	return m
}

// MarketDataLatency is the delay from a tick's exchange timestamp to
// its arrival at strategy input queues.
func (m *LatencyModel) MarketDataLatency(Event) time.Duration {
	return m.cfg.MarketDataFeedLatency + m.jitter()
}

// StrategyProcessingLatency is charged between an order decision and
// the order effectively leaving the strategy.
func (m *LatencyModel) StrategyProcessingLatency() time.Duration {
	return m.cfg.StrategyProcessingLatency
}

// OrderArrivalAtExchange is when an order sent at decisionTS reaches
// the exchange.
func (m *LatencyModel) OrderArrivalAtExchange(decisionTS simtime.Timestamp) simtime.Timestamp {
	return decisionTS.Add(m.cfg.OrderNetworkLatency + m.jitter())
}

// AckArrivalAtStrategy is when a plain ack for an order that reached
// the exchange at exchArrivalTS lands back at the strategy.
func (m *LatencyModel) AckArrivalAtStrategy(exchArrivalTS simtime.Timestamp) simtime.Timestamp {
	return exchArrivalTS.Add(m.cfg.ExchangeAckLatency + m.cfg.AckNetworkLatency + m.jitter())
}

// FillArrivalAtStrategy is when a fill ack for an order that reached
// the exchange at exchArrivalTS lands back at the strategy.
func (m *LatencyModel) FillArrivalAtStrategy(exchArrivalTS simtime.Timestamp) simtime.Timestamp {
	return exchArrivalTS.Add(m.cfg.ExchangeFillLatency + m.cfg.AckNetworkLatency + m.jitter())
}

func (m *LatencyModel) jitter() time.Duration {
	if m.jitterRNG == nil || m.jitterMax <= 0 {
		return 0
	}
	return time.Duration(m.jitterRNG.Int63n(int64(m.jitterMax) + 1))
}
