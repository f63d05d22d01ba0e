package sim

import (
	"time"

	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

// OrderSubmitter is the capability handle strategies use to send order
// requests back into the dispatcher. It must accept submissions from
// any goroutine at any time.
type OrderSubmitter interface {
	SubmitOrderRequest(req OrderRequest)
}

// MetricsSink records trades, latency samples, and PnL updates. Trades
// and latencies are append-only; PnL accumulates per (strategy, symbol).
type MetricsSink interface {
	RecordTrade(trade SimulatedTrade)
	RecordLatency(source string, latency time.Duration, eventTime simtime.Timestamp, notes string)
	UpdatePnL(strategy StrategyID, symbol string, fillPrice float64, filledQty Quantity, side OrderSide)
}

// Strategy is the contract user trading logic implements. Handlers run
// on the strategy's own goroutine; a strategy never touches the main
// event queue, the order books, or another strategy's queue.
type Strategy interface {
	ID() StrategyID

	// OnInit runs once before the event loop starts.
	OnInit(now simtime.Timestamp)
	// Per-variant event hooks; arrivalTS is the event's effective
	// timestamp.
	OnQuote(q *QuoteEvent, arrivalTS simtime.Timestamp)
	OnTrade(t *TradeEvent, arrivalTS simtime.Timestamp)
	OnOrderAck(a *OrderAckEvent, arrivalTS simtime.Timestamp)
	OnSimControl(c *ControlEvent, arrivalTS simtime.Timestamp)
	// OnShutdown runs once after the event loop exits.
	OnShutdown(now simtime.Timestamp)
}

// StrategyFactory builds a strategy instance wired to the dispatcher's
// submitter capability and the shared metrics sink.
type StrategyFactory func(id StrategyID, submitter OrderSubmitter, metrics MetricsSink, logger *zap.Logger) Strategy

// BaseStrategy carries the state every strategy owns: its id, its
// client order id counter, the non-owning submitter handle, and the
// optional metrics handle. Embed it and implement the event hooks.
type BaseStrategy struct {
	id        StrategyID
	submitter OrderSubmitter
	metrics   MetricsSink
	logger    *zap.Logger

	nextClientOrderID OrderID
}

// NewBaseStrategy wires the common strategy state.
func NewBaseStrategy(id StrategyID, submitter OrderSubmitter, metrics MetricsSink, logger *zap.Logger) BaseStrategy {
	return BaseStrategy{
		id:                id,
		submitter:         submitter,
		metrics:           metrics,
		logger:            logger.With(zap.String("strategy", string(id))),
		nextClientOrderID: 1,
	}
}

// ID returns the strategy identifier.
func (b *BaseStrategy) ID() StrategyID { return b.id }

// Logger returns the strategy-scoped logger.
func (b *BaseStrategy) Logger() *zap.Logger { return b.logger }

// Metrics returns the metrics handle, which may be nil.
func (b *BaseStrategy) Metrics() MetricsSink { return b.metrics }

// SubmitOrder packages and posts an order request. decisionTS is the
// simulated moment the strategy decided to submit, typically the
// arrival timestamp of the event that triggered the decision; the
// dispatcher charges strategy processing latency on top of it.
func (b *BaseStrategy) SubmitOrder(symbol string, side OrderSide, typ OrderType, price float64, quantity Quantity, decisionTS simtime.Timestamp) OrderID {
	if b.submitter == nil {
		b.logger.Warn("order submitter not set, cannot submit order")
		return 0
	}

	req := OrderRequest{
		StrategyID:       b.id,
		ClientOrderID:    b.nextOrderID(),
		Symbol:           symbol,
		Side:             side,
		Type:             typ,
		Price:            price,
		Quantity:         quantity,
		RequestTimestamp: decisionTS,
	}

	b.logger.Debug("submitting order",
		zap.Uint64("client_order_id", uint64(req.ClientOrderID)),
		zap.String("symbol", req.Symbol),
		zap.String("side", req.Side.String()),
		zap.String("type", req.Type.String()),
		zap.Float64("price", req.Price),
		zap.Uint64("quantity", uint64(req.Quantity)),
		zap.String("decision_ts", decisionTS.String()),
	)
	b.submitter.SubmitOrderRequest(req)

	if b.metrics != nil {
		b.metrics.RecordLatency(string(b.id)+"_OrderSubmitted", 0, decisionTS, "")
	}
	return req.ClientOrderID
}

func (b *BaseStrategy) nextOrderID() OrderID {
	id := b.nextClientOrderID
	b.nextClientOrderID++
	return id
}

// DispatchEvent routes an event to the matching per-variant hook.
func DispatchEvent(s Strategy, ev Event, arrivalTS simtime.Timestamp) {
	switch e := ev.(type) {
	case *QuoteEvent:
		s.OnQuote(e, arrivalTS)
	case *TradeEvent:
		s.OnTrade(e, arrivalTS)
	case *OrderAckEvent:
		s.OnOrderAck(e, arrivalTS)
	case *ControlEvent:
		s.OnSimControl(e, arrivalTS)
	}
}
