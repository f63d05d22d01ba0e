// Package strategy holds the built-in trading strategies and the
// registry that maps configured names to factories.
package strategy

import (
	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

// BasicStrategy buys a fixed clip at market on the first quote it sees
// for its target symbol, then records the resulting fills.
type BasicStrategy struct {
	sim.BaseStrategy

	symbol    string
	clip      sim.Quantity
	orderSent bool

	// side of each order this strategy has sent, by client order id.
	orderSides map[sim.OrderID]sim.OrderSide
}

// NewBasicStrategy returns a factory building BasicStrategy instances
// targeting symbol.
func NewBasicStrategy(symbol string, clip sim.Quantity) sim.StrategyFactory {
	return func(id sim.StrategyID, submitter sim.OrderSubmitter, metrics sim.MetricsSink, logger *zap.Logger) sim.Strategy {
		return &BasicStrategy{
			BaseStrategy: sim.NewBaseStrategy(id, submitter, metrics, logger),
			symbol:       symbol,
			clip:         clip,
			orderSides:   make(map[sim.OrderID]sim.OrderSide),
		}
	}
}

func (s *BasicStrategy) OnInit(now simtime.Timestamp) {
	s.Logger().Info("initialized", zap.String("sim_time", now.String()))
}

func (s *BasicStrategy) OnQuote(q *sim.QuoteEvent, arrivalTS simtime.Timestamp) {
	if q.Symbol != s.symbol || s.orderSent {
		return
	}
	if q.AskPrice <= 0 || q.AskSize == 0 {
		return
	}

	s.Logger().Info("first quote received, submitting market buy",
		zap.String("symbol", q.Symbol),
		zap.Float64("ask", q.AskPrice),
	)
	// The decision time is the arrival time of the quote that
	// triggered it; the dispatcher charges processing latency on top.
	id := s.SubmitOrder(q.Symbol, sim.SideBuy, sim.OrderTypeMarket, sim.InvalidPrice, s.clip, arrivalTS)
	s.orderSides[id] = sim.SideBuy
	s.orderSent = true
}

func (s *BasicStrategy) OnTrade(t *sim.TradeEvent, arrivalTS simtime.Timestamp) {
	s.Logger().Debug("trade",
		zap.String("symbol", t.Symbol),
		zap.Float64("price", t.Price),
		zap.Uint64("size", uint64(t.Size)),
	)
}

func (s *BasicStrategy) OnOrderAck(a *sim.OrderAckEvent, arrivalTS simtime.Timestamp) {
	s.Logger().Info("order ack",
		zap.Uint64("client_order_id", uint64(a.ClientOrderID)),
		zap.Uint64("exchange_order_id", uint64(a.ExchangeOrderID)),
		zap.String("status", a.Status.String()),
		zap.Float64("last_filled_price", a.LastFilledPrice),
		zap.Uint64("last_filled_quantity", uint64(a.LastFilledQuantity)),
		zap.Uint64("leaves", uint64(a.LeavesQuantity)),
	)

	if a.Status == sim.StatusRejected {
		s.Logger().Error("order rejected",
			zap.Uint64("client_order_id", uint64(a.ClientOrderID)),
			zap.String("reason", a.RejectReason),
		)
		return
	}

	recordFill(s.Metrics(), s.ID(), s.orderSides, a, arrivalTS)
}

func (s *BasicStrategy) OnSimControl(c *sim.ControlEvent, arrivalTS simtime.Timestamp) {
	s.Logger().Debug("sim control", zap.String("kind", c.Kind.String()))
}

func (s *BasicStrategy) OnShutdown(now simtime.Timestamp) {
	s.Logger().Info("shutting down", zap.String("sim_time", now.String()))
}

// recordFill forwards a filled or partially-filled ack to the metrics
// sink as a SimulatedTrade, looking the original side up from the
// strategy's sent-order map.
func recordFill(metrics sim.MetricsSink, id sim.StrategyID, sides map[sim.OrderID]sim.OrderSide, a *sim.OrderAckEvent, arrivalTS simtime.Timestamp) {
	if metrics == nil {
		return
	}
	if a.Status != sim.StatusFilled && a.Status != sim.StatusPartiallyFilled {
		return
	}
	if a.LastFilledQuantity == 0 {
		return
	}

	side, ok := sides[a.ClientOrderID]
	if !ok {
		// Ack for an order this strategy does not remember sending.
		return
	}

	metrics.RecordTrade(sim.SimulatedTrade{
		Timestamp:       arrivalTS,
		StrategyID:      id,
		Symbol:          a.Symbol,
		Side:            side,
		Price:           a.LastFilledPrice,
		Quantity:        a.LastFilledQuantity,
		ClientOrderID:   a.ClientOrderID,
		ExchangeOrderID: a.ExchangeOrderID,
	})
}
