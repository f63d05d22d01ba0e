package strategy

import (
	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

// MeanReversionStrategy tracks a simple moving mid-price average and
// fades moves away from it: it sells when the mid trades above the
// average by more than the threshold, and buys below it.
type MeanReversionStrategy struct {
	sim.BaseStrategy

	symbol    string
	clip      sim.Quantity
	window    int
	threshold float64

	mids       []float64
	open       bool
	orderSides map[sim.OrderID]sim.OrderSide
}

// NewMeanReversionStrategy returns a factory for a mean-reversion
// strategy on symbol with a fixed observation window and entry
// threshold (absolute price distance from the rolling mean).
func NewMeanReversionStrategy(symbol string, clip sim.Quantity, window int, threshold float64) sim.StrategyFactory {
	return func(id sim.StrategyID, submitter sim.OrderSubmitter, metrics sim.MetricsSink, logger *zap.Logger) sim.Strategy {
		return &MeanReversionStrategy{
			BaseStrategy: sim.NewBaseStrategy(id, submitter, metrics, logger),
			symbol:       symbol,
			clip:         clip,
			window:       window,
			threshold:    threshold,
			orderSides:   make(map[sim.OrderID]sim.OrderSide),
		}
	}
}

func (s *MeanReversionStrategy) OnInit(now simtime.Timestamp) {
	s.Logger().Info("mean reversion initialized",
		zap.String("symbol", s.symbol),
		zap.Int("window", s.window),
		zap.Float64("threshold", s.threshold),
	)
}

func (s *MeanReversionStrategy) OnQuote(q *sim.QuoteEvent, arrivalTS simtime.Timestamp) {
	if q.Symbol != s.symbol {
		return
	}
	if q.BidPrice <= 0 || q.AskPrice <= 0 || q.BidSize == 0 || q.AskSize == 0 {
		return
	}

	mid := (q.BidPrice + q.AskPrice) / 2
	s.mids = append(s.mids, mid)
	if len(s.mids) > s.window {
		s.mids = s.mids[1:]
	}
	if len(s.mids) < s.window || s.open {
		return
	}

	var sum float64
	for _, m := range s.mids {
		sum += m
	}
	mean := sum / float64(len(s.mids))

	switch {
	case mid > mean+s.threshold:
		s.Logger().Info("mid above mean, selling",
			zap.Float64("mid", mid),
			zap.Float64("mean", mean),
		)
		id := s.SubmitOrder(q.Symbol, sim.SideSell, sim.OrderTypeMarket, sim.InvalidPrice, s.clip, arrivalTS)
		s.orderSides[id] = sim.SideSell
		s.open = true
	case mid < mean-s.threshold:
		s.Logger().Info("mid below mean, buying",
			zap.Float64("mid", mid),
			zap.Float64("mean", mean),
		)
		id := s.SubmitOrder(q.Symbol, sim.SideBuy, sim.OrderTypeMarket, sim.InvalidPrice, s.clip, arrivalTS)
		s.orderSides[id] = sim.SideBuy
		s.open = true
	}
}

func (s *MeanReversionStrategy) OnTrade(t *sim.TradeEvent, arrivalTS simtime.Timestamp) {}

func (s *MeanReversionStrategy) OnOrderAck(a *sim.OrderAckEvent, arrivalTS simtime.Timestamp) {
	s.Logger().Info("order ack",
		zap.Uint64("client_order_id", uint64(a.ClientOrderID)),
		zap.String("status", a.Status.String()),
	)
	recordFill(s.Metrics(), s.ID(), s.orderSides, a, arrivalTS)
}

func (s *MeanReversionStrategy) OnSimControl(c *sim.ControlEvent, arrivalTS simtime.Timestamp) {}

func (s *MeanReversionStrategy) OnShutdown(now simtime.Timestamp) {
	s.Logger().Info("mean reversion shutting down")
}
