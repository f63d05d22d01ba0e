package sim

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/queue"
	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

// TickSource is the historical feed the dispatcher replays: a finite
// sequence of quote/trade events in ascending exchange-time order.
// ReadNext returns nil for a malformed or exhausted row; HasMore turns
// false once the source is drained.
type TickSource interface {
	HasMore() bool
	ReadNext() Event
}

// processOrderRequestsInterval is the sim-time gap between recurrent
// PROCESS_ORDER_REQUESTS controls.
const processOrderRequestsInterval = 10 * time.Millisecond

// DispatcherConfig sizes the dispatcher's queues.
type DispatcherConfig struct {
	// StrategyQueueSize bounds each strategy's inbound queue
	// (0 = unbounded).
	StrategyQueueSize int
	// OrderRequestQueueSize bounds the shared incoming order-request
	// queue (0 = unbounded).
	OrderRequestQueueSize int
}

// Dispatcher owns the main event priority queue, the incoming
// order-request channel, the strategy runners, and the per-symbol order
// books. A single goroutine (the one calling Run) mutates the MEPQ and
// advances the simulation clock; strategies run concurrently and talk
// back only through SubmitOrderRequest.
type Dispatcher struct {
	cfg     DispatcherConfig
	latency *LatencyModel
	metrics MetricsSink
	logger  *zap.Logger

	mepq     *EventPQ
	incoming *queue.BlockingQueue[OrderRequest]

	runners  []*strategyRunner
	runnerBy map[StrategyID]*strategyRunner

	books map[string]*SimpleOrderBook

	currentSimTime      atomic.Int64
	nextExchangeOrderID OrderID
	running             atomic.Bool
	eofScheduled        bool
}

// NewDispatcher builds a dispatcher. metrics may be nil.
func NewDispatcher(cfg DispatcherConfig, latency *LatencyModel, metrics MetricsSink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		latency:  latency,
		metrics:  metrics,
		logger:   logger,
		mepq:     NewEventPQ(),
		incoming: queue.New[OrderRequest](cfg.OrderRequestQueueSize),
		runnerBy: make(map[StrategyID]*strategyRunner),
		books:    make(map[string]*SimpleOrderBook),
	}
}

// AddStrategy registers a strategy built by factory. It must be called
// before Run.
func (d *Dispatcher) AddStrategy(id StrategyID, factory StrategyFactory) error {
	if d.running.Load() {
		return fmt.Errorf("cannot add strategy %q while simulation is running", id)
	}
	if _, exists := d.runnerBy[id]; exists {
		return fmt.Errorf("strategy %q already registered", id)
	}

	strat := factory(id, d, d.metrics, d.logger)
	if strat == nil {
		return fmt.Errorf("factory returned no strategy for %q", id)
	}

	runner := newStrategyRunner(id, strat, d.cfg.StrategyQueueSize, d.logger)
	d.runners = append(d.runners, runner)
	d.runnerBy[id] = runner
	d.logger.Info("registered strategy", zap.String("strategy", string(id)))
	return nil
}

// CurrentSimTime returns the simulation clock. Safe from any goroutine.
func (d *Dispatcher) CurrentSimTime() simtime.Timestamp {
	return simtime.Timestamp(d.currentSimTime.Load())
}

func (d *Dispatcher) setSimTime(ts simtime.Timestamp) {
	d.currentSimTime.Store(int64(ts))
}

// SubmitOrderRequest enqueues a strategy's order request for in-order
// processing by the dispatcher. Callable from any goroutine; after
// shutdown the request is silently refused.
func (d *Dispatcher) SubmitOrderRequest(req OrderRequest) {
	if err := d.incoming.Push(req); err != nil {
		d.logger.Debug("order request refused, queue shut down",
			zap.String("strategy", string(req.StrategyID)),
			zap.Uint64("client_order_id", uint64(req.ClientOrderID)),
		)
	}
}

// Run replays the tick source to exhaustion and simulates every order
// lifecycle, blocking until the simulation reaches quiescence and all
// strategy runners have shut down.
func (d *Dispatcher) Run(src TickSource) error {
	if len(d.runners) == 0 {
		d.logger.Warn("no strategies registered, running simulation without strategies")
	}
	d.running.Store(true)
	defer d.running.Store(false)

	for _, r := range d.runners {
		go r.run(d)
	}

	d.loadTicks(src)
	d.seedOrderRequestControl()

	d.logger.Info("starting main event loop")
	d.mainLoop()
	d.logger.Info("main event loop finished",
		zap.String("final_sim_time", d.CurrentSimTime().String()),
	)

	d.shutdownStrategies()
	return nil
}

// Stop cancels the simulation from outside: the main loop exits at its
// next iteration and runners are shut down.
func (d *Dispatcher) Stop() {
	d.running.Store(false)
	d.incoming.Shutdown()
}

// loadTicks reads the feed to exhaustion, stamping each tick's arrival
// time with market-data feed latency.
func (d *Dispatcher) loadTicks(src TickSource) {
	count := 0
	for src.HasMore() {
		ev := src.ReadNext()
		if ev == nil {
			continue
		}
		ev.SetArrival(ev.ExchangeTime().Add(d.latency.MarketDataLatency(ev)))
		d.mepq.Push(ev)
		count++
	}
	if count == 0 {
		d.logger.Warn("no market data loaded, simulation might be empty")
	} else {
		d.logger.Info("loaded market events", zap.Int("count", count))
	}
}

// seedOrderRequestControl schedules the first PROCESS_ORDER_REQUESTS
// control at the first event's time, or "now" when the feed is empty,
// so the order-request drain stays alive during quiet stretches.
func (d *Dispatcher) seedOrderRequestControl() {
	at := d.CurrentSimTime()
	if head, ok := d.mepq.Peek(); ok {
		at = head.EffectiveTime()
	}
	d.mepq.Push(NewControlEvent(at, ControlProcessOrderRequests))
}

func (d *Dispatcher) mainLoop() {
	for d.running.Load() {
		d.processIncomingOrderRequests()

		if d.mepq.Empty() {
			if d.incoming.Empty() && d.eofScheduled {
				// END_OF_DATA_FEED has been consumed and nothing new
				// was scheduled: quiescence.
				break
			}
			if !d.eofScheduled {
				// Give in-flight submissions a brief window before
				// declaring the feed finished; without it a strategy
				// still reacting to the last event could see its fill
				// sort behind the shutdown signal.
				if req, err := d.incoming.TimedWaitAndPop(time.Millisecond); err == nil {
					d.simulateOrderLifecycle(req)
					continue
				}
				d.scheduleEndOfDataFeed()
				continue
			}
			time.Sleep(time.Millisecond)
			continue
		}

		ev, _ := d.mepq.Pop()
		if ev.EffectiveTime().Before(d.CurrentSimTime()) {
			d.logger.Warn("event scheduled before current simulation time",
				zap.String("event_ts", ev.EffectiveTime().String()),
				zap.String("sim_time", d.CurrentSimTime().String()),
			)
		}
		d.setSimTime(ev.EffectiveTime())
		d.processEvent(ev)
	}
}

// scheduleEndOfDataFeed pushes the single END_OF_DATA_FEED control just
// after the current sim time, so it sorts behind any ack scheduled at
// the same instant.
func (d *Dispatcher) scheduleEndOfDataFeed() {
	at := d.CurrentSimTime().Add(time.Nanosecond)
	d.logger.Info("feed and order queue drained, scheduling END_OF_DATA_FEED",
		zap.String("at", at.String()),
	)
	d.mepq.Push(NewControlEvent(at, ControlEndOfDataFeed))
	d.eofScheduled = true
}

func (d *Dispatcher) processEvent(ev Event) {
	switch e := ev.(type) {
	case *QuoteEvent:
		d.getOrCreateOrderBook(e.Symbol).UpdateQuote(e)
		d.fanOut(e)
	case *TradeEvent:
		// Trades do not alter posted liquidity in this book.
		d.fanOut(e)
	case *OrderAckEvent:
		d.routeOrderAck(e)
	case *ControlEvent:
		d.handleControl(e)
	default:
		d.logger.Warn("unknown event type in MEPQ")
	}
}

// fanOut delivers an owned copy of a market-data event to every
// strategy's inbound queue.
func (d *Dispatcher) fanOut(ev Event) {
	for _, r := range d.runners {
		if err := r.inbound.Push(ev.Clone()); err != nil {
			d.logger.Debug("dropping event for shut-down strategy queue",
				zap.String("strategy", string(r.id)),
			)
		}
	}
}

// routeOrderAck delivers an ack to the owning strategy only.
func (d *Dispatcher) routeOrderAck(ack *OrderAckEvent) {
	runner, ok := d.runnerBy[ack.StrategyID]
	if !ok {
		d.logger.Warn("no strategy registered for order ack, dropping",
			zap.String("strategy", string(ack.StrategyID)),
			zap.Uint64("client_order_id", uint64(ack.ClientOrderID)),
		)
		return
	}
	if err := runner.inbound.Push(ack.Clone()); err != nil {
		d.logger.Debug("dropping ack for shut-down strategy queue",
			zap.String("strategy", string(ack.StrategyID)),
		)
	}
}

func (d *Dispatcher) handleControl(c *ControlEvent) {
	switch c.Kind {
	case ControlProcessOrderRequests:
		d.processIncomingOrderRequests()
		// Reschedule only while the queue still holds future events;
		// the top-of-loop drain covers the rest and an unconditional
		// reschedule would keep the simulation alive forever.
		if d.running.Load() && !d.mepq.Empty() {
			next := d.CurrentSimTime().Add(processOrderRequestsInterval)
			d.mepq.Push(NewControlEvent(next, ControlProcessOrderRequests))
		}
	case ControlEndOfDataFeed:
		d.logger.Info("END_OF_DATA_FEED consumed, signaling strategies to shut down")
		for _, r := range d.runners {
			shutdown := NewControlEvent(c.EffectiveTime(), ControlStrategyShutdown)
			shutdown.TargetStrategyID = r.id
			if err := r.inbound.Push(shutdown); err != nil {
				d.logger.Debug("strategy queue already shut down",
					zap.String("strategy", string(r.id)),
				)
			}
		}
	default:
		d.logger.Warn("unexpected control in MEPQ", zap.String("kind", c.Kind.String()))
	}
}

// processIncomingOrderRequests drains the order-request queue without
// blocking.
func (d *Dispatcher) processIncomingOrderRequests() {
	for {
		req, ok := d.incoming.TryPop()
		if !ok {
			return
		}
		d.simulateOrderLifecycle(req)
	}
}

// simulateOrderLifecycle turns an order request into scheduled acks.
// The decision timestamp is charged strategy processing latency, then
// the network hop to the exchange; the plain ack and any fill travel
// back at their respective latencies, with the fill forced at least
// 1 ns after the ack.
func (d *Dispatcher) simulateOrderLifecycle(req OrderRequest) {
	exchangeOrderID := d.nextOrderID()
	decisionTS := req.RequestTimestamp

	sentTS := decisionTS.Add(d.latency.StrategyProcessingLatency())
	exchArrivalTS := d.latency.OrderArrivalAtExchange(sentTS)
	ackTS := d.latency.AckArrivalAtStrategy(exchArrivalTS)

	ack := &OrderAckEvent{
		EventBase:       EventBase{ExchangeTS: exchArrivalTS, ArrivalTS: ackTS},
		StrategyID:      req.StrategyID,
		ClientOrderID:   req.ClientOrderID,
		ExchangeOrderID: exchangeOrderID,
		Symbol:          req.Symbol,
		Status:          StatusAcknowledged,
		LeavesQuantity:  req.Quantity,
	}
	d.mepq.Push(ack)

	// Match against the live BBO at drain time, not a snapshot of the
	// book at exchange arrival.
	book := d.getOrCreateOrderBook(req.Symbol)

	var fillPrice float64
	var filledQty Quantity
	switch req.Type {
	case OrderTypeMarket:
		fillPrice, filledQty = book.MatchMarketOrder(req.Side, req.Quantity)
	case OrderTypeLimit:
		fillPrice, filledQty = book.MatchLimitOrder(req.Side, req.Price, req.Quantity)
	}

	if filledQty > 0 && IsValidPrice(fillPrice) {
		fillTS := d.latency.FillArrivalAtStrategy(exchArrivalTS)
		if !fillTS.After(ackTS) {
			// Ack-before-fill causality, even with zero latencies.
			fillTS = ackTS.Add(time.Nanosecond)
		}

		status := StatusPartiallyFilled
		if filledQty == req.Quantity {
			status = StatusFilled
		}
		fill := &OrderAckEvent{
			EventBase:          EventBase{ExchangeTS: exchArrivalTS, ArrivalTS: fillTS},
			StrategyID:         req.StrategyID,
			ClientOrderID:      req.ClientOrderID,
			ExchangeOrderID:    exchangeOrderID,
			Symbol:             req.Symbol,
			Status:             status,
			LastFilledPrice:    fillPrice,
			LastFilledQuantity: filledQty,
			CumulativeFilled:   filledQty,
			LeavesQuantity:     req.Quantity - filledQty,
		}
		d.mepq.Push(fill)

		d.logger.Debug("scheduled fill",
			zap.String("strategy", string(req.StrategyID)),
			zap.Uint64("client_order_id", uint64(req.ClientOrderID)),
			zap.Float64("price", fillPrice),
			zap.Uint64("quantity", uint64(filledQty)),
			zap.String("at", fillTS.String()),
		)

		if d.metrics != nil {
			d.metrics.RecordLatency(
				string(req.StrategyID)+"_OrderFillAckLatency",
				fillTS.Sub(decisionTS),
				fillTS,
				"OrderDecisionToFillAck",
			)
		}
		return
	}

	if req.Type == OrderTypeLimit {
		d.logger.Info("limit order is passive, no immediate fill",
			zap.String("strategy", string(req.StrategyID)),
			zap.Uint64("client_order_id", uint64(req.ClientOrderID)),
			zap.String("symbol", req.Symbol),
		)
		return
	}

	// Market order with no liquidity: it stays ACKNOWLEDGED. A real
	// venue would reject it.
	d.logger.Warn("market order could not be filled",
		zap.String("strategy", string(req.StrategyID)),
		zap.Uint64("client_order_id", uint64(req.ClientOrderID)),
		zap.String("symbol", req.Symbol),
		zap.Uint64("quantity", uint64(req.Quantity)),
	)
}

func (d *Dispatcher) nextOrderID() OrderID {
	d.nextExchangeOrderID++
	return d.nextExchangeOrderID
}

func (d *Dispatcher) getOrCreateOrderBook(symbol string) *SimpleOrderBook {
	book, ok := d.books[symbol]
	if !ok {
		d.logger.Info("creating order book", zap.String("symbol", symbol))
		book = NewSimpleOrderBook(symbol, d.logger)
		d.books[symbol] = book
	}
	return book
}

// shutdownStrategies pushes a final defensive STRATEGY_SHUTDOWN to each
// runner, shuts its queue, and joins its goroutine.
func (d *Dispatcher) shutdownStrategies() {
	for _, r := range d.runners {
		if !r.inbound.IsShutdown() {
			shutdown := NewControlEvent(d.CurrentSimTime().Add(time.Nanosecond), ControlStrategyShutdown)
			shutdown.TargetStrategyID = r.id
			_ = r.inbound.Push(shutdown)
			r.inbound.Shutdown()
		}
	}

	for _, r := range d.runners {
		<-r.done
	}
	d.logger.Info("all strategy runners joined")
}
