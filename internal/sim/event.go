package sim

import "github.com/ismaiel54/market-replay-sim/internal/simtime"

// Event is the tagged variant flowing through the main event queue and
// the strategy inbound queues. Every variant carries the exchange
// timestamp from the feed and the arrival timestamp at which it is
// delivered to its consumer; the arrival timestamp is the queue sort
// key.
type Event interface {
	// ExchangeTime is when the event occurred at the exchange.
	ExchangeTime() simtime.Timestamp
	// EffectiveTime is the simulated delivery moment (the arrival
	// timestamp); the MEPQ orders events by it.
	EffectiveTime() simtime.Timestamp
	// SetArrival stamps the delivery moment.
	SetArrival(ts simtime.Timestamp)
	// Clone returns an independent copy for per-strategy fan-out.
	Clone() Event
}

// EventBase carries the two timestamps shared by all variants.
type EventBase struct {
	ExchangeTS simtime.Timestamp
	ArrivalTS  simtime.Timestamp
}

func (b *EventBase) ExchangeTime() simtime.Timestamp  { return b.ExchangeTS }
func (b *EventBase) EffectiveTime() simtime.Timestamp { return b.ArrivalTS }
func (b *EventBase) SetArrival(ts simtime.Timestamp)  { b.ArrivalTS = ts }

// QuoteEvent is a top-of-book update from the historical feed.
type QuoteEvent struct {
	EventBase
	Symbol   string
	BidPrice float64
	BidSize  Quantity
	AskPrice float64
	AskSize  Quantity
}

func (q *QuoteEvent) Clone() Event {
	cp := *q
	return &cp
}

// TradeEvent is a printed trade from the historical feed.
type TradeEvent struct {
	EventBase
	Symbol string
	Price  float64
	Size   Quantity
}

func (t *TradeEvent) Clone() Event {
	cp := *t
	return &cp
}

// OrderAckEvent reports order lifecycle progress back to the owning
// strategy.
type OrderAckEvent struct {
	EventBase
	StrategyID         StrategyID
	ClientOrderID      OrderID
	ExchangeOrderID    OrderID
	Symbol             string
	Status             OrderStatus
	LastFilledPrice    float64
	LastFilledQuantity Quantity
	CumulativeFilled   Quantity
	LeavesQuantity     Quantity
	RejectReason       string
}

func (a *OrderAckEvent) Clone() Event {
	cp := *a
	return &cp
}

// ControlKind enumerates simulation control signals.
type ControlKind uint8

const (
	// ControlEndOfDataFeed marks feed exhaustion; consuming it from the
	// MEPQ triggers strategy shutdown.
	ControlEndOfDataFeed ControlKind = iota
	// ControlProcessOrderRequests keeps the order-request drain alive
	// during quiet market-data stretches.
	ControlProcessOrderRequests
	// ControlStrategyShutdown tells a strategy runner to exit its loop.
	ControlStrategyShutdown
)

func (k ControlKind) String() string {
	switch k {
	case ControlEndOfDataFeed:
		return "END_OF_DATA_FEED"
	case ControlProcessOrderRequests:
		return "PROCESS_ORDER_REQUESTS"
	case ControlStrategyShutdown:
		return "STRATEGY_SHUTDOWN"
	}
	return "UNKNOWN"
}

// ControlEvent is a simulation control signal, either dispatcher
// internal or targeted at strategies.
type ControlEvent struct {
	EventBase
	Kind ControlKind
	// TargetStrategyID is set when the control addresses one strategy.
	TargetStrategyID StrategyID
}

func (c *ControlEvent) Clone() Event {
	cp := *c
	return &cp
}

// NewControlEvent builds a control scheduled at effectiveTS.
func NewControlEvent(effectiveTS simtime.Timestamp, kind ControlKind) *ControlEvent {
	return &ControlEvent{
		EventBase: EventBase{ExchangeTS: effectiveTS, ArrivalTS: effectiveTS},
		Kind:      kind,
	}
}
