package sim

import "go.uber.org/zap"

// SimpleOrderBook tracks the best bid and offer for one symbol. It
// exists to price immediate matches against the current BBO; it keeps
// no resting orders and no depth.
type SimpleOrderBook struct {
	symbol string
	logger *zap.Logger

	bidPrice float64
	bidSize  Quantity
	hasBid   bool

	askPrice float64
	askSize  Quantity
	hasAsk   bool
}

// NewSimpleOrderBook creates an empty book for symbol.
func NewSimpleOrderBook(symbol string, logger *zap.Logger) *SimpleOrderBook {
	return &SimpleOrderBook{symbol: symbol, logger: logger}
}

// Symbol returns the book's symbol.
func (b *SimpleOrderBook) Symbol() string { return b.symbol }

// BestBid returns the bid price and size; ok is false when the side is
// empty.
func (b *SimpleOrderBook) BestBid() (price float64, size Quantity, ok bool) {
	return b.bidPrice, b.bidSize, b.hasBid
}

// BestAsk returns the ask price and size; ok is false when the side is
// empty.
func (b *SimpleOrderBook) BestAsk() (price float64, size Quantity, ok bool) {
	return b.askPrice, b.askSize, b.hasAsk
}

// UpdateQuote replaces each side with the quoted price/size when the
// price and size are positive, and clears the side otherwise.
func (b *SimpleOrderBook) UpdateQuote(q *QuoteEvent) {
	if q.Symbol != b.symbol {
		return
	}

	if q.BidPrice > 0 && q.BidSize > 0 {
		b.bidPrice = q.BidPrice
		b.bidSize = q.BidSize
		b.hasBid = true
	} else {
		b.hasBid = false
	}

	if q.AskPrice > 0 && q.AskSize > 0 {
		b.askPrice = q.AskPrice
		b.askSize = q.AskSize
		b.hasAsk = true
	} else {
		b.hasAsk = false
	}
}

// MatchMarketOrder consumes liquidity from the opposing side: BUY takes
// the ask, SELL takes the bid. The fill price is the opposing best; the
// filled quantity is capped by the opposing size, which the book
// decrements, clearing the side at zero. With no opposing liquidity it
// returns (InvalidPrice, 0).
func (b *SimpleOrderBook) MatchMarketOrder(side OrderSide, quantity Quantity) (float64, Quantity) {
	if quantity == 0 {
		return InvalidPrice, 0
	}

	if side == SideBuy {
		if !b.hasAsk || b.askSize == 0 {
			b.logger.Warn("cannot match BUY market order, no ask liquidity",
				zap.String("symbol", b.symbol),
				zap.Uint64("quantity", uint64(quantity)),
			)
			return InvalidPrice, 0
		}
		return b.consumeAsk(quantity)
	}

	if !b.hasBid || b.bidSize == 0 {
		b.logger.Warn("cannot match SELL market order, no bid liquidity",
			zap.String("symbol", b.symbol),
			zap.Uint64("quantity", uint64(quantity)),
		)
		return InvalidPrice, 0
	}
	return b.consumeBid(quantity)
}

// MatchLimitOrder fills like a market order when the limit crosses the
// opposing best (within PriceEpsilon), and reports no fill when it is
// passive; this book does not store resting orders.
func (b *SimpleOrderBook) MatchLimitOrder(side OrderSide, limitPrice float64, quantity Quantity) (float64, Quantity) {
	if quantity == 0 || !IsValidPrice(limitPrice) {
		return InvalidPrice, 0
	}

	if side == SideBuy {
		if b.hasAsk && b.askSize > 0 && limitPrice >= b.askPrice-PriceEpsilon {
			return b.consumeAsk(quantity)
		}
		return InvalidPrice, 0
	}

	if b.hasBid && b.bidSize > 0 && limitPrice <= b.bidPrice+PriceEpsilon {
		return b.consumeBid(quantity)
	}
	return InvalidPrice, 0
}

// consumeAsk fills against the ask side and decrements it.
func (b *SimpleOrderBook) consumeAsk(quantity Quantity) (float64, Quantity) {
	filled := quantity
	if b.askSize < filled {
		filled = b.askSize
	}
	price := b.askPrice
	b.askSize -= filled
	if b.askSize == 0 {
		b.hasAsk = false
	}
	return price, filled
}

// consumeBid fills against the bid side and decrements it.
func (b *SimpleOrderBook) consumeBid(quantity Quantity) (float64, Quantity) {
	filled := quantity
	if b.bidSize < filled {
		filled = b.bidSize
	}
	price := b.bidPrice
	b.bidSize -= filled
	if b.bidSize == 0 {
		b.hasBid = false
	}
	return price, filled
}
