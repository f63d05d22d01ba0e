package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ismaiel54/market-replay-sim/internal/simtime"
)

func quote(symbol string, bidPx float64, bidSz Quantity, askPx float64, askSz Quantity) *QuoteEvent {
	return &QuoteEvent{
		EventBase: EventBase{ExchangeTS: simtime.Timestamp(0), ArrivalTS: simtime.Timestamp(0)},
		Symbol:    symbol,
		BidPrice:  bidPx,
		BidSize:   bidSz,
		AskPrice:  askPx,
		AskSize:   askSz,
	}
}

func newTestBook() *SimpleOrderBook {
	return NewSimpleOrderBook("EURUSD", zap.NewNop())
}

func TestUpdateQuoteSetsBBO(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 1.07100, 100_000, 1.07105, 100_000))

	bid, bidSz, ok := b.BestBid()
	assert.True(t, ok)
	assert.Equal(t, 1.07100, bid)
	assert.EqualValues(t, 100_000, bidSz)

	ask, askSz, ok := b.BestAsk()
	assert.True(t, ok)
	assert.Equal(t, 1.07105, ask)
	assert.EqualValues(t, 100_000, askSz)
}

func TestUpdateQuoteClearsSideOnInvalidPrice(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 1.07100, 100_000, 1.07105, 100_000))
	b.UpdateQuote(quote("EURUSD", 0, 0, 1.07110, 50_000))

	_, _, ok := b.BestBid()
	assert.False(t, ok, "zero bid price must clear the bid side")

	ask, _, ok := b.BestAsk()
	assert.True(t, ok)
	assert.Equal(t, 1.07110, ask)
}

func TestUpdateQuoteIgnoresOtherSymbols(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("GBPUSD", 1.25, 100, 1.26, 100))

	_, _, ok := b.BestBid()
	assert.False(t, ok)
}

func TestMatchMarketOrderBuyFull(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 1.07100, 100_000, 1.07105, 100_000))

	price, filled := b.MatchMarketOrder(SideBuy, 1000)
	assert.Equal(t, 1.07105, price)
	assert.EqualValues(t, 1000, filled)

	_, askSz, ok := b.BestAsk()
	assert.True(t, ok)
	assert.EqualValues(t, 99_000, askSz, "ask size must be decremented by the fill")
}

func TestMatchMarketOrderPartial(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 1.07100, 100_000, 1.07105, 100_000))

	price, filled := b.MatchMarketOrder(SideBuy, 200_000)
	assert.Equal(t, 1.07105, price)
	assert.EqualValues(t, 100_000, filled, "fill is capped by opposing size")

	_, _, ok := b.BestAsk()
	assert.False(t, ok, "fully consumed side must clear")
}

func TestMatchMarketOrderSellConsumesBid(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 1.07100, 500, 1.07105, 500))

	price, filled := b.MatchMarketOrder(SideSell, 500)
	assert.Equal(t, 1.07100, price)
	assert.EqualValues(t, 500, filled)

	_, _, ok := b.BestBid()
	assert.False(t, ok)
}

func TestMatchMarketOrderNoLiquidity(t *testing.T) {
	b := newTestBook()

	price, filled := b.MatchMarketOrder(SideBuy, 1000)
	assert.False(t, IsValidPrice(price))
	assert.EqualValues(t, 0, filled)
}

func TestMatchMarketOrderZeroQuantity(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 1.07100, 500, 1.07105, 500))

	price, filled := b.MatchMarketOrder(SideBuy, 0)
	assert.False(t, IsValidPrice(price))
	assert.EqualValues(t, 0, filled)
}

func TestMatchLimitOrderAggressiveBuy(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 100, 10, 101, 10))

	price, filled := b.MatchLimitOrder(SideBuy, 101, 5)
	assert.Equal(t, 101.0, price, "aggressive limit fills at the opposing best")
	assert.EqualValues(t, 5, filled)
}

func TestMatchLimitOrderPassiveBuy(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 100, 10, 101, 10))

	price, filled := b.MatchLimitOrder(SideBuy, 100.5, 10)
	assert.False(t, IsValidPrice(price))
	assert.EqualValues(t, 0, filled)

	_, askSz, ok := b.BestAsk()
	assert.True(t, ok)
	assert.EqualValues(t, 10, askSz, "passive limit must not touch the book")
}

func TestMatchLimitOrderAggressiveSell(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 100, 10, 101, 10))

	price, filled := b.MatchLimitOrder(SideSell, 99.5, 4)
	assert.Equal(t, 100.0, price)
	assert.EqualValues(t, 4, filled)

	_, bidSz, ok := b.BestBid()
	assert.True(t, ok)
	assert.EqualValues(t, 6, bidSz)
}

func TestMatchLimitOrderEpsilonCrossing(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 100, 10, 101, 10))

	// A limit a hair below the ask still crosses within epsilon.
	price, filled := b.MatchLimitOrder(SideBuy, 101-1e-10, 2)
	assert.Equal(t, 101.0, price)
	assert.EqualValues(t, 2, filled)
}

func TestMatchLimitOrderInvalidPrice(t *testing.T) {
	b := newTestBook()
	b.UpdateQuote(quote("EURUSD", 100, 10, 101, 10))

	price, filled := b.MatchLimitOrder(SideBuy, InvalidPrice, 5)
	assert.False(t, IsValidPrice(price))
	assert.EqualValues(t, 0, filled)
}
