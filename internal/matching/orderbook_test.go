package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup & Helpers --------------------------------------------------------

func newTestBook() *OrderBook {
	return NewOrderBook("BTC-USDT")
}

func now() time.Time {
	return time.Now()
}

// placeLimit helps insert a single limit order at a specific price/side,
// returning the constructed order and the trades it produced.
func placeLimit(t *testing.T, book *OrderBook, side Side, price, qty string) (*Order, []Trade) {
	t.Helper()
	o, err := NewOrder("", book.Symbol, side, Limit, dec(qty), dec(price), true, now())
	require.NoError(t, err)
	trades, err := book.AddOrder(o)
	require.NoError(t, err)
	return o, trades
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// --- Tests ------------------------------------------------------------------

func TestPriceTimePriority(t *testing.T) {
	book := newTestBook()

	o1, _ := placeLimit(t, book, Buy, "50000", "1.0")
	o2, _ := placeLimit(t, book, Buy, "50000", "1.0")
	_, trades := placeLimit(t, book, Sell, "49999", "1.0")

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(dec("1.0")))
	assert.True(t, trades[0].Price.Equal(dec("50000")))
	assert.Equal(t, o1.OrderID, trades[0].MakerOrderID)

	assert.Equal(t, Filled, o1.Status)
	assert.Equal(t, Pending, o2.Status)
	assert.True(t, o2.RemainingQuantity().Equal(dec("1.0")))

	bestBid, ok := book.BestBid()
	require.True(t, ok)
	assert.True(t, bestBid.Equal(dec("50000")))
	bbo := book.GetBBO()
	assert.True(t, bbo.BestBid.Quantity.Equal(dec("1.0")))
}

func TestPriceImprovementForTaker(t *testing.T) {
	book := newTestBook()

	maker, _ := placeLimit(t, book, Sell, "50000", "1.0")
	taker, trades := placeLimit(t, book, Buy, "50100", "1.0")

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("50000")))
	assert.Equal(t, Filled, maker.Status)
	assert.Equal(t, Filled, taker.Status)
}

func TestIOCCancelsResidualWithNoLiquidity(t *testing.T) {
	book := newTestBook()

	o, err := NewOrder("", book.Symbol, Buy, IOC, dec("1.0"), dec("49000"), true, now())
	require.NoError(t, err)
	trades, err := book.AddOrder(o)
	require.NoError(t, err)

	assert.Empty(t, trades)
	assert.Equal(t, Cancelled, o.Status)
	_, resting := book.RestingOrder(o.OrderID)
	assert.False(t, resting)
}

func TestFOKAllOrNothing(t *testing.T) {
	book := newTestBook()

	maker, _ := placeLimit(t, book, Sell, "50100", "0.5")

	taker, err := NewOrder("", book.Symbol, Buy, FOK, dec("1.0"), dec("50200"), true, now())
	require.NoError(t, err)
	trades, err := book.AddOrder(taker)
	require.NoError(t, err)

	assert.Empty(t, trades)
	assert.Equal(t, Cancelled, taker.Status)
	assert.Equal(t, Pending, maker.Status)
	assert.True(t, maker.RemainingQuantity().Equal(dec("0.5")))
}

func TestMarketOrderStopsWhenExhausted(t *testing.T) {
	book := newTestBook()

	placeLimit(t, book, Sell, "50000", "0.5")
	placeLimit(t, book, Sell, "50010", "0.5")
	placeLimit(t, book, Sell, "50020", "0.5")

	taker, err := NewOrder("", book.Symbol, Buy, Market, dec("0.5"), decimal.Zero, false, now())
	require.NoError(t, err)
	trades, err := book.AddOrder(taker)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("50000")))
	assert.Equal(t, Filled, taker.Status)

	ask, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(dec("50010")))
}

func TestPartialFillWithRest(t *testing.T) {
	book := newTestBook()

	maker, _ := placeLimit(t, book, Sell, "50000", "0.4")
	taker, trades := placeLimit(t, book, Buy, "50000", "1.0")

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(dec("0.4")))
	assert.Equal(t, Filled, maker.Status)
	assert.Equal(t, PartiallyFilled, taker.Status)
	assert.True(t, taker.RemainingQuantity().Equal(dec("0.6")))

	bestBid, ok := book.BestBid()
	require.True(t, ok)
	assert.True(t, bestBid.Equal(dec("50000")))
	_, askOk := book.BestAsk()
	assert.False(t, askOk)
}

func TestCancelUnknownOrTerminalOrderFails(t *testing.T) {
	book := newTestBook()
	assert.False(t, book.CancelOrder("does-not-exist"))

	maker, _ := placeLimit(t, book, Sell, "50000", "1.0")
	_, trades := placeLimit(t, book, Buy, "50000", "1.0")
	require.Len(t, trades, 1)
	assert.Equal(t, Filled, maker.Status)

	assert.False(t, book.CancelOrder(maker.OrderID))
}

func TestNonCrossingLimitNeverTrades(t *testing.T) {
	book := newTestBook()
	placeLimit(t, book, Sell, "50100", "1.0")

	_, trades := placeLimit(t, book, Buy, "50000", "1.0")
	assert.Empty(t, trades)

	bestBid, ok := book.BestBid()
	require.True(t, ok)
	assert.True(t, bestBid.Equal(dec("50000")))
}

func TestDepthReturnsBestFirst(t *testing.T) {
	book := newTestBook()
	placeLimit(t, book, Buy, "99", "1.0")
	placeLimit(t, book, Buy, "98", "1.0")
	placeLimit(t, book, Sell, "101", "1.0")
	placeLimit(t, book, Sell, "102", "1.0")

	bids, asks := book.Depth(10)
	require.Len(t, bids, 2)
	require.Len(t, asks, 2)
	assert.True(t, bids[0].Price.Equal(dec("99")))
	assert.True(t, bids[1].Price.Equal(dec("98")))
	assert.True(t, asks[0].Price.Equal(dec("101")))
	assert.True(t, asks[1].Price.Equal(dec("102")))
}

func TestPriceLevelTotalQuantityInvariant(t *testing.T) {
	book := newTestBook()
	placeLimit(t, book, Buy, "100", "1.0")
	placeLimit(t, book, Buy, "100", "2.0")

	lvl, ok := book.Bids.Get(&PriceLevel{Price: dec("100")})
	require.True(t, ok)

	sum := decimal.Zero
	for _, o := range lvl.Orders {
		sum = sum.Add(o.RemainingQuantity())
	}
	assert.True(t, sum.Equal(lvl.TotalQuantity))
}
