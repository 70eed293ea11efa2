package matching

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *MatchingEngine {
	return NewMatchingEngine(DefaultConfig())
}

func TestSubmitValidatesBeforeAnyStateChange(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.Submit(OrderRequest{Symbol: "", Side: "BUY", OrderType: "LIMIT", Quantity: "1", Price: "1", HasPrice: true})
	assert.ErrorIs(t, err, ErrEmptySymbol)

	_, err = eng.Submit(OrderRequest{Symbol: "BTC-USDT", Side: "WRONG", OrderType: "LIMIT", Quantity: "1", Price: "1", HasPrice: true})
	assert.ErrorIs(t, err, ErrInvalidSide)

	_, err = eng.Submit(OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "-1", Price: "1", HasPrice: true})
	assert.ErrorIs(t, err, ErrNonPositiveQty)

	_, err = eng.Submit(OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1", HasPrice: false})
	assert.ErrorIs(t, err, ErrMissingPrice)

	_, err = eng.Submit(OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1", Price: "not-a-number", HasPrice: true})
	assert.ErrorIs(t, err, ErrDecimalParse)

	stats := eng.GetStatistics()
	assert.Equal(t, uint64(0), stats.OrdersProcessed)
}

func TestSubmitRejectsUnsupportedSymbol(t *testing.T) {
	eng := NewMatchingEngine(Config{SupportedSymbols: []string{"BTC-USDT"}, DefaultDepthLevels: 10, MaxDepthLevels: 100, DefaultRecentTrades: 50, MaxRecentTrades: 1000})

	_, err := eng.Submit(OrderRequest{Symbol: "ETH-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1", Price: "1", HasPrice: true})
	assert.ErrorIs(t, err, ErrSymbolNotSupported)
}

func TestSubmitRoutesToBookAndRecordsHistory(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.Submit(OrderRequest{Symbol: "btc-usdt", Side: "SELL", OrderType: "LIMIT", Quantity: "1.0", Price: "50000", HasPrice: true})
	require.NoError(t, err)

	result, err := eng.Submit(OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1.0", Price: "50000", HasPrice: true})
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	trades, err := eng.GetRecentTrades("BTC-USDT", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	stats := eng.GetStatistics()
	assert.Equal(t, uint64(2), stats.OrdersProcessed)
	assert.Equal(t, uint64(1), stats.TradesExecuted)
	assert.True(t, stats.PerSymbol["BTC-USDT"].TotalVolume.Equal(dec("1.0")))
}

func TestCancelUnknownAndTerminalOrders(t *testing.T) {
	eng := newTestEngine()

	err := eng.Cancel("does-not-exist")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	result, err := eng.Submit(OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1.0", Price: "100", HasPrice: true})
	require.NoError(t, err)

	require.NoError(t, eng.Cancel(result.Order.OrderID))
	err = eng.Cancel(result.Order.OrderID)
	assert.ErrorIs(t, err, ErrOrderTerminal)

	status, err := eng.OrderStatus(result.Order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, status.Status)
}

func TestDuplicateOrderIDRejected(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.Submit(OrderRequest{OrderID: "client-1", Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1.0", Price: "100", HasPrice: true})
	require.NoError(t, err)

	_, err = eng.Submit(OrderRequest{OrderID: "client-1", Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1.0", Price: "100", HasPrice: true})
	assert.ErrorIs(t, err, ErrDuplicateOrderID)
}

func TestSubscribersReceiveEventsAndSurvivePanics(t *testing.T) {
	eng := newTestEngine()
	eng.Start()
	defer eng.Stop()

	var mu sync.Mutex
	var tradeCount int
	var marketDataCount int

	eng.SubscribeTrades(func(event TradeEvent) {
		panic("boom")
	})
	eng.SubscribeTrades(func(event TradeEvent) {
		mu.Lock()
		tradeCount++
		mu.Unlock()
	})
	eng.SubscribeMarketData(func(event MarketDataEvent) {
		mu.Lock()
		marketDataCount++
		mu.Unlock()
	})

	_, err := eng.Submit(OrderRequest{Symbol: "BTC-USDT", Side: "SELL", OrderType: "LIMIT", Quantity: "1.0", Price: "50000", HasPrice: true})
	require.NoError(t, err)
	_, err = eng.Submit(OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1.0", Price: "50000", HasPrice: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return tradeCount == 1 && marketDataCount == 2
	}, time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotentAndIsRunningReflectsState(t *testing.T) {
	eng := newTestEngine()
	assert.False(t, eng.IsRunning())
	eng.Start()
	assert.True(t, eng.IsRunning())
	eng.Stop()
	assert.False(t, eng.IsRunning())
	eng.Stop()
	assert.False(t, eng.IsRunning())
}
