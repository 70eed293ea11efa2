package matching

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Config carries the engine's supported symbol list and the bounds on
// the read-only query surface. The core reads no environment variables
// itself; a caller builds Config and passes it to NewMatchingEngine.
type Config struct {
	// SupportedSymbols, if non-empty, restricts Submit to these symbols
	// (matched case-insensitively). Empty means every symbol is
	// accepted.
	SupportedSymbols []string

	DefaultDepthLevels int
	MaxDepthLevels     int

	DefaultRecentTrades int
	MaxRecentTrades     int
}

// DefaultConfig returns sane bounds for depth and recent-trade queries
// (depth in [1,100], recent trades in [1,1000]).
func DefaultConfig() Config {
	return Config{
		DefaultDepthLevels:  10,
		MaxDepthLevels:      100,
		DefaultRecentTrades: 50,
		MaxRecentTrades:     1000,
	}
}

// OrderRequest is the structured input to Submit. Quantity and Price
// are decimal strings: the in-process Go boundary
// takes exact decimal text, leaving any string/number coercion from an
// external wire format to the transport that owns that format.
type OrderRequest struct {
	OrderID   string
	Symbol    string
	Side      string
	OrderType string
	Quantity  string
	Price     string
	HasPrice  bool
}

// SubmitResult is returned by a successful Submit: the trades produced
// (possibly empty) and a snapshot of the order's state afterward.
type SubmitResult struct {
	Trades []Trade
	Order  Order
}

// SymbolStatistics is the per-symbol breakdown of Statistics.
type SymbolStatistics struct {
	OrdersProcessed uint64
	TradesExecuted  uint64
	TotalVolume     decimal.Decimal
}

// Statistics is the result of MatchingEngine.GetStatistics().
type Statistics struct {
	OrdersProcessed uint64
	TradesExecuted  uint64
	PerSymbol       map[string]SymbolStatistics
}

// MatchingEngine dispatches submissions to the correct per-symbol book,
// owns the global order-id index and trade history, and publishes
// events to subscribers. It holds no persistent resources: Start/Stop
// only manage the notification dispatcher goroutine.
type MatchingEngine struct {
	mu sync.Mutex

	config Config
	books  map[string]*OrderBook

	// orders indexes every order this engine has ever accepted, including
	// terminated ones, so status queries work after an order leaves its
	// book.
	orders map[string]*Order

	tradesBySymbol map[string][]Trade
	stats          map[string]*SymbolStatistics
	ordersTotal    uint64
	tradesTotal    uint64

	marketDataSubs []MarketDataSubscriber
	tradeSubs      []TradeSubscriber
	bboSubs        []BBOSubscriber

	notifier *notifier
	running  bool
}

// NewMatchingEngine constructs an engine with the given configuration.
// It is not started; call Start before routing submissions that need
// asynchronous notification delivery (Submit itself works before Start,
// but subscriber callbacks will simply queue up undelivered until
// Start is called).
func NewMatchingEngine(config Config) *MatchingEngine {
	return &MatchingEngine{
		config:         config,
		books:          make(map[string]*OrderBook),
		orders:         make(map[string]*Order),
		tradesBySymbol: make(map[string][]Trade),
		stats:          make(map[string]*SymbolStatistics),
		notifier:       newNotifier(),
	}
}

// Start brings the engine's notification dispatcher to a clean running
// state.
func (e *MatchingEngine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.notifier.Start()
	e.running = true
	log.Info().Msg("matching engine started")
}

// Stop tears down the notification dispatcher. No in-flight matching
// work exists to drain: Submit and Cancel never suspend mid-match, so
// by the time Stop is called every prior call has already completed in
// full.
func (e *MatchingEngine) Stop() {
	e.mu.Lock()
	running := e.running
	e.running = false
	e.mu.Unlock()

	if running {
		e.notifier.Stop()
		log.Info().Msg("matching engine stopped")
	}
}

// IsRunning reports whether Start has been called without a matching
// Stop.
func (e *MatchingEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SubscribeMarketData registers cb to receive an event for a symbol's
// book whenever it changes. Subscribers are invoked in registration
// order.
func (e *MatchingEngine) SubscribeMarketData(cb MarketDataSubscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marketDataSubs = append(e.marketDataSubs, cb)
}

// SubscribeTrades registers cb to receive one event per executed trade.
func (e *MatchingEngine) SubscribeTrades(cb TradeSubscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tradeSubs = append(e.tradeSubs, cb)
}

// SubscribeBBO registers cb to receive the optional BBO event.
func (e *MatchingEngine) SubscribeBBO(cb BBOSubscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bboSubs = append(e.bboSubs, cb)
}

// Submit validates req, constructs an Order, routes it to the book for
// its symbol, and runs the matching algorithm. Validation failures are
// local and leave engine state untouched; once an order is constructed
// it cannot fail to be matched (it may simply produce zero trades).
func (e *MatchingEngine) Submit(req OrderRequest) (*SubmitResult, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}

	side, err := ParseSide(req.Side)
	if err != nil {
		return nil, err
	}
	orderType, err := ParseOrderType(req.OrderType)
	if err != nil {
		return nil, err
	}

	quantity, err := parseDecimal(req.Quantity)
	if err != nil {
		return nil, err
	}

	var price decimal.Decimal
	if req.HasPrice {
		price, err = parseDecimal(req.Price)
		if err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.symbolSupported(symbol) {
		return nil, ErrSymbolNotSupported
	}
	if req.OrderID != "" {
		if _, exists := e.orders[req.OrderID]; exists {
			return nil, ErrDuplicateOrderID
		}
	}

	order, err := NewOrder(req.OrderID, symbol, side, orderType, quantity, price, req.HasPrice, time.Now())
	if err != nil {
		return nil, err
	}

	// Record in the global index before matching so status queries see
	// in-flight orders.
	e.orders[order.OrderID] = order

	book := e.getOrCreateBook(symbol)
	trades, err := book.AddOrder(order)
	if err != nil {
		// Construction succeeded but routing failed (symbol mismatch):
		// this cannot happen since getOrCreateBook always returns a book
		// for `symbol`, but undo the index write defensively so no
		// partial state survives a theoretical future bug here.
		delete(e.orders, order.OrderID)
		return nil, err
	}

	e.recordTrades(symbol, trades)
	e.ordersTotal++
	e.symbolStats(symbol).OrdersProcessed++

	result := &SubmitResult{Trades: trades, Order: order.Snapshot()}
	e.publish(symbol, trades)
	return result, nil
}

// Cancel delegates to the order's owning book. Returns an error for an
// unknown id or a terminal order.
func (e *MatchingEngine) Cancel(orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if order.Status.IsTerminal() {
		return ErrOrderTerminal
	}

	book, ok := e.books[order.Symbol]
	if !ok {
		return ErrOrderNotFound
	}
	if !book.CancelOrder(orderID) {
		return ErrOrderNotResting
	}

	e.publish(order.Symbol, nil)
	return nil
}

// OrderStatus returns a snapshot of the order's current state,
// including terminal orders.
func (e *MatchingEngine) OrderStatus(orderID string) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return order.Snapshot(), nil
}

// GetBBO returns the current best bid/offer for symbol.
func (e *MatchingEngine) GetBBO(symbol string) (BBO, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, ok := e.books[strings.ToUpper(symbol)]
	if !ok {
		return BBO{Symbol: strings.ToUpper(symbol)}, nil
	}
	return book.GetBBO(), nil
}

// GetDepth returns the top `levels` price levels per side for symbol.
// levels is bounded by the engine's configured maximum.
func (e *MatchingEngine) GetDepth(symbol string, levels int) (bids, asks []DepthLevel, err error) {
	if levels <= 0 {
		levels = e.config.DefaultDepthLevels
	}
	if levels > e.config.MaxDepthLevels {
		return nil, nil, ErrInvalidDepth
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	book, ok := e.books[strings.ToUpper(symbol)]
	if !ok {
		return nil, nil, nil
	}
	bids, asks = book.Depth(levels)
	return bids, asks, nil
}

// GetRecentTrades returns the most recent `limit` trades for symbol in
// chronological order.
func (e *MatchingEngine) GetRecentTrades(symbol string, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = e.config.DefaultRecentTrades
	}
	if limit > e.config.MaxRecentTrades {
		return nil, ErrInvalidLimit
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	history := e.tradesBySymbol[strings.ToUpper(symbol)]
	if len(history) <= limit {
		out := make([]Trade, len(history))
		copy(out, history)
		return out, nil
	}
	start := len(history) - limit
	out := make([]Trade, limit)
	copy(out, history[start:])
	return out, nil
}

// GetStatistics returns the engine-wide and per-symbol counters.
func (e *MatchingEngine) GetStatistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	perSymbol := make(map[string]SymbolStatistics, len(e.stats))
	for symbol, s := range e.stats {
		perSymbol[symbol] = *s
	}
	return Statistics{
		OrdersProcessed: e.ordersTotal,
		TradesExecuted:  e.tradesTotal,
		PerSymbol:       perSymbol,
	}
}

func (e *MatchingEngine) symbolSupported(symbol string) bool {
	if len(e.config.SupportedSymbols) == 0 {
		return true
	}
	for _, s := range e.config.SupportedSymbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

func (e *MatchingEngine) getOrCreateBook(symbol string) *OrderBook {
	book, ok := e.books[symbol]
	if !ok {
		book = NewOrderBook(symbol)
		e.books[symbol] = book
		log.Info().Str("symbol", symbol).Msg("order book created")
	}
	return book
}

func (e *MatchingEngine) symbolStats(symbol string) *SymbolStatistics {
	s, ok := e.stats[symbol]
	if !ok {
		s = &SymbolStatistics{TotalVolume: decimal.Zero}
		e.stats[symbol] = s
	}
	return s
}

func (e *MatchingEngine) recordTrades(symbol string, trades []Trade) {
	if len(trades) == 0 {
		return
	}
	e.tradesBySymbol[symbol] = append(e.tradesBySymbol[symbol], trades...)
	e.tradesTotal += uint64(len(trades))

	stats := e.symbolStats(symbol)
	stats.TradesExecuted += uint64(len(trades))
	for _, tr := range trades {
		stats.TotalVolume = stats.TotalVolume.Add(tr.Quantity)
	}
}

// publish builds immutable event snapshots from the book's current
// state and hands them to the notifier, deferring delivery to after
// matching has fully completed. trades may be nil for a book-only
// change (e.g. a cancel) that produced no executions.
func (e *MatchingEngine) publish(symbol string, trades []Trade) {
	book, ok := e.books[symbol]
	if !ok {
		return
	}
	now := time.Now()
	bids, asks := book.Depth(e.config.DefaultDepthLevels)
	marketData := newMarketDataEvent(symbol, bids, asks, now)
	bboEvent := newBBOEvent(book.GetBBO(), now)

	marketSubs := append([]MarketDataSubscriber(nil), e.marketDataSubs...)
	bboSubs := append([]BBOSubscriber(nil), e.bboSubs...)

	e.notifier.Enqueue(func() {
		for _, sub := range marketSubs {
			invokeMarketDataSubscriber(sub, marketData)
		}
		for _, sub := range bboSubs {
			invokeBBOSubscriber(sub, bboEvent)
		}
	})

	if len(trades) == 0 {
		return
	}
	tradeSubs := append([]TradeSubscriber(nil), e.tradeSubs...)
	events := make([]TradeEvent, len(trades))
	for i, tr := range trades {
		events[i] = newTradeEvent(tr)
	}
	e.notifier.Enqueue(func() {
		for _, event := range events {
			for _, sub := range tradeSubs {
				invokeTradeSubscriber(sub, event)
			}
		}
	})
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, ErrDecimalParse
	}
	return d, nil
}
