package matching

import (
	"time"

	"github.com/rs/zerolog/log"
)

// TradeEvent is the wire shape of a trade notification: fields are
// pre-serialized to strings so every external transport preserves
// decimal exactness regardless of its own numeric type.
type TradeEvent struct {
	Type          string `json:"type"`
	Timestamp     string `json:"timestamp"`
	Symbol        string `json:"symbol"`
	TradeID       string `json:"trade_id"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
}

func newTradeEvent(tr Trade) TradeEvent {
	return TradeEvent{
		Type:          "trade",
		Timestamp:     tr.Timestamp.UTC().Format(time.RFC3339Nano),
		Symbol:        tr.Symbol,
		TradeID:       tr.TradeID,
		Price:         tr.Price.String(),
		Quantity:      tr.Quantity.String(),
		AggressorSide: tr.AggressorSide.String(),
		MakerOrderID:  tr.MakerOrderID,
		TakerOrderID:  tr.TakerOrderID,
	}
}

// LevelPair is one [price, quantity] point in a market-data event.
type LevelPair struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// MarketDataEvent is the wire shape of an orderbook depth snapshot event.
type MarketDataEvent struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Symbol    string      `json:"symbol"`
	Bids      []LevelPair `json:"bids"`
	Asks      []LevelPair `json:"asks"`
}

func newMarketDataEvent(symbol string, bids, asks []DepthLevel, now time.Time) MarketDataEvent {
	return MarketDataEvent{
		Type:      "orderbook",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Symbol:    symbol,
		Bids:      toLevelPairs(bids),
		Asks:      toLevelPairs(asks),
	}
}

func toLevelPairs(levels []DepthLevel) []LevelPair {
	pairs := make([]LevelPair, len(levels))
	for i, lvl := range levels {
		pairs[i] = LevelPair{Price: lvl.Price.String(), Quantity: lvl.Quantity.String()}
	}
	return pairs
}

// BBOSide is one side of a BBOEvent: nil when that side is empty.
type BBOSide struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// BBOEvent is the wire shape of a best-bid-offer change event.
type BBOEvent struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp"`
	Symbol    string   `json:"symbol"`
	BestBid   *BBOSide `json:"best_bid"`
	BestAsk   *BBOSide `json:"best_ask"`
}

func newBBOEvent(bbo BBO, now time.Time) BBOEvent {
	event := BBOEvent{
		Type:      "bbo",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Symbol:    bbo.Symbol,
	}
	if bbo.BestBid != nil {
		event.BestBid = &BBOSide{Price: bbo.BestBid.Price.String(), Quantity: bbo.BestBid.Quantity.String()}
	}
	if bbo.BestAsk != nil {
		event.BestAsk = &BBOSide{Price: bbo.BestAsk.Price.String(), Quantity: bbo.BestAsk.Quantity.String()}
	}
	return event
}

// MarketDataSubscriber receives a market-data (orderbook) event.
type MarketDataSubscriber func(MarketDataEvent)

// TradeSubscriber receives one event per executed trade.
type TradeSubscriber func(TradeEvent)

// BBOSubscriber receives a BBO event.
type BBOSubscriber func(BBOEvent)

// invokeMarketDataSubscriber calls sub, recovering and logging any
// panic so that one failing subscriber cannot affect book state or
// prevent others from receiving the event.
func invokeMarketDataSubscriber(sub MarketDataSubscriber, event MarketDataEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("symbol", event.Symbol).Msg("market data subscriber panicked")
		}
	}()
	sub(event)
}

func invokeTradeSubscriber(sub TradeSubscriber, event TradeEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("symbol", event.Symbol).Msg("trade subscriber panicked")
		}
	}()
	sub(event)
}

func invokeBBOSubscriber(sub BBOSubscriber, event BBOEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("symbol", event.Symbol).Msg("bbo subscriber panicked")
		}
	}()
	sub(event)
}
