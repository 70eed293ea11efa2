package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/saiputravu/matchcore/internal/matching"
)

func main() {
	_, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	eng := matching.NewMatchingEngine(matching.DefaultConfig())
	eng.SubscribeTrades(func(event matching.TradeEvent) {
		log.Info().
			Str("symbol", event.Symbol).
			Str("price", event.Price).
			Str("quantity", event.Quantity).
			Str("maker", event.MakerOrderID).
			Str("taker", event.TakerOrderID).
			Msg("trade executed")
	})
	eng.Start()
	defer eng.Stop()

	// Walk a single BTC-USDT book through a resting sell, a crossing
	// buy with price improvement, an IOC with no liquidity, another
	// resting sell, and an unfillable FOK.
	submit(eng, matching.OrderRequest{Symbol: "BTC-USDT", Side: "SELL", OrderType: "LIMIT", Quantity: "1.0", Price: "50000", HasPrice: true})
	submit(eng, matching.OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "LIMIT", Quantity: "1.0", Price: "50100", HasPrice: true})
	submit(eng, matching.OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "IOC", Quantity: "1.0", Price: "49000", HasPrice: true})
	submit(eng, matching.OrderRequest{Symbol: "BTC-USDT", Side: "SELL", OrderType: "LIMIT", Quantity: "0.5", Price: "50100", HasPrice: true})
	submit(eng, matching.OrderRequest{Symbol: "BTC-USDT", Side: "BUY", OrderType: "FOK", Quantity: "1.0", Price: "50200", HasPrice: true})

	bbo, _ := eng.GetBBO("BTC-USDT")
	log.Info().Interface("bbo", bbo).Msg("final book state")
}

func submit(eng *matching.MatchingEngine, req matching.OrderRequest) {
	result, err := eng.Submit(req)
	if err != nil {
		log.Error().Err(err).Msg("submit rejected")
		return
	}
	log.Info().
		Str("order_id", result.Order.OrderID).
		Str("status", result.Order.Status.String()).
		Int("trades", len(result.Trades)).
		Msg("submit accepted")
}
