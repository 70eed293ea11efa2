package matching

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is an immutable record of one execution between a maker (the
// resting order consumed) and a taker (the incoming order that crossed
// it). Trade price is always the maker's resting price.
type Trade struct {
	TradeID       string
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	MakerOrderID  string
	TakerOrderID  string
	AggressorSide Side
	Timestamp     time.Time
}

// newTrade constructs a Trade. The aggressor side is always the taker's
// side, and price is always the maker's resting price (price improvement
// accrues to the taker, never the maker).
func newTrade(symbol string, price, quantity decimal.Decimal, maker, taker *Order, now time.Time) Trade {
	return Trade{
		TradeID:       uuid.New().String(),
		Symbol:        symbol,
		Price:         price,
		Quantity:      quantity,
		MakerOrderID:  maker.OrderID,
		TakerOrderID:  taker.OrderID,
		AggressorSide: taker.Side,
		Timestamp:     now,
	}
}
