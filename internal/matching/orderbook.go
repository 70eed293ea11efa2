package matching

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// PriceLevels is the ordered structure backing one side of a book: a
// tidwall/btree ordered map keyed by price, giving O(log n) insertion
// with precise (non-lazy) deletion, so an emptied level is removed
// outright rather than left behind as a stale entry.
type PriceLevels = btree.BTreeG[*PriceLevel]

// PriceQuantity is a single (price, aggregate quantity) point, used for
// BBO and depth results.
type PriceQuantity struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// DepthLevel is one level of a depth snapshot: aggregate price and
// quantity, matching spec.md §6's [[price,qty],...] wire shape.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// BBO is the current best bid and offer. Either side may be absent when
// that side of the book is empty.
type BBO struct {
	Symbol  string
	BestBid *PriceQuantity
	BestAsk *PriceQuantity
}

// OrderBook is the per-symbol matching book: two price ladders, a
// resting-order index, and the price-time-priority matching algorithm.
type OrderBook struct {
	Symbol string

	// Bids is ordered highest price first; Asks lowest price first. Both
	// are ordered maps, not heaps, so emptied levels are deleted outright
	// rather than tolerated as stale entries.
	Bids *PriceLevels
	Asks *PriceLevels

	// resting indexes every order currently live in this book by id, for
	// O(1) cancel lookups.
	resting map[string]*Order
}

// NewOrderBook constructs an empty book for symbol.
func NewOrderBook(symbol string) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price)
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price)
	})
	return &OrderBook{
		Symbol:  symbol,
		Bids:    bids,
		Asks:    asks,
		resting: make(map[string]*Order),
	}
}

func (book *OrderBook) ownTree(side Side) *PriceLevels {
	if side == Buy {
		return book.Bids
	}
	return book.Asks
}

func (book *OrderBook) oppositeTree(side Side) *PriceLevels {
	if side == Buy {
		return book.Asks
	}
	return book.Bids
}

// AddOrder runs the matching algorithm against the incoming order and
// returns the trades it produced. It either fully
// processes the order (matched and/or rested, and registered in the
// resting index) or leaves the book entirely unchanged -- there is no
// partial-application state between those two outcomes.
func (book *OrderBook) AddOrder(o *Order) ([]Trade, error) {
	if o.Symbol != book.Symbol {
		return nil, ErrSymbolMismatch
	}

	now := time.Now()
	trades := make([]Trade, 0)

	// Step 2: FOK pre-scan. An unfillable FOK order is cancelled before
	// touching the book at all, with zero fills.
	if o.OrderType == FOK && !book.canFillFOK(o) {
		o.Status = Cancelled
		o.UpdatedAt = now
		return trades, nil
	}

	oppTree := book.oppositeTree(o.Side)

	// Steps 3-6: walk the opposite side, best price first, consuming
	// every order at a level (FIFO, time priority) before advancing to
	// the next price. This is the no-trade-through guarantee: a level is
	// never partially skipped in favor of a worse one.
	for o.RemainingQuantity().Sign() > 0 {
		lvl, ok := oppTree.MinMut()
		if !ok {
			break
		}
		if o.OrderType != Market && !o.CanMatchWith(lvl.Price) {
			break
		}

		for o.RemainingQuantity().Sign() > 0 && !lvl.Empty() {
			maker := lvl.Peek()
			tradeQty := decimal.Min(o.RemainingQuantity(), maker.RemainingQuantity())
			tradePrice := maker.Price // maker's price always wins: price improvement for the taker

			o.ApplyFill(tradeQty, tradePrice, now)
			maker.ApplyFill(tradeQty, tradePrice, now)
			lvl.ReduceHead(tradeQty)

			trades = append(trades, newTrade(book.Symbol, tradePrice, tradeQty, maker, o, now))

			if maker.RemainingQuantity().IsZero() {
				lvl.Pop()
				delete(book.resting, maker.OrderID)
			}
		}

		if lvl.Empty() {
			oppTree.Delete(lvl)
		}
	}

	book.applyResidual(o, now)
	return trades, nil
}

// canFillFOK reports whether the cumulative quantity available at prices
// acceptable to o is at least o's remaining quantity.
func (book *OrderBook) canFillFOK(o *Order) bool {
	available := decimal.Zero
	book.oppositeTree(o.Side).Scan(func(lvl *PriceLevel) bool {
		if !o.CanMatchWith(lvl.Price) {
			return false
		}
		available = available.Add(lvl.TotalQuantity)
		return available.LessThan(o.RemainingQuantity())
	})
	return available.GreaterThanOrEqual(o.RemainingQuantity())
}

// applyResidual decides what happens to whatever quantity is left after
// matching, per order type.
func (book *OrderBook) applyResidual(o *Order, now time.Time) {
	remaining := o.RemainingQuantity()

	switch o.OrderType {
	case Market:
		// Any remaining quantity is discarded; it never rests.
		if remaining.IsZero() {
			o.Status = Filled
		} else {
			o.Status = Cancelled
		}
	case Limit:
		if remaining.Sign() > 0 {
			book.restOrder(o)
			if o.FilledQuantity.IsZero() {
				o.Status = Pending
			} else {
				o.Status = PartiallyFilled
			}
		} else {
			o.Status = Filled
		}
	case IOC:
		if remaining.Sign() > 0 {
			o.Status = Cancelled
		} else {
			o.Status = Filled
		}
	case FOK:
		// canFillFOK guarantees full execution once we reach here.
		o.Status = Filled
	}
	o.UpdatedAt = now
}

// restOrder inserts o at the tail of its own-side price level, creating
// the level if it does not exist yet, and records it in the resting
// index.
func (book *OrderBook) restOrder(o *Order) {
	tree := book.ownTree(o.Side)
	lvl, ok := tree.GetMut(&PriceLevel{Price: o.Price})
	if !ok {
		lvl = newPriceLevel(o.Price)
		tree.Set(lvl)
	}
	lvl.Append(o)
	book.resting[o.OrderID] = o
}

// CancelOrder removes the order from its price level and marks it
// CANCELLED. It reports false if the id is unknown or the order is not
// currently resting.
func (book *OrderBook) CancelOrder(orderID string) bool {
	o, ok := book.resting[orderID]
	if !ok {
		return false
	}
	if err := o.Cancel(time.Now()); err != nil {
		return false
	}

	tree := book.ownTree(o.Side)
	if lvl, ok := tree.GetMut(&PriceLevel{Price: o.Price}); ok {
		lvl.Remove(orderID)
		if lvl.Empty() {
			tree.Delete(lvl)
		}
	}
	delete(book.resting, orderID)
	return true
}

// RestingOrder returns the live resting order for id, if any.
func (book *OrderBook) RestingOrder(orderID string) (*Order, bool) {
	o, ok := book.resting[orderID]
	return o, ok
}

// BestBid returns the highest resting bid price, if any.
func (book *OrderBook) BestBid() (decimal.Decimal, bool) {
	lvl, ok := book.Bids.Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest resting ask price, if any.
func (book *OrderBook) BestAsk() (decimal.Decimal, bool) {
	lvl, ok := book.Asks.Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}

// Spread returns BestAsk - BestBid, if both sides are present.
func (book *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, ok := book.Bids.Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	ask, ok := book.Asks.Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// GetBBO returns the current best bid and offer, with per-side
// quantities, as a single snapshot.
func (book *OrderBook) GetBBO() BBO {
	bbo := BBO{Symbol: book.Symbol}
	if lvl, ok := book.Bids.Min(); ok {
		bbo.BestBid = &PriceQuantity{Price: lvl.Price, Quantity: lvl.TotalQuantity}
	}
	if lvl, ok := book.Asks.Min(); ok {
		bbo.BestAsk = &PriceQuantity{Price: lvl.Price, Quantity: lvl.TotalQuantity}
	}
	return bbo
}

// Depth returns up to `levels` price levels per side, best price first.
func (book *OrderBook) Depth(levels int) (bids, asks []DepthLevel) {
	return book.topLevels(book.Bids, levels), book.topLevels(book.Asks, levels)
}

func (book *OrderBook) topLevels(tree *PriceLevels, n int) []DepthLevel {
	result := make([]DepthLevel, 0, n)
	tree.Scan(func(lvl *PriceLevel) bool {
		result = append(result, DepthLevel{
			Price:    lvl.Price,
			Quantity: lvl.TotalQuantity,
		})
		return len(result) < n
	})
	return result
}
