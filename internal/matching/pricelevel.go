package matching

import "github.com/shopspring/decimal"

// PriceLevel is a FIFO queue of live resting orders at a single price,
// with a running aggregate quantity. TotalQuantity is maintained on every
// append, pop, and partial fill of the head order so that depth queries
// never have to re-sum the queue.
type PriceLevel struct {
	Price         decimal.Decimal
	Orders        []*Order
	TotalQuantity decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:         price,
		TotalQuantity: decimal.Zero,
	}
}

// Append adds an order to the tail of the level, preserving arrival
// order for time priority.
func (lvl *PriceLevel) Append(o *Order) {
	lvl.Orders = append(lvl.Orders, o)
	lvl.TotalQuantity = lvl.TotalQuantity.Add(o.RemainingQuantity())
}

// Peek returns the head (highest time priority) order without removing
// it, or nil if the level is empty.
func (lvl *PriceLevel) Peek() *Order {
	if len(lvl.Orders) == 0 {
		return nil
	}
	return lvl.Orders[0]
}

// Pop removes and returns the head order.
func (lvl *PriceLevel) Pop() *Order {
	if len(lvl.Orders) == 0 {
		return nil
	}
	o := lvl.Orders[0]
	lvl.Orders[0] = nil
	lvl.Orders = lvl.Orders[1:]
	lvl.TotalQuantity = lvl.TotalQuantity.Sub(o.RemainingQuantity())
	return o
}

// Remove deletes a specific order from the level by id, wherever it sits
// in the queue. O(n) worst case, acceptable since cancels typically
// target levels with few resting orders.
func (lvl *PriceLevel) Remove(orderID string) bool {
	for i, o := range lvl.Orders {
		if o.OrderID == orderID {
			lvl.TotalQuantity = lvl.TotalQuantity.Sub(o.RemainingQuantity())
			lvl.Orders = append(lvl.Orders[:i], lvl.Orders[i+1:]...)
			return true
		}
	}
	return false
}

// ReduceHead applies a partial fill's quantity reduction to the running
// total without popping the order; call this instead of recomputing
// TotalQuantity from scratch after OrderBook applies a fill to the head.
func (lvl *PriceLevel) ReduceHead(quantity decimal.Decimal) {
	lvl.TotalQuantity = lvl.TotalQuantity.Sub(quantity)
}

// Empty reports whether the level has no live orders.
func (lvl *PriceLevel) Empty() bool {
	return len(lvl.Orders) == 0
}
