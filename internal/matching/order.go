package matching

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fill is an append-only record of one partial or full execution against
// a single order. Fills are never mutated once appended.
type Fill struct {
	FillID    string
	OrderID   string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// Order carries the immutable identity of a submission plus its mutable
// fill state. Once Status reaches Filled or Cancelled no further fills or
// cancellations are accepted (see ApplyFill, Cancel).
type Order struct {
	OrderID   string
	Symbol    string
	Side      Side
	OrderType OrderType

	// Quantity is the original requested quantity. Price is required and
	// must be positive for Limit, IOC and FOK orders; it is the zero
	// Decimal for Market orders.
	Quantity decimal.Decimal
	Price    decimal.Decimal

	FilledQuantity decimal.Decimal
	Status         OrderStatus

	CreatedAt time.Time
	UpdatedAt time.Time

	Fills []Fill
}

// NewOrder validates the supplied fields and constructs a fresh, PENDING
// order. It never mutates any shared state: a failed construction leaves
// nothing behind for the caller to clean up.
func NewOrder(orderID, symbol string, side Side, orderType OrderType, quantity, price decimal.Decimal, hasPrice bool, now time.Time) (*Order, error) {
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if quantity.Sign() <= 0 {
		return nil, ErrNonPositiveQty
	}

	switch orderType {
	case Market:
		if hasPrice {
			return nil, ErrUnexpectedPrice
		}
		price = decimal.Zero
	case Limit, IOC, FOK:
		if !hasPrice {
			return nil, ErrMissingPrice
		}
		if price.Sign() <= 0 {
			return nil, ErrNonPositivePrice
		}
	default:
		return nil, ErrInvalidOrderType
	}

	if orderID == "" {
		orderID = uuid.New().String()
	}

	return &Order{
		OrderID:        orderID,
		Symbol:         symbol,
		Side:           side,
		OrderType:      orderType,
		Quantity:       quantity,
		Price:          price,
		FilledQuantity: decimal.Zero,
		Status:         Pending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RemainingQuantity is Quantity - FilledQuantity.
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// CanMatchWith reports whether the order would cross a resting order at
// otherPrice: true for MARKET orders unconditionally, for BUY orders
// whose price is >= otherPrice, and for SELL orders whose price is <=
// otherPrice.
func (o *Order) CanMatchWith(otherPrice decimal.Decimal) bool {
	if o.OrderType == Market {
		return true
	}
	if o.Side == Buy {
		return o.Price.GreaterThanOrEqual(otherPrice)
	}
	return o.Price.LessThanOrEqual(otherPrice)
}

// ApplyFill records a fill of the given quantity at the given price,
// updating FilledQuantity and Status. quantity must be in (0,
// RemainingQuantity]; callers (the matching loop) are responsible for
// only ever offering valid quantities since this is an internal
// invariant, not an externally reachable error path.
func (o *Order) ApplyFill(quantity, price decimal.Decimal, now time.Time) {
	if o.Status.IsTerminal() {
		panic("matching: fill on terminal order")
	}
	remaining := o.RemainingQuantity()
	if quantity.Sign() <= 0 || quantity.GreaterThan(remaining) {
		panic("matching: invalid fill quantity")
	}

	o.Fills = append(o.Fills, Fill{
		FillID:    uuid.New().String(),
		OrderID:   o.OrderID,
		Price:     price,
		Quantity:  quantity,
		Timestamp: now,
	})
	o.FilledQuantity = o.FilledQuantity.Add(quantity)
	o.UpdatedAt = now

	if o.FilledQuantity.Equal(o.Quantity) {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
}

// Cancel transitions the order to CANCELLED. Legal only from PENDING or
// PARTIALLY_FILLED.
func (o *Order) Cancel(now time.Time) error {
	if o.Status != Pending && o.Status != PartiallyFilled {
		return ErrOrderTerminal
	}
	o.Status = Cancelled
	o.UpdatedAt = now
	return nil
}

// Snapshot returns a value copy of the order suitable for handing to a
// caller or subscriber: the Fills slice is copied so that holders cannot
// observe further mutation of the live order.
func (o *Order) Snapshot() Order {
	cp := *o
	cp.Fills = append([]Fill(nil), o.Fills...)
	return cp
}
