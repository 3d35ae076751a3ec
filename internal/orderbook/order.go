package orderbook

import (
	"fmt"

	"matchcore/internal/decimal"
)

// Side is the side of an order or price level.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType is the execution policy requested for an order.
type OrderType int

const (
	// Market executes immediately against the best available price;
	// any unfilled remainder is cancelled, never rests.
	Market OrderType = iota
	// Limit executes up to its limit price and rests any remainder.
	Limit
	// IOC (Immediate-Or-Cancel) executes up to its limit price; any
	// unfilled remainder is cancelled, never rests.
	IOC
	// FOK (Fill-Or-Kill) must execute in full at its limit price or
	// not at all.
	FOK
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "UNKNOWN"
	}
}

// RequiresPrice reports whether this order type requires a limit price.
func (t OrderType) RequiresPrice() bool {
	return t != Market
}

// CanRest reports whether an unfilled remainder of this order type may
// be placed on the book.
func (t OrderType) CanRest() bool {
	return t == Limit
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus int

const (
	Pending OrderStatus = iota
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s OrderStatus) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the status is a terminal state: no further
// fills or cancellation can occur from it.
func (s OrderStatus) IsTerminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// Order is a single order admitted to, or rejected by, the matching
// engine.
type Order struct {
	ID             string
	Symbol         string
	Side           Side
	Type           OrderType
	Price          decimal.Decimal // zero value for Market
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	Timestamp      int64 // nanoseconds since epoch, admission time
	Sequence       uint64
	Status         OrderStatus
	UserID         string

	// node links this order into its resting PriceLevel's FIFO queue.
	// Nil when the order is not currently resting.
	node *orderNode
}

// RemainingQuantity returns quantity not yet filled.
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.RemainingQuantity().Sign() <= 0
}

// ApplyFill applies a fill of qty to the taker side of a match. The
// matching engine calls this directly since it manipulates the taker
// order outside the book's own index structures; maker fills go
// through OrderBook.ConsumeHead instead, which keeps the book's
// cached quantities and id index consistent.
func (o *Order) ApplyFill(qty decimal.Decimal) {
	o.fill(qty)
}

// fill applies a fill of qty to the order and updates its status.
func (o *Order) fill(qty decimal.Decimal) {
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	switch {
	case o.IsFilled():
		o.Status = Filled
	case o.FilledQuantity.Sign() > 0:
		o.Status = PartiallyFilled
	}
}

// Clone returns an immutable value copy suitable for returning from
// query APIs.
func (o *Order) Clone() *Order {
	c := *o
	c.node = nil
	return &c
}

func (o *Order) String() string {
	return fmt.Sprintf("Order{%s %s %s %s@%s filled=%s status=%s}",
		o.ID, o.Side, o.Symbol, o.Quantity, o.Price, o.FilledQuantity, o.Status)
}

// TradeExecution is a single completed match between a taker and a
// resting maker order. Immutable after emission.
type TradeExecution struct {
	TradeID       string
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	AggressorSide Side
	MakerOrderID  string
	TakerOrderID  string
	Timestamp     int64
}

func (t *TradeExecution) String() string {
	return fmt.Sprintf("Trade{%s %s %s@%s maker=%s taker=%s}",
		t.TradeID, t.Symbol, t.Quantity, t.Price, t.MakerOrderID, t.TakerOrderID)
}
