package orderbook

import (
	"errors"
	"sync/atomic"

	"matchcore/internal/decimal"
)

// ErrOrderNotFound is returned by Cancel when the order_id is unknown
// to this book.
var ErrOrderNotFound = errors.New("orderbook: order not found")

// ErrNotResting is returned by Cancel when the order exists but is not
// currently resting on the book (already terminal).
var ErrNotResting = errors.New("orderbook: order is not resting")

// OrderBook is the per-symbol price-level-indexed book: two red-black
// trees keyed by price (bids descending, asks ascending) plus an
// order-id index for O(log n) cancellation. OrderBook itself performs
// no locking; callers (the matching engine) serialize access to a
// single symbol through their own exclusive section.
type OrderBook struct {
	Symbol string

	bids *rbTree // descending: best = highest price
	asks *rbTree // ascending: best = lowest price

	byID map[string]*Order

	seq atomic.Uint64
}

// NewOrderBook creates an empty book for symbol.
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   newRBTree(true),
		asks:   newRBTree(false),
		byID:   make(map[string]*Order),
	}
}

// NextSequence returns the next monotonically increasing sequence
// number for this book, used to totally order admissions whose
// wall-clock timestamps collide.
func (b *OrderBook) NextSequence() uint64 {
	return b.seq.Add(1)
}

func (b *OrderBook) treeFor(side Side) *rbTree {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// InsertResting places order on the book. The caller must have already
// confirmed the order is limit-priced and not currently marketable.
func (b *OrderBook) InsertResting(order *Order) {
	tree := b.treeFor(order.Side)
	level := tree.Get(order.Price)
	if level == nil {
		level = newPriceLevel(order.Price)
		tree.Insert(level)
	}
	level.enqueue(order)
	b.byID[order.ID] = order
}

// GetOrder returns the order recorded for order_id, if any. The caller
// owns the returned pointer but should not mutate it; Clone() first if
// an independent copy is needed across the exclusive section boundary.
func (b *OrderBook) GetOrder(orderID string) (*Order, bool) {
	o, ok := b.byID[orderID]
	return o, ok
}

// Cancel removes a resting order from its price level and returns it
// with status transitioned to Cancelled. Returns ErrOrderNotFound if
// order_id is unknown, or ErrNotResting if the order exists but is not
// currently on the book (already filled/cancelled elsewhere).
func (b *OrderBook) Cancel(orderID string) (*Order, error) {
	order, ok := b.byID[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.node == nil {
		return nil, ErrNotResting
	}

	level := order.node.level
	level.remove(order.node)
	if level.IsEmpty() {
		b.treeFor(order.Side).Delete(level.Price)
	}
	delete(b.byID, orderID)
	order.Status = Cancelled
	return order, nil
}

// removeFilled drops a fully-filled resting order, whose node has
// already been unlinked from its level by decrementHead, from the book's
// id index, and drops the level from its tree if it is now empty.
func (b *OrderBook) removeFilled(order *Order, level *PriceLevel) {
	if level.IsEmpty() {
		b.treeFor(order.Side).Delete(level.Price)
	}
	delete(b.byID, order.ID)
}

// ConsumeHead fills qty against level's head (oldest) resting order —
// the maker side of a single match step in the engine's matching loop.
// It returns the maker order (now updated) and whether it was fully
// filled and removed from the book. qty must not exceed the head
// order's remaining quantity.
func (b *OrderBook) ConsumeHead(level *PriceLevel, qty decimal.Decimal) (maker *Order, removed bool) {
	maker = level.Head()
	level.decrementHead(qty)
	if maker.IsFilled() {
		b.removeFilled(maker, level)
		return maker, true
	}
	return maker, false
}

// BestBid returns the best (highest-price) bid level, or nil.
func (b *OrderBook) BestBid() *PriceLevel { return b.bids.Best() }

// BestAsk returns the best (lowest-price) ask level, or nil.
func (b *OrderBook) BestAsk() *PriceLevel { return b.asks.Best() }

// IterMatching performs a lazy best-first traversal of the side
// opposite to takerSide, invoking fn for each price level acceptable
// to a taker with the given limit. fn returning false stops the
// traversal early (used once the taker is fully filled). A nil
// limitPrice means no price protection (a market order): every level
// is acceptable.
func (b *OrderBook) IterMatching(takerSide Side, limitPrice *decimal.Decimal, fn func(*PriceLevel) bool) {
	opposite := b.treeFor(takerSide.Opposite())
	opposite.ForEach(func(level *PriceLevel) bool {
		if limitPrice != nil && !priceAcceptable(takerSide, *limitPrice, level.Price) {
			return false
		}
		return fn(level)
	})
}

// priceAcceptable reports whether a resting level at levelPrice may be
// matched against a taker on takerSide with the given limit price.
func priceAcceptable(takerSide Side, limitPrice, levelPrice decimal.Decimal) bool {
	if takerSide == Buy {
		return levelPrice.LessThanOrEqual(limitPrice)
	}
	return levelPrice.GreaterThanOrEqual(limitPrice)
}

// LevelSnapshot is a point-in-time view of a single price level.
type LevelSnapshot struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"order_count"`
}

// BookSnapshot is a point-in-time, depth-capped view of both sides of
// the book, best-first. Timestamp is stamped by the caller (the engine,
// under the symbol's exclusive section) since OrderBook itself has no
// notion of wall-clock time.
type BookSnapshot struct {
	Symbol    string
	Bids      []LevelSnapshot
	Asks      []LevelSnapshot
	Timestamp int64
}

// Snapshot materializes the top `depth` levels on each side.
func (b *OrderBook) Snapshot(depth int) BookSnapshot {
	return BookSnapshot{
		Symbol: b.Symbol,
		Bids:   collectLevels(b.bids, depth),
		Asks:   collectLevels(b.asks, depth),
	}
}

func collectLevels(t *rbTree, depth int) []LevelSnapshot {
	out := make([]LevelSnapshot, 0, depth)
	t.ForEach(func(level *PriceLevel) bool {
		if len(out) >= depth {
			return false
		}
		out = append(out, LevelSnapshot{
			Price:      level.Price,
			Quantity:   level.TotalQuantity(),
			OrderCount: level.OrderCount(),
		})
		return true
	})
	return out
}

// IsCrossed reports whether the book's best bid is at or above its
// best ask — a state forbidden after any matching step returns.
func (b *OrderBook) IsCrossed() bool {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return false
	}
	return bid.Price.GreaterThanOrEqual(ask.Price)
}
