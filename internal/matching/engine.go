// Package matching implements order admission, price-time-priority
// matching, and order-type policy (Market/Limit/IOC/FOK) on top of
// internal/orderbook's per-symbol books.
package matching

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"matchcore/internal/decimal"
	"matchcore/internal/orderbook"
)

// bookEntry pairs a symbol's OrderBook with the mutex that is its
// exclusive section: every mutating operation on that symbol — submit
// or cancel — runs with this lock held, serializing them into a strict
// per-symbol total order. Books for different symbols have independent
// locks and may be mutated concurrently.
type bookEntry struct {
	mu   sync.Mutex
	book *orderbook.OrderBook
}

// Engine owns a book per symbol and is the sole mutator of book state.
type Engine struct {
	cfg  Config
	sink EventSink
	hook PostTradeHook

	mu    sync.RWMutex
	books map[string]*bookEntry

	ordersMu sync.RWMutex
	orders   map[string]*orderbook.Order // full registry, including terminal orders
}

// NewEngine constructs an engine pre-registered with symbols, one book
// per configured trading pair, at startup rather than registering them
// lazily. AddSymbol remains available to register more afterward.
func NewEngine(symbols []string, cfg Config, sink EventSink, hook PostTradeHook) *Engine {
	if sink == nil {
		sink = NoopEventSink{}
	}
	if hook == nil {
		hook = NoopPostTradeHook{}
	}
	e := &Engine{
		cfg:    cfg,
		sink:   sink,
		hook:   hook,
		books:  make(map[string]*bookEntry),
		orders: make(map[string]*orderbook.Order),
	}
	for _, s := range symbols {
		e.AddSymbol(s)
	}
	return e
}

// AddSymbol registers a new, empty book for symbol if one doesn't
// already exist.
func (e *Engine) AddSymbol(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.books[symbol]; ok {
		return
	}
	e.books[symbol] = &bookEntry{book: orderbook.NewOrderBook(symbol)}
}

// Symbols returns the currently registered trading symbols.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.books))
	for s := range e.books {
		out = append(out, s)
	}
	return out
}

func (e *Engine) bookEntryFor(symbol string) (*bookEntry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	be, ok := e.books[symbol]
	return be, ok
}

// OrderRequest is the admission input for SubmitOrder.
type OrderRequest struct {
	Symbol   string
	Side     orderbook.Side
	Type     orderbook.OrderType
	Quantity decimal.Decimal
	Price    decimal.Decimal // zero value when Type.RequiresPrice() is false
	UserID   string
}

// SubmitOrder validates and admits an order, matching it against the
// book under the symbol's exclusive section. It always returns the
// resulting order record (including REJECTED ones); err is non-nil iff
// the order was rejected outright.
func (e *Engine) SubmitOrder(req OrderRequest) (*orderbook.Order, []*orderbook.TradeExecution, error) {
	order := &orderbook.Order{
		ID:       uuid.NewString(),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    req.Price,
		Status:   orderbook.Pending,
		UserID:   req.UserID,
	}

	be, ok := e.bookEntryFor(req.Symbol)
	if !ok {
		return e.reject(order, validationErrorf("unsupported symbol %q", req.Symbol))
	}
	if err := e.validate(req); err != nil {
		return e.reject(order, err)
	}

	be.mu.Lock()

	order.Timestamp = time.Now().UnixNano()
	order.Sequence = be.book.NextSequence()
	e.register(order)

	var trades []*orderbook.TradeExecution
	switch order.Type {
	case orderbook.Market:
		trades = e.executeMarket(be.book, order)
	case orderbook.Limit:
		trades = e.executeLimit(be.book, order)
	case orderbook.IOC:
		trades = e.executeIOC(be.book, order)
	case orderbook.FOK:
		trades = e.executeFOK(be.book, order)
	}

	e.publishMutation(be.book)
	be.mu.Unlock()

	// PostTradeHook runs outside the exclusive section: it may perform
	// blocking I/O (the shipped audit hook writes to SQLite), which must
	// never stall this symbol's matching loop or, via SQLite's
	// single-writer lock, any other symbol's.
	for _, trade := range trades {
		e.hook.OnTrade(trade)
	}

	return order, trades, nil
}

func (e *Engine) reject(order *orderbook.Order, err *Error) (*orderbook.Order, []*orderbook.TradeExecution, error) {
	order.Timestamp = time.Now().UnixNano()
	order.Status = orderbook.Rejected
	e.register(order)
	e.sink.PublishRejection(order, err.Message)
	return order, nil, err
}

func (e *Engine) register(order *orderbook.Order) {
	e.ordersMu.Lock()
	e.orders[order.ID] = order
	e.ordersMu.Unlock()
}

// validate enforces admission rules: known symbol (checked by the
// caller before validate is reached), positive quantity within
// configured bounds, and price coherence with the order type.
func (e *Engine) validate(req OrderRequest) *Error {
	if req.Quantity.Sign() <= 0 {
		return validationErrorf("quantity must be positive")
	}
	if req.Quantity.LessThan(e.cfg.MinOrderSize) {
		return validationErrorf("quantity below minimum %s", e.cfg.MinOrderSize)
	}
	if req.Quantity.GreaterThan(e.cfg.MaxOrderSize) {
		return validationErrorf("quantity above maximum %s", e.cfg.MaxOrderSize)
	}

	if req.Type.RequiresPrice() {
		if req.Price.Sign() <= 0 {
			return validationErrorf("price is required for %s orders", req.Type)
		}
		if req.Price.LessThan(e.cfg.MinPrice) {
			return validationErrorf("price below minimum %s", e.cfg.MinPrice)
		}
		if req.Price.GreaterThan(e.cfg.MaxPrice) {
			return validationErrorf("price above maximum %s", e.cfg.MaxPrice)
		}
	} else if !req.Price.IsZero() {
		return validationErrorf("%s orders must not specify a price", req.Type)
	}

	return nil
}

// matchOrder runs the price-time-priority matching loop for taker
// against book, consuming resting liquidity at acceptable prices
// (nil limitPrice means no price protection — a market order) until
// the taker is filled or acceptable liquidity is exhausted. Every
// trade executes at its own maker's price, independently, even when a
// single taker walks several levels. Trades are published to the
// EventSink here, inside the exclusive section, since that emission is
// non-blocking and must preserve emission order relative to the
// mutation; PostTradeHook is invoked later, by the caller, once the
// exclusive section has been released.
func (e *Engine) matchOrder(book *orderbook.OrderBook, taker *orderbook.Order, limitPrice *decimal.Decimal) []*orderbook.TradeExecution {
	var trades []*orderbook.TradeExecution
	book.IterMatching(taker.Side, limitPrice, func(level *orderbook.PriceLevel) bool {
		for !taker.IsFilled() && !level.IsEmpty() {
			maker := level.Head()
			qty := decimal.Min(taker.RemainingQuantity(), maker.RemainingQuantity())

			trade := &orderbook.TradeExecution{
				TradeID:       uuid.NewString(),
				Symbol:        taker.Symbol,
				Price:         level.Price,
				Quantity:      qty,
				AggressorSide: taker.Side,
				MakerOrderID:  maker.ID,
				TakerOrderID:  taker.ID,
				Timestamp:     time.Now().UnixNano(),
			}

			taker.ApplyFill(qty)
			book.ConsumeHead(level, qty)

			trades = append(trades, trade)
			e.sink.PublishTrade(trade)
		}
		return !taker.IsFilled()
	})
	return trades
}

// executeMarket matches immediately at any price; an unfilled
// remainder is cancelled, never rests.
func (e *Engine) executeMarket(book *orderbook.OrderBook, taker *orderbook.Order) []*orderbook.TradeExecution {
	return e.matchAndFinish(book, taker, nil)
}

// executeLimit matches up to the limit price and rests any remainder.
func (e *Engine) executeLimit(book *orderbook.OrderBook, taker *orderbook.Order) []*orderbook.TradeExecution {
	limit := taker.Price
	return e.matchAndFinish(book, taker, &limit)
}

// executeIOC matches up to the limit price; an unfilled remainder is
// cancelled, never rests.
func (e *Engine) executeIOC(book *orderbook.OrderBook, taker *orderbook.Order) []*orderbook.TradeExecution {
	limit := taker.Price
	return e.matchAndFinish(book, taker, &limit)
}

// matchAndFinish runs matchOrder and then resolves the unfilled
// remainder, if any, according to taker's order-type policy: it rests
// if the type allows resting (Limit), otherwise it's cancelled (Market,
// IOC). FOK has its own pre-checked epilogue and does not call this.
func (e *Engine) matchAndFinish(book *orderbook.OrderBook, taker *orderbook.Order, limitPrice *decimal.Decimal) []*orderbook.TradeExecution {
	trades := e.matchOrder(book, taker, limitPrice)
	if !taker.IsFilled() {
		if taker.Type.CanRest() {
			book.InsertResting(taker)
		} else {
			taker.Status = orderbook.Cancelled
		}
	}
	return trades
}

// executeFOK is a dry run then commit: first accumulate available
// quantity at acceptable prices without mutating the book; only if
// that total reaches the full order quantity does it actually match.
// An order that can't be filled in full is cancelled with zero fills
// and zero mutation — the book is left byte-identical.
func (e *Engine) executeFOK(book *orderbook.OrderBook, taker *orderbook.Order) []*orderbook.TradeExecution {
	limit := taker.Price
	available := e.availableQuantity(book, taker.Side, limit)
	if available.LessThan(taker.Quantity) {
		taker.Status = orderbook.Cancelled
		return nil
	}

	trades := e.matchOrder(book, taker, &limit)
	if !taker.IsFilled() {
		// Should not happen given the dry run above; defensive.
		taker.Status = orderbook.Cancelled
	}
	return trades
}

// availableQuantity sums total resting quantity at prices acceptable to
// a taker on side with the given limit, without touching the book.
func (e *Engine) availableQuantity(book *orderbook.OrderBook, side orderbook.Side, limitPrice decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	book.IterMatching(side, &limitPrice, func(level *orderbook.PriceLevel) bool {
		total = total.Add(level.TotalQuantity())
		return true
	})
	return total
}

// publishMutation emits the book-update and BBO-update events that
// follow every committed submit or cancel. Trade events are published
// as they're generated inside matchOrder, preserving emission order
// relative to mutation.
func (e *Engine) publishMutation(book *orderbook.OrderBook) {
	depth := e.cfg.DefaultSnapshotDepth
	e.sink.PublishBookUpdate(book.Symbol, e.snapshotFromBook(book, depth))
	e.sink.PublishBBOUpdate(e.bboFromBook(book))
}

// snapshotFromBook builds a timestamped snapshot of book at the moment
// of the call; callers hold the symbol's exclusive section.
func (e *Engine) snapshotFromBook(book *orderbook.OrderBook, depth int) orderbook.BookSnapshot {
	snap := book.Snapshot(depth)
	snap.Timestamp = time.Now().UnixNano()
	return snap
}

func (e *Engine) bboFromBook(book *orderbook.OrderBook) BBO {
	bbo := BBO{Symbol: book.Symbol, Timestamp: time.Now().UnixNano()}
	if bid := book.BestBid(); bid != nil {
		bbo.BestBid = &orderbook.LevelSnapshot{Price: bid.Price, Quantity: bid.TotalQuantity(), OrderCount: bid.OrderCount()}
	}
	if ask := book.BestAsk(); ask != nil {
		bbo.BestAsk = &orderbook.LevelSnapshot{Price: ask.Price, Quantity: ask.TotalQuantity(), OrderCount: ask.OrderCount()}
	}
	return bbo
}

// CancelOrder transitions a resting order to CANCELLED and removes it
// from its book. Unknown order_id yields NotFound; an order that
// exists but is already terminal (including a second cancel of the
// same order) yields InvalidState.
func (e *Engine) CancelOrder(orderID string) (*orderbook.Order, error) {
	e.ordersMu.RLock()
	order, ok := e.orders[orderID]
	e.ordersMu.RUnlock()
	if !ok {
		return nil, notFoundErrorf("order %q not found", orderID)
	}

	be, ok := e.bookEntryFor(order.Symbol)
	if !ok {
		return nil, internalErrorf(nil, "no book registered for symbol %q", order.Symbol)
	}

	be.mu.Lock()
	defer be.mu.Unlock()

	if order.Status.IsTerminal() {
		return nil, invalidStateErrorf("order %q is already %s", orderID, order.Status)
	}

	cancelled, err := be.book.Cancel(orderID)
	if err != nil {
		if errors.Is(err, orderbook.ErrOrderNotFound) {
			return nil, notFoundErrorf("order %q not found", orderID)
		}
		return nil, invalidStateErrorf("order %q is not resting", orderID)
	}

	e.publishMutation(be.book)
	return cancelled, nil
}

// GetOrder returns an immutable copy of the recorded order state, or
// false if order_id is unknown. The copy is taken under the owning
// symbol's exclusive section, the same lock SubmitOrder/CancelOrder
// mutate Status/FilledQuantity under, so the fields of the returned
// copy are mutually consistent rather than individually racy reads.
func (e *Engine) GetOrder(orderID string) (*orderbook.Order, bool) {
	e.ordersMu.RLock()
	order, ok := e.orders[orderID]
	e.ordersMu.RUnlock()
	if !ok {
		return nil, false
	}

	be, ok := e.bookEntryFor(order.Symbol)
	if !ok {
		return order.Clone(), true
	}
	be.mu.Lock()
	defer be.mu.Unlock()
	return order.Clone(), true
}

// OrderFilter narrows ListOrders by symbol and/or user. Zero value
// matches everything.
type OrderFilter struct {
	Symbol string
	UserID string
}

// ListOrders returns immutable copies of all orders matching filter.
// Each order is copied under its owning symbol's exclusive section, the
// same lock SubmitOrder/CancelOrder mutate it under.
func (e *Engine) ListOrders(filter OrderFilter) []*orderbook.Order {
	e.ordersMu.RLock()
	matched := make([]*orderbook.Order, 0)
	for _, o := range e.orders {
		if filter.Symbol != "" && o.Symbol != filter.Symbol {
			continue
		}
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		matched = append(matched, o)
	}
	e.ordersMu.RUnlock()

	bySymbol := make(map[string][]*orderbook.Order)
	for _, o := range matched {
		bySymbol[o.Symbol] = append(bySymbol[o.Symbol], o)
	}

	out := make([]*orderbook.Order, 0, len(matched))
	for symbol, orders := range bySymbol {
		be, ok := e.bookEntryFor(symbol)
		if !ok {
			continue
		}
		be.mu.Lock()
		for _, o := range orders {
			out = append(out, o.Clone())
		}
		be.mu.Unlock()
	}
	return out
}

// GetBBO returns the current best bid and offer for symbol.
func (e *Engine) GetBBO(symbol string) (BBO, error) {
	be, ok := e.bookEntryFor(symbol)
	if !ok {
		return BBO{}, notFoundErrorf("unsupported symbol %q", symbol)
	}
	be.mu.Lock()
	defer be.mu.Unlock()
	return e.bboFromBook(be.book), nil
}

// GetSnapshot returns a depth-capped, best-first snapshot of symbol's
// book. depth <= 0 uses the engine's configured default.
func (e *Engine) GetSnapshot(symbol string, depth int) (orderbook.BookSnapshot, error) {
	be, ok := e.bookEntryFor(symbol)
	if !ok {
		return orderbook.BookSnapshot{}, notFoundErrorf("unsupported symbol %q", symbol)
	}
	if depth <= 0 {
		depth = e.cfg.DefaultSnapshotDepth
	}
	if depth > e.cfg.MaxSnapshotDepth {
		depth = e.cfg.MaxSnapshotDepth
	}
	be.mu.Lock()
	defer be.mu.Unlock()
	return e.snapshotFromBook(be.book, depth), nil
}
