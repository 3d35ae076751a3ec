// Package dissemination fans out book mutations and trade executions
// to subscribers, one registry per symbol, with a bounded per-subscriber
// queue and eviction on overflow.
package dissemination

import (
	"sync"
	"sync/atomic"
	"time"

	"matchcore/internal/matching"
	"matchcore/internal/orderbook"
)

// DefaultQueueSize is the per-subscriber channel buffer used when a
// Hub is constructed with queueSize <= 0.
const DefaultQueueSize = 256

// Subscriber is one consumer's view of a channel for a single symbol.
// A slow or stalled subscriber is evicted rather than allowed to slow
// down publication to everyone else.
type Subscriber struct {
	id     uint64
	symbol string
	ch     chan Message
	closed atomic.Bool
}

// Messages returns the channel to read delivered messages from. It is
// closed when the subscriber is evicted or explicitly unsubscribed.
func (s *Subscriber) Messages() <-chan Message { return s.ch }

// Symbol returns the symbol this subscriber is registered for.
func (s *Subscriber) Symbol() string { return s.symbol }

func (s *Subscriber) close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

type registry map[string]map[*Subscriber]struct{}

// Hub is the production matching.EventSink: a per-symbol subscriber
// registry for two independent channels (market data, trades), each
// with its own bounded queue per subscriber.
type Hub struct {
	mu         sync.RWMutex
	marketData registry
	trades     registry
	queueSize  int
	nextID     atomic.Uint64
}

// NewHub constructs an empty Hub. queueSize <= 0 uses DefaultQueueSize.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		marketData: make(registry),
		trades:     make(registry),
		queueSize:  queueSize,
	}
}

// SubscribeMarketData registers a new subscriber for symbol's
// SNAPSHOT/BOOK_UPDATE/BBO_UPDATE stream.
func (h *Hub) SubscribeMarketData(symbol string) *Subscriber {
	return h.subscribe(h.marketData, symbol)
}

// SubscribeTrades registers a new subscriber for symbol's TRADE stream.
func (h *Hub) SubscribeTrades(symbol string) *Subscriber {
	return h.subscribe(h.trades, symbol)
}

// UnsubscribeMarketData removes sub from the market-data registry and
// closes its channel.
func (h *Hub) UnsubscribeMarketData(sub *Subscriber) {
	h.unsubscribe(h.marketData, sub)
}

// UnsubscribeTrades removes sub from the trades registry and closes
// its channel.
func (h *Hub) UnsubscribeTrades(sub *Subscriber) {
	h.unsubscribe(h.trades, sub)
}

func (h *Hub) subscribe(set registry, symbol string) *Subscriber {
	sub := &Subscriber{
		id:     h.nextID.Add(1),
		symbol: symbol,
		ch:     make(chan Message, h.queueSize),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := set[symbol]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		set[symbol] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(set registry, sub *Subscriber) {
	h.mu.Lock()
	if subs, ok := set[sub.symbol]; ok {
		delete(subs, sub)
	}
	h.mu.Unlock()
	sub.close()
}

// Shutdown closes every registered subscriber's channel on both the
// market-data and trades registries and empties the registries. Called
// once, at process shutdown, so transport goroutines reading from a
// subscriber's channel observe a closed channel and exit instead of
// blocking forever on a Hub that will never publish again.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range []registry{h.marketData, h.trades} {
		for symbol, subs := range set {
			for sub := range subs {
				sub.close()
			}
			delete(set, symbol)
		}
	}
}

// broadcast delivers msg to every subscriber of symbol in set. A
// subscriber whose queue is full is evicted instead of stalling
// publication for the rest: its channel is closed so the transport
// goroutine reading from it observes disconnection.
func (h *Hub) broadcast(set registry, symbol string, msg Message) {
	h.mu.RLock()
	subs := set[symbol]
	targets := make([]*Subscriber, 0, len(subs))
	for sub := range subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub.ch <- msg:
		default:
			h.unsubscribe(set, sub)
		}
	}
}

// PublishTrade implements matching.EventSink.
func (h *Hub) PublishTrade(trade *orderbook.TradeExecution) {
	h.broadcast(h.trades, trade.Symbol, Message{
		Type:      TypeTrade,
		Symbol:    trade.Symbol,
		Timestamp: trade.Timestamp,
		Payload: TradePayload{
			TradeID:       trade.TradeID,
			Price:         trade.Price.String(),
			Quantity:      trade.Quantity.String(),
			AggressorSide: trade.AggressorSide.String(),
			MakerOrderID:  trade.MakerOrderID,
			TakerOrderID:  trade.TakerOrderID,
		},
	})
}

// PublishBookUpdate implements matching.EventSink.
func (h *Hub) PublishBookUpdate(symbol string, snapshot orderbook.BookSnapshot) {
	h.broadcast(h.marketData, symbol, Message{
		Type:      TypeBookUpdate,
		Symbol:    symbol,
		Timestamp: snapshot.Timestamp,
		Payload:   BookUpdatePayload{Bids: snapshot.Bids, Asks: snapshot.Asks},
	})
}

// PublishBBOUpdate implements matching.EventSink.
func (h *Hub) PublishBBOUpdate(bbo matching.BBO) {
	h.broadcast(h.marketData, bbo.Symbol, Message{
		Type:      TypeBBOUpdate,
		Symbol:    bbo.Symbol,
		Timestamp: bbo.Timestamp,
		Payload:   BBOUpdatePayload{BestBid: bbo.BestBid, BestAsk: bbo.BestAsk},
	})
}

// PublishRejection implements matching.EventSink. It disseminates a
// market-data message carrying the rejection reason but no book
// mutation, so subscribers can observe a submit's outcome even when it
// never touches the book.
func (h *Hub) PublishRejection(order *orderbook.Order, reason string) {
	h.broadcast(h.marketData, order.Symbol, Message{
		Type:      TypeRejection,
		Symbol:    order.Symbol,
		Timestamp: time.Now().UnixNano(),
		Payload: RejectionPayload{
			OrderID: order.ID,
			UserID:  order.UserID,
			Reason:  reason,
		},
	})
}

// SendSnapshot delivers a one-off SNAPSHOT message directly to sub,
// bypassing the registry broadcast. Transport calls this immediately
// after a market-data subscription is established so new subscribers
// see the current book before the next mutation's BOOK_UPDATE arrives.
func (h *Hub) SendSnapshot(sub *Subscriber, snapshot orderbook.BookSnapshot) {
	msg := Message{
		Type:      TypeSnapshot,
		Symbol:    sub.symbol,
		Timestamp: time.Now().UnixNano(),
		Payload:   BookUpdatePayload{Bids: snapshot.Bids, Asks: snapshot.Asks},
	}
	select {
	case sub.ch <- msg:
	default:
		h.unsubscribe(h.marketData, sub)
	}
}
