package matching

import "matchcore/internal/orderbook"

// BBO is the best bid and offer for a symbol, each side optional when
// empty. Timestamp is stamped by the engine at the moment it is built,
// under the symbol's exclusive section.
type BBO struct {
	Symbol    string
	BestBid   *orderbook.LevelSnapshot
	BestAsk   *orderbook.LevelSnapshot
	Timestamp int64
}

// EventSink receives the engine's emissions. Implementations must not
// block: a slow sink stalls the per-symbol exclusive section for every
// other order on that symbol. internal/dissemination.Hub is the
// production implementation; tests typically use a no-op or recording
// stub.
type EventSink interface {
	PublishTrade(trade *orderbook.TradeExecution)
	PublishBookUpdate(symbol string, snapshot orderbook.BookSnapshot)
	PublishBBOUpdate(bbo BBO)
	PublishRejection(order *orderbook.Order, reason string)
}

// PostTradeHook is invoked once per trade after it has been committed
// to the book and published to the EventSink. It is the pluggable
// post-match extension point reserved for fee computation and similar
// concerns. SubmitOrder calls it synchronously, after releasing the
// symbol's exclusive section, so an implementation may block without
// stalling matching on that symbol. internal/audit.Hook is the shipped
// implementation (a synchronous SQLite insert per trade);
// NoopPostTradeHook is the default.
type PostTradeHook interface {
	OnTrade(trade *orderbook.TradeExecution)
}

// NoopEventSink discards every event. Useful in tests and for running
// the engine with no attached dissemination layer.
type NoopEventSink struct{}

func (NoopEventSink) PublishTrade(*orderbook.TradeExecution)           {}
func (NoopEventSink) PublishBookUpdate(string, orderbook.BookSnapshot) {}
func (NoopEventSink) PublishBBOUpdate(BBO)                             {}
func (NoopEventSink) PublishRejection(*orderbook.Order, string)        {}

// NoopPostTradeHook does nothing. The engine's default when no hook is
// configured.
type NoopPostTradeHook struct{}

func (NoopPostTradeHook) OnTrade(*orderbook.TradeExecution) {}
