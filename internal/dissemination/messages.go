package dissemination

import "matchcore/internal/orderbook"

// Message is the envelope delivered to every subscriber on both the
// market-data and trades channels. Transport encodes it directly to
// JSON for WebSocket delivery.
type Message struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload"`
}

// Message type discriminants the dissemination fabric delivers.
const (
	TypeSnapshot   = "SNAPSHOT"
	TypeBookUpdate = "BOOK_UPDATE"
	TypeBBOUpdate  = "BBO_UPDATE"
	TypeTrade      = "TRADE"
	TypeRejection  = "REJECTION"
)

// BookUpdatePayload carries a depth-capped, best-first view of both
// sides of a symbol's book. Used for both SNAPSHOT (sent once, on
// subscribe) and BOOK_UPDATE (sent after every mutation) messages —
// they share a shape, only the Type discriminant differs.
type BookUpdatePayload struct {
	Bids []orderbook.LevelSnapshot `json:"bids"`
	Asks []orderbook.LevelSnapshot `json:"asks"`
}

// BBOUpdatePayload carries the current best bid/offer. Either side may
// be nil if that side of the book is empty.
type BBOUpdatePayload struct {
	BestBid *orderbook.LevelSnapshot `json:"best_bid,omitempty"`
	BestAsk *orderbook.LevelSnapshot `json:"best_ask,omitempty"`
}

// TradePayload carries a single completed execution.
type TradePayload struct {
	TradeID       string `json:"trade_id"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
}

// RejectionPayload carries an order rejection: no book mutation
// occurred, so there is no snapshot or trade to attach it to.
type RejectionPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id,omitempty"`
	Reason  string `json:"reason"`
}
