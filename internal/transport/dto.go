package transport

import (
	"strings"

	"matchcore/internal/decimal"
	"matchcore/internal/matching"
	"matchcore/internal/orderbook"
)

func parseDecimalField(s string) (decimal.Decimal, error) {
	return decimal.Parse(s)
}

// parseOptionalDecimalField parses s, or returns the zero value when s
// is empty — used for a market order's omitted price field.
func parseOptionalDecimalField(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.Parse(s)
}

// orderRequestDTO is the wire shape for POST /api/orders.
type orderRequestDTO struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`      // "buy" or "sell"
	Type     string `json:"type"`      // "market", "limit", "ioc", "fok"
	Quantity string `json:"quantity"`
	Price    string `json:"price,omitempty"` // required unless type is "market"
	UserID   string `json:"user_id,omitempty"`
}

func parseSide(s string) (orderbook.Side, bool) {
	switch strings.ToLower(s) {
	case "buy":
		return orderbook.Buy, true
	case "sell":
		return orderbook.Sell, true
	default:
		return 0, false
	}
}

func parseOrderType(s string) (orderbook.OrderType, bool) {
	switch strings.ToLower(s) {
	case "market":
		return orderbook.Market, true
	case "limit":
		return orderbook.Limit, true
	case "ioc":
		return orderbook.IOC, true
	case "fok":
		return orderbook.FOK, true
	default:
		return 0, false
	}
}

func sideString(s orderbook.Side) string {
	if s == orderbook.Buy {
		return "buy"
	}
	return "sell"
}

func typeString(t orderbook.OrderType) string {
	switch t {
	case orderbook.Market:
		return "market"
	case orderbook.Limit:
		return "limit"
	case orderbook.IOC:
		return "ioc"
	case orderbook.FOK:
		return "fok"
	default:
		return "unknown"
	}
}

// orderDTO is the wire representation of an order record.
type orderDTO struct {
	OrderID           string `json:"order_id"`
	Symbol            string `json:"symbol"`
	Side              string `json:"side"`
	Type              string `json:"type"`
	Price             string `json:"price,omitempty"`
	Quantity          string `json:"quantity"`
	FilledQuantity    string `json:"filled_quantity"`
	RemainingQuantity string `json:"remaining_quantity"`
	Status            string `json:"status"`
	UserID            string `json:"user_id,omitempty"`
	Timestamp         int64  `json:"timestamp"`
	Sequence          uint64 `json:"sequence"`
}

func newOrderDTO(o *orderbook.Order) orderDTO {
	dto := orderDTO{
		OrderID:           o.ID,
		Symbol:            o.Symbol,
		Side:              sideString(o.Side),
		Type:              typeString(o.Type),
		Quantity:          o.Quantity.String(),
		FilledQuantity:    o.FilledQuantity.String(),
		RemainingQuantity: o.RemainingQuantity().String(),
		Status:            o.Status.String(),
		UserID:            o.UserID,
		Timestamp:         o.Timestamp,
		Sequence:          o.Sequence,
	}
	if o.Type.RequiresPrice() {
		dto.Price = o.Price.String()
	}
	return dto
}

// tradeDTO is the wire representation of a single execution.
type tradeDTO struct {
	TradeID       string `json:"trade_id"`
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
	Timestamp     int64  `json:"timestamp"`
}

func newTradeDTO(t *orderbook.TradeExecution) tradeDTO {
	return tradeDTO{
		TradeID:       t.TradeID,
		Symbol:        t.Symbol,
		Price:         t.Price.String(),
		Quantity:      t.Quantity.String(),
		AggressorSide: sideString(t.AggressorSide),
		MakerOrderID:  t.MakerOrderID,
		TakerOrderID:  t.TakerOrderID,
		Timestamp:     t.Timestamp,
	}
}

// submitOrderResponseDTO is the response body for POST /api/orders.
type submitOrderResponseDTO struct {
	Order  orderDTO   `json:"order"`
	Trades []tradeDTO `json:"trades"`
}

func newSubmitOrderResponseDTO(order *orderbook.Order, trades []*orderbook.TradeExecution) submitOrderResponseDTO {
	dtoTrades := make([]tradeDTO, len(trades))
	for i, tr := range trades {
		dtoTrades[i] = newTradeDTO(tr)
	}
	return submitOrderResponseDTO{Order: newOrderDTO(order), Trades: dtoTrades}
}

// levelDTO is the wire representation of a single price level.
type levelDTO struct {
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	OrderCount int    `json:"order_count"`
}

func newLevelDTO(l orderbook.LevelSnapshot) levelDTO {
	return levelDTO{Price: l.Price.String(), Quantity: l.Quantity.String(), OrderCount: l.OrderCount}
}

func newLevelDTOs(levels []orderbook.LevelSnapshot) []levelDTO {
	out := make([]levelDTO, len(levels))
	for i, l := range levels {
		out[i] = newLevelDTO(l)
	}
	return out
}

// bookSnapshotDTO is the wire representation of a depth-capped book.
type bookSnapshotDTO struct {
	Symbol    string     `json:"symbol"`
	Bids      []levelDTO `json:"bids"`
	Asks      []levelDTO `json:"asks"`
	Timestamp int64      `json:"timestamp"`
}

func newBookSnapshotDTO(s orderbook.BookSnapshot) bookSnapshotDTO {
	return bookSnapshotDTO{Symbol: s.Symbol, Bids: newLevelDTOs(s.Bids), Asks: newLevelDTOs(s.Asks), Timestamp: s.Timestamp}
}

// bboDTO is the wire representation of a best-bid/offer query.
type bboDTO struct {
	Symbol    string    `json:"symbol"`
	BestBid   *levelDTO `json:"best_bid,omitempty"`
	BestAsk   *levelDTO `json:"best_ask,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

func newBBODTO(bbo matching.BBO) bboDTO {
	dto := bboDTO{Symbol: bbo.Symbol, Timestamp: bbo.Timestamp}
	if bbo.BestBid != nil {
		l := newLevelDTO(*bbo.BestBid)
		dto.BestBid = &l
	}
	if bbo.BestAsk != nil {
		l := newLevelDTO(*bbo.BestAsk)
		dto.BestAsk = &l
	}
	return dto
}

// errorResponseDTO is the error envelope for non-2xx responses.
type errorResponseDTO struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// httpStatusForKind maps the engine's error taxonomy onto HTTP status
// codes.
func httpStatusForKind(k matching.Kind) int {
	switch k {
	case matching.KindValidation:
		return 400
	case matching.KindNotFound:
		return 404
	case matching.KindInvalidState:
		return 409
	default:
		return 500
	}
}
