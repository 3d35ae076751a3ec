package audit

import (
	"log"

	"matchcore/internal/orderbook"
)

// Hook implements matching.PostTradeHook by recording each trade to
// the blotter. A failed insert is logged, never propagated: the
// matching engine's correctness does not depend on audit persistence
// succeeding.
type Hook struct {
	store *Store
}

// NewHook wraps store as a PostTradeHook.
func NewHook(store *Store) *Hook {
	return &Hook{store: store}
}

// OnTrade implements matching.PostTradeHook.
func (h *Hook) OnTrade(trade *orderbook.TradeExecution) {
	_, err := h.store.db.Exec(
		`INSERT INTO trade_executions
			(trade_id, symbol, price, quantity, aggressor_side, maker_order_id, taker_order_id, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.TradeID, trade.Symbol, trade.Price.String(), trade.Quantity.String(),
		trade.AggressorSide.String(), trade.MakerOrderID, trade.TakerOrderID, trade.Timestamp,
	)
	if err != nil {
		log.Printf("audit: failed to record trade %s: %v", trade.TradeID, err)
	}
}

// Record is a single persisted trade execution, as read back for
// reporting.
type Record struct {
	TradeID       string
	Symbol        string
	Price         string
	Quantity      string
	AggressorSide string
	MakerOrderID  string
	TakerOrderID  string
	ExecutedAt    int64
}

// RecentTrades returns up to limit of the most recently executed
// trades for symbol, newest first.
func (s *Store) RecentTrades(symbol string, limit int) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT trade_id, symbol, price, quantity, aggressor_side, maker_order_id, taker_order_id, executed_at
		 FROM trade_executions WHERE symbol = ? ORDER BY executed_at DESC LIMIT ?`,
		symbol, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.TradeID, &r.Symbol, &r.Price, &r.Quantity, &r.AggressorSide, &r.MakerOrderID, &r.TakerOrderID, &r.ExecutedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
