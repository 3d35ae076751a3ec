package audit

import (
	"os"
	"testing"

	"matchcore/internal/decimal"
	"matchcore/internal/orderbook"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "matchcore-audit-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	store, err := New(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(dbPath)
	}
	return store, cleanup
}

func TestMigrateIsIdempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate call failed: %v", err)
	}

	applied, pending, err := store.MigrationStatus()
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if len(applied) != 1 || len(pending) != 0 {
		t.Errorf("expected 1 applied and 0 pending migrations, got applied=%v pending=%v", applied, pending)
	}
}

func TestOnTradeRecordsTrade(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	hook := NewHook(store)
	hook.OnTrade(&orderbook.TradeExecution{
		TradeID:       "t1",
		Symbol:        "BTC-USD",
		Price:         decimal.MustParse("100.00"),
		Quantity:      decimal.MustParse("2"),
		AggressorSide: orderbook.Buy,
		MakerOrderID:  "maker1",
		TakerOrderID:  "taker1",
		Timestamp:     1,
	})

	records, err := store.RecentTrades("BTC-USD", 10)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 recorded trade, got %d", len(records))
	}
	if records[0].TradeID != "t1" {
		t.Errorf("expected trade_id t1, got %s", records[0].TradeID)
	}
}

func TestRecentTradesFiltersBySymbolAndOrdersNewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	hook := NewHook(store)
	hook.OnTrade(&orderbook.TradeExecution{TradeID: "t1", Symbol: "BTC-USD", Price: decimal.MustParse("1"), Quantity: decimal.MustParse("1"), Timestamp: 1})
	hook.OnTrade(&orderbook.TradeExecution{TradeID: "t2", Symbol: "ETH-USD", Price: decimal.MustParse("1"), Quantity: decimal.MustParse("1"), Timestamp: 2})
	hook.OnTrade(&orderbook.TradeExecution{TradeID: "t3", Symbol: "BTC-USD", Price: decimal.MustParse("1"), Quantity: decimal.MustParse("1"), Timestamp: 3})

	records, err := store.RecentTrades("BTC-USD", 10)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 BTC-USD trades, got %d", len(records))
	}
	if records[0].TradeID != "t3" || records[1].TradeID != "t1" {
		t.Errorf("expected newest-first ordering t3, t1, got %s, %s", records[0].TradeID, records[1].TradeID)
	}
}
