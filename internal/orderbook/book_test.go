package orderbook

import (
	"testing"

	"matchcore/internal/decimal"
)

func d(s string) decimal.Decimal { return decimal.MustParse(s) }

func restingOrder(id string, side Side, price, qty string) *Order {
	return &Order{
		ID:       id,
		Symbol:   "FAKE",
		Side:     side,
		Type:     Limit,
		Price:    d(price),
		Quantity: d(qty),
		Status:   Pending,
	}
}

func TestInsertRestingAddsToBook(t *testing.T) {
	book := NewOrderBook("FAKE")
	order := restingOrder("order1", Buy, "100.00", "10")
	book.InsertResting(order)

	snap := book.Snapshot(10)
	if len(snap.Bids) != 1 {
		t.Fatalf("expected 1 bid level, got %d", len(snap.Bids))
	}
	if !snap.Bids[0].Price.Equal(d("100.00")) {
		t.Errorf("expected bid price 100.00, got %s", snap.Bids[0].Price)
	}
	if !snap.Bids[0].Quantity.Equal(d("10")) {
		t.Errorf("expected bid quantity 10, got %s", snap.Bids[0].Quantity)
	}

	got, ok := book.GetOrder("order1")
	if !ok || got != order {
		t.Errorf("expected GetOrder to return the same order")
	}
}

func TestCancelRemovesOrderAndEmptyLevel(t *testing.T) {
	book := NewOrderBook("FAKE")
	book.InsertResting(restingOrder("order1", Buy, "100.00", "10"))

	cancelled, err := book.Cancel("order1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != Cancelled {
		t.Errorf("expected status Cancelled, got %s", cancelled.Status)
	}

	snap := book.Snapshot(10)
	if len(snap.Bids) != 0 {
		t.Errorf("expected empty bids after cancel, got %d", len(snap.Bids))
	}

	if _, err := book.Cancel("order1"); err != ErrOrderNotFound {
		t.Errorf("expected ErrOrderNotFound on second cancel, got %v", err)
	}
}

func TestCancelOneOfTwoAtSameLevelKeepsLevel(t *testing.T) {
	book := NewOrderBook("FAKE")
	book.InsertResting(restingOrder("order1", Buy, "100.00", "10"))
	book.InsertResting(restingOrder("order2", Buy, "100.00", "5"))

	if _, err := book.Cancel("order1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := book.Snapshot(10)
	if len(snap.Bids) != 1 {
		t.Fatalf("expected level to survive, got %d levels", len(snap.Bids))
	}
	if !snap.Bids[0].Quantity.Equal(d("5")) {
		t.Errorf("expected remaining quantity 5, got %s", snap.Bids[0].Quantity)
	}
}

func TestBestBidAskEmptyBook(t *testing.T) {
	book := NewOrderBook("FAKE")
	if book.BestBid() != nil || book.BestAsk() != nil {
		t.Error("expected nil best bid/ask on an empty book")
	}
}

func TestBestBidAskOrdering(t *testing.T) {
	book := NewOrderBook("FAKE")
	book.InsertResting(restingOrder("bid1", Buy, "99.00", "10"))
	book.InsertResting(restingOrder("bid2", Buy, "100.00", "10"))
	book.InsertResting(restingOrder("ask1", Sell, "101.00", "10"))
	book.InsertResting(restingOrder("ask2", Sell, "102.00", "10"))

	if !book.BestBid().Price.Equal(d("100.00")) {
		t.Errorf("expected best bid 100.00, got %s", book.BestBid().Price)
	}
	if !book.BestAsk().Price.Equal(d("101.00")) {
		t.Errorf("expected best ask 101.00, got %s", book.BestAsk().Price)
	}
}

func TestIterMatchingStopsAtUnacceptablePrice(t *testing.T) {
	book := NewOrderBook("FAKE")
	book.InsertResting(restingOrder("ask1", Sell, "100.00", "10"))
	book.InsertResting(restingOrder("ask2", Sell, "101.00", "10"))

	limit := d("100.00")
	var seen []decimal.Decimal
	book.IterMatching(Buy, &limit, func(level *PriceLevel) bool {
		seen = append(seen, level.Price)
		return true
	})

	if len(seen) != 1 || !seen[0].Equal(d("100.00")) {
		t.Errorf("expected traversal to stop after the acceptable level, got %v", seen)
	}
}

func TestIterMatchingNilLimitVisitsEveryLevel(t *testing.T) {
	book := NewOrderBook("FAKE")
	book.InsertResting(restingOrder("ask1", Sell, "100.00", "10"))
	book.InsertResting(restingOrder("ask2", Sell, "200.00", "10"))

	count := 0
	book.IterMatching(Buy, nil, func(level *PriceLevel) bool {
		count++
		return true
	})
	if count != 2 {
		t.Errorf("expected both levels visited for a market order, got %d", count)
	}
}

func TestConsumeHeadPartialFillKeepsOrderResting(t *testing.T) {
	book := NewOrderBook("FAKE")
	maker := restingOrder("maker1", Sell, "100.00", "10")
	book.InsertResting(maker)

	level := book.BestAsk()
	got, removed := book.ConsumeHead(level, d("4"))
	if removed {
		t.Errorf("expected partial fill to leave the order resting")
	}
	if !got.RemainingQuantity().Equal(d("6")) {
		t.Errorf("expected remaining quantity 6, got %s", got.RemainingQuantity())
	}
	if _, ok := book.GetOrder("maker1"); !ok {
		t.Errorf("expected partially filled order to remain in the book index")
	}
}

func TestConsumeHeadFullFillRemovesLevel(t *testing.T) {
	book := NewOrderBook("FAKE")
	book.InsertResting(restingOrder("maker1", Sell, "100.00", "10"))

	level := book.BestAsk()
	_, removed := book.ConsumeHead(level, d("10"))
	if !removed {
		t.Errorf("expected full fill to report removed")
	}
	if book.BestAsk() != nil {
		t.Errorf("expected the now-empty level to be gone from the tree")
	}
	if _, ok := book.GetOrder("maker1"); ok {
		t.Errorf("expected fully filled order removed from the book index")
	}
}

func TestFIFOWithinPriceLevel(t *testing.T) {
	book := NewOrderBook("FAKE")
	book.InsertResting(restingOrder("first", Sell, "100.00", "10"))
	book.InsertResting(restingOrder("second", Sell, "100.00", "10"))

	level := book.BestAsk()
	if level.Head().ID != "first" {
		t.Errorf("expected FIFO head to be the earlier order, got %s", level.Head().ID)
	}

	book.ConsumeHead(level, d("10"))
	if level.Head().ID != "second" {
		t.Errorf("expected second order to become the new head, got %s", level.Head().ID)
	}
}

func TestSnapshotDepthCap(t *testing.T) {
	book := NewOrderBook("FAKE")
	for _, p := range []string{"100.00", "99.00", "98.00", "97.00"} {
		book.InsertResting(restingOrder("b-"+p, Buy, p, "1"))
	}

	snap := book.Snapshot(2)
	if len(snap.Bids) != 2 {
		t.Fatalf("expected depth cap of 2, got %d", len(snap.Bids))
	}
	if !snap.Bids[0].Price.Equal(d("100.00")) || !snap.Bids[1].Price.Equal(d("99.00")) {
		t.Errorf("expected best-first ordering within the cap, got %v", snap.Bids)
	}
}

func TestIsCrossedDetectsOverlap(t *testing.T) {
	book := NewOrderBook("FAKE")
	book.InsertResting(restingOrder("bid1", Buy, "101.00", "1"))
	book.InsertResting(restingOrder("ask1", Sell, "100.00", "1"))

	if !book.IsCrossed() {
		t.Error("expected book with bid above ask to be crossed")
	}
}
