package dissemination

import (
	"testing"

	"matchcore/internal/decimal"
	"matchcore/internal/matching"
	"matchcore/internal/orderbook"
)

func TestPublishBookUpdateDeliversToMarketDataSubscriber(t *testing.T) {
	h := NewHub(4)
	sub := h.SubscribeMarketData("BTC-USD")

	h.PublishBookUpdate("BTC-USD", orderbook.BookSnapshot{Symbol: "BTC-USD"})

	select {
	case msg := <-sub.Messages():
		if msg.Type != TypeBookUpdate {
			t.Errorf("expected BOOK_UPDATE, got %s", msg.Type)
		}
	default:
		t.Fatal("expected a message to be delivered")
	}
}

func TestPublishBookUpdateDoesNotReachTradeSubscribers(t *testing.T) {
	h := NewHub(4)
	sub := h.SubscribeTrades("BTC-USD")

	h.PublishBookUpdate("BTC-USD", orderbook.BookSnapshot{Symbol: "BTC-USD"})

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected message on the trades channel: %v", msg)
	default:
	}
}

func TestPublishIsolatedPerSymbol(t *testing.T) {
	h := NewHub(4)
	btc := h.SubscribeMarketData("BTC-USD")
	eth := h.SubscribeMarketData("ETH-USD")

	h.PublishBookUpdate("BTC-USD", orderbook.BookSnapshot{Symbol: "BTC-USD"})

	select {
	case <-btc.Messages():
	default:
		t.Fatal("expected the BTC-USD subscriber to receive the update")
	}
	select {
	case <-eth.Messages():
		t.Fatal("expected the ETH-USD subscriber to receive nothing")
	default:
	}
}

func TestOverflowingSubscriberIsEvictedNotStalled(t *testing.T) {
	h := NewHub(1)
	slow := h.SubscribeMarketData("BTC-USD")

	// Fill the single-slot queue, then push a second message that must
	// evict the subscriber rather than block the publisher.
	h.PublishBBOUpdate(matching.BBO{Symbol: "BTC-USD"})
	h.PublishBBOUpdate(matching.BBO{Symbol: "BTC-USD"})

	<-slow.Messages() // drain the one message that made it through

	if _, open := <-slow.Messages(); open {
		t.Error("expected the overflowed subscriber's channel to be closed")
	}
}

func TestOverflowingOneSubscriberDoesNotAffectAnother(t *testing.T) {
	h := NewHub(1)
	_ = h.SubscribeMarketData("BTC-USD")
	other := h.SubscribeMarketData("BTC-USD")

	h.PublishBBOUpdate(matching.BBO{Symbol: "BTC-USD"})

	// other keeps up by draining its single slot; slow never reads.
	if _, open := <-other.Messages(); !open {
		t.Fatal("expected the other subscriber's first message")
	}

	h.PublishBBOUpdate(matching.BBO{Symbol: "BTC-USD"}) // evicts slow, never touches other

	select {
	case msg, open := <-other.Messages():
		if !open {
			t.Error("expected the other subscriber's channel to remain open")
		}
		_ = msg
	default:
		t.Error("expected the other subscriber to have a second message queued")
	}
}

func TestPublishTradeEncodesDecimalFieldsAsStrings(t *testing.T) {
	h := NewHub(4)
	sub := h.SubscribeTrades("BTC-USD")

	trade := &orderbook.TradeExecution{
		TradeID:       "t1",
		Symbol:        "BTC-USD",
		Price:         decimal.MustParse("100.50"),
		Quantity:      decimal.MustParse("2"),
		AggressorSide: orderbook.Buy,
		MakerOrderID:  "maker1",
		TakerOrderID:  "taker1",
	}
	h.PublishTrade(trade)

	msg := <-sub.Messages()
	payload, ok := msg.Payload.(TradePayload)
	if !ok {
		t.Fatalf("expected TradePayload, got %T", msg.Payload)
	}
	got, err := decimal.Parse(payload.Price)
	if err != nil || !got.Equal(decimal.MustParse("100.50")) {
		t.Errorf("expected price string to parse back to 100.50, got %q", payload.Price)
	}
}

func TestPublishRejectionDeliversToMarketDataSubscriber(t *testing.T) {
	h := NewHub(4)
	sub := h.SubscribeMarketData("BTC-USD")

	order := &orderbook.Order{ID: "o1", Symbol: "BTC-USD", UserID: "u1"}
	h.PublishRejection(order, "quantity below minimum")

	msg := <-sub.Messages()
	if msg.Type != TypeRejection {
		t.Fatalf("expected REJECTION, got %s", msg.Type)
	}
	payload, ok := msg.Payload.(RejectionPayload)
	if !ok {
		t.Fatalf("expected RejectionPayload, got %T", msg.Payload)
	}
	if payload.OrderID != "o1" || payload.Reason != "quantity below minimum" {
		t.Errorf("unexpected rejection payload: %+v", payload)
	}
}

func TestPublishRejectionDoesNotReachTradeSubscribers(t *testing.T) {
	h := NewHub(4)
	sub := h.SubscribeTrades("BTC-USD")

	h.PublishRejection(&orderbook.Order{ID: "o1", Symbol: "BTC-USD"}, "bad request")

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected message on the trades channel: %v", msg)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(4)
	sub := h.SubscribeMarketData("BTC-USD")
	h.UnsubscribeMarketData(sub)

	if _, open := <-sub.Messages(); open {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestShutdownClosesAllSubscriberChannels(t *testing.T) {
	h := NewHub(4)
	md := h.SubscribeMarketData("BTC-USD")
	trades := h.SubscribeTrades("BTC-USD")
	other := h.SubscribeMarketData("ETH-USD")

	h.Shutdown()

	for _, sub := range []*Subscriber{md, trades, other} {
		if _, open := <-sub.Messages(); open {
			t.Errorf("expected subscriber channel for %s to be closed after Shutdown", sub.Symbol())
		}
	}

	// Shutdown must be safe to call on an already-empty hub and must not
	// panic on subscribers it already closed.
	h.Shutdown()
}
