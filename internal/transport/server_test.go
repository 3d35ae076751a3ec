package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"matchcore/internal/decimal"
	"matchcore/internal/dissemination"
	"matchcore/internal/matching"
)

func newTestServer() (*Server, *httptest.Server) {
	hub := dissemination.NewHub(16)
	engine := matching.NewEngine([]string{"BTC-USD"}, matching.DefaultConfig(), hub, nil)
	srv := NewServer(engine, hub)
	ts := httptest.NewServer(srv.Router())
	return srv, ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestSubmitLimitOrderViaREST(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp := postJSON(t, ts, "/api/orders", orderRequestDTO{
		Symbol: "BTC-USD", Side: "buy", Type: "limit", Quantity: "10", Price: "100.00",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out submitOrderResponseDTO
	decodeJSON(t, resp, &out)
	if out.Order.Status != "PENDING" {
		t.Errorf("expected status PENDING, got %s", out.Order.Status)
	}
	if len(out.Trades) != 0 {
		t.Errorf("expected 0 trades, got %d", len(out.Trades))
	}
}

func TestSubmitOrderRejectedUnsupportedSymbolReturns400(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp := postJSON(t, ts, "/api/orders", orderRequestDTO{
		Symbol: "NOPE", Side: "buy", Type: "limit", Quantity: "10", Price: "100.00",
	})
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetAndCancelOrder(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp := postJSON(t, ts, "/api/orders", orderRequestDTO{
		Symbol: "BTC-USD", Side: "buy", Type: "limit", Quantity: "10", Price: "100.00",
	})
	var submitted submitOrderResponseDTO
	decodeJSON(t, resp, &submitted)

	getResp, err := http.Get(ts.URL + "/api/orders/" + submitted.Order.OrderID)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	var fetched orderDTO
	decodeJSON(t, getResp, &fetched)
	if fetched.OrderID != submitted.Order.OrderID {
		t.Errorf("expected matching order id, got %s", fetched.OrderID)
	}

	req, _ := http.NewRequest("DELETE", ts.URL+"/api/orders/"+submitted.Order.OrderID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	if delResp.StatusCode != 200 {
		t.Fatalf("expected 200 on cancel, got %d", delResp.StatusCode)
	}

	// Second cancel should now conflict.
	delResp2, _ := http.DefaultClient.Do(req)
	if delResp2.StatusCode != 409 {
		t.Errorf("expected 409 on double-cancel, got %d", delResp2.StatusCode)
	}
}

func TestGetUnknownOrderReturns404(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/orders/does-not-exist")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetBBOAndSnapshot(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	postJSON(t, ts, "/api/orders", orderRequestDTO{Symbol: "BTC-USD", Side: "buy", Type: "limit", Quantity: "10", Price: "100.00"})
	postJSON(t, ts, "/api/orders", orderRequestDTO{Symbol: "BTC-USD", Side: "sell", Type: "limit", Quantity: "10", Price: "101.00"})

	bboResp, err := http.Get(ts.URL + "/api/market-data/BTC-USD/bbo")
	if err != nil {
		t.Fatalf("GET bbo failed: %v", err)
	}
	var bbo bboDTO
	decodeJSON(t, bboResp, &bbo)
	if bbo.BestBid == nil {
		t.Fatalf("expected a best bid, got none")
	}
	got, err := decimal.Parse(bbo.BestBid.Price)
	if err != nil || !got.Equal(decimal.MustParse("100.00")) {
		t.Errorf("expected best bid 100.00, got %q", bbo.BestBid.Price)
	}

	snapResp, err := http.Get(ts.URL + "/api/market-data/BTC-USD/orderbook?depth=5")
	if err != nil {
		t.Fatalf("GET orderbook failed: %v", err)
	}
	var snap bookSnapshotDTO
	decodeJSON(t, snapResp, &snap)
	if len(snap.Bids) != 1 || len(snap.Asks) != 1 {
		t.Errorf("expected 1 bid and 1 ask level, got %d/%d", len(snap.Bids), len(snap.Asks))
	}
}

func TestListSymbols(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/market-data/symbols")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	var symbols []string
	decodeJSON(t, resp, &symbols)
	if len(symbols) != 1 || symbols[0] != "BTC-USD" {
		t.Errorf("expected [BTC-USD], got %v", symbols)
	}
}
