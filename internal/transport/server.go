// Package transport exposes a matching.Engine over HTTP: a REST API
// for order submission/cancellation/queries and WebSocket streams for
// market data and trade dissemination.
package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"matchcore/internal/dissemination"
	"matchcore/internal/matching"
)

// Server wires a matching.Engine and a dissemination.Hub to HTTP.
type Server struct {
	engine      *matching.Engine
	hub         *dissemination.Hub
	upgrader    websocket.Upgrader
	corsOrigins []string
}

// NewServer constructs a Server. hub may be nil if WebSocket streaming
// is not required; the REST surface works regardless.
func NewServer(engine *matching.Engine, hub *dissemination.Hub) *Server {
	s := &Server{engine: engine, hub: hub}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.checkCORSOrigin(r.Header.Get("Origin"))
		},
	}
	return s
}

// SetCORSOrigins sets the allowed CORS origins. An empty slice allows
// all origins (the default, suitable for local development only).
func (s *Server) SetCORSOrigins(origins []string) {
	s.corsOrigins = origins
}

func (s *Server) checkCORSOrigin(origin string) bool {
	if len(s.corsOrigins) == 0 || origin == "" {
		return true
	}
	for _, allowed := range s.corsOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Router builds the full HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	allowedOrigins := s.corsOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", s.submitOrder)
		r.Get("/orders", s.listOrders)
		r.Get("/orders/symbol/{symbol}", s.listOrdersBySymbol)
		r.Get("/orders/{id}", s.getOrder)
		r.Delete("/orders/{id}", s.cancelOrder)

		r.Get("/market-data/symbols", s.listSymbols)
		r.Get("/market-data/{symbol}/bbo", s.getBBO)
		r.Get("/market-data/{symbol}/orderbook", s.getSnapshot)
	})

	r.Get("/ws/market-data/{symbol}", s.handleMarketDataWS)
	r.Get("/ws/trades/{symbol}", s.handleTradesWS)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeEngineError(w http.ResponseWriter, err error) {
	merr, ok := err.(*matching.Error)
	if !ok {
		writeJSON(w, 500, errorResponseDTO{Error: err.Error(), Kind: matching.KindInternal.String()})
		return
	}
	writeJSON(w, httpStatusForKind(merr.Kind), errorResponseDTO{Error: merr.Message, Kind: merr.Kind.String()})
}

func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, 400, errorResponseDTO{Error: "invalid request body", Kind: matching.KindValidation.String()})
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		writeJSON(w, 400, errorResponseDTO{Error: "side must be 'buy' or 'sell'", Kind: matching.KindValidation.String()})
		return
	}
	typ, ok := parseOrderType(req.Type)
	if !ok {
		writeJSON(w, 400, errorResponseDTO{Error: "type must be 'market', 'limit', 'ioc', or 'fok'", Kind: matching.KindValidation.String()})
		return
	}

	qty, err := parseDecimalField(req.Quantity)
	if err != nil {
		writeJSON(w, 400, errorResponseDTO{Error: "invalid quantity", Kind: matching.KindValidation.String()})
		return
	}
	price, err := parseOptionalDecimalField(req.Price)
	if err != nil {
		writeJSON(w, 400, errorResponseDTO{Error: "invalid price", Kind: matching.KindValidation.String()})
		return
	}

	order, trades, err := s.engine.SubmitOrder(matching.OrderRequest{
		Symbol:   req.Symbol,
		Side:     side,
		Type:     typ,
		Quantity: qty,
		Price:    price,
		UserID:   req.UserID,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, 200, newSubmitOrderResponseDTO(order, trades))
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, ok := s.engine.GetOrder(id)
	if !ok {
		writeJSON(w, 404, errorResponseDTO{Error: "order not found", Kind: matching.KindNotFound.String()})
		return
	}
	writeJSON(w, 200, newOrderDTO(order))
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := s.engine.CancelOrder(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, 200, newOrderDTO(order))
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	filter := matching.OrderFilter{
		Symbol: r.URL.Query().Get("symbol"),
		UserID: r.URL.Query().Get("user_id"),
	}
	s.writeOrderList(w, filter)
}

func (s *Server) listOrdersBySymbol(w http.ResponseWriter, r *http.Request) {
	filter := matching.OrderFilter{Symbol: chi.URLParam(r, "symbol")}
	s.writeOrderList(w, filter)
}

func (s *Server) writeOrderList(w http.ResponseWriter, filter matching.OrderFilter) {
	orders := s.engine.ListOrders(filter)
	dtos := make([]orderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = newOrderDTO(o)
	}
	writeJSON(w, 200, dtos)
}

func (s *Server) listSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.engine.Symbols())
}

func (s *Server) getBBO(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	bbo, err := s.engine.GetBBO(symbol)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, 200, newBBODTO(bbo))
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	depth := 0
	if v := r.URL.Query().Get("depth"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			depth = n
		}
	}
	snap, err := s.engine.GetSnapshot(symbol, depth)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, 200, newBookSnapshotDTO(snap))
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

func (s *Server) handleMarketDataWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "market data streaming is not enabled", http.StatusServiceUnavailable)
		return
	}
	symbol := chi.URLParam(r, "symbol")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := s.hub.SubscribeMarketData(symbol)
	defer s.hub.UnsubscribeMarketData(sub)
	if snap, err := s.engine.GetSnapshot(symbol, 0); err == nil {
		s.hub.SendSnapshot(sub, snap)
	}

	runWSPump(conn, sub, func(msg dissemination.Message) ([]byte, error) { return json.Marshal(msg) })
}

func (s *Server) handleTradesWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "trade streaming is not enabled", http.StatusServiceUnavailable)
		return
	}
	symbol := chi.URLParam(r, "symbol")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := s.hub.SubscribeTrades(symbol)
	defer s.hub.UnsubscribeTrades(sub)
	runWSPump(conn, sub, func(msg dissemination.Message) ([]byte, error) { return json.Marshal(msg) })
}

// runWSPump drives a single WebSocket connection: a write loop relaying
// the subscriber's messages plus periodic pings, and a read loop whose
// only job is to observe pong keepalive and client-initiated close.
func runWSPump(conn *websocket.Conn, sub *dissemination.Subscriber, encode func(dissemination.Message) ([]byte, error)) {
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			data, err := encode(msg)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
