package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"matchcore/internal/audit"
	"matchcore/internal/dissemination"
	"matchcore/internal/matching"
	"matchcore/internal/transport"
)

// defaultSymbols is the fixed trading-pair universe pre-registered at
// startup rather than admitted on demand.
var defaultSymbols = []string{
	"BTC-USD", "ETH-USD", "SOL-USD", "XRP-USD", "ADA-USD",
	"DOGE-USD", "MATIC-USD", "DOT-USD", "AVAX-USD", "LINK-USD",
}

func main() {
	port := flag.String("port", "8088", "server port")
	dbPath := flag.String("db", "matchcore.db", "SQLite audit database path")
	corsOrigins := flag.String("cors", "", "comma-separated allowed CORS origins (empty = allow all for dev)")
	queueSize := flag.Int("queue-size", dissemination.DefaultQueueSize, "per-subscriber dissemination queue size")
	flag.Parse()

	store, err := audit.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize audit database: %v", err)
	}

	hub := dissemination.NewHub(*queueSize)
	engine := matching.NewEngine(defaultSymbols, matching.DefaultConfig(), hub, audit.NewHook(store))

	server := transport.NewServer(engine, hub)
	if *corsOrigins != "" {
		origins := strings.Split(*corsOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		server.SetCORSOrigins(origins)
		log.Printf("CORS restricted to: %v", origins)
	}

	addr := ":" + *port
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("Starting matchcored on http://localhost%s", addr)
		log.Printf("Symbols: %v", defaultSymbols)
		log.Printf("Audit database: %s", *dbPath)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Close every dissemination subscriber first: httpServer.Shutdown
	// waits for in-flight handlers to return, and a WebSocket handler
	// blocks on its subscriber's channel until it's closed or the
	// connection drops. Closing the hub up front lets those handlers
	// unwind within the shutdown timeout instead of being cut off by it.
	hub.Shutdown()
	log.Println("Dissemination subscribers disconnected")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("HTTP server stopped")

	if err := store.Close(); err != nil {
		log.Printf("Audit database close error: %v", err)
	}
	log.Println("Audit database closed")

	log.Println("Server shutdown complete")
}
