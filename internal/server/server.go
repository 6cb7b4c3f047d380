// Package server exposes the trading API over HTTP: positions and trade
// history, trade recording, and the TP/SL order lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vegass027/50-daily-baby-sub002/internal/server/handler"
	"github.com/Vegass027/50-daily-baby-sub002/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Positions *handler.PositionHandler
	Trades    *handler.TradeHandler
	TPSL      *handler.TPSLHandler
}

// Server is the headless HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain
// (auth, logging, CORS).
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required for load balancers; auth middleware
	// still applies when an API key is set).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Position endpoints.
	mux.HandleFunc("GET /api/users/{user_id}/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("GET /api/users/{user_id}/positions/{token}", handlers.Positions.GetPosition)
	mux.HandleFunc("GET /api/positions/{position_id}/trades", handlers.Positions.ListTrades)

	// Trade recording.
	mux.HandleFunc("POST /api/trades", handlers.Trades.RecordTrade)

	// TP/SL lifecycle.
	mux.HandleFunc("POST /api/tpsl", handlers.TPSL.CreateTPSL)
	mux.HandleFunc("GET /api/positions/{position_id}/tpsl", handlers.TPSL.GetTPSL)
	mux.HandleFunc("DELETE /api/positions/{position_id}/tpsl", handlers.TPSL.CancelTPSL)
	mux.HandleFunc("POST /api/fills", handlers.TPSL.NotifyFill)

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
