// Package server exposes the ask and search pipelines over HTTP: a small
// JSON REST surface plus a WebSocket endpoint for streamed answers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grandline/oracle/internal/config"
	"github.com/grandline/oracle/internal/metrics"
	"github.com/grandline/oracle/internal/models"
	"github.com/grandline/oracle/internal/ratelimit"
)

// Asker answers questions from retrieved context.
type Asker interface {
	Ask(ctx context.Context, question, tier string) (*models.Answer, error)
	AskStream(ctx context.Context, question, tier string, onToken func(token string) error) (*models.Answer, error)
}

// Searcher runs plain corpus queries.
type Searcher interface {
	Search(ctx context.Context, query, method string, limit int) (*models.SearchResult, error)
}

// Server wires handlers, middleware, and the rate limiter into an
// http.Server.
type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	asker    Asker
	searcher Searcher
	limiter  *ratelimit.Limiter
	metrics  *metrics.Collector
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// New creates the server. All collaborators are required except logger,
// which falls back to slog.Default.
func New(cfg config.Config, asker Asker, searcher Searcher, limiter *ratelimit.Limiter, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		asker:    asker,
		searcher: searcher,
		limiter:  limiter,
		metrics:  collector,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // same-origin enforcement happens at the proxy
			},
		},
	}

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler builds the route table with the middleware chain applied.
// Exposed so tests can drive the full stack without a listener.
func (s *Server) Handler() http.Handler {
	askPolicy := ratelimit.Policy{Max: s.cfg.RateAskMax, Window: s.cfg.RateWindow}
	searchPolicy := ratelimit.Policy{Max: s.cfg.RateSearchMax, Window: s.cfg.RateWindow}
	apiPolicy := ratelimit.Policy{Max: s.cfg.RateAPIMax, Window: s.cfg.RateWindow}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ask", s.rateLimit("ask", askPolicy, s.handleAsk))
	mux.HandleFunc("GET /api/ask/stream", s.rateLimit("ask", askPolicy, s.handleAskStream))
	mux.HandleFunc("POST /api/search", s.rateLimit("search", searchPolicy, s.handleSearch))
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)

	var h http.Handler = mux
	h = s.apiRateLimit(apiPolicy, h)
	h = s.logging(h)
	h = requestID(h)
	return h
}

// Run starts the limiter sweep and the HTTP listener, then blocks until ctx
// is cancelled and the server has drained.
func (s *Server) Run(ctx context.Context) error {
	s.limiter.Start(s.cfg.SweepInterval)
	defer s.limiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening",
			"addr", s.httpServer.Addr,
			"ask_endpoint", fmt.Sprintf("http://localhost:%s/api/ask", s.cfg.ServerPort),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
