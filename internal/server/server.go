// Package server exposes the pipeline over a local HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shusrusha/shusrusha/internal/config"
	"github.com/shusrusha/shusrusha/internal/pipeline"
	"github.com/shusrusha/shusrusha/internal/providers"
)

// Server is the shusrusha HTTP server. It wraps one pipeline Runner;
// each request gets its own run state.
type Server struct {
	httpServer *http.Server
	runner     *pipeline.Runner
	authToken  string
	limiter    *providers.RateLimiter
	logger     *slog.Logger
	startedAt  time.Time

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	Server config.ServerCfg
	Runner *pipeline.Runner
	Logger *slog.Logger
}

// New creates a new Server.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	host := cfg.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "5000"
	}

	s := &Server{
		runner:    cfg.Runner,
		authToken: cfg.Server.AuthToken,
		logger:    cfg.Logger,
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = providers.NewRateLimiter(cfg.Server.RateLimit)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.requireAuth(s.handleStatus))
	mux.HandleFunc("POST /process", s.requireAuth(s.handleProcess))

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(host, port),
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 15 * time.Minute, // runs make many model calls
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}
	return s.shutdown()
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// requireAuth enforces the bearer token and the request rate limit.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			if r.Header.Get("Authorization") != "Bearer "+s.authToken {
				writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
		}
		if s.limiter != nil && !s.limiter.TryConsume() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
