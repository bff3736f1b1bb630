// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mockhttp provides an HTTP export-target double. It records every
// request it receives and answers with a configurable status, so gateway
// delivery and retry paths can be exercised without a real endpoint.
package mockhttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds mock HTTP server configuration.
type Config struct {
	Addr            string
	Status          int    // status returned for recorded requests
	Body            string // body returned for recorded requests
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// RecordedRequest is one request observed by the mock, kept for assertions.
type RecordedRequest struct {
	Method     string
	Path       string
	Headers    http.Header
	Body       string
	ReceivedAt time.Time
}

// Server records incoming requests and serves canned responses.
type Server struct {
	cfg      Config
	mu       sync.Mutex
	requests []RecordedRequest
	failing  atomic.Bool
	server   *http.Server
	listener net.Listener
}

// New creates a mock HTTP server.
func New(cfg Config) *Server {
	if cfg.Status == 0 {
		cfg.Status = http.StatusOK
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRecord)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Addr returns the listener's network address.
// Returns an empty string if the server hasn't started listening yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen starts the server and blocks until the context is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.cfg.Logger.Info("mock HTTP target started", slog.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.cfg.Logger.Error("mock HTTP target shutdown error", slog.String("error", err.Error()))
			return err
		}

		s.cfg.Logger.Info("mock HTTP target stopped")
		return nil
	}
}

// Requests returns a copy of all recorded requests in arrival order.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Clear removes all recorded requests. Used between test scenarios.
func (s *Server) Clear() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// SetFailing toggles failure mode: while set, recorded requests are
// answered with 503 so callers can exercise their retry handling.
func (s *Server) SetFailing(failing bool) {
	s.failing.Store(failing)
}

// healthResponse is the liveness probe payload.
type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth implements the liveness probe. Health checks are not
// recorded; they would drown out the requests under test.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(healthResponse{Status: "healthy"})
}

// handleRecord records the request and answers with the configured status.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	rec := RecordedRequest{
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    r.Header.Clone(),
		Body:       string(body),
		ReceivedAt: time.Now(),
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()

	s.cfg.Logger.Debug("request recorded",
		slog.String("method", rec.Method),
		slog.String("path", rec.Path),
		slog.Int("body_len", len(rec.Body)))

	if s.failing.Load() {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(s.cfg.Status)
	if s.cfg.Body != "" {
		io.WriteString(w, s.cfg.Body)
	}
}
