// Package healthserver exposes liveness, readiness, and a metrics
// snapshot on a port separate from the OCR transport, so a transport
// failure cannot take down diagnostics. Adapted from the teacher's
// internal/core.StartHealthServer / LivenessHandler / ReadinessHandler
// / MetricsHandler, trading the video-pipeline fields for governor and
// worker-pool ones.
package healthserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Stats is the subset of live server state the health server reports.
// All fields are read through accessor functions so the health server
// never needs direct access to the governor or worker pool types.
type Stats struct {
	InFlightBytes func() int64
	CeilingBytes  func() int64
	WorkersUp     func() int
	WorkersTotal  int
}

// Server serves /healthz, /readyz, and /metrics.
type Server struct {
	stats   Stats
	started time.Time
	ready   atomic.Bool

	httpServer *http.Server
}

// New constructs a Server bound to addr (e.g. ":8080"). It does not
// start listening until Start is called.
func New(addr string, stats Stats) *Server {
	s := &Server{stats: stats, started: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleLiveness)
	mux.HandleFunc("/readyz", s.handleReadiness)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// MarkReady flips the readiness flag once the worker pool and all its
// adapters have completed Init (spec.md's "ready once" condition).
func (s *Server) MarkReady() {
	s.ready.Store(true)
}

// Start begins serving in a background goroutine. It does not block.
func (s *Server) Start() {
	slog.Info("starting health server", "addr", s.httpServer.Addr,
		"endpoints", []string{"/healthz", "/readyz", "/metrics"})
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server failed", "error", err)
		}
	}()
}

// Handler returns the server's mux, for tests that want to drive
// requests through httptest.NewServer without binding a real port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown stops the server, letting in-flight requests finish.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ready := s.ready.Load()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"ready":         ready,
		"workers_up":    s.stats.WorkersUp(),
		"workers_total": s.stats.WorkersTotal,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "ocr_in_flight_bytes %d\n", s.stats.InFlightBytes())
	fmt.Fprintf(w, "ocr_ceiling_bytes %d\n", s.stats.CeilingBytes())
	fmt.Fprintf(w, "ocr_workers_up %d\n", s.stats.WorkersUp())
	fmt.Fprintf(w, "ocr_workers_total %d\n", s.stats.WorkersTotal)
	fmt.Fprintf(w, "ocr_uptime_seconds %d\n", int64(time.Since(s.started).Seconds()))
}
