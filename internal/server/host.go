// Package server implements the Server Host (C5): binds the OCR
// transport, accepts connections, runs one Session per connection,
// and performs graceful shutdown on signal. Adapted from the
// teacher's internal/core.Orion Run/Shutdown lifecycle (mutex-guarded
// running flag, a WaitGroup over background goroutines, a configured
// shutdown deadline) with the RTSP/MQTT/inference-worker machinery
// replaced by TCP accept loop + worker pool + session.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/care/ocrstream/internal/config"
	"github.com/care/ocrstream/internal/governor"
	"github.com/care/ocrstream/internal/healthserver"
	"github.com/care/ocrstream/internal/ocrengine"
	"github.com/care/ocrstream/internal/session"
	"github.com/care/ocrstream/internal/workerpool"
)

// Host owns the listener, the worker pool, the governor, and the set of
// live sessions. The zero value is not usable; construct with New.
type Host struct {
	cfg config.Config

	governor *governor.Governor
	pool     *workerpool.Pool
	health   *healthserver.Server

	mu        sync.Mutex
	listener  net.Listener
	conns     map[net.Conn]struct{}
	started   time.Time
	isRunning bool
	wg        sync.WaitGroup
}

// New constructs a Host from a validated configuration. It builds the
// governor and worker pool (starting the OCR engines) but does not
// bind the transport listener yet; that happens in Run.
func New(cfg config.Config) (*Host, error) {
	g, err := governor.New(cfg.CeilingBytes)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	profile := ocrengine.Profile{
		Language:      cfg.Language,
		PageSegMode:   cfg.PageSegMode,
		CharWhitelist: cfg.CharWhitelist,
	}

	pool, err := workerpool.New(workerpool.Config{
		Workers:       cfg.Threads,
		QueueCapacity: cfg.QueueCapacity,
		NewEngine:     func() workerpool.Engine { return ocrengine.New(profile) },
		Rejuvenate: workerpool.RejuvenateConfig{
			EveryTasks:    cfg.RejuvenateEveryTasks,
			EveryInterval: time.Duration(cfg.RejuvenateEverySeconds) * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	h := &Host{cfg: cfg, governor: g, pool: pool, conns: make(map[net.Conn]struct{})}

	h.health = healthserver.New(":"+cfg.HealthPort, healthserver.Stats{
		InFlightBytes: g.InFlight,
		CeilingBytes:  g.Ceiling,
		WorkersUp:     func() int { return cfg.Threads },
		WorkersTotal:  cfg.Threads,
	})

	return h, nil
}

// Run binds the listener, starts the health server, and accepts
// connections until ctx is cancelled or the accept loop fails. It
// returns immediately on either; callers must call Shutdown afterward
// to close the listener and drain outstanding sessions (mirroring the
// teacher's Run/Shutdown split, where Run only waits and Shutdown does
// the teardown).
func (h *Host) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return fmt.Errorf("server: already running")
	}
	addr := fmt.Sprintf("%s:%d", h.cfg.Address, h.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		h.mu.Unlock()
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	h.listener = ln
	h.isRunning = true
	h.started = time.Now()
	h.mu.Unlock()

	h.health.Start()
	h.health.MarkReady()

	slog.Info("ocr server listening", "address", addr, "threads", h.cfg.Threads)

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- h.acceptLoop(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-acceptErr:
		if err != nil {
			slog.Error("accept loop exited with error", "error", err)
		}
	}
	return nil
}

func (h *Host) acceptLoop(ctx context.Context) error {
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		id := uuid.New().String()
		h.trackConn(conn)
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			defer h.untrackConn(conn)
			defer conn.Close()
			s := session.New(id, conn, h.governor, h.pool)
			if err := s.Run(ctx); err != nil {
				slog.Warn("session ended with error", "session_id", id, "error", err)
			}
		}()
	}
}

func (h *Host) trackConn(c net.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Host) untrackConn(c net.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// Shutdown stops accepting new sessions, waits for outstanding sessions
// to drain, and closes the worker pool, bounded by ctx's deadline
// (spec.md §4.5, §6 "graceful shutdown with a configurable deadline").
// Sessions still open when the deadline passes are force-closed so
// Shutdown always returns (spec.md §4.5, "after the deadline,
// force-close").
func (h *Host) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return nil
	}
	ln := h.listener
	h.mu.Unlock()

	slog.Info("shutting down ocr server")
	if ln != nil {
		ln.Close()
	}

	drained := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		slog.Warn("shutdown deadline reached, force-closing open sessions")
		h.mu.Lock()
		for c := range h.conns {
			c.Close()
		}
		h.mu.Unlock()
		<-drained
	}

	h.pool.Shutdown()
	if err := h.health.Shutdown(); err != nil {
		slog.Warn("health server shutdown error", "error", err)
	}

	h.mu.Lock()
	h.isRunning = false
	uptime := time.Since(h.started)
	h.mu.Unlock()
	slog.Info("ocr server shutdown complete", "uptime", uptime)

	return nil
}
