// Package workerpool implements the fixed-size pool of OCR workers
// spec.md §4.2 (C2) describes: a bounded task channel, one engine per
// worker, and work-conserving round-robin dispatch (the channel itself
// is the round-robin mechanism — any idle worker receive is fair game).
package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/care/ocrstream/internal/wire"
)

// Engine is the subset of ocrengine.Adapter the pool depends on. Defining
// it here (rather than importing the concrete type) lets tests substitute
// a fake engine without needing a real Tesseract installation.
type Engine interface {
	Init() error
	Recognize(data []byte) (string, error)
	Close() error
}

// RejuvenateConfig controls optional periodic engine teardown/recreate,
// spec.md §4.2's mitigation for memory growth in the underlying
// recognizer library. Either field left at zero disables that trigger;
// both zero disables rejuvenation entirely.
type RejuvenateConfig struct {
	EveryTasks    int
	EveryInterval time.Duration
}

// Config constructs a Pool.
type Config struct {
	// Workers is the fixed worker count, N in spec.md §4.2.
	Workers int

	// QueueCapacity bounds the task channel. Submit blocks once it is
	// full — the primary back-pressure mechanism spec.md §4.4 relies on.
	QueueCapacity int

	// NewEngine constructs one adapter per worker. Called exactly
	// Workers times during New, and again on rejuvenation.
	NewEngine func() Engine

	Rejuvenate RejuvenateConfig
}

// Pool is a fixed set of workers pulling Tasks from a bounded channel.
// The zero value is not usable; construct with New.
type Pool struct {
	tasks chan *Task
	wg    sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs and starts a Pool. Per spec.md §7, engine init failure
// for every worker is a non-recoverable startup fault; init failure for
// some (but not all) workers is tolerated and logged, and the pool runs
// with the workers that did initialize.
func New(cfg Config) (*Pool, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workerpool: Workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.QueueCapacity < 1 {
		return nil, fmt.Errorf("workerpool: QueueCapacity must be >= 1, got %d", cfg.QueueCapacity)
	}

	p := &Pool{
		tasks:  make(chan *Task, cfg.QueueCapacity),
		closed: make(chan struct{}),
	}

	type initResult struct {
		id     int
		engine Engine
		err    error
	}
	results := make([]initResult, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		engine := cfg.NewEngine()
		err := engine.Init()
		results[i] = initResult{id: i, engine: engine, err: err}
		if err != nil {
			slog.Error("worker engine init failed", "worker_id", i, "error", err)
		}
	}

	started := 0
	for _, r := range results {
		if r.err != nil {
			continue
		}
		started++
		p.wg.Add(1)
		go p.runWorker(r.id, r.engine, cfg.Rejuvenate)
	}

	if started == 0 {
		return nil, fmt.Errorf("workerpool: all %d worker engines failed to initialize", cfg.Workers)
	}
	slog.Info("worker pool started", "requested", cfg.Workers, "started", started)

	return p, nil
}

// Submit delivers a task to some worker, blocking while the queue is
// full (spec.md §4.2, §4.4). It must not be called after Shutdown.
func (p *Pool) Submit(ctx context.Context, t *Task) error {
	select {
	case p.tasks <- t:
		return nil
	case <-p.closed:
		return fmt.Errorf("workerpool: pool is shutting down")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting new tasks, drains the queue, and waits for
// every worker to exit. Each worker releases its engine on exit
// (spec.md §4.2).
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		close(p.closed)
		close(p.tasks)
	})
	p.wg.Wait()
}

func (p *Pool) runWorker(id int, engine Engine, rejuvenate RejuvenateConfig) {
	defer p.wg.Done()
	defer engine.Close()

	tasksSinceRejuvenation := 0
	lastRejuvenation := time.Now()

	for task := range p.tasks {
		text, err := engine.Recognize(task.Payload)
		switch {
		case err != nil:
			task.Done("", false, err.Error())
		case text == "":
			task.Done("", false, wire.ErrEmptyResult)
		default:
			task.Done(text, true, "")
		}

		tasksSinceRejuvenation++
		if shouldRejuvenate(rejuvenate, tasksSinceRejuvenation, time.Since(lastRejuvenation)) {
			if err := engine.Init(); err != nil {
				slog.Error("worker engine rejuvenation failed, continuing with existing engine",
					"worker_id", id, "error", err)
			} else {
				slog.Debug("worker engine rejuvenated", "worker_id", id)
				tasksSinceRejuvenation = 0
				lastRejuvenation = time.Now()
			}
		}
	}
}

func shouldRejuvenate(cfg RejuvenateConfig, tasksSince int, elapsed time.Duration) bool {
	if cfg.EveryTasks > 0 && tasksSince >= cfg.EveryTasks {
		return true
	}
	if cfg.EveryInterval > 0 && elapsed >= cfg.EveryInterval {
		return true
	}
	return false
}
