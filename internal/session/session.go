// Package session implements the per-connection Stream Session (C4):
// reads ImageRequest frames, admits them through the memory governor,
// dispatches tasks to the worker pool, and serializes OCRResult frames
// back through a single dedicated writer goroutine (spec.md §4.4's
// "equivalent design" to a mutex-guarded writer, and the style the
// teacher's stream-capture module uses for its single consumer loop).
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/care/ocrstream/internal/governor"
	"github.com/care/ocrstream/internal/wire"
	"github.com/care/ocrstream/internal/workerpool"
)

// Pool is the subset of workerpool.Pool a session depends on.
type Pool interface {
	Submit(ctx context.Context, t *workerpool.Task) error
}

// Conn is the subset of net.Conn a session needs, narrowed for testing
// without a real socket.
type Conn interface {
	io.Reader
	io.Writer
	Close() error
}

// Session runs one client connection end to end. The zero value is not
// usable; construct with New.
type Session struct {
	id       string
	conn     Conn
	governor *governor.Governor
	pool     Pool

	reader *wire.Reader
	writer *wire.Writer

	results chan wire.OCRResult
	tasks   sync.WaitGroup // outstanding admitted tasks

	writerDone chan struct{}
}

// New constructs a Session bound to conn. id identifies the session in
// logs only; it has no protocol meaning.
func New(id string, conn Conn, g *governor.Governor, pool Pool) *Session {
	return &Session{
		id:         id,
		conn:       conn,
		governor:   g,
		pool:       pool,
		reader:     wire.NewReader(conn),
		writer:     wire.NewWriter(conn),
		results:    make(chan wire.OCRResult, 32),
		writerDone: make(chan struct{}),
	}
}

// Run drives the session's reader loop until the client half-closes or
// ctx is cancelled, then drains outstanding tasks before returning
// (spec.md §4.4's Reading → Dispatching → Writing → Draining → Done
// state machine). Run returns only after every admitted task has
// either written its response or recorded a write failure, even if ctx
// was cancelled mid-flight — in-progress OCR tasks always run to
// completion (spec.md §5, "Cancellation & timeouts").
func (s *Session) Run(ctx context.Context) error {
	go s.runWriter()

	readErr := s.readLoop(ctx)

	go func() {
		s.tasks.Wait()
		close(s.results)
	}()
	<-s.writerDone

	if readErr != nil && !errors.Is(readErr, io.EOF) {
		slog.Warn("session: reader loop ended with error", "session_id", s.id, "error", readErr)
		return readErr
	}
	slog.Info("session: done", "session_id", s.id)
	return nil
}

// readLoop is the single-threaded Reading/Dispatching phase.
func (s *Session) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req, err := s.reader.ReadImageRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		s.dispatch(ctx, req)
	}
}

// dispatch handles one decoded request: admission, then task submission,
// or a locally-synthesized failure result (spec.md §4.4 steps 2-5).
func (s *Session) dispatch(ctx context.Context, req wire.ImageRequest) {
	if len(req.ImageData) == 0 {
		s.results <- wire.OCRResult{
			ImageID:      req.ImageID,
			Success:      false,
			ErrorMessage: wire.ErrEmptyImageData,
		}
		return
	}

	size := int64(len(req.ImageData))
	if !s.governor.Admit(size) {
		s.results <- wire.OCRResult{
			ImageID:      req.ImageID,
			Success:      false,
			ErrorMessage: wire.ErrOverloaded,
		}
		return
	}

	s.tasks.Add(1)
	task := &workerpool.Task{
		ImageID:  req.ImageID,
		Filename: req.Filename,
		Payload:  req.ImageData,
		Done: func(text string, success bool, errMsg string) {
			s.governor.Release(size)
			s.results <- wire.OCRResult{
				ImageID:       req.ImageID,
				ExtractedText: text,
				Success:       success,
				ErrorMessage:  errMsg,
			}
			s.tasks.Done()
		},
	}

	if err := s.pool.Submit(ctx, task); err != nil {
		// Queue full and ctx cancelled, or pool shutting down: the task
		// was never accepted, so undo the Add and release directly.
		s.tasks.Done()
		s.governor.Release(size)
		s.results <- wire.OCRResult{
			ImageID:      req.ImageID,
			Success:      false,
			ErrorMessage: wire.ErrOverloaded,
		}
	}
}

// runWriter is the single dedicated writer goroutine: every OCRResult
// enqueued either by dispatch (synthesized failures) or by a worker's
// Done callback flows through here, so the underlying connection's
// write side is only ever touched by one goroutine (spec.md §4.4, §9
// "Response-writer discipline").
func (s *Session) runWriter() {
	defer close(s.writerDone)
	for res := range s.results {
		if err := s.writer.WriteOCRResult(res); err != nil {
			// WriteLost per spec.md §7: not surfaced to the client, logged only.
			slog.Debug("session: write lost", "session_id", s.id, "image_id", res.ImageID, "error", err)
		}
	}
}
