// Package governor tracks bytes of in-flight image payloads and admits or
// rejects requests against a global ceiling.
//
// Admission is non-blocking by design (spec.md §4.3): a rejected request
// is converted locally into a failure result rather than queued, so a few
// large images in flight never starve small ones.
package governor

import (
	"fmt"
	"sync/atomic"
)

// DefaultCeilingBytes is the governor's default admission ceiling, 500 MiB.
const DefaultCeilingBytes int64 = 500 << 20

// Governor is a process-wide, lock-free byte accountant. The zero value is
// not usable; construct with New.
type Governor struct {
	inFlight int64 // atomic
	ceiling  int64
}

// New constructs a Governor with the given ceiling in bytes. A
// non-positive ceiling is rejected: a governor that admits nothing (or
// everything) is a misconfiguration, not a valid operating mode.
func New(ceilingBytes int64) (*Governor, error) {
	if ceilingBytes <= 0 {
		return nil, fmt.Errorf("governor: ceiling must be positive, got %d", ceilingBytes)
	}
	return &Governor{ceiling: ceilingBytes}, nil
}

// Admit attempts to reserve n bytes against the ceiling. It returns true
// and atomically reserves the bytes if admitting them would not exceed
// the ceiling; otherwise it returns false and the counter is left
// unchanged.
func (g *Governor) Admit(n int64) bool {
	if n < 0 {
		return false
	}
	for {
		cur := atomic.LoadInt64(&g.inFlight)
		next := cur + n
		if next > g.ceiling {
			return false
		}
		if atomic.CompareAndSwapInt64(&g.inFlight, cur, next) {
			return true
		}
	}
}

// Release returns n previously admitted bytes to the ceiling. Callers
// must release exactly the amount they admitted, exactly once, even when
// the task that held them failed or its response could not be written.
func (g *Governor) Release(n int64) {
	if n <= 0 {
		return
	}
	atomic.AddInt64(&g.inFlight, -n)
}

// InFlight reports the current reserved byte count. Intended for the
// health/metrics endpoint; not used for admission decisions elsewhere.
func (g *Governor) InFlight() int64 {
	return atomic.LoadInt64(&g.inFlight)
}

// Ceiling reports the configured admission ceiling.
func (g *Governor) Ceiling() int64 {
	return g.ceiling
}
