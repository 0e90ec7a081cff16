// Package debounce delays an action until its input has been quiet for a
// fixed period.
package debounce

import (
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer runs fn with the latest value once Trigger has not been called
// for delay. Superseded values are dropped.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

// New creates a debouncer calling fn.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger restarts the quiet period with value v.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	// A timer that fired before Stop took effect sees a newer generation
	// and skips.
	gen := atomic.AddUint64(&d.generation, 1)
	d.timer = time.AfterFunc(d.delay, func() {
		if atomic.LoadUint64(&d.generation) != gen {
			return
		}
		d.fn(v)
	})
}

// Flush cancels the pending timer and runs fn now with v.
func (d *Debouncer[T]) Flush(v T) {
	d.Cancel()
	d.fn(v)
}

// Cancel drops any pending call.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	atomic.AddUint64(&d.generation, 1)
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
