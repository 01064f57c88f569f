// Package debounce provides a quiet-window debouncer for rapidly changing values.
package debounce

import (
	"sync"
	"time"
)

// Debouncer collapses rapid updates to a value into a single publish.
// Each Set resets the quiet window; the callback fires with the latest
// value once the window elapses with no further updates.
type Debouncer[T any] struct {
	window  time.Duration
	publish func(T)

	mu      sync.Mutex
	pending T
	hasNew  bool
	timer   *time.Timer
	stopped bool
}

// New creates a debouncer with the given quiet window.
// publish is called with the last value set once the window elapses.
func New[T any](window time.Duration, publish func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		window:  window,
		publish: publish,
	}
}

// Set records a new value and restarts the quiet window.
func (d *Debouncer[T]) Set(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = value
	d.hasNew = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush publishes the pending value, if any.
func (d *Debouncer[T]) flush() {
	d.mu.Lock()
	if !d.hasNew || d.stopped {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.hasNew = false
	d.mu.Unlock()

	if d.publish != nil {
		d.publish(value)
	}
}

// Flush publishes any pending value immediately without waiting for the window.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.flush()
}

// Cancel drops the pending value, if any. Unlike Stop, later Sets publish
// again.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.hasNew = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Stop prevents any further publishes.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.hasNew = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
