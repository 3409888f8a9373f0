// Package watch registers resolved content path specs with an operating
// system file watcher and reports matching changes in debounced batches.
// Its triggers are advisory: the tracker's watermark scan remains the
// source of truth, so a spurious batch costs one re-scan and a missed
// one is covered by the next.
package watch

import (
	"slices"
	"sync"
	"time"
)

// MaxPendingPaths caps the pending set. Hitting the cap flushes
// immediately so rapid file creation cannot grow memory without bound.
const MaxPendingPaths = 1000

// Debouncer coalesces bursts of file change events into batched change
// notifications. Events within the window collapse into one callback, so
// IDE autosave and formatter runs do not each trigger a scan.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(paths []string)
	stopped bool
}

// NewDebouncer creates a debouncer with the given window. onFlush receives
// the sorted batch of changed paths after the window expires with no new
// events.
func NewDebouncer(window time.Duration, onFlush func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a changed path. Repeated changes to one path within the
// window coalesce.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[path] = struct{}{}

	if len(d.pending) >= MaxPendingPaths {
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
		d.flushLocked()
		return
	}

	// Reset or start the timer. Stop may return false when the timer has
	// already fired and flush is queued; that is safe because flush exits
	// early on an empty pending set.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush runs when the timer expires.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushLocked()
}

// flushLocked performs the flush. Caller must hold d.mu.
func (d *Debouncer) flushLocked() {
	if d.stopped || len(d.pending) == 0 {
		return
	}

	paths := d.takePending()

	// Release the lock around the handler to prevent deadlocks, then
	// re-acquire for the caller's deferred unlock.
	d.mu.Unlock()
	if d.onFlush != nil {
		d.onFlush(paths)
	}
	d.mu.Lock()
}

// takePending drains the pending set in sorted order. Caller must hold
// d.mu.
func (d *Debouncer) takePending() []string {
	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	d.pending = make(map[string]struct{})
	slices.Sort(paths)
	return paths
}

// FlushNow flushes any pending paths without waiting for the timer. Useful
// for graceful shutdown.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := d.takePending()
	d.mu.Unlock()

	if d.onFlush != nil {
		d.onFlush(paths)
	}
}

// Stop stops the debouncer, flushing anything still pending.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	paths := d.takePending()
	d.mu.Unlock()

	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}

// PendingCount returns the number of paths waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
