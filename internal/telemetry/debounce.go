package telemetry

import (
	"sync"
	"time"
)

// DefaultScrollWindow is the trailing quiescence window for scroll coalescing.
const DefaultScrollWindow = 100 * time.Millisecond

// ScrollDebouncer coalesces raw scroll notifications so the recorder sees at
// most one scroll_event per quiescent window. Only the last observed position
// within a burst is recorded (trailing-edge debounce).
type ScrollDebouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	last    float64

	recorder *Recorder
	window   time.Duration
}

// NewScrollDebouncer creates a debouncer around rec. A non-positive window
// falls back to DefaultScrollWindow.
func NewScrollDebouncer(rec *Recorder, window time.Duration) *ScrollDebouncer {
	if window <= 0 {
		window = DefaultScrollWindow
	}
	return &ScrollDebouncer{recorder: rec, window: window}
}

// Observe notes a raw scroll position and restarts the trailing window.
func (d *ScrollDebouncer) Observe(position float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = position
	d.pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.fire)
		return
	}
	d.timer.Reset(d.window)
}

func (d *ScrollDebouncer) fire() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	position := d.last
	d.mu.Unlock()

	d.recorder.RecordScroll(position)
}

// Flush records any pending position immediately, without waiting out the
// window. Used at teardown.
func (d *ScrollDebouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	d.fire()
}

// Stop cancels any pending notification without recording it.
func (d *ScrollDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
}
