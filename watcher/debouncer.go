package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long an identical event is suppressed.
const DefaultDebounceWindow = 500 * time.Millisecond

// Debouncer drops repeats of an event seen within the debounce window.
// A single save commonly produces several notifications for the same path;
// only the first one inside the window is accepted.
type Debouncer struct {
	window   time.Duration
	mu       sync.Mutex
	lastSeen map[Event]time.Time
	now      func() time.Time
}

// NewDebouncer creates a debouncer with the specified window.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		window:   window,
		lastSeen: make(map[Event]time.Time),
		now:      time.Now,
	}
}

// Accept reports whether event should be processed. Accepted events refresh
// the last-seen time of their (kind, path, dest) key; suppressed events do not.
// Keys older than twice the window are pruned on every accept.
func (d *Debouncer) Accept(event Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.lastSeen[event]; ok && now.Sub(last) < d.window {
		return false
	}
	d.lastSeen[event] = now

	for key, seen := range d.lastSeen {
		if now.Sub(seen) >= 2*d.window {
			delete(d.lastSeen, key)
		}
	}
	return true
}

// Pending returns the number of keys currently remembered.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastSeen)
}

// Window returns the debounce window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}
