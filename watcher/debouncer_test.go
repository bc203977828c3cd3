package watcher

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic debouncing.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDebouncer(window time.Duration) (*Debouncer, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	d := NewDebouncer(window)
	d.now = clock.Now
	return d, clock
}

func Test_Debouncer_DuplicateWithinWindow(t *testing.T) {
	d, clock := newTestDebouncer(500 * time.Millisecond)
	event := Event{Kind: Modified, Path: "/docs/a.txt"}

	if !d.Accept(event) {
		t.Fatal("expected first event to be accepted")
	}
	clock.Advance(100 * time.Millisecond)
	if d.Accept(event) {
		t.Error("expected duplicate within the window to be suppressed")
	}
}

func Test_Debouncer_SeparatedByMoreThanWindow(t *testing.T) {
	d, clock := newTestDebouncer(500 * time.Millisecond)
	event := Event{Kind: Modified, Path: "/docs/a.txt"}

	d.Accept(event)
	clock.Advance(600 * time.Millisecond)
	if !d.Accept(event) {
		t.Error("expected event after the window to be accepted")
	}
}

func Test_Debouncer_SuppressedEventsDoNotExtendWindow(t *testing.T) {
	d, clock := newTestDebouncer(500 * time.Millisecond)
	event := Event{Kind: Modified, Path: "/docs/a.txt"}

	d.Accept(event)
	clock.Advance(300 * time.Millisecond)
	d.Accept(event) // suppressed
	clock.Advance(250 * time.Millisecond)
	if !d.Accept(event) {
		t.Error("expected acceptance 550ms after the last accepted event")
	}
}

func Test_Debouncer_KeyIncludesKindAndDest(t *testing.T) {
	d, _ := newTestDebouncer(500 * time.Millisecond)

	events := []Event{
		{Kind: Created, Path: "/docs/a.txt"},
		{Kind: Modified, Path: "/docs/a.txt"},
		{Kind: Moved, Path: "/docs/a.txt", DestPath: "/docs/b.txt"},
		{Kind: Moved, Path: "/docs/a.txt", DestPath: "/docs/c.txt"},
		{Kind: Modified, Path: "/docs/b.txt"},
	}
	for _, event := range events {
		if !d.Accept(event) {
			t.Errorf("expected distinct key %v to be accepted", event)
		}
	}
}

func Test_Debouncer_PrunesOldKeys(t *testing.T) {
	d, clock := newTestDebouncer(500 * time.Millisecond)

	d.Accept(Event{Kind: Modified, Path: "/a"})
	d.Accept(Event{Kind: Modified, Path: "/b"})
	clock.Advance(time.Second)
	d.Accept(Event{Kind: Modified, Path: "/c"})

	if got := d.Pending(); got != 1 {
		t.Errorf("expected keys older than twice the window to be pruned, got %d", got)
	}
}

func Test_Debouncer_DefaultWindow(t *testing.T) {
	if got := NewDebouncer(0).Window(); got != DefaultDebounceWindow {
		t.Errorf("expected default window %v, got %v", DefaultDebounceWindow, got)
	}
}
