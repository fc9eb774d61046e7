package activity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
)

// Window is a growable prefix over the full merged list.
type Window struct {
	initial   int
	increment int
	delay     time.Duration

	mu     sync.RWMutex
	events []domain.ActivityEvent
	// size is the requested prefix length; the visible one is capped by len(events).
	size int

	loading atomic.Bool
}

// WindowSlice is a consistent snapshot of a Window.
type WindowSlice struct {
	Visible      []domain.ActivityEvent
	All          []domain.ActivityEvent
	TotalCount   int
	DisplayCount int
	HasMore      bool
	Loading      bool
}

func NewWindow(initial, increment int, delay time.Duration) *Window {
	if initial < 1 {
		initial = 20
	}
	if increment < 1 {
		increment = initial
	}
	return &Window{initial: initial, increment: increment, delay: delay, size: initial}
}

// Reset returns to the initial size and drops the current list.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = nil
	w.size = w.initial
}

// Replace swaps in a new full list and keeps the current size. The slice is
// owned by the window afterwards and must not be modified.
func (w *Window) Replace(events []domain.ActivityEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = events
}

// LoadMore grows the window by one increment after the configured delay. It
// returns false without waiting when a load is already in flight or nothing
// is left to show, and false when ctx ends during the delay.
func (w *Window) LoadMore(ctx context.Context) bool {
	if !w.loading.CompareAndSwap(false, true) {
		return false
	}
	defer w.loading.Store(false)

	w.mu.RLock()
	exhausted := w.size >= len(w.events)
	w.mu.RUnlock()
	if exhausted {
		return false
	}

	if w.delay > 0 {
		t := time.NewTimer(w.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	total := len(w.events)
	if w.size >= total {
		return false
	}
	w.size = min(w.size+w.increment, total)
	return true
}

func (w *Window) Snapshot() WindowSlice {
	w.mu.RLock()
	defer w.mu.RUnlock()
	total := len(w.events)
	n := min(w.size, total)
	return WindowSlice{
		Visible:      w.events[:n:n],
		All:          w.events,
		TotalCount:   total,
		DisplayCount: n,
		HasMore:      n < total,
		Loading:      w.loading.Load(),
	}
}
