package activity

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into single runs of fn. Each
// trigger restarts the quiet period, so the latest request wins. At most one
// run is active at a time; a trigger firing during a run queues exactly one
// follow-up.
type Debouncer struct {
	quiet time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	pending bool
	stopped bool
	wg      sync.WaitGroup
}

func NewDebouncer(quiet time.Duration, fn func()) *Debouncer {
	return &Debouncer{quiet: quiet, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.running {
		d.pending = true
		d.mu.Unlock()
		return
	}
	d.running = true
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()

	for {
		d.fn()
		d.mu.Lock()
		if d.pending && !d.stopped {
			d.pending = false
			d.mu.Unlock()
			continue
		}
		d.running = false
		d.pending = false
		d.mu.Unlock()
		return
	}
}

// Stop cancels any scheduled run and waits for an active one to finish.
// Later triggers are ignored. fn must not call Stop.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.wg.Wait()
}
