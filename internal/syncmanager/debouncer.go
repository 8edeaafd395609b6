package syncmanager

import (
	"strings"
	"sync"
	"time"

	"github.com/sakugaworks/cutflow/internal/clock"
	obsmetrics "github.com/sakugaworks/cutflow/internal/observability/metrics"
)

// Class selects the debounce window for a key.
type Class string

const (
	// ClassUI coalesces re-render level work, tens of milliseconds.
	ClassUI Class = Class(obsmetrics.SyncClassUI)
	// ClassRemote batches rapid edits into one outbound write, hundreds of
	// milliseconds to seconds.
	ClassRemote Class = Class(obsmetrics.SyncClassRemote)
)

// FlushFunc receives the most recent payload for a key once its window
// elapses without another schedule.
type FlushFunc func(key string, class Class, payload any)

type entry struct {
	class   Class
	payload any
	timer   clock.Timer
	gen     uint64
}

// Debouncer is a trailing-edge per-key debounce. Scheduling again for the
// same key replaces the pending payload and restarts the window; there is
// no maximum-wait cap, so continuously updated keys defer until an
// explicit Flush. Independent keys never serialize against each other.
type Debouncer struct {
	mu      sync.Mutex
	clock   clock.Clock
	window  func(Class) time.Duration
	flush   FlushFunc
	entries map[string]*entry
	// gen advances on every schedule. A timer that already expired and
	// whose callback lost the race to a reschedule (its Stop returned
	// false) carries a stale generation and must not deliver the fresh
	// payload before its new window.
	gen uint64
}

// NewDebouncer builds a debouncer. window is read per schedule so tuning
// reloads apply to the next window.
func NewDebouncer(c clock.Clock, window func(Class) time.Duration, flush FlushFunc) *Debouncer {
	return &Debouncer{
		clock:   c,
		window:  window,
		flush:   flush,
		entries: make(map[string]*entry),
	}
}

// Schedule records the latest payload for key and (re)starts its window.
func (d *Debouncer) Schedule(key string, class Class, payload any) {
	d.mu.Lock()
	e, ok := d.entries[key]
	if ok {
		e.timer.Stop()
		e.payload = payload
		e.class = class
	} else {
		e = &entry{class: class, payload: payload}
		d.entries[key] = e
	}
	d.gen++
	e.gen = d.gen
	gen := d.gen
	e.timer = d.clock.AfterFunc(d.window(class), func() { d.fire(key, gen) })
	d.mu.Unlock()

	obsmetrics.Core().IncSyncScheduled(string(class))
	if ok {
		obsmetrics.Core().IncSyncCoalesced(string(class))
	}
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	e, ok := d.entries[key]
	if !ok || e.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.entries, key)
	d.mu.Unlock()

	obsmetrics.Core().IncSyncFlush(string(e.class))
	d.flush(key, e.class, e.payload)
}

// Flush delivers a pending key immediately. Unknown or already flushed
// keys are a no-op.
func (d *Debouncer) Flush(key string) {
	d.mu.Lock()
	e, ok := d.entries[key]
	if ok {
		e.timer.Stop()
		delete(d.entries, key)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	obsmetrics.Core().IncSyncFlush(string(e.class))
	d.flush(key, e.class, e.payload)
}

// Cancel drops a pending key without delivering it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	if e, ok := d.entries[key]; ok {
		e.timer.Stop()
		delete(d.entries, key)
	}
	d.mu.Unlock()
}

// CancelPrefix drops every pending key with the prefix without delivering.
func (d *Debouncer) CancelPrefix(prefix string) {
	d.mu.Lock()
	for key, e := range d.entries {
		if strings.HasPrefix(key, prefix) {
			e.timer.Stop()
			delete(d.entries, key)
		}
	}
	d.mu.Unlock()
}

// FlushAll delivers every pending key immediately, used on shutdown and
// explicit save.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	pending := make(map[string]*entry, len(d.entries))
	for key, e := range d.entries {
		e.timer.Stop()
		pending[key] = e
	}
	d.entries = make(map[string]*entry)
	d.mu.Unlock()

	for key, e := range pending {
		obsmetrics.Core().IncSyncFlush(string(e.class))
		d.flush(key, e.class, e.payload)
	}
}

// Pending reports how many keys have an armed window.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
