package service

import (
	"sync"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// Deduper suppresses duplicate deliveries of the same device event id.
// A device that retries a request gets the original decision back with
// no second counter mutation and no second audit entry. Reservation and
// lookup are a single atomic step: the first delivery installs an
// in-flight marker before orchestration starts, so a concurrent
// duplicate waits for the original decision instead of racing past the
// check.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]*dedupEntry
}

type dedupEntry struct {
	decision types.Decision
	at       time.Time
	done     chan struct{} // non-nil while the event is still deciding
}

func NewDeduper(window time.Duration) *Deduper {
	if window <= 0 {
		window = 2 * time.Minute
	}
	return &Deduper{
		window: window,
		seen:   make(map[string]*dedupEntry),
	}
}

// Begin claims an event id for processing. When a prior decision exists
// inside the window it is returned with replay=true; when the same id
// is mid-decision on another goroutine, Begin blocks until that
// decision lands and replays it. Otherwise the id is reserved and the
// caller must call Complete with the decision.
func (d *Deduper) Begin(eventID string, now time.Time) (types.Decision, bool) {
	d.mu.Lock()
	d.sweep(now)
	for {
		e, ok := d.seen[eventID]
		if !ok {
			d.seen[eventID] = &dedupEntry{at: now, done: make(chan struct{})}
			d.mu.Unlock()
			return types.Decision{}, false
		}
		if e.done == nil {
			dec := e.decision
			d.mu.Unlock()
			return dec, true
		}
		ch := e.done
		d.mu.Unlock()
		<-ch
		d.mu.Lock()
	}
}

// Complete records the decision for a reserved event id and wakes any
// duplicate deliveries waiting on it.
func (d *Deduper) Complete(eventID string, decision types.Decision, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.seen[eventID]
	if !ok {
		e = &dedupEntry{}
		d.seen[eventID] = e
	}
	e.decision = decision
	e.at = now
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}

// sweep drops expired entries. In-flight reservations are never swept.
// Caller holds d.mu.
func (d *Deduper) sweep(now time.Time) {
	cutoff := now.Add(-d.window)
	for id, e := range d.seen {
		if e.done == nil && e.at.Before(cutoff) {
			delete(d.seen, id)
		}
	}
}
