// Package lockout tracks authentication failures per client address and
// temporarily locks out clients that fail too often. State is process local
// and lost on restart; this is advisory throttling, not a security boundary.
package lockout

import (
	"sync"
	"time"
)

// Tracker counts recent authentication failures by client address.
type Tracker struct {
	mu          sync.Mutex
	clients     map[string]*record
	maxFailures int
	window      time.Duration
	lockPeriod  time.Duration
	now         func() time.Time
}

type record struct {
	failures    []time.Time
	lockedUntil time.Time
}

// New creates a Tracker locking out a client for lockPeriod once it reaches
// maxFailures failures inside the trailing window.
func New(maxFailures int, window, lockPeriod time.Duration) *Tracker {
	return &Tracker{
		clients:     make(map[string]*record),
		maxFailures: maxFailures,
		window:      window,
		lockPeriod:  lockPeriod,
		now:         time.Now,
	}
}

// Locked reports whether the client is currently locked out, and if so for
// how much longer.
func (t *Tracker) Locked(addr string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.clients[addr]
	if !ok {
		return false, 0
	}
	now := t.now()
	if rec.lockedUntil.After(now) {
		return true, rec.lockedUntil.Sub(now)
	}
	return false, 0
}

// Failure records a failed authentication attempt. Reaching the failure
// threshold inside the window starts a lockout.
func (t *Tracker) Failure(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	rec, ok := t.clients[addr]
	if !ok {
		rec = &record{}
		t.clients[addr] = rec
	}
	// Drop failures that have aged out of the window.
	cutoff := now.Add(-t.window)
	kept := rec.failures[:0]
	for _, f := range rec.failures {
		if f.After(cutoff) {
			kept = append(kept, f)
		}
	}
	rec.failures = append(kept, now)
	if len(rec.failures) >= t.maxFailures {
		rec.lockedUntil = now.Add(t.lockPeriod)
	}
}

// Success clears the client's record entirely.
func (t *Tracker) Success(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.clients, addr)
}
