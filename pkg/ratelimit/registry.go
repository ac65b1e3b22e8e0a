// Package ratelimit provides a per-key fixed-window rate limiter registry
// shared between request handlers and a periodic cleanup task.
package ratelimit

import (
	"runtime"
	"sync"
	"time"
)

// Decision reports the outcome of a permit acquisition.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count int
	reset time.Time
}

// Registry tracks fixed-window counters keyed by "<scope>-<ip>". All state
// lives behind one mutex so lookup-or-create, permit acquisition, and sweep
// eviction are mutually atomic: the sweeper can never remove an entry while
// an acquisition against it is in flight.
type Registry struct {
	mu             sync.Mutex
	entries        map[string]*window
	limit          int
	window         time.Duration
	acquireTimeout time.Duration
}

func NewRegistry(limit int, windowDur, acquireTimeout time.Duration) *Registry {
	if limit <= 0 {
		limit = 1
	}
	if windowDur <= 0 {
		windowDur = time.Minute
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 100 * time.Millisecond
	}
	return &Registry{
		entries:        make(map[string]*window),
		limit:          limit,
		window:         windowDur,
		acquireTimeout: acquireTimeout,
	}
}

// Acquire consumes one permit for key. The second return value is false when
// the counter could not be reached within the acquisition timeout; callers
// treat that as an internal failure, not a denial.
func (r *Registry) Acquire(key string) (Decision, bool) {
	deadline := time.Now().Add(r.acquireTimeout)
	for !r.mu.TryLock() {
		if time.Now().After(deadline) {
			return Decision{}, false
		}
		runtime.Gosched()
	}
	defer r.mu.Unlock()

	now := time.Now()
	w, ok := r.entries[key]
	if !ok || now.After(w.reset) {
		w = &window{reset: now.Add(r.window)}
		r.entries[key] = w
	}

	d := Decision{Limit: r.limit, ResetAt: w.reset}
	if w.count >= r.limit {
		return d, true
	}
	w.count++
	d.Allowed = true
	d.Remaining = r.limit - w.count
	return d, true
}

// Sweep evicts entries whose next permit would be immediately grantable: an
// expired window, or a window with budget left. An evicted key is recreated
// with full capacity on its next request, so eviction is an approximation of
// idleness rather than a correctness requirement. Returns the eviction count.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	evicted := 0
	for key, w := range r.entries {
		if now.After(w.reset) || w.count < r.limit {
			delete(r.entries, key)
			evicted++
		}
	}
	return evicted
}

type Stats struct {
	Keys int `json:"keys"`
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Keys: len(r.entries)}
}
