package holdtimer

import "sync"

// Registry tracks the live timer for each held purchase so the completion
// callback can find it by the purchase ids embedded in the return URL, and
// so the session store's clear cascade can tear every timer down.
type Registry struct {
	mu     sync.Mutex
	timers map[int64]*Timer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{timers: make(map[int64]*Timer)}
}

// Register tracks the timer under every purchase id in its hold. A brand-new
// hold for the same purchase supersedes the previous entry: the displaced
// timer is torn down client-side so it can never tick on and cancel a
// purchase the live hold still covers.
func (r *Registry) Register(t *Timer) {
	r.mu.Lock()
	displaced := make(map[*Timer]struct{})
	for _, id := range t.PurchaseIDs() {
		if prev, ok := r.timers[id]; ok && prev != t {
			displaced[prev] = struct{}{}
		}
		r.timers[id] = t
	}
	r.mu.Unlock()

	for prev := range displaced {
		prev.Cancel()
	}
}

// Find returns the timer tracking the given purchase, if any.
func (r *Registry) Find(purchaseID int64) (*Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[purchaseID]
	return t, ok
}

// Drop stops tracking the timer for every purchase id in its hold.
func (r *Registry) Drop(t *Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range t.PurchaseIDs() {
		if r.timers[id] == t {
			delete(r.timers, id)
		}
	}
}

// CancelAll tears down every tracked timer client-side. The session store's
// clear cascade runs it: a hold is meaningless without a subject.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	timers := make(map[*Timer]struct{})
	for _, t := range r.timers {
		timers[t] = struct{}{}
	}
	r.timers = make(map[int64]*Timer)
	r.mu.Unlock()

	for t := range timers {
		t.Cancel()
	}
}
