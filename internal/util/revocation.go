package util

import (
	"sync"
	"time"
)

// Revocations remembers token ids that were logged out. An id is only kept
// until the token it belongs to would have expired anyway.
type Revocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
	now func() time.Time
}

// NewRevocations creates an empty list
func NewRevocations() *Revocations {
	return &Revocations{
		ids: make(map[string]time.Time),
		now: time.Now,
	}
}

// Revoke marks id as unusable until until
func (r *Revocations) Revoke(id string, until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()
	r.ids[id] = until
}

// IsRevoked reports whether id was revoked and has not yet expired
func (r *Revocations) IsRevoked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.ids[id]
	return ok && r.now().Before(until)
}

// Len returns the number of ids held
func (r *Revocations) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *Revocations) prune() {
	now := r.now()
	for id, until := range r.ids {
		if !now.Before(until) {
			delete(r.ids, id)
		}
	}
}
