package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cogtrail/backend/internal/service/thinking"
)

// ErrSessionNotFound is returned when a call references a session the
// registry does not know about. No state is created or mutated on this
// path; the caller must start a new session.
var ErrSessionNotFound = errors.New("session not found")

// Session is the public view of a registered session.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type entry struct {
	ledger       *thinking.Ledger
	createdAt    time.Time
	lastActivity time.Time
}

// Registry maps opaque session ids to their ledgers and tracks per-session
// activity. It is the only shared mutable structure in the server: call
// handling, explicit termination and the reaper all mutate it, so every
// mutation goes through the one mutex.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewRegistry bootstraps an empty in-memory registry.
func NewRegistry() *Registry {
	return NewRegistryWithClock(time.Now)
}

// NewRegistryWithClock injects the clock, mainly for eviction tests.
func NewRegistryWithClock(now func() time.Time) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     now,
	}
}

// Create provisions a fresh session with an empty ledger and a random
// opaque id. The id space is uuid-backed and effectively collision-free.
func (r *Registry) Create(_ context.Context) Session {
	now := r.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}

	r.mu.Lock()
	r.entries[sess.ID] = &entry{
		ledger:       thinking.NewLedger(),
		createdAt:    now,
		lastActivity: now,
	}
	r.mu.Unlock()

	return sess
}

// Resolve returns the ledger owned by the given session and refreshes its
// activity timestamp. Unknown ids fail with ErrSessionNotFound.
func (r *Registry) Resolve(_ context.Context, sessionID string) (*thinking.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastActivity = r.now().UTC()
	return e.ledger, nil
}

// Touch refreshes the activity timestamp without handing out the ledger.
// It reports whether the session exists; stream reads use this.
func (r *Registry) Touch(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		return false
	}
	e.lastActivity = r.now().UTC()
	return true
}

// Terminate removes a session and releases its ledger. Terminating an
// already-gone session is a no-op: destruction is terminal and ids are
// never resurrected, so there is nothing to report.
func (r *Registry) Terminate(_ context.Context, sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// EvictIdle removes every session whose idle time exceeds ttl and returns
// the evicted ids so the transport layer can tear down its side.
func (r *Registry) EvictIdle(ttl time.Duration) []string {
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, e := range r.entries {
		if now.Sub(e.lastActivity) > ttl {
			delete(r.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
