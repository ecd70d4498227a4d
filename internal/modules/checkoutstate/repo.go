package checkoutstate

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrInvalidSessionID = errors.New("invalid checkout session id")

// Repo persists checkout states keyed by checkout session id.
// Load of an unknown id returns a fresh state. Update must apply fn
// atomically: concurrent Updates of the same id never interleave.
type Repo interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Update(ctx context.Context, sessionID string, fn func(*State)) (State, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryRepo keeps states in process memory. A state untouched for ttl
// loads as fresh and is dropped on a later write.
type MemoryRepo struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry
	swept   time.Time
}

type memoryEntry struct {
	store   *Store
	touched time.Time
}

func NewMemoryRepo(ttl time.Duration) *MemoryRepo {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemoryRepo{ttl: ttl, now: time.Now, entries: make(map[string]*memoryEntry), swept: time.Now()}
}

func (r *MemoryRepo) Load(_ context.Context, sessionID string) (State, error) {
	if sessionID == "" {
		return State{}, ErrInvalidSessionID
	}
	now := r.now()
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if ok && r.expired(e, now) {
		delete(r.entries, sessionID)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return NewState(), nil
	}
	return e.store.Snapshot(), nil
}

func (r *MemoryRepo) Update(_ context.Context, sessionID string, fn func(*State)) (State, error) {
	if sessionID == "" {
		return State{}, ErrInvalidSessionID
	}
	return r.store(sessionID).apply(fn), nil
}

func (r *MemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
	return nil
}

// Len reports how many states are held, expired ones included until the next sweep.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// store returns the live store for sessionID and marks it touched. Expired
// entries are swept at most once per ttl/4.
func (r *MemoryRepo) store(sessionID string) *Store {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.swept) >= r.ttl/4 {
		for id, e := range r.entries {
			if r.expired(e, now) {
				delete(r.entries, id)
			}
		}
		r.swept = now
	}

	e, ok := r.entries[sessionID]
	if !ok || r.expired(e, now) {
		e = &memoryEntry{store: NewStore()}
		r.entries[sessionID] = e
	}
	e.touched = now
	return e.store
}

func (r *MemoryRepo) expired(e *memoryEntry, now time.Time) bool {
	return now.Sub(e.touched) > r.ttl
}
