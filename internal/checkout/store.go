package checkout

import (
	"context"
	"sync"

	errx "github.com/ucp-agent-poc/server/internal/core/error"
)

// Store is the injected session store abstraction. Implementations must
// serialize Update calls per session id; a single global lock would let
// unrelated sessions contend.
type Store interface {
	// Get returns a copy of the session or a NotFound error.
	Get(ctx context.Context, id string) (*Session, error)

	// Put stores the session, replacing any prior state under the same id.
	Put(ctx context.Context, session *Session) error

	// Update applies fn to the session under a per-id lock and stores the
	// result. fn receives a private copy; returning an error discards it.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
}

// MemoryStore keeps sessions in process memory. No durability guarantee:
// sessions are gone on restart, which is an explicit non-goal.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, errSessionNotFound(id)
	}
	return session.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, session *Session) error {
	m.mu.Lock()
	m.sessions[session.ID] = session.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	lock := m.keyLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	stored, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errSessionNotFound(id)
	}

	session := stored.Clone()
	if err := fn(session); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	return session.Clone(), nil
}

// keyLock returns the mutex serializing writes for one session id.
func (m *MemoryStore) keyLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

func errSessionNotFound(id string) *errx.Error {
	return errx.NotFound("checkout session %s not found", id)
}

var _ Store = (*MemoryStore)(nil)
