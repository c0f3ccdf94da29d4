package engine

import "sync"

// Store is the explicit session map owned by the orchestrating layer.
// Sessions are kept in memory only; history is persisted separately once a
// diagnosis completes.  The mutex guards the map, not the sessions — a
// single session is still driven by one conversation at a time.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a fresh session under the given id.
func (st *Store) Create(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := NewSession(id)
	st.sessions[id] = s
	return s
}

// Get looks a session up by id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session entirely.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
