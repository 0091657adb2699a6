package scheduling

import (
	"context"
	"errors"
	"sync"
	"time"
)

// StateStore persists session state. Load returns a fresh state when the
// session has never been seen.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, state *State) error
}

// StateDeleter is implemented by stores that can drop a session entirely.
type StateDeleter interface {
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps state in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
	now    func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
		now:    time.Now,
	}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[sessionID]; ok {
		return st.clone(), nil
	}
	return NewState(sessionID), nil
}

func (s *MemoryStore) Save(ctx context.Context, state *State) error {
	if state == nil {
		return errors.New("scheduling: nil state")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.states[state.SessionID]; ok && current.Version != state.Version {
		return ErrConcurrentUpdate
	}
	state.Version++
	state.UpdatedAt = s.now().UTC()
	s.states[state.SessionID] = state.clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[sessionID]; !ok {
		return ErrStateNotFound
	}
	delete(s.states, sessionID)
	return nil
}
