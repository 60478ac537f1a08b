package memory

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store using a map guarded by a mutex.
// Suitable for tests and single-process deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
	opts     Options
}

// NewInMemoryStore creates an in-memory session store.
func NewInMemoryStore(opts Options) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*sessionRecord),
		opts:     opts.normalize(),
	}
}

// FetchRecent implements Store.
func (s *InMemoryStore) FetchRecent(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok || n <= 0 {
		return nil, nil
	}

	start := len(rec.Turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(rec.Turns)-start)
	copy(out, rec.Turns[start:])
	return out, nil
}

// Append implements Store. The session is created on first append.
func (s *InMemoryStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		now := time.Now()
		rec = &sessionRecord{
			ID:          sessionID,
			CreatedAt:   now,
			Preferences: make(map[string]string),
		}
		s.sessions[sessionID] = rec
	}
	rec.Turns = append(rec.Turns, turn)
	rec.UpdatedAt = time.Now()
	return nil
}

// DetectRepetition implements Store.
func (s *InMemoryStore) DetectRepetition(ctx context.Context, sessionID, utterance string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	return isRepetition(rec.Turns, utterance, s.opts), nil
}

// Preferences implements Store.
func (s *InMemoryStore) Preferences(ctx context.Context, sessionID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(rec.Preferences))
	for k, v := range rec.Preferences {
		out[k] = v
	}
	return out, nil
}

// SetPreference implements Store.
func (s *InMemoryStore) SetPreference(ctx context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		now := time.Now()
		rec = &sessionRecord{
			ID:          sessionID,
			CreatedAt:   now,
			Preferences: make(map[string]string),
		}
		s.sessions[sessionID] = rec
	}
	rec.Preferences[key] = value
	rec.UpdatedAt = time.Now()
	return nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	return nil
}

// Verify InMemoryStore implements Store at compile time.
var _ Store = (*InMemoryStore)(nil)
