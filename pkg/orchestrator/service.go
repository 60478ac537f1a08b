package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// sessionLock serializes turns for one session. refs counts waiters plus the
// holder so the entry can be evicted once nobody needs it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Service fronts the Orchestrator for the request layer. It owns the
// per-session serialization the Orchestrator requires: turns for distinct
// sessions run in parallel, turns within one session queue on its lock.
// Lock entries exist only while a turn is in flight or queued.
type Service struct {
	orch *Orchestrator

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// NewService wraps an Orchestrator.
func NewService(orch *Orchestrator) *Service {
	return &Service{
		orch:  orch,
		locks: make(map[string]*sessionLock),
	}
}

// CreateSession mints a fresh session id. The session itself is created
// lazily by the memory store on the first turn.
func (s *Service) CreateSession() string {
	return uuid.NewString()
}

// ProcessTurn runs one turn, holding the session's lock for the duration so
// concurrent requests for the same session are serialized.
func (s *Service) ProcessTurn(ctx context.Context, sessionID string, in Input) (*Result, error) {
	lock := s.acquire(sessionID)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		s.release(sessionID, lock)
	}()

	return s.orch.Process(ctx, sessionID, in)
}

// Shutdown releases the underlying orchestrator resources.
func (s *Service) Shutdown() error {
	return s.orch.Shutdown()
}

func (s *Service) acquire(sessionID string) *sessionLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		s.locks[sessionID] = lock
	}
	lock.refs++
	return lock
}

func (s *Service) release(sessionID string, lock *sessionLock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, sessionID)
	}
}
