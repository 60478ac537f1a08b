package llm

import (
	"context"
	"sync"
)

// Mock implements Completer for testing.
// All methods can be customized via function fields.
type Mock struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty reply.
	CompleteFunc func(ctx context.Context, req Request) (*Reply, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls int
	last  Request
}

// NewMock creates a mock that always answers with the given reply.
func NewMock(reply *Reply) *Mock {
	return &Mock{
		CompleteFunc: func(ctx context.Context, req Request) (*Reply, error) {
			return reply, nil
		},
	}
}

// MockWithError creates a mock that always fails with err.
func MockWithError(err error) *Mock {
	return &Mock{
		CompleteFunc: func(ctx context.Context, req Request) (*Reply, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Complete calls CompleteFunc and records the call.
func (m *Mock) Complete(ctx context.Context, req Request) (*Reply, error) {
	m.mu.Lock()
	m.calls++
	m.last = req
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &Reply{}, nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Calls returns how many times Complete was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request passed to Complete.
func (m *Mock) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Verify Mock implements Completer at compile time.
var _ Completer = (*Mock)(nil)
