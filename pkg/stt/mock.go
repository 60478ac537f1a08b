package stt

import (
	"context"
	"sync"
)

// Mock implements Transcriber for testing.
// All methods can be customized via function fields.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, returns a fixed transcript.
	TranscribeFunc func(ctx context.Context, in AudioInput) (*Transcript, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls int
}

// NewMock creates a mock that transcribes everything to the given text.
func NewMock(text string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, in AudioInput) (*Transcript, error) {
			return &Transcript{Text: text, Confidence: 0.95, LatencyMs: 5}, nil
		},
	}
}

// MockWithError creates a mock that always fails with err.
func MockWithError(err error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, in AudioInput) (*Transcript, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, in AudioInput) (*Transcript, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, in)
	}
	return &Transcript{}, nil
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

// Calls returns how many times Transcribe was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Verify Mock implements Transcriber at compile time.
var _ Transcriber = (*Mock)(nil)
