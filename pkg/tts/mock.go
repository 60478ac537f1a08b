package tts

import (
	"context"
	"sync"
)

// Mock implements Synthesizer for testing.
// All methods can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns a small fixed audio buffer.
	SynthesizeFunc func(ctx context.Context, speech Speech) (*AudioResult, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls int
	last  Speech
}

// NewMock creates a mock that returns the given audio bytes for any input.
func NewMock(audio []byte) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, speech Speech) (*AudioResult, error) {
			return &AudioResult{
				Audio:     audio,
				Format:    formatFor(EncodingRiff24),
				CharCount: len(speech.Text),
				LatencyMs: 5,
			}, nil
		},
	}
}

// MockWithError creates a mock that always fails with err.
func MockWithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, speech Speech) (*AudioResult, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, speech Speech) (*AudioResult, error) {
	m.mu.Lock()
	m.calls++
	m.last = speech
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, speech)
	}
	return &AudioResult{}, nil
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

// Calls returns how many times Synthesize was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastSpeech returns the most recent request passed to Synthesize.
func (m *Mock) LastSpeech() Speech {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Verify Mock implements Synthesizer at compile time.
var _ Synthesizer = (*Mock)(nil)
