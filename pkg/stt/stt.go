// Package stt provides a unified interface for speech-to-text providers.
//
// Two implementations are included: a hosted Whisper-style HTTP API (cloud
// primary) and a whisper.cpp server (local fallback). Both satisfy the
// Transcriber interface so the fallback gateway can swap them freely.
package stt

import "context"

// AudioInput is raw audio plus the metadata a provider needs to decode it.
type AudioInput struct {
	// Data is the encoded audio.
	Data []byte

	// MIMEType describes the encoding (e.g. "audio/wav", "audio/webm").
	MIMEType string

	// FileName is the upload name some APIs require; a sensible default
	// is derived from the MIME type when empty.
	FileName string

	// Language is an optional BCP 47 hint (e.g. "en").
	Language string
}

// Transcript is the result of one transcription call.
type Transcript struct {
	// Text is the recognized utterance.
	Text string

	// Confidence is the provider's confidence in [0, 1]; zero when the
	// provider does not report one.
	Confidence float64

	// LatencyMs is the call round-trip in milliseconds.
	LatencyMs int64
}

// Transcriber converts audio to text.
type Transcriber interface {
	// Transcribe recognizes speech in the given audio.
	Transcribe(ctx context.Context, in AudioInput) (*Transcript, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}
