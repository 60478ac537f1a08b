// Package tts provides a unified interface for text-to-speech providers.
//
// The package supports a cloud backend (Azure Cognitive Services, which
// consumes SSML markup for expressive delivery) and a local backend (Piper,
// which consumes plain text). Both implement the Synthesizer interface so
// callers can swap providers without changing code.
package tts

import (
	"context"
	"time"
)

// Synthesizer defines the text-to-speech provider interface.
type Synthesizer interface {
	// Synthesize converts a speech request to audio, returning the complete
	// audio buffer.
	Synthesize(ctx context.Context, speech Speech) (*AudioResult, error)

	// Health checks provider connectivity and credential validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Speech is a synthesis request. SSML carries the full expressive markup
// for providers that support it; Text and Rate are the plain-text
// degradation for providers that do not.
type Speech struct {
	// SSML is the complete markup document, including prosody and emphasis.
	SSML string

	// Text is the reply with all markup stripped.
	Text string

	// Rate is a speaking-rate multiplier (1.0 = normal) applied by
	// providers that cannot interpret SSML prosody.
	Rate float64
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the total synthesis time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio container/codec.
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 22050).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (e.g., 16 for PCM16).
	BitDepth int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// EncodingRiff24 is 24kHz mono 16-bit WAV, the Azure default.
	EncodingRiff24 Encoding = "riff-24khz-16bit-mono-pcm"

	// EncodingRiff16 is 16kHz mono 16-bit WAV.
	EncodingRiff16 Encoding = "riff-16khz-16bit-mono-pcm"

	// EncodingWAV22 is 22.05kHz mono WAV, Piper's native output.
	EncodingWAV22 Encoding = "wav_22050"

	// EncodingMP3 is 24kHz 96kbps MP3.
	EncodingMP3 Encoding = "audio-24khz-96kbitrate-mono-mp3"
)

// formatFor maps an encoding to its full audio format description.
func formatFor(enc Encoding) AudioFormat {
	switch enc {
	case EncodingRiff16:
		return AudioFormat{Encoding: enc, SampleRate: 16000, Channels: 1, BitDepth: 16}
	case EncodingWAV22:
		return AudioFormat{Encoding: enc, SampleRate: 22050, Channels: 1, BitDepth: 16}
	case EncodingMP3:
		return AudioFormat{Encoding: enc, SampleRate: 24000, Channels: 1}
	default:
		return AudioFormat{Encoding: EncodingRiff24, SampleRate: 24000, Channels: 1, BitDepth: 16}
	}
}

// estimateDuration approximates playback time for raw PCM audio.
func estimateDuration(f AudioFormat, size int) time.Duration {
	if f.SampleRate == 0 || f.BitDepth == 0 || f.Channels == 0 {
		return 0
	}
	bytesPerSecond := f.SampleRate * f.Channels * f.BitDepth / 8
	return time.Duration(size) * time.Second / time.Duration(bytesPerSecond)
}
