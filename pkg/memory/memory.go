// Package memory provides session-scoped conversation storage for the
// pipeline: an append-only turn log, user preferences, and repetition
// detection over recent utterances.
//
// Two drivers are included: a Redis-backed store for deployment and an
// in-memory store for tests and single-process use. Callers must serialize
// turns per session id; distinct sessions are safe to use concurrently.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/voxpipe/voxpipe/pkg/emotion"
	"github.com/voxpipe/voxpipe/pkg/style"
)

// Sentinel errors.
var (
	// ErrWrite is returned when a turn cannot be persisted. It is
	// non-fatal for the pipeline: the caller flags it and moves on.
	ErrWrite = errors.New("memory: write failed")
)

// Turn is one user/assistant exchange. Turns are immutable once appended.
type Turn struct {
	UserText      string         `json:"user_text"`
	Emotion       emotion.Signal `json:"emotion"`
	Style         style.Decision `json:"style"`
	AssistantText string         `json:"assistant_text"`
	Repetition    bool           `json:"repetition"`
	LatencyMs     int64          `json:"latency_ms"`
	Timestamp     time.Time      `json:"timestamp"`
}

// sessionRecord is the persisted shape of a session.
type sessionRecord struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Turns       []Turn            `json:"turns"`
	Preferences map[string]string `json:"preferences"`
}

// Store is the adapter contract consumed by the orchestrator.
type Store interface {
	// FetchRecent returns up to n most recent turns in chronological
	// order. An unknown session yields an empty slice, not an error.
	FetchRecent(ctx context.Context, sessionID string, n int) ([]Turn, error)

	// Append adds a turn to the session log, creating the session on
	// first use. The log is append-only.
	Append(ctx context.Context, sessionID string, turn Turn) error

	// DetectRepetition reports whether the utterance closely matches a
	// recent user utterance in this session. It is read-only and
	// idempotent for identical state and input.
	DetectRepetition(ctx context.Context, sessionID, utterance string) (bool, error)

	// Preferences returns the session's user preference map.
	Preferences(ctx context.Context, sessionID string) (map[string]string, error)

	// SetPreference stores a user preference key/value.
	SetPreference(ctx context.Context, sessionID, key, value string) error

	// Close releases any resources held by the store.
	Close() error
}

// Options are shared tuning knobs for store drivers.
type Options struct {
	// SimilarityThreshold is the cosine similarity at or above which two
	// utterances count as repetition.
	SimilarityThreshold float64

	// RepetitionWindow is how many recent user utterances are compared.
	RepetitionWindow int
}

// DefaultOptions returns the default repetition tuning.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: 0.82,
		RepetitionWindow:    5,
	}
}

// normalize fills in zero values.
func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.SimilarityThreshold <= 0 || o.SimilarityThreshold > 1 {
		o.SimilarityThreshold = def.SimilarityThreshold
	}
	if o.RepetitionWindow <= 0 {
		o.RepetitionWindow = def.RepetitionWindow
	}
	return o
}

// isRepetition compares an utterance against the recent user texts of the
// given turns using the configured threshold.
func isRepetition(turns []Turn, utterance string, opts Options) bool {
	recent := make([]string, 0, opts.RepetitionWindow)
	for i := len(turns) - 1; i >= 0 && len(recent) < opts.RepetitionWindow; i-- {
		recent = append(recent, turns[i].UserText)
	}
	for _, prev := range recent {
		if Similarity(prev, utterance) >= opts.SimilarityThreshold {
			return true
		}
	}
	return false
}
