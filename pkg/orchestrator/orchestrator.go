// Package orchestrator runs the conversational turn pipeline: transcribe,
// analyze emotion, consult memory, select a prosody style, generate the
// reply, build speech markup, synthesize audio, and persist the exchange.
//
// Each Process call is one sequential pipeline. Provider calls go through
// capability gateways so primary/fallback switching and health tracking stay
// out of the pipeline logic. Analysis and memory stages degrade on failure;
// provider stages abort the turn when both providers fail.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxpipe/voxpipe/pkg/emotion"
	"github.com/voxpipe/voxpipe/pkg/fallback"
	"github.com/voxpipe/voxpipe/pkg/llm"
	"github.com/voxpipe/voxpipe/pkg/memory"
	"github.com/voxpipe/voxpipe/pkg/ssml"
	"github.com/voxpipe/voxpipe/pkg/stt"
	"github.com/voxpipe/voxpipe/pkg/style"
	"github.com/voxpipe/voxpipe/pkg/tts"
)

// Input is one user turn: either Text or Audio must be set. When both are
// set, Audio wins and Text is ignored.
type Input struct {
	Text  string
	Audio *stt.AudioInput
}

// Result is the outcome of a completed turn.
type Result struct {
	// SessionID identifies the conversation this turn belongs to.
	SessionID string `json:"session_id"`

	// UserText is the user utterance, transcribed if the input was audio.
	UserText string `json:"user_text"`

	// AssistantText is the spoken reply text.
	AssistantText string `json:"assistant_text"`

	// Emotion is the classified signal for the user utterance.
	Emotion emotion.Signal `json:"emotion"`

	// Style is the prosody decision applied to the reply.
	Style style.Decision `json:"style"`

	// Repetition reports whether the user was repeating themselves.
	Repetition bool `json:"repetition"`

	// SSML is the markup document sent to synthesis.
	SSML string `json:"-"`

	// Audio is the synthesized reply.
	Audio *tts.AudioResult `json:"-"`

	// Providers records which provider served each capability.
	Providers map[fallback.Capability]fallback.Role `json:"providers"`

	// LatencyMs is the full pipeline duration in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// MemoryWriteFailed is set when the turn completed but could not be
	// persisted. The reply is still valid.
	MemoryWriteFailed bool `json:"memory_write_failed,omitempty"`
}

// AbortError is returned when a turn cannot produce a reply. It names the
// pipeline state that failed and, for provider stages, the capability.
type AbortError struct {
	State      State
	Capability fallback.Capability
	Err        error
}

func (e *AbortError) Error() string {
	if e.Capability != "" {
		return fmt.Sprintf("turn aborted in %s (capability %s): %v", e.State, e.Capability, e.Err)
	}
	return fmt.Sprintf("turn aborted in %s: %v", e.State, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Orchestrator wires the pipeline components together. It holds no
// per-session state; callers must serialize turns within a session.
type Orchestrator struct {
	classifier *emotion.Classifier
	selector   *style.Selector
	builder    *ssml.Builder
	store      memory.Store

	transcribe *fallback.Gateway[stt.AudioInput, *stt.Transcript]
	complete   *fallback.Gateway[llm.Request, *llm.Reply]
	synthesize *fallback.Gateway[tts.Speech, *tts.AudioResult]

	contextWindow int
	onState       func(sessionID string, state State)
	logger        *slog.Logger
}

// Config assembles an Orchestrator.
type Config struct {
	Classifier *emotion.Classifier
	Selector   *style.Selector
	Builder    *ssml.Builder
	Store      memory.Store

	Transcribe *fallback.Gateway[stt.AudioInput, *stt.Transcript]
	Complete   *fallback.Gateway[llm.Request, *llm.Reply]
	Synthesize *fallback.Gateway[tts.Speech, *tts.AudioResult]

	// ContextWindow is how many recent turns feed the completion prompt.
	ContextWindow int

	// OnStateChange, when set, is called as the pipeline enters each state.
	// It runs on the Process goroutine and must not block.
	OnStateChange func(sessionID string, state State)

	Logger *slog.Logger
}

// New creates an Orchestrator from the assembled components.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if cfg.Complete == nil || cfg.Synthesize == nil {
		return nil, fmt.Errorf("completion and synthesis gateways are required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = emotion.NewClassifier(cfg.Logger)
	}
	if cfg.Selector == nil {
		cfg.Selector = style.NewSelector(style.DefaultSelectorConfig())
	}
	if cfg.Builder == nil {
		cfg.Builder = ssml.NewBuilder()
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Orchestrator{
		classifier:    cfg.Classifier,
		selector:      cfg.Selector,
		builder:       cfg.Builder,
		store:         cfg.Store,
		transcribe:    cfg.Transcribe,
		complete:      cfg.Complete,
		synthesize:    cfg.Synthesize,
		contextWindow: cfg.ContextWindow,
		onState:       cfg.OnStateChange,
		logger:        cfg.Logger.With("component", "orchestrator"),
	}, nil
}

// Process runs one full turn for the session and returns the reply, or an
// AbortError when no reply could be produced. A cancelled context stops the
// pipeline before the next stage and nothing is persisted.
func (o *Orchestrator) Process(ctx context.Context, sessionID string, in Input) (*Result, error) {
	start := time.Now()
	state := Idle
	logger := o.logger.With("session_id", sessionID)

	result := &Result{
		SessionID: sessionID,
		Providers: make(map[fallback.Capability]fallback.Role),
	}

	// Transcribing: audio input becomes text; text input skips the stage.
	userText := in.Text
	if in.Audio != nil {
		state = o.enter(sessionID, Transcribing)
		if err := ctx.Err(); err != nil {
			return nil, &AbortError{State: state, Err: err}
		}
		if o.transcribe == nil {
			return nil, &AbortError{State: state, Capability: fallback.Transcription,
				Err: fmt.Errorf("no transcription gateway configured")}
		}
		outcome, err := o.transcribe.Call(ctx, *in.Audio)
		if err != nil {
			return nil, &AbortError{State: state, Capability: fallback.Transcription, Err: err}
		}
		result.Providers[fallback.Transcription] = outcome.Role
		userText = outcome.Resp.Text
	}
	if userText == "" {
		return nil, &AbortError{State: state, Err: fmt.Errorf("empty user input")}
	}
	result.UserText = userText

	// Analyzing: classify the utterance, with recent history as context
	// when the store can provide it. Degrades to no history, and the
	// classifier itself degrades to neutral.
	state = o.enter(sessionID, Analyzing)
	if err := ctx.Err(); err != nil {
		return nil, &AbortError{State: state, Err: err}
	}
	turns, err := o.store.FetchRecent(ctx, sessionID, o.contextWindow)
	if err != nil {
		logger.Warn("history fetch failed, classifying without context", "error", err)
		turns = nil
	}
	history := make([]string, 0, len(turns))
	for _, t := range turns {
		history = append(history, t.UserText)
	}
	signal := o.classifier.Classify(userText, history)
	result.Emotion = signal

	// FetchingMemory: repetition flag and preferences. Both degrade.
	state = o.enter(sessionID, FetchingMemory)
	if err := ctx.Err(); err != nil {
		return nil, &AbortError{State: state, Err: err}
	}
	repetition, err := o.store.DetectRepetition(ctx, sessionID, userText)
	if err != nil {
		logger.Warn("repetition detection failed", "error", err)
		repetition = false
	}
	result.Repetition = repetition

	// SelectingStyle: deterministic mapping, never fails.
	state = o.enter(sessionID, SelectingStyle)
	decision := o.selector.Select(style.Input{
		Emotion:    signal,
		Repetition: repetition,
		Escalation: escalationStreak(turns, signal),
	})
	result.Style = decision

	// Generating: the completion providers produce the reply text.
	state = o.enter(sessionID, Generating)
	if err := ctx.Err(); err != nil {
		return nil, &AbortError{State: state, Err: err}
	}
	outcome, err := o.complete.Call(ctx, llm.Request{
		Messages:       buildHistory(turns, userText),
		StyleHint:      string(decision.Style),
		RepetitionHint: repetition,
	})
	if err != nil {
		return nil, &AbortError{State: state, Capability: fallback.Completion, Err: err}
	}
	result.Providers[fallback.Completion] = outcome.Role
	reply := outcome.Resp
	result.AssistantText = reply.Text

	// BuildingMarkup: a malformed document cannot be synthesized, so a
	// build failure is fatal for the synthesis capability.
	state = o.enter(sessionID, BuildingMarkup)
	if err := ctx.Err(); err != nil {
		return nil, &AbortError{State: state, Err: err}
	}
	doc, err := o.builder.Build(reply.Text, decision, reply.EmphasisWords)
	if err != nil {
		return nil, &AbortError{State: state, Capability: fallback.Synthesis, Err: err}
	}
	result.SSML = doc

	// Synthesizing.
	state = o.enter(sessionID, Synthesizing)
	if err := ctx.Err(); err != nil {
		return nil, &AbortError{State: state, Err: err}
	}
	speechOutcome, err := o.synthesize.Call(ctx, tts.Speech{
		SSML: doc,
		Text: reply.Text,
		Rate: ssml.ProfileFor(decision.Style).RateMultiplier,
	})
	if err != nil {
		return nil, &AbortError{State: state, Capability: fallback.Synthesis, Err: err}
	}
	result.Providers[fallback.Synthesis] = speechOutcome.Role
	result.Audio = speechOutcome.Resp

	result.LatencyMs = time.Since(start).Milliseconds()

	// Persisting: a cancelled turn is never persisted; a write failure is
	// flagged but the reply already produced stays valid.
	state = o.enter(sessionID, Persisting)
	if err := ctx.Err(); err != nil {
		return nil, &AbortError{State: state, Err: err}
	}
	turn := memory.Turn{
		UserText:      userText,
		Emotion:       signal,
		Style:         decision,
		AssistantText: reply.Text,
		Repetition:    repetition,
		LatencyMs:     result.LatencyMs,
		Timestamp:     time.Now().UTC(),
	}
	if err := o.store.Append(ctx, sessionID, turn); err != nil {
		logger.Warn("turn persistence failed", "error", err)
		result.MemoryWriteFailed = true
	}

	state = o.enter(sessionID, Done)
	logger.Info("turn complete",
		"state", state,
		"emotion", signal.Label,
		"style", decision.Style,
		"repetition", repetition,
		"latency_ms", result.LatencyMs,
	)
	return result, nil
}

// enter advances the pipeline to the given state, notifying the observer
// when one is configured.
func (o *Orchestrator) enter(sessionID string, s State) State {
	if o.onState != nil {
		o.onState(sessionID, s)
	}
	return s
}

// Shutdown releases the memory store. Provider connections are owned by the
// providers themselves and closed by the caller that built them.
func (o *Orchestrator) Shutdown() error {
	return o.store.Close()
}

// escalationStreak counts consecutive negative-emotion turns ending at the
// current signal. A non-negative current signal always yields zero.
func escalationStreak(turns []memory.Turn, current emotion.Signal) int {
	if !current.Label.Negative() {
		return 0
	}
	streak := 1
	for i := len(turns) - 1; i >= 0; i-- {
		if !turns[i].Emotion.Label.Negative() {
			break
		}
		streak++
	}
	return streak
}

// buildHistory converts stored turns into the ordered message history, with
// the current utterance as the final user message.
func buildHistory(turns []memory.Turn, userText string) []llm.Message {
	messages := make([]llm.Message, 0, len(turns)*2+1)
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: t.UserText})
		if t.AssistantText != "" {
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: t.AssistantText})
		}
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: userText})
}
