// Package llm provides a unified interface for completion providers.
//
// The cloud provider speaks the OpenAI-compatible chat API (Groq, OpenAI,
// vLLM, Together); the local provider speaks Ollama's native chat API.
// Both prompt the model for an emotionally-aware JSON reply envelope
// {reply, style, emphasis_words} and degrade gracefully when the model
// answers in plain text.
package llm

import "context"

// Role defines message roles in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a chat message in the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call: ordered history plus hints that shape
// the reply.
type Request struct {
	// Messages is the conversation history, oldest first. The current
	// user utterance is the final message.
	Messages []Message

	// StyleHint names the prosody style the pipeline already selected,
	// so the model can match its wording to the delivery.
	StyleHint string

	// RepetitionHint is set when the user is repeating themselves; the
	// model is asked for extra patience and no further questions.
	RepetitionHint bool
}

// Reply is a parsed completion.
type Reply struct {
	// Text is the assistant's reply, ready to speak.
	Text string

	// Style is the model's own style suggestion, normalized lowercase.
	// Empty when the model did not produce the JSON envelope.
	Style string

	// EmphasisWords are up to a few reply words the model wants
	// stressed during synthesis.
	EmphasisWords []string

	// Raw is the unparsed model output, kept for debugging.
	Raw string

	// LatencyMs is the call round-trip in milliseconds.
	LatencyMs int64
}

// Completer generates a reply from conversation context.
type Completer interface {
	// Complete generates the next assistant reply.
	Complete(ctx context.Context, req Request) (*Reply, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}
