// Package style decides which prosody style a response should be spoken
// with, based on the detected emotion, repetition, and escalation state.
package style

import "github.com/voxpipe/voxpipe/pkg/emotion"

// Style is a named prosody style understood by the markup builder and the
// synthesis providers.
type Style string

const (
	Neutral    Style = "neutral"
	Cheerful   Style = "cheerful"
	Patient    Style = "patient"
	Empathetic Style = "empathetic"
	DeEscalate Style = "de_escalate"
)

// Styles lists every recognized style.
var Styles = []Style{Neutral, Cheerful, Patient, Empathetic, DeEscalate}

// Valid reports whether s is a recognized style.
func (s Style) Valid() bool {
	switch s {
	case Neutral, Cheerful, Patient, Empathetic, DeEscalate:
		return true
	}
	return false
}

// Parse maps a free-form style label (e.g. from an LLM reply) onto a known
// style. Unknown labels resolve to Neutral, never to an error.
func Parse(s string) Style {
	st := Style(s)
	if st.Valid() {
		return st
	}
	return Neutral
}

// Decision is the selected style with its scaling degree.
// Degree 1.0 is the baseline expressiveness.
type Decision struct {
	Style  Style   `json:"style"`
	Degree float64 `json:"degree"`
}

// Input carries everything the selector needs for one turn.
type Input struct {
	// Emotion is the classified signal for the current utterance.
	Emotion emotion.Signal

	// Repetition is true when the user is repeating themselves.
	Repetition bool

	// Escalation counts consecutive turns with negative emotion,
	// including the current one.
	Escalation int
}
