// Package emotion classifies user utterances into discrete emotion labels
// with a bounded intensity score.
//
// The classifier is heuristic: weighted keyword lexicons plus surface cues
// (exclamations, shouting, repetition phrases). It never fails; anything it
// cannot place resolves to a neutral signal.
package emotion

// Label is a discrete emotion category.
type Label string

const (
	Neutral    Label = "neutral"
	Happy      Label = "happy"
	Frustrated Label = "frustrated"
	Confused   Label = "confused"
	Angry      Label = "angry"
	Sad        Label = "sad"
)

// Labels lists every recognized emotion label.
var Labels = []Label{Neutral, Happy, Frustrated, Confused, Angry, Sad}

// Valid reports whether l is a recognized label.
func (l Label) Valid() bool {
	switch l {
	case Neutral, Happy, Frustrated, Confused, Angry, Sad:
		return true
	}
	return false
}

// Negative reports whether l counts toward the escalation streak.
func (l Label) Negative() bool {
	return l == Angry || l == Frustrated
}

// Signal is a classified emotion with its intensity.
// Intensity is always within [0, 1]; out-of-range inputs are clamped.
type Signal struct {
	Label     Label   `json:"label"`
	Intensity float64 `json:"intensity"`
}

// NewSignal builds a Signal, clamping intensity into [0, 1] and mapping
// unknown labels to Neutral.
func NewSignal(label Label, intensity float64) Signal {
	if !label.Valid() {
		label = Neutral
	}
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	return Signal{Label: label, Intensity: intensity}
}

// NeutralSignal is the zero-information signal returned on any classifier
// degradation.
func NeutralSignal() Signal {
	return Signal{Label: Neutral, Intensity: 0}
}
