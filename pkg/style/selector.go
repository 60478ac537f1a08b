package style

import "github.com/voxpipe/voxpipe/pkg/emotion"

// SelectorConfig holds the tunable thresholds of the style policy.
type SelectorConfig struct {
	// EscalationThreshold is the consecutive-negative-turn count at which
	// de-escalation kicks in.
	EscalationThreshold int

	// IntensityFloor is the minimum intensity for empathetic/cheerful
	// styles to trigger.
	IntensityFloor float64

	// MaxDegree caps the style degree of any decision.
	MaxDegree float64
}

// DefaultSelectorConfig returns the default policy thresholds.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		EscalationThreshold: 2,
		IntensityFloor:      0.4,
		MaxDegree:           2.0,
	}
}

// Selector applies the style policy. The mapping is deterministic and the
// rules are evaluated in priority order; the first match wins.
type Selector struct {
	cfg SelectorConfig
}

// NewSelector creates a selector. Zero or invalid thresholds fall back to
// the defaults.
func NewSelector(cfg SelectorConfig) *Selector {
	def := DefaultSelectorConfig()
	if cfg.EscalationThreshold < 1 {
		cfg.EscalationThreshold = def.EscalationThreshold
	}
	if cfg.IntensityFloor <= 0 || cfg.IntensityFloor > 1 {
		cfg.IntensityFloor = def.IntensityFloor
	}
	if cfg.MaxDegree < 1 {
		cfg.MaxDegree = def.MaxDegree
	}
	return &Selector{cfg: cfg}
}

// Select maps an input to a style decision. Rules, first match wins:
//
//  1. escalation at or above threshold with an angry/frustrated emotion
//     de-escalates, degree growing with the streak.
//  2. frustrated or sad with moderate intensity gets empathy, degree
//     proportional to intensity.
//  3. a repeating user gets patience regardless of emotion.
//  4. happy with moderate intensity gets cheer.
//  5. everything else is neutral at baseline degree.
func (s *Selector) Select(in Input) Decision {
	sig := in.Emotion

	if in.Escalation >= s.cfg.EscalationThreshold && sig.Label.Negative() {
		over := in.Escalation - s.cfg.EscalationThreshold
		return Decision{
			Style:  DeEscalate,
			Degree: s.cap(1.2 + 0.2*float64(over)),
		}
	}

	if (sig.Label == emotion.Frustrated || sig.Label == emotion.Sad) && sig.Intensity >= s.cfg.IntensityFloor {
		return Decision{
			Style:  Empathetic,
			Degree: s.cap(1.0 + sig.Intensity/2),
		}
	}

	if in.Repetition {
		return Decision{Style: Patient, Degree: 1.0}
	}

	if sig.Label == emotion.Happy && sig.Intensity >= s.cfg.IntensityFloor {
		return Decision{
			Style:  Cheerful,
			Degree: s.cap(1.0 + sig.Intensity/2),
		}
	}

	return Decision{Style: Neutral, Degree: 1.0}
}

func (s *Selector) cap(degree float64) float64 {
	if degree > s.cfg.MaxDegree {
		return s.cfg.MaxDegree
	}
	return degree
}
