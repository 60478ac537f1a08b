package ssml

import "github.com/voxpipe/voxpipe/pkg/style"

// ProsodyProfile is the pitch/rate shape applied for a style.
// Values are SSML prosody attribute strings.
type ProsodyProfile struct {
	Pitch string
	Rate  string

	// RateMultiplier is the numeric rate for providers without SSML
	// support (e.g. local Piper).
	RateMultiplier float64
}

// profiles maps each style to its prosody shape.
var profiles = map[style.Style]ProsodyProfile{
	style.Neutral:    {Pitch: "+0%", Rate: "+0%", RateMultiplier: 1.0},
	style.Cheerful:   {Pitch: "+5%", Rate: "+8%", RateMultiplier: 1.08},
	style.Patient:    {Pitch: "-2%", Rate: "-8%", RateMultiplier: 0.92},
	style.Empathetic: {Pitch: "-3%", Rate: "-5%", RateMultiplier: 0.95},
	style.DeEscalate: {Pitch: "-5%", Rate: "-12%", RateMultiplier: 0.88},
}

// ProfileFor returns the prosody profile for a style.
// Unknown styles get the neutral profile.
func ProfileFor(s style.Style) ProsodyProfile {
	if p, ok := profiles[s]; ok {
		return p
	}
	return profiles[style.Neutral]
}
