package emotion

import (
	"log/slog"
	"strings"
	"unicode"
)

// lexicons maps emotion labels to weighted cue words and phrases.
// Phrases (containing a space) are matched against the whole utterance;
// single words are matched per token.
var lexicons = map[Label]map[string]float64{
	Happy: {
		"great": 0.5, "awesome": 0.6, "love": 0.5, "thanks": 0.4,
		"thank": 0.4, "perfect": 0.6, "excellent": 0.6, "wonderful": 0.6,
		"happy": 0.6, "glad": 0.5, "nice": 0.4, "amazing": 0.6,
	},
	Angry: {
		"furious": 0.9, "angry": 0.8, "hate": 0.7, "terrible": 0.6,
		"unacceptable": 0.8, "ridiculous": 0.7, "worst": 0.6,
		"outrageous": 0.8, "garbage": 0.6, "useless": 0.6,
	},
	Frustrated: {
		"frustrated": 0.8, "frustrating": 0.7, "annoying": 0.6,
		"annoyed": 0.6, "again": 0.3, "still": 0.2, "ugh": 0.5,
		"i already said": 0.7, "third time": 0.8, "just tell me": 0.7,
		"why is this so hard": 0.8, "how many times": 0.8,
	},
	Confused: {
		"confused": 0.7, "confusing": 0.6, "understand": 0.3,
		"what do you mean": 0.6, "i don't get": 0.6, "lost": 0.4,
		"unclear": 0.5, "huh": 0.4,
	},
	Sad: {
		"sad": 0.7, "upset": 0.6, "disappointed": 0.6, "unhappy": 0.6,
		"miserable": 0.8, "crying": 0.7, "depressed": 0.8, "sorry": 0.3,
		"lonely": 0.7,
	},
}

// Classifier maps utterance text to an emotion Signal.
// It is side-effect free and safe for concurrent use.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{logger: logger.With("component", "emotion.classifier")}
}

// Classify scores the utterance against each lexicon and returns the
// strongest signal. Recent user utterances may be supplied as history;
// a negative streak there nudges intensity upward. Classify never fails:
// empty or unrecognizable input yields a neutral signal.
func (c *Classifier) Classify(text string, history []string) Signal {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NeutralSignal()
	}

	lower := strings.ToLower(trimmed)
	tokens := tokenize(lower)

	scores := make(map[Label]float64, len(lexicons))
	for label, cues := range lexicons {
		scores[label] = scoreCues(lower, tokens, cues)
	}

	best := Neutral
	bestScore := 0.0
	for label, score := range scores {
		if score > bestScore {
			best, bestScore = label, score
		}
	}
	if bestScore == 0 {
		return NeutralSignal()
	}

	intensity := bestScore
	intensity += exclamationBoost(trimmed)
	intensity += shoutingBoost(trimmed)
	if best.Negative() {
		intensity += historyBoost(history)
	}

	sig := NewSignal(best, intensity)
	c.logger.Debug("classified utterance",
		"label", sig.Label,
		"intensity", sig.Intensity,
	)
	return sig
}

// scoreCues sums cue weights. Multi-word cues match as substrings of the
// utterance, single words match whole tokens only.
func scoreCues(utterance string, tokens map[string]int, cues map[string]float64) float64 {
	var total float64
	for cue, weight := range cues {
		if strings.Contains(cue, " ") {
			if strings.Contains(utterance, cue) {
				total += weight
			}
			continue
		}
		if n := tokens[cue]; n > 0 {
			total += weight * float64(n)
		}
	}
	return total
}

// exclamationBoost adds up to 0.2 for exclamation density.
func exclamationBoost(text string) float64 {
	count := strings.Count(text, "!")
	boost := 0.1 * float64(count)
	if boost > 0.2 {
		boost = 0.2
	}
	return boost
}

// shoutingBoost adds 0.15 when a meaningful share of letters are capitals.
func shoutingBoost(text string) float64 {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters >= 8 && float64(upper)/float64(letters) > 0.6 {
		return 0.15
	}
	return 0
}

// historyBoost adds a small bump when recent utterances already carried
// negative cues, so sustained negativity reads hotter than a one-off.
func historyBoost(history []string) float64 {
	var hits int
	for _, h := range history {
		lower := strings.ToLower(h)
		tokens := tokenize(lower)
		if scoreCues(lower, tokens, lexicons[Angry])+scoreCues(lower, tokens, lexicons[Frustrated]) > 0 {
			hits++
		}
	}
	boost := 0.05 * float64(hits)
	if boost > 0.15 {
		boost = 0.15
	}
	return boost
}

// tokenize splits lowered text into word counts, stripping punctuation.
func tokenize(lower string) map[string]int {
	counts := make(map[string]int)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w != "" {
			counts[w]++
		}
	}
	return counts
}
