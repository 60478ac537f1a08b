package memory

import (
	"math"
	"strings"
	"unicode"
)

// Similarity returns the cosine similarity of two utterances over their
// term-frequency vectors, in [0, 1]. It is case- and punctuation-
// insensitive and deterministic.
func Similarity(a, b string) float64 {
	va := termFreq(a)
	vb := termFreq(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	var dot, na, nb float64
	for term, fa := range va {
		na += fa * fa
		if fb, ok := vb[term]; ok {
			dot += fa * fb
		}
	}
	for _, fb := range vb {
		nb += fb * fb
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// termFreq builds a term-frequency vector for an utterance.
func termFreq(text string) map[string]float64 {
	freq := make(map[string]float64)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	for _, w := range words {
		w = strings.Trim(w, "'")
		if w != "" {
			freq[w]++
		}
	}
	return freq
}
