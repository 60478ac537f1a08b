// Package ssml renders response text into an emotionally-styled SSML
// document for neural synthesis.
//
// The builder wraps the response in an express-as style tag with a degree
// attribute, applies prosody from the style's profile, emphasizes important
// tokens (numbers, negations, superlatives, configured keywords), and
// escapes anything that would break the markup. Building is pure: identical
// input always produces identical output, and the result is validated for
// balanced tags before it is returned.
package ssml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/voxpipe/voxpipe/pkg/style"
)

// ErrMarkupBuild is returned when a produced document fails validation.
// It is never silently emitted; synthesis must not receive such a document.
var ErrMarkupBuild = errors.New("ssml: produced markup is not well-formed")

// ErrEmptyText is returned when there is nothing to synthesize.
var ErrEmptyText = errors.New("ssml: response text is empty")

const (
	defaultVoice = "en-US-JennyNeural"
	defaultLang  = "en-US"

	// maxEmphasis bounds how many tokens get emphasis markup so long
	// responses do not end up sounding staccato.
	maxEmphasis = 5
)

var numberPattern = regexp.MustCompile(`^[$€£]?\d+([.,:]\d+)*%?$`)

// negations always warrant vocal stress.
var negations = map[string]struct{}{
	"no": {}, "not": {}, "never": {}, "none": {}, "nothing": {},
	"don't": {}, "won't": {}, "can't": {}, "cannot": {}, "isn't": {},
	"doesn't": {}, "didn't": {}, "shouldn't": {}, "wouldn't": {},
}

// superlatives are stressed when they appear as standalone words.
var superlatives = map[string]struct{}{
	"best": {}, "worst": {}, "most": {}, "least": {}, "always": {},
	"fastest": {}, "slowest": {}, "biggest": {}, "smallest": {},
	"highest": {}, "lowest": {}, "only": {}, "every": {},
}

// Builder renders styled SSML documents.
type Builder struct {
	voice    string
	lang     string
	keywords map[string]struct{}
}

// Option configures a Builder.
type Option func(*Builder)

// WithVoice sets the neural voice name.
func WithVoice(voice string) Option {
	return func(b *Builder) {
		if voice != "" {
			b.voice = voice
		}
	}
}

// WithLanguage sets the document language.
func WithLanguage(lang string) Option {
	return func(b *Builder) {
		if lang != "" {
			b.lang = lang
		}
	}
}

// WithEmphasisKeywords adds words that always receive emphasis markup.
func WithEmphasisKeywords(words ...string) Option {
	return func(b *Builder) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				b.keywords[w] = struct{}{}
			}
		}
	}
}

// NewBuilder creates a markup builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		voice:    defaultVoice,
		lang:     defaultLang,
		keywords: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders text with the given style decision into an SSML document.
// extraEmphasis lists additional words to stress (e.g. chosen by the
// language model for this reply). The returned document is guaranteed
// well-formed; a validation failure returns ErrMarkupBuild.
func (b *Builder) Build(text string, decision style.Decision, extraEmphasis []string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyText
	}

	st := decision.Style
	if !st.Valid() {
		st = style.Neutral
	}
	degree := decision.Degree
	if degree <= 0 {
		degree = 1.0
	}

	profile := ProfileFor(st)
	body := b.renderBody(trimmed, extraEmphasis)

	var sb strings.Builder
	sb.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="`)
	sb.WriteString(b.lang)
	sb.WriteString(`"><voice name="`)
	sb.WriteString(escape(b.voice))
	sb.WriteString(`"><mstts:express-as style="`)
	sb.WriteString(string(st))
	sb.WriteString(`" styledegree="`)
	sb.WriteString(strconv.FormatFloat(degree, 'f', 2, 64))
	sb.WriteString(`"><prosody pitch="`)
	sb.WriteString(profile.Pitch)
	sb.WriteString(`" rate="`)
	sb.WriteString(profile.Rate)
	sb.WriteString(`">`)
	sb.WriteString(body)
	sb.WriteString(`</prosody></mstts:express-as></voice></speak>`)

	doc := sb.String()
	if err := validate(doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMarkupBuild, err)
	}
	return doc, nil
}

// renderBody escapes the text and wraps important tokens in emphasis tags.
func (b *Builder) renderBody(text string, extraEmphasis []string) string {
	extra := make(map[string]struct{}, len(extraEmphasis))
	for _, w := range extraEmphasis {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			extra[w] = struct{}{}
		}
	}

	words := strings.Fields(text)
	emphasized := 0

	var sb strings.Builder
	for i, word := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}

		core, trailing := splitTrailingPunct(word)
		if emphasized < maxEmphasis && b.important(core, extra) {
			sb.WriteString(`<emphasis level="moderate">`)
			sb.WriteString(escape(core))
			sb.WriteString(`</emphasis>`)
			sb.WriteString(escape(trailing))
			emphasized++
			continue
		}
		sb.WriteString(escape(word))
	}
	return sb.String()
}

// important reports whether a token deserves emphasis.
func (b *Builder) important(core string, extra map[string]struct{}) bool {
	if core == "" {
		return false
	}
	lower := strings.ToLower(core)
	if numberPattern.MatchString(core) {
		return true
	}
	if _, ok := negations[lower]; ok {
		return true
	}
	if _, ok := superlatives[lower]; ok {
		return true
	}
	if _, ok := b.keywords[lower]; ok {
		return true
	}
	if _, ok := extra[lower]; ok {
		return true
	}
	return false
}

// splitTrailingPunct separates closing punctuation so emphasis wraps only
// the word itself.
func splitTrailingPunct(word string) (core, trailing string) {
	core = strings.TrimRight(word, ".,!?;:\"')")
	return core, word[len(core):]
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escape makes text safe for inclusion in SSML character data.
func escape(s string) string {
	return escaper.Replace(s)
}

// validate checks the document parses as XML with balanced tags.
func validate(doc string) error {
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
