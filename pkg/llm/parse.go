package llm

import (
	"encoding/json"
	"strings"
)

// replyEnvelope is the JSON shape the system prompt asks for.
type replyEnvelope struct {
	Reply         string   `json:"reply"`
	Style         string   `json:"style"`
	EmphasisWords []string `json:"emphasis_words"`
}

// ParseReply extracts the structured reply from raw model output. Models
// sometimes wrap the JSON in prose or fences, so the parser scans for the
// outermost braces. Unparseable output degrades to the raw text with no
// style suggestion; parsing never fails.
func ParseReply(raw string) *Reply {
	trimmed := strings.TrimSpace(raw)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		var env replyEnvelope
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &env); err == nil && env.Reply != "" {
			return &Reply{
				Text:          env.Reply,
				Style:         strings.ToLower(strings.TrimSpace(env.Style)),
				EmphasisWords: env.EmphasisWords,
				Raw:           raw,
			}
		}
	}

	return &Reply{Text: trimmed, Raw: raw}
}
