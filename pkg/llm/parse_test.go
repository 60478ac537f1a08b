package llm_test

import (
	"testing"

	"github.com/voxpipe/voxpipe/pkg/llm"
)

func TestParseReply(t *testing.T) {
	t.Run("clean envelope", func(t *testing.T) {
		raw := `{"reply": "I understand, let me fix that.", "style": "empathetic", "emphasis_words": ["fix"]}`
		reply := llm.ParseReply(raw)
		if reply.Text != "I understand, let me fix that." {
			t.Errorf("text = %q", reply.Text)
		}
		if reply.Style != "empathetic" {
			t.Errorf("style = %q, want empathetic", reply.Style)
		}
		if len(reply.EmphasisWords) != 1 || reply.EmphasisWords[0] != "fix" {
			t.Errorf("emphasis words = %v", reply.EmphasisWords)
		}
	})

	t.Run("envelope wrapped in code fences", func(t *testing.T) {
		raw := "```json\n{\"reply\": \"Sure thing.\", \"style\": \"cheerful\"}\n```"
		reply := llm.ParseReply(raw)
		if reply.Text != "Sure thing." {
			t.Errorf("text = %q, want fenced JSON extracted", reply.Text)
		}
		if reply.Style != "cheerful" {
			t.Errorf("style = %q, want cheerful", reply.Style)
		}
	})

	t.Run("envelope wrapped in prose", func(t *testing.T) {
		raw := `Here is my answer: {"reply": "Done.", "style": "neutral"} Hope that helps.`
		reply := llm.ParseReply(raw)
		if reply.Text != "Done." {
			t.Errorf("text = %q, want embedded JSON extracted", reply.Text)
		}
	})

	t.Run("style is normalized lowercase", func(t *testing.T) {
		raw := `{"reply": "Okay.", "style": " Patient "}`
		reply := llm.ParseReply(raw)
		if reply.Style != "patient" {
			t.Errorf("style = %q, want patient", reply.Style)
		}
	})

	t.Run("plain text degrades to raw reply", func(t *testing.T) {
		raw := "I'm happy to help with that."
		reply := llm.ParseReply(raw)
		if reply.Text != raw {
			t.Errorf("text = %q, want raw input", reply.Text)
		}
		if reply.Style != "" {
			t.Errorf("style = %q, want empty", reply.Style)
		}
	})

	t.Run("malformed JSON degrades to raw text", func(t *testing.T) {
		raw := `{"reply": "broken`
		reply := llm.ParseReply(raw)
		if reply.Text != raw {
			t.Errorf("text = %q, want raw input", reply.Text)
		}
	})

	t.Run("JSON without reply field degrades", func(t *testing.T) {
		raw := `{"style": "cheerful"}`
		reply := llm.ParseReply(raw)
		if reply.Text != raw {
			t.Errorf("text = %q, want raw input", reply.Text)
		}
		if reply.Style != "" {
			t.Errorf("style = %q, want empty on degraded parse", reply.Style)
		}
	})

	t.Run("raw output is preserved", func(t *testing.T) {
		raw := `{"reply": "Hi.", "style": "neutral"}`
		reply := llm.ParseReply(raw)
		if reply.Raw != raw {
			t.Errorf("raw = %q, want original output", reply.Raw)
		}
	})
}
