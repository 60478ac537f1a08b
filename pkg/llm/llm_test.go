package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxpipe/voxpipe/pkg/provider"
	"github.com/voxpipe/voxpipe/pkg/llm"
)

type recordedChat struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, content string, recorded *recordedChat) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if recorded != nil {
			if err := json.NewDecoder(r.Body).Decode(recorded); err != nil {
				t.Errorf("bad request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestCloudComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an API key", func(t *testing.T) {
		_, err := llm.NewCloud()
		if !errors.Is(err, provider.ErrNoAPIKey) {
			t.Errorf("error = %v, want ErrNoAPIKey", err)
		}
	})

	t.Run("parses the JSON envelope from the model", func(t *testing.T) {
		var recorded recordedChat
		server := chatServer(t, `{"reply": "Take a breath.", "style": "de_escalate", "emphasis_words": ["breath"]}`, &recorded)
		defer server.Close()

		cloud, err := llm.NewCloud(
			llm.WithAPIKey("test-key"),
			llm.WithBaseURL(server.URL),
			llm.WithModel("test-model"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reply, err := cloud.Complete(ctx, llm.Request{
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: "I am furious"}},
			StyleHint: "de_escalate",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.Text != "Take a breath." {
			t.Errorf("text = %q", reply.Text)
		}
		if reply.Style != "de_escalate" {
			t.Errorf("style = %q", reply.Style)
		}
		if len(reply.EmphasisWords) != 1 || reply.EmphasisWords[0] != "breath" {
			t.Errorf("emphasis words = %v", reply.EmphasisWords)
		}

		if recorded.Model != "test-model" {
			t.Errorf("model = %q", recorded.Model)
		}
		if len(recorded.Messages) == 0 || recorded.Messages[0].Role != "system" {
			t.Fatalf("first message should be the system prompt, got %+v", recorded.Messages)
		}
		last := recorded.Messages[len(recorded.Messages)-1]
		if last.Role != "user" || last.Content != "I am furious" {
			t.Errorf("last message = %+v, want the user utterance", last)
		}
	})

	t.Run("repetition hint is forwarded to the model", func(t *testing.T) {
		var recorded recordedChat
		server := chatServer(t, `{"reply": "Of course."}`, &recorded)
		defer server.Close()

		cloud, err := llm.NewCloud(llm.WithAPIKey("test-key"), llm.WithBaseURL(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = cloud.Complete(ctx, llm.Request{
			Messages:       []llm.Message{{Role: llm.RoleUser, Content: "again: where is my refund"}},
			RepetitionHint: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var found bool
		for _, m := range recorded.Messages {
			if m.Role == "system" && strings.Contains(m.Content, "repeating") {
				found = true
			}
		}
		if !found {
			t.Error("expected a system message mentioning the repetition")
		}
	})

	t.Run("empty choices maps to ErrMalformedResponse", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices": []}`))
		}))
		defer server.Close()

		cloud, err := llm.NewCloud(llm.WithAPIKey("test-key"), llm.WithBaseURL(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := cloud.Complete(ctx, llm.Request{}); !errors.Is(err, provider.ErrMalformedResponse) {
			t.Errorf("error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestLocalComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("speaks the native chat protocol", func(t *testing.T) {
		var gotPath string
		var payload struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("bad request body: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"message": {"content": "{\"reply\": \"Hello from local.\"}"}}`))
		}))
		defer server.Close()

		local, err := llm.NewLocal(llm.WithBaseURL(server.URL), llm.WithModel("llama3.2"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reply, err := local.Complete(ctx, llm.Request{
			Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.Text != "Hello from local." {
			t.Errorf("text = %q", reply.Text)
		}
		if gotPath != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", gotPath)
		}
		if payload.Stream {
			t.Error("stream must be disabled")
		}
		if payload.Model != "llama3.2" {
			t.Errorf("model = %q", payload.Model)
		}
	})

	t.Run("unreachable server maps to ErrUnavailable", func(t *testing.T) {
		local, err := llm.NewLocal(llm.WithBaseURL("http://127.0.0.1:1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := local.Complete(ctx, llm.Request{}); !errors.Is(err, provider.ErrUnavailable) {
			t.Errorf("error = %v, want ErrUnavailable", err)
		}
	})
}
