package stt_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxpipe/voxpipe/pkg/provider"
	"github.com/voxpipe/voxpipe/pkg/stt"
)

func TestMock(t *testing.T) {
	ctx := context.Background()

	t.Run("returns configured transcript", func(t *testing.T) {
		mock := stt.NewMock("hello world")
		got, err := mock.Transcribe(ctx, stt.AudioInput{Data: []byte("wav")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Text != "hello world" {
			t.Errorf("text = %q", got.Text)
		}
		if mock.Calls() != 1 {
			t.Errorf("calls = %d, want 1", mock.Calls())
		}
	})

	t.Run("error mock fails everything", func(t *testing.T) {
		testErr := errors.New("stt down")
		mock := stt.MockWithError(testErr)
		if _, err := mock.Transcribe(ctx, stt.AudioInput{Data: []byte("wav")}); !errors.Is(err, testErr) {
			t.Errorf("Transcribe error = %v", err)
		}
		if err := mock.Health(ctx); !errors.Is(err, testErr) {
			t.Errorf("Health error = %v", err)
		}
	})
}

func TestCloud(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an API key", func(t *testing.T) {
		_, err := stt.NewCloud()
		if !errors.Is(err, provider.ErrNoAPIKey) {
			t.Errorf("error = %v, want ErrNoAPIKey", err)
		}
	})

	t.Run("uploads multipart audio and parses the transcript", func(t *testing.T) {
		var gotAuth, gotModel, gotFileName string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("not a multipart request: %v", err)
			}
			gotModel = r.FormValue("model")
			if _, header, err := r.FormFile("file"); err == nil {
				gotFileName = header.Filename
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"text": " where is my order "}`))
		}))
		defer server.Close()

		cloud, err := stt.NewCloud(
			stt.WithAPIKey("test-key"),
			stt.WithBaseURL(server.URL),
			stt.WithModel("whisper-large-v3"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := cloud.Transcribe(ctx, stt.AudioInput{
			Data:     []byte("fake-wav"),
			MIMEType: "audio/wav",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Text != "where is my order" {
			t.Errorf("text = %q, want trimmed transcript", got.Text)
		}
		if gotAuth != "Bearer test-key" {
			t.Errorf("auth header = %q", gotAuth)
		}
		if gotModel != "whisper-large-v3" {
			t.Errorf("model field = %q", gotModel)
		}
		if gotFileName != "audio.wav" {
			t.Errorf("file name = %q, want audio.wav", gotFileName)
		}
	})

	t.Run("rejects empty audio", func(t *testing.T) {
		cloud, err := stt.NewCloud(stt.WithAPIKey("test-key"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := cloud.Transcribe(ctx, stt.AudioInput{}); err == nil {
			t.Error("expected error for empty audio")
		}
	})

	t.Run("error status maps to APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"message": "rate limited", "code": "rate_limit"}}`))
		}))
		defer server.Close()

		cloud, err := stt.NewCloud(stt.WithAPIKey("test-key"), stt.WithBaseURL(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = cloud.Transcribe(ctx, stt.AudioInput{Data: []byte("wav")})
		var apiErr *provider.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want APIError", err)
		}
		if !apiErr.IsRateLimited() {
			t.Errorf("status = %d, want 429", apiErr.StatusCode)
		}
		if apiErr.Code != "rate_limit" {
			t.Errorf("code = %q", apiErr.Code)
		}
	})
}

func TestLocal(t *testing.T) {
	ctx := context.Background()

	t.Run("posts to the inference endpoint", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"text": "local transcript"}`))
		}))
		defer server.Close()

		local, err := stt.NewLocal(stt.WithBaseURL(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := local.Transcribe(ctx, stt.AudioInput{Data: []byte("wav")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Text != "local transcript" {
			t.Errorf("text = %q", got.Text)
		}
		if gotPath != "/inference" {
			t.Errorf("path = %q, want /inference", gotPath)
		}
	})

	t.Run("unreachable server maps to ErrUnavailable", func(t *testing.T) {
		local, err := stt.NewLocal(stt.WithBaseURL("http://127.0.0.1:1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := local.Transcribe(ctx, stt.AudioInput{Data: []byte("wav")}); !errors.Is(err, provider.ErrUnavailable) {
			t.Errorf("error = %v, want ErrUnavailable", err)
		}
	})
}

func TestCloudHealthFollowsBaseURL(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cloud, err := stt.NewCloud(
		stt.WithAPIKey("test-key"),
		stt.WithBaseURL(server.URL+"/openai/v1/audio/transcriptions"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cloud.Health(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if gotPath != "/openai/v1/models" {
		t.Errorf("health path = %q, want /openai/v1/models", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
}
