package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/voxpipe/voxpipe/internal/httpc"
	"github.com/voxpipe/voxpipe/pkg/provider"
)

const (
	cloudTranscribeURL = "https://api.groq.com/openai/v1/audio/transcriptions"
	providerCloud      = "stt.cloud"
)

// Cloud implements Transcriber against a hosted Whisper-compatible API
// (OpenAI-style multipart transcription endpoint).
type Cloud struct {
	config  *Config
	client  *http.Client
	baseURL string
}

// NewCloud creates the cloud transcription provider.
func NewCloud(opts ...Option) (*Cloud, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, provider.ErrNoAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cloudTranscribeURL
	}

	return &Cloud{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		baseURL: baseURL,
	}, nil
}

// Transcribe uploads the audio and returns the recognized text.
func (c *Cloud) Transcribe(ctx context.Context, in AudioInput) (*Transcript, error) {
	start := time.Now()

	if len(in.Data) == 0 {
		return nil, provider.Wrap(providerCloud, fmt.Errorf("empty audio input"))
	}

	body, contentType, err := buildMultipart(in, c.config.Model)
	if err != nil {
		return nil, provider.Wrap(providerCloud, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return nil, provider.Wrap(providerCloud, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, provider.Wrap(providerCloud, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ParseHTTPError(providerCloud, resp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, provider.Wrap(providerCloud, fmt.Errorf("%w: %v", provider.ErrMalformedResponse, err))
	}

	latency := time.Since(start).Milliseconds()
	c.config.Logger.Debug("transcribed audio",
		"bytes", len(in.Data),
		"chars", len(result.Text),
		"latency_ms", latency,
	)

	return &Transcript{
		Text:      strings.TrimSpace(result.Text),
		LatencyMs: latency,
	}, nil
}

// Health checks API reachability and key validity.
func (c *Cloud) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelsURL(), nil)
	if err != nil {
		return provider.Wrap(providerCloud, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return provider.Wrap(providerCloud, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.ParseHTTPError(providerCloud, resp)
	}
	return nil
}

// modelsURL derives the health-check endpoint from the transcription URL so
// a redirected base (tests, proxies) is honored.
func (c *Cloud) modelsURL() string {
	return strings.TrimSuffix(c.baseURL, "/audio/transcriptions") + "/models"
}

// Close releases resources.
func (c *Cloud) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// buildMultipart assembles the multipart upload body.
func buildMultipart(in AudioInput, model string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := in.FileName
	if name == "" {
		name = "audio" + extensionFor(in.MIMEType)
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.Data); err != nil {
		return nil, "", err
	}

	if model != "" {
		if err := w.WriteField("model", model); err != nil {
			return nil, "", err
		}
	}
	if in.Language != "" {
		if err := w.WriteField("language", in.Language); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// extensionFor maps common audio MIME types to file extensions.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".wav"
	}
}

// Verify Cloud implements Transcriber at compile time.
var _ Transcriber = (*Cloud)(nil)
