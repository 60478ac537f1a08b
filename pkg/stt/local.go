package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/voxpipe/voxpipe/internal/httpc"
	"github.com/voxpipe/voxpipe/pkg/provider"
)

const (
	defaultLocalURL = "http://localhost:9000"
	providerLocal   = "stt.local"
)

// Local implements Transcriber against a whisper.cpp server running on the
// local machine. No API key is required; availability is the only concern.
type Local struct {
	config  *Config
	client  *http.Client
	baseURL string
}

// NewLocal creates the local transcription provider.
func NewLocal(opts ...Option) (*Local, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLocalURL
	}

	return &Local{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Transcribe uploads the audio to the local server.
func (l *Local) Transcribe(ctx context.Context, in AudioInput) (*Transcript, error) {
	start := time.Now()

	if len(in.Data) == 0 {
		return nil, provider.Wrap(providerLocal, fmt.Errorf("empty audio input"))
	}

	body, contentType, err := buildMultipart(in, "")
	if err != nil {
		return nil, provider.Wrap(providerLocal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/inference", body)
	if err != nil {
		return nil, provider.Wrap(providerLocal, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, provider.Wrap(providerLocal, fmt.Errorf("%w: %v", provider.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ParseHTTPError(providerLocal, resp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, provider.Wrap(providerLocal, fmt.Errorf("%w: %v", provider.ErrMalformedResponse, err))
	}

	return &Transcript{
		Text:      strings.TrimSpace(result.Text),
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health checks whether the local server responds.
func (l *Local) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/health", nil)
	if err != nil {
		return provider.Wrap(providerLocal, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return provider.Wrap(providerLocal, fmt.Errorf("%w: %v", provider.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.ParseHTTPError(providerLocal, resp)
	}
	return nil
}

// Close releases resources.
func (l *Local) Close() error {
	l.client.CloseIdleConnections()
	return nil
}

// Verify Local implements Transcriber at compile time.
var _ Transcriber = (*Local)(nil)
