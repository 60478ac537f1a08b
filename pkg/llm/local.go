package llm

import (
	"bytes"
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
	defaultLocalURL = "http://localhost:11434"
	providerLocal   = "llm.local"
)

// Local implements Completer against a local Ollama server, used as the
// offline fallback when the cloud API is unavailable.
type Local struct {
	config  *Config
	client  *http.Client
	baseURL string
}

// NewLocal creates the local completion provider.
func NewLocal(opts ...Option) (*Local, error) {
	cfg := DefaultConfig()
	cfg.Model = "llama3.2"
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

// localPayload is the native Local chat request body.
type localPayload struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

// Complete generates the next assistant reply.
func (o *Local) Complete(ctx context.Context, req Request) (*Reply, error) {
	start := time.Now()

	payload := localPayload{
		Model:  o.config.Model,
		Stream: false,
	}
	payload.Options.Temperature = o.config.Temperature
	payload.Options.NumPredict = o.config.MaxTokens
	for _, m := range buildMessages(req) {
		payload.Messages = append(payload.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.Wrap(providerLocal, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, provider.Wrap(providerLocal, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, provider.Wrap(providerLocal, fmt.Errorf("%w: %v", provider.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ParseHTTPError(providerLocal, resp)
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, provider.Wrap(providerLocal, fmt.Errorf("%w: %v", provider.ErrMalformedResponse, err))
	}

	reply := ParseReply(result.Message.Content)
	reply.LatencyMs = time.Since(start).Milliseconds()

	o.config.Logger.Debug("local completion generated",
		"model", o.config.Model,
		"chars", len(reply.Text),
		"latency_ms", reply.LatencyMs,
	)
	return reply, nil
}

// Health checks whether the Local server responds.
func (o *Local) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return provider.Wrap(providerLocal, err)
	}

	resp, err := o.client.Do(req)
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
func (o *Local) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// Verify Local implements Completer at compile time.
var _ Completer = (*Local)(nil)
