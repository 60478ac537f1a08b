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
	cloudBaseURL  = "https://api.groq.com/openai/v1"
	providerCloud = "llm.cloud"
)

// Cloud implements Completer against an OpenAI-compatible chat API.
// The default endpoint is Groq; WithBaseURL points it at any compatible
// server.
type Cloud struct {
	config  *Config
	client  *http.Client
	baseURL string
}

// NewCloud creates the cloud completion provider.
func NewCloud(opts ...Option) (*Cloud, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, provider.ErrNoAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cloudBaseURL
	}

	return &Cloud{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// chatPayload is the OpenAI-compatible request body.
type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete generates the next assistant reply.
func (c *Cloud) Complete(ctx context.Context, req Request) (*Reply, error) {
	start := time.Now()

	payload := chatPayload{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	for _, m := range buildMessages(req) {
		payload.Messages = append(payload.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.Wrap(providerCloud, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, provider.Wrap(providerCloud, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, provider.Wrap(providerCloud, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ParseHTTPError(providerCloud, resp)
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, provider.Wrap(providerCloud, fmt.Errorf("%w: %v", provider.ErrMalformedResponse, err))
	}
	if len(result.Choices) == 0 {
		return nil, provider.Wrap(providerCloud, fmt.Errorf("%w: no choices returned", provider.ErrMalformedResponse))
	}

	reply := ParseReply(result.Choices[0].Message.Content)
	reply.LatencyMs = time.Since(start).Milliseconds()

	c.config.Logger.Debug("completion generated",
		"model", c.config.Model,
		"chars", len(reply.Text),
		"style", reply.Style,
		"latency_ms", reply.LatencyMs,
	)
	return reply, nil
}

// Health checks API reachability and key validity.
func (c *Cloud) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
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

// Close releases resources.
func (c *Cloud) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Verify Cloud implements Completer at compile time.
var _ Completer = (*Cloud)(nil)
