package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/voxpipe/voxpipe/internal/httpc"
	"github.com/voxpipe/voxpipe/pkg/provider"
)

const providerAzure = "tts.azure"

// Azure implements Synthesizer against the Azure Cognitive Services speech
// REST API. It consumes the full SSML document, so expressive styles and
// prosody survive all the way to the audio.
type Azure struct {
	config   *Config
	client   *http.Client
	logger   *slog.Logger
	endpoint string
	tokenURL string
}

// NewAzure creates a new Azure speech provider.
func NewAzure(opts ...Option) (*Azure, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, provider.Wrap(providerAzure, provider.ErrNoAPIKey)
	}

	endpoint := fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	tokenURL := fmt.Sprintf("https://%s.api.cognitive.microsoft.com/sts/v1.0/issueToken", cfg.Region)
	if cfg.BaseURL != "" {
		base := strings.TrimSuffix(cfg.BaseURL, "/")
		endpoint = base + "/cognitiveservices/v1"
		tokenURL = base + "/sts/v1.0/issueToken"
	}

	return &Azure{
		config:   cfg,
		client:   httpc.NewClient(cfg.Timeout),
		logger:   cfg.Logger.With("component", providerAzure),
		endpoint: endpoint,
		tokenURL: tokenURL,
	}, nil
}

// Synthesize sends the SSML document and returns the rendered audio.
func (a *Azure) Synthesize(ctx context.Context, speech Speech) (*AudioResult, error) {
	if speech.SSML == "" {
		return nil, provider.Wrap(providerAzure, fmt.Errorf("empty markup"))
	}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(speech.SSML))
	if err != nil {
		return nil, provider.Wrap(providerAzure, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.config.APIKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", string(a.config.OutputFormat))
	req.Header.Set("User-Agent", "voxpipe")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, provider.Wrap(providerAzure, fmt.Errorf("%w: %v", provider.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ParseHTTPError(providerAzure, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.Wrap(providerAzure, fmt.Errorf("read audio: %w", err))
	}
	if len(audio) == 0 {
		return nil, provider.Wrap(providerAzure, fmt.Errorf("%w: empty audio body", provider.ErrMalformedResponse))
	}

	format := formatFor(a.config.OutputFormat)
	result := &AudioResult{
		Audio:     audio,
		Format:    format,
		Duration:  estimateDuration(format, len(audio)),
		CharCount: len(speech.Text),
		LatencyMs: time.Since(start).Milliseconds(),
	}

	a.logger.Debug("synthesis complete",
		"voice", a.config.Voice,
		"bytes", len(audio),
		"latency_ms", result.LatencyMs,
	)
	return result, nil
}

// Health verifies the subscription key by requesting an access token.
func (a *Azure) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, nil)
	if err != nil {
		return provider.Wrap(providerAzure, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return provider.Wrap(providerAzure, fmt.Errorf("%w: %v", provider.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.ParseHTTPError(providerAzure, resp)
	}
	return nil
}

// Close releases resources.
func (a *Azure) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// Verify Azure implements Synthesizer at compile time.
var _ Synthesizer = (*Azure)(nil)
