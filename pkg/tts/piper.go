package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/voxpipe/voxpipe/pkg/provider"
)

const providerPiper = "tts.piper"

// Piper implements Synthesizer by invoking the piper binary as a subprocess.
// Piper has no SSML support, so it synthesizes the plain reply text and
// approximates the speaking rate through its length scale parameter.
type Piper struct {
	config *Config
	logger *slog.Logger
}

// NewPiper creates a new local Piper provider.
func NewPiper(opts ...Option) (*Piper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.PiperModel == "" {
		return nil, provider.Wrap(providerPiper, fmt.Errorf("voice model path is required"))
	}

	return &Piper{
		config: cfg,
		logger: cfg.Logger.With("component", providerPiper),
	}, nil
}

// Synthesize runs piper with the plain reply text on stdin and collects the
// WAV output from stdout.
func (p *Piper) Synthesize(ctx context.Context, speech Speech) (*AudioResult, error) {
	text := strings.TrimSpace(speech.Text)
	if text == "" {
		return nil, provider.Wrap(providerPiper, fmt.Errorf("empty text"))
	}
	start := time.Now()

	// Piper's length scale stretches audio, so it is the inverse of rate.
	rate := speech.Rate
	if rate <= 0 {
		rate = 1.0
	}
	lengthScale := 1.0 / rate

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.config.PiperPath,
		"--model", p.config.PiperModel,
		"--length_scale", fmt.Sprintf("%.2f", lengthScale),
		"--output_file", "-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, provider.Wrap(providerPiper, ctx.Err())
		}
		return nil, provider.Wrap(providerPiper,
			fmt.Errorf("%w: %v: %s", provider.ErrUnavailable, err, strings.TrimSpace(stderr.String())))
	}

	audio := stdout.Bytes()
	if len(audio) == 0 {
		return nil, provider.Wrap(providerPiper, fmt.Errorf("%w: no audio produced", provider.ErrMalformedResponse))
	}

	format := formatFor(EncodingWAV22)
	result := &AudioResult{
		Audio:     audio,
		Format:    format,
		Duration:  estimateDuration(format, len(audio)),
		CharCount: len(text),
		LatencyMs: time.Since(start).Milliseconds(),
	}

	p.logger.Debug("local synthesis complete",
		"model", p.config.PiperModel,
		"bytes", len(audio),
		"latency_ms", result.LatencyMs,
	)
	return result, nil
}

// Health verifies the binary is on PATH and the voice model exists.
func (p *Piper) Health(ctx context.Context) error {
	if _, err := exec.LookPath(p.config.PiperPath); err != nil {
		return provider.Wrap(providerPiper, fmt.Errorf("%w: %v", provider.ErrUnavailable, err))
	}
	if _, err := os.Stat(p.config.PiperModel); err != nil {
		return provider.Wrap(providerPiper, fmt.Errorf("%w: voice model: %v", provider.ErrUnavailable, err))
	}
	return nil
}

// Close is a no-op; each synthesis runs its own subprocess.
func (p *Piper) Close() error { return nil }

// Verify Piper implements Synthesizer at compile time.
var _ Synthesizer = (*Piper)(nil)
