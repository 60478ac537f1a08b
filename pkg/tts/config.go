package tts

import (
	"log/slog"
	"time"
)

// Config holds synthesis provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Cloud credentials
	APIKey  string
	Region  string
	BaseURL string

	// Voice configuration
	Voice string

	// Audio output
	OutputFormat Encoding

	// Local synthesis
	PiperPath  string
	PiperModel string

	Timeout time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring synthesis providers.
type Option func(*Config)

// WithAPIKey sets the subscription key for the cloud provider.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the region-derived endpoint. Mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithRegion sets the cloud service region.
func WithRegion(region string) Option {
	return func(c *Config) { c.Region = region }
}

// WithVoice sets the voice name.
func WithVoice(voice string) Option {
	return func(c *Config) { c.Voice = voice }
}

// WithOutputFormat sets the audio output format.
func WithOutputFormat(format Encoding) Option {
	return func(c *Config) { c.OutputFormat = format }
}

// WithPiper sets the local synthesis binary and voice model paths.
func WithPiper(binary, model string) Option {
	return func(c *Config) {
		c.PiperPath = binary
		c.PiperModel = model
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Region:       "eastus",
		Voice:        "en-US-JennyNeural",
		OutputFormat: EncodingRiff24,
		PiperPath:    "piper",
		Timeout:      30 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
