// Package config loads voxpipe configuration from the environment.
//
// All variables are prefixed with VOXPIPE_. A .env file is honored when
// present (loaded by the server binary before Load is called).
package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Backend selects which implementation serves a capability first.
type Backend string

const (
	// BackendCloud uses the hosted provider as primary.
	BackendCloud Backend = "cloud"

	// BackendLocal uses the local provider as primary.
	BackendLocal Backend = "local"
)

// Config is the full configuration surface of the service.
type Config struct {
	Environment string `default:"development"`
	LogLevel    string `split_words:"true" default:"info"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Fallback behavior
	FailureThreshold int           `split_words:"true" default:"3"`
	CoolDown         time.Duration `split_words:"true" default:"30s"`
	CoolDownFactor   float64       `split_words:"true" default:"2.0"`
	MaxCoolDown      time.Duration `split_words:"true" default:"5m"`

	// Style policy
	EscalationThreshold int     `split_words:"true" default:"2"`
	IntensityFloor      float64 `split_words:"true" default:"0.4"`

	// Repetition detection
	SimilarityThreshold float64 `split_words:"true" default:"0.82"`
	RepetitionWindow    int     `split_words:"true" default:"5"`

	// Conversation context
	ContextWindow int `split_words:"true" default:"10"`

	STT    STTConfig    `split_words:"true"`
	LLM    LLMConfig    `split_words:"true"`
	TTS    TTSConfig    `split_words:"true"`
	Memory MemoryConfig `split_words:"true"`
}

// STTConfig configures the transcription capability.
type STTConfig struct {
	Backend  Backend       `default:"cloud"`
	APIKey   string        `split_words:"true"`
	BaseURL  string        `split_words:"true"`
	Model    string        `default:"whisper-large-v3"`
	LocalURL string        `split_words:"true" default:"http://localhost:9000"`
	Timeout  time.Duration `default:"20s"`
}

// LLMConfig configures the completion capability.
type LLMConfig struct {
	Backend     Backend       `default:"cloud"`
	APIKey      string        `split_words:"true"`
	BaseURL     string        `split_words:"true"`
	Model       string        `default:"llama-3.3-70b-versatile"`
	LocalURL    string        `split_words:"true" default:"http://localhost:11434"`
	LocalModel  string        `split_words:"true" default:"llama3.2"`
	Temperature float64       `default:"0.7"`
	MaxTokens   int           `split_words:"true" default:"1024"`
	Timeout     time.Duration `default:"45s"`
}

// TTSConfig configures the synthesis capability.
type TTSConfig struct {
	Backend    Backend       `default:"cloud"`
	APIKey     string        `split_words:"true"`
	Region     string        `default:"eastus"`
	Voice      string        `default:"en-US-JennyNeural"`
	PiperPath  string        `split_words:"true" default:"piper"`
	PiperModel string        `split_words:"true" default:"en_US-lessac-medium"`
	Timeout    time.Duration `default:"30s"`
}

// MemoryConfig configures the session memory backend.
type MemoryConfig struct {
	Backend  string        `default:"memory"` // "redis" or "memory"
	RedisURL string        `split_words:"true" default:"redis://localhost:6379/0"`
	TTL      time.Duration `default:"24h"`
}

// Load reads configuration from VOXPIPE_-prefixed environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("voxpipe", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	if c.FailureThreshold < 1 {
		return errors.New("config: failure threshold must be at least 1")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return errors.New("config: similarity threshold must be between 0 and 1")
	}
	if c.CoolDownFactor < 1 {
		return errors.New("config: cool-down factor must be at least 1")
	}
	if c.Memory.Backend != "redis" && c.Memory.Backend != "memory" {
		return errors.New("config: memory backend must be \"redis\" or \"memory\"")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
