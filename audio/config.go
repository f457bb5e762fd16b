package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config contains all audio engine configuration options.
type Config struct {
	// Output settings
	SampleRate int `yaml:"sample_rate" env:"LOREKEEP_AUDIO_SAMPLE_RATE" envDefault:"44100"`
	Channels   int `yaml:"channels" env:"LOREKEEP_AUDIO_CHANNELS" envDefault:"1"`

	Backend   BackendConfig   `yaml:"backend"`
	Music     MusicConfig     `yaml:"music"`
	Narration NarrationConfig `yaml:"narration"`
	Capture   CaptureConfig   `yaml:"capture"`
}

// BackendConfig addresses the game backend used for the music manifest,
// remote speech synthesis, and best-effort volume mirroring.
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url" env:"LOREKEEP_BACKEND_URL" envDefault:"http://localhost:8080"`
	SessionID string        `yaml:"session_id" env:"LOREKEEP_SESSION_ID"`
	Timeout   time.Duration `yaml:"timeout" env:"LOREKEEP_BACKEND_TIMEOUT" envDefault:"10s"`
}

// MusicConfig tunes the mood music player.
type MusicConfig struct {
	FadeDuration time.Duration `yaml:"fade_duration" env:"LOREKEEP_MUSIC_FADE" envDefault:"2s"`
	RetryDelay   time.Duration `yaml:"retry_delay" env:"LOREKEEP_MUSIC_RETRY_DELAY" envDefault:"3s"`
}

// NarrationConfig tunes the narration pipeline.
type NarrationConfig struct {
	Enabled       bool          `yaml:"enabled" env:"LOREKEEP_NARRATION_ENABLED" envDefault:"true"`
	RemoteTimeout time.Duration `yaml:"remote_timeout" env:"LOREKEEP_NARRATION_TIMEOUT" envDefault:"15s"`

	// LocalBinary is the host synthesis command used when the remote
	// service is unavailable.
	LocalBinary string `yaml:"local_binary" env:"LOREKEEP_NARRATION_LOCAL_BINARY" envDefault:"espeak-ng"`
	// LocalVoice is the preferred host voice name; first available wins
	// when it does not match.
	LocalVoice string `yaml:"local_voice" env:"LOREKEEP_NARRATION_LOCAL_VOICE"`
}

// CaptureConfig tunes the voice capture pipeline.
type CaptureConfig struct {
	// Binary is the host speech-to-text command; it must print the
	// transcript to stdout. Empty disables capture.
	Binary string `yaml:"binary" env:"LOREKEEP_CAPTURE_BINARY"`
	// MaxUtterance bounds a single listen before capture gives up.
	MaxUtterance time.Duration `yaml:"max_utterance" env:"LOREKEEP_CAPTURE_MAX_UTTERANCE" envDefault:"30s"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		Backend: BackendConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Music: MusicConfig{
			FadeDuration: 2 * time.Second,
			RetryDelay:   3 * time.Second,
		},
		Narration: NarrationConfig{
			Enabled:       true,
			RemoteTimeout: 15 * time.Second,
			LocalBinary:   "espeak-ng",
		},
		Capture: CaptureConfig{
			MaxUtterance: 30 * time.Second,
		},
	}
}

// LoadConfig reads the YAML configuration at path, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()
	return LoadConfigFromReader(f)
}

// LoadConfigFromReader decodes a YAML config from r. Useful in tests
// where configs are constructed from string literals.
func LoadConfigFromReader(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.SampleRate != 44100 && c.SampleRate != 48000 {
		return fmt.Errorf("%w: sample rate must be 44100 or 48000 Hz, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: channels must be 1 or 2, got %d", ErrInvalidConfig, c.Channels)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("%w: backend base_url must not be empty", ErrInvalidConfig)
	}
	if c.Backend.Timeout < time.Second {
		return fmt.Errorf("%w: backend timeout must be at least 1s, got %v", ErrInvalidConfig, c.Backend.Timeout)
	}
	if c.Music.FadeDuration < 0 || c.Music.FadeDuration > 10*time.Second {
		return fmt.Errorf("%w: music fade_duration must be within [0s, 10s], got %v", ErrInvalidConfig, c.Music.FadeDuration)
	}
	if c.Music.RetryDelay <= 0 {
		return fmt.Errorf("%w: music retry_delay must be positive, got %v", ErrInvalidConfig, c.Music.RetryDelay)
	}
	if c.Narration.RemoteTimeout < time.Second {
		return fmt.Errorf("%w: narration remote_timeout must be at least 1s, got %v", ErrInvalidConfig, c.Narration.RemoteTimeout)
	}
	if c.Narration.LocalBinary == "" {
		return fmt.Errorf("%w: narration local_binary must not be empty", ErrInvalidConfig)
	}
	if c.Capture.MaxUtterance <= 0 {
		return fmt.Errorf("%w: capture max_utterance must be positive, got %v", ErrInvalidConfig, c.Capture.MaxUtterance)
	}
	return nil
}
