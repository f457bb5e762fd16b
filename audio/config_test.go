package audio

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoadConfigFromReader(t *testing.T) {
	yml := `
sample_rate: 48000
backend:
  base_url: https://game.example.com
  session_id: abc123
music:
  fade_duration: 1s
narration:
  enabled: false
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadConfigFromReader() error = %v", err)
	}

	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.Backend.BaseURL != "https://game.example.com" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Music.FadeDuration != time.Second {
		t.Errorf("Music.FadeDuration = %v, want 1s", cfg.Music.FadeDuration)
	}
	if cfg.Narration.Enabled {
		t.Error("Narration.Enabled = true, want false")
	}
	// Untouched sections keep their defaults.
	if cfg.Music.RetryDelay != 3*time.Second {
		t.Errorf("Music.RetryDelay = %v, want 3s", cfg.Music.RetryDelay)
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	yml := "sample_rate: 44100\nloudness: 11\n"
	if _, err := LoadConfigFromReader(strings.NewReader(yml)); err == nil {
		t.Error("LoadConfigFromReader() accepted an unknown field")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LOREKEEP_BACKEND_URL", "http://override:9999")

	cfg, err := LoadConfigFromReader(strings.NewReader("backend:\n  base_url: http://file\n"))
	if err != nil {
		t.Fatalf("LoadConfigFromReader() error = %v", err)
	}
	if cfg.Backend.BaseURL != "http://override:9999" {
		t.Errorf("Backend.BaseURL = %q, want env override", cfg.Backend.BaseURL)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad sample rate", func(c *Config) { c.SampleRate = 8000 }},
		{"bad channels", func(c *Config) { c.Channels = 6 }},
		{"empty backend url", func(c *Config) { c.Backend.BaseURL = "" }},
		{"tiny backend timeout", func(c *Config) { c.Backend.Timeout = time.Millisecond }},
		{"negative fade", func(c *Config) { c.Music.FadeDuration = -time.Second }},
		{"huge fade", func(c *Config) { c.Music.FadeDuration = time.Minute }},
		{"zero retry delay", func(c *Config) { c.Music.RetryDelay = 0 }},
		{"tiny remote timeout", func(c *Config) { c.Narration.RemoteTimeout = time.Millisecond }},
		{"empty local binary", func(c *Config) { c.Narration.LocalBinary = "" }},
		{"zero max utterance", func(c *Config) { c.Capture.MaxUtterance = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
