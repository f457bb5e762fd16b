// Package settings persists the player's audio preferences across
// sessions: per-channel volumes, the mute flag, the narration-enabled
// flag, and voice selection. Every value is an independent scalar, so
// writes are idempotent and need no transactional handling.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// Keys for the persisted scalars.
const (
	KeyNarrationEnabled = "narration.enabled"
	KeyMuted            = "audio.muted"
	KeyVoiceProfile     = "voice.profile"
	KeyLocalVoice       = "voice.local_name"
	KeyVoiceRate        = "voice.rate"
	KeyVoicePitch       = "voice.pitch"
	KeyVoiceVolume      = "voice.volume"
)

// VolumeKey returns the settings key for a channel volume.
func VolumeKey(channel string) string {
	return "volume." + channel
}

// Store is a viper-backed key→value store. Reads hit memory; every Set
// schedules a best-effort write of the whole file. Write failures are
// logged, never surfaced; the in-memory value stays authoritative for
// the rest of the session.
type Store struct {
	mu     sync.Mutex
	v      *viper.Viper
	path   string
	logger *log.Logger
}

// New opens the settings file in the user scope for the application,
// creating the directory if needed.
func New(logger *log.Logger) (*Store, error) {
	scope := gap.NewScope(gap.User, "lorekeep")
	path, err := scope.ConfigPath("audio.yml")
	if err != nil {
		return nil, fmt.Errorf("settings: resolve config path: %w", err)
	}
	return NewAtPath(path, logger)
}

// NewAtPath opens the settings file at an explicit path. Used by tests.
func NewAtPath(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("settings: create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault(KeyNarrationEnabled, true)
	v.SetDefault(KeyMuted, false)
	v.SetDefault(KeyVoiceRate, 1.0)
	v.SetDefault(KeyVoicePitch, 1.0)
	v.SetDefault(KeyVoiceVolume, 1.0)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is the first-run case; anything else is worth a
		// warning but not fatal, since defaults carry the session.
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				logger.Warn("settings file unreadable, using defaults", "path", path, "error", err)
			}
		}
	}

	return &Store{v: v, path: path, logger: logger}, nil
}

// Bool returns the boolean at key, or def when unset.
func (s *Store) Bool(key string, def bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetBool(key)
}

// Float returns the float at key, or def when unset.
func (s *Store) Float(key string, def float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetFloat64(key)
}

// String returns the string at key, or def when unset.
func (s *Store) String(key string, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetString(key)
}

// Set stores value under key and flushes to disk best-effort.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, value)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		s.logger.Warn("failed to persist setting", "key", key, "error", err)
	}
}
