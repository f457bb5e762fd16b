package settings

import (
	"path/filepath"
	"testing"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.yml")
	s, err := NewAtPath(path, nil)
	if err != nil {
		t.Fatalf("NewAtPath() error = %v", err)
	}

	if !s.Bool(KeyNarrationEnabled, true) {
		t.Error("narration default = false, want true")
	}
	if s.Bool(KeyMuted, false) {
		t.Error("muted default = true, want false")
	}
	if got := s.Float(KeyVoiceRate, 1.0); got != 1.0 {
		t.Errorf("rate default = %v, want 1.0", got)
	}
	if got := s.Float(VolumeKey("music"), 1.0); got != 1.0 {
		t.Errorf("unset volume = %v, want caller default 1.0", got)
	}
	if got := s.String(KeyVoiceProfile, "narrator"); got != "narrator" {
		t.Errorf("unset profile = %q, want caller default", got)
	}
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.yml")

	s, err := NewAtPath(path, nil)
	if err != nil {
		t.Fatalf("NewAtPath() error = %v", err)
	}
	s.Set(VolumeKey("music"), 0.35)
	s.Set(KeyMuted, true)
	s.Set(KeyVoiceProfile, "sage")
	s.Set(KeyNarrationEnabled, false)

	reopened, err := NewAtPath(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}

	if got := reopened.Float(VolumeKey("music"), 1.0); got != 0.35 {
		t.Errorf("music volume = %v, want 0.35", got)
	}
	if !reopened.Bool(KeyMuted, false) {
		t.Error("muted = false, want true")
	}
	if got := reopened.String(KeyVoiceProfile, ""); got != "sage" {
		t.Errorf("profile = %q, want sage", got)
	}
	if reopened.Bool(KeyNarrationEnabled, true) {
		t.Error("narration = true, want false")
	}
}

func TestVolumeKey(t *testing.T) {
	if got := VolumeKey("master"); got != "volume.master" {
		t.Errorf("VolumeKey(master) = %q", got)
	}
}

func TestNewAtPathCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "audio.yml")
	if _, err := NewAtPath(path, nil); err != nil {
		t.Fatalf("NewAtPath() error = %v", err)
	}
}
