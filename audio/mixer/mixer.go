// Package mixer implements the channel volume store: per-channel gain
// plus a single global mute flag. It is pure state with no I/O; the
// engine subscribes to it to mirror changes to the backend and to the
// persisted settings.
package mixer

import (
	"sync"

	"github.com/lorekeep/lorekeep/audio"
)

// Snapshot is a value copy of the store state, safe to hand to
// subscribers without sharing mutable state.
type Snapshot struct {
	Volumes map[audio.Channel]float64
	Muted   bool
}

// Store holds per-channel gain and the global mute flag. The zero value
// is not usable; construct with New.
type Store struct {
	mu      sync.RWMutex
	volumes map[audio.Channel]float64
	muted   bool
	subs    []func(Snapshot)
}

// New creates a store with every channel at full volume and mute off.
func New() *Store {
	s := &Store{
		volumes: make(map[audio.Channel]float64, len(audio.Channels)),
	}
	for _, ch := range audio.Channels {
		s.volumes[ch] = 1.0
	}
	return s
}

// SetVolume clamps value to [0, 1] and stores it for the channel.
// Unknown channels are ignored.
func (s *Store) SetVolume(ch audio.Channel, value float64) {
	if !ch.Valid() {
		return
	}
	value = audio.ClampGain(value)

	s.mu.Lock()
	s.volumes[ch] = value
	snap := s.snapshotLocked()
	subs := s.subs
	s.mu.Unlock()

	notify(subs, snap)
}

// Volume returns the stored (not composed) value for the channel.
func (s *Store) Volume(ch audio.Channel) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volumes[ch]
}

// ToggleMute flips the global mute flag and returns the new value.
func (s *Store) ToggleMute() bool {
	s.mu.Lock()
	s.muted = !s.muted
	muted := s.muted
	snap := s.snapshotLocked()
	subs := s.subs
	s.mu.Unlock()

	notify(subs, snap)
	return muted
}

// SetMuted sets the global mute flag.
func (s *Store) SetMuted(muted bool) {
	s.mu.Lock()
	if s.muted == muted {
		s.mu.Unlock()
		return
	}
	s.muted = muted
	snap := s.snapshotLocked()
	subs := s.subs
	s.mu.Unlock()

	notify(subs, snap)
}

// Muted returns the global mute flag.
func (s *Store) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// EffectiveGain returns channel * master, or 0 when muted. The master
// channel composes with itself to plain master gain.
func (s *Store) EffectiveGain(ch audio.Channel) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.muted {
		return 0
	}
	master := s.volumes[audio.ChannelMaster]
	if ch == audio.ChannelMaster {
		return master
	}
	return s.volumes[ch] * master
}

// Snapshot returns a value copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called after every state change. The
// callback runs on the mutating goroutine and must not call back into
// the store.
func (s *Store) Subscribe(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) snapshotLocked() Snapshot {
	vols := make(map[audio.Channel]float64, len(s.volumes))
	for ch, v := range s.volumes {
		vols[ch] = v
	}
	return Snapshot{Volumes: vols, Muted: s.muted}
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

// Ensure Store satisfies the gain interface the channel managers use.
var _ audio.VolumeSource = (*Store)(nil)
