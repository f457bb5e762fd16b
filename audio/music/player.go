// Package music implements the mood background-music player. Each mood
// maps to a catalog of tracks; the player rotates through a mood's
// catalog without repeats until every track has played, switches moods
// with a fade, and advances automatically when a track ends.
package music

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lorekeep/lorekeep/audio"
)

// TrackLoader retrieves raw track bytes by manifest path. The backend
// client implements it.
type TrackLoader interface {
	LoadAsset(ctx context.Context, path string) ([]byte, error)
}

// Events are the player's outbound notifications. All callbacks are
// optional and fire outside the player's lock.
type Events struct {
	// OnTrackChanged fires when a new track starts.
	OnTrackChanged func(mood, path string, index int)
	// OnStopped fires when playback ends without a successor track.
	// Reason is "user" or "error".
	OnStopped func(reason string)
	// OnError fires for recoverable load and playback failures.
	OnError func(err error)
}

// fadeSteps is the number of gain adjustments per fade.
const fadeSteps = 20

// Option configures a Player.
type Option func(*Player)

// WithEvents sets the player's notification callbacks.
func WithEvents(ev Events) Option {
	return func(p *Player) {
		p.events = ev
	}
}

// WithRand replaces the track-selection randomness source. Tests use a
// seeded source for reproducible rotations.
func WithRand(rng *rand.Rand) Option {
	return func(p *Player) {
		p.rng = rng
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Player) {
		p.logger = logger
	}
}

// Player plays mood background music. All methods are safe for
// concurrent use.
type Player struct {
	output  audio.Output
	volumes audio.VolumeSource
	loader  TrackLoader
	cfg     audio.MusicConfig
	logger  *log.Logger
	events  Events
	rng     *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	sm          *stateMachine
	manifest    map[string][]string
	mood        string
	rot         *rotation
	current     audio.Playback
	currentPath string
	paused      bool

	// generation invalidates in-flight loads and completion callbacks
	// from before the most recent mood switch, skip, or stop.
	generation uint64
}

// New creates a Player over the given output. The manifest is empty
// until SetManifest is called.
func New(output audio.Output, volumes audio.VolumeSource, loader TrackLoader, cfg audio.MusicConfig, opts ...Option) *Player {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		output:  output,
		volumes: volumes,
		loader:  loader,
		cfg:     cfg,
		logger:  log.Default(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		ctx:     ctx,
		cancel:  cancel,
		sm:      newStateMachine(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SetManifest installs the mood→tracks catalog, typically fetched from
// the backend at startup. It does not interrupt current playback.
func (p *Player) SetManifest(manifest map[string][]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.manifest = manifest
}

// State returns the player's current state.
func (p *Player) State() StateType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sm.state()
}

// Mood returns the mood currently playing, or "" when idle or stopped.
func (p *Player) Mood() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sm.state() == StatePlaying || p.sm.state() == StateSwitching {
		return p.mood
	}
	return ""
}

// CurrentTrack returns the manifest path of the playing track, or "".
func (p *Player) CurrentTrack() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentPath
}

// PlayMood starts (or switches to) the named mood. Requesting the mood
// that is already playing is a no-op. A mood switch fades the current
// track out over the configured fade duration before the first track of
// the new mood starts.
func (p *Player) PlayMood(mood string) error {
	p.mu.Lock()

	catalog, ok := p.manifest[mood]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %q", audio.ErrUnknownMood, mood)
	}
	if len(catalog) == 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: mood %q", audio.ErrEmptyCatalog, mood)
	}

	if p.mood == mood && (p.sm.state() == StatePlaying || p.sm.state() == StateSwitching) {
		p.mu.Unlock()
		return nil
	}

	p.generation++
	gen := p.generation
	p.mood = mood
	p.rot = newRotation(catalog, p.rng)

	old := p.current
	p.current = nil
	p.currentPath = ""
	p.paused = false

	switching := old != nil && p.sm.state() == StatePlaying
	if switching {
		p.sm.transition(StateSwitching)
	}
	p.mu.Unlock()

	go func() {
		if switching {
			p.fadeOut(old)
			p.mu.Lock()
			if gen != p.generation {
				p.mu.Unlock()
				return
			}
			p.sm.transition(StatePlaying)
			p.mu.Unlock()
		} else {
			p.mu.Lock()
			if gen != p.generation {
				p.mu.Unlock()
				return
			}
			p.sm.transition(StatePlaying)
			p.mu.Unlock()
		}
		p.startNext(gen, switching)
	}()
	return nil
}

// Skip ends the current track and advances the rotation immediately.
func (p *Player) Skip() error {
	p.mu.Lock()
	if p.sm.state() != StatePlaying {
		p.mu.Unlock()
		return audio.ErrNotPlaying
	}
	gen := p.generation
	old := p.current
	p.current = nil
	p.currentPath = ""
	p.paused = false
	p.mu.Unlock()

	if old != nil {
		_ = old.Stop()
	}
	go p.startNext(gen, false)
	return nil
}

// Pause suspends the current track, keeping its position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.paused {
		return audio.ErrNotPlaying
	}
	if err := p.current.Pause(); err != nil {
		return err
	}
	p.paused = true
	return nil
}

// Resume continues a paused track. When the mood is active but no
// track is loaded, Resume selects a fresh one instead.
func (p *Player) Resume() error {
	p.mu.Lock()
	if p.current == nil {
		if p.sm.state() == StatePlaying && p.rot != nil {
			gen := p.generation
			p.mu.Unlock()
			go p.startNext(gen, false)
			return nil
		}
		p.mu.Unlock()
		return audio.ErrNotPaused
	}
	defer p.mu.Unlock()
	if !p.paused {
		return audio.ErrNotPaused
	}
	if err := p.current.Resume(); err != nil {
		return err
	}
	p.paused = false
	return nil
}

// Stop ends playback. The rotation state for the mood is discarded; the
// next PlayMood starts a fresh cycle.
func (p *Player) Stop() {
	p.stop("user")
}

func (p *Player) stop(reason string) {
	p.mu.Lock()
	p.generation++
	old := p.current
	p.current = nil
	p.currentPath = ""
	p.mood = ""
	p.rot = nil
	p.paused = false
	stopped := p.sm.transition(StateStopped)
	p.mu.Unlock()

	if old != nil {
		_ = old.Stop()
	}
	if stopped && p.events.OnStopped != nil {
		p.events.OnStopped(reason)
	}
}

// ApplyGain re-reads the music channel gain and applies it to the
// current track. Called when the player's volume settings change.
func (p *Player) ApplyGain() {
	p.mu.Lock()
	pb := p.current
	p.mu.Unlock()
	if pb == nil {
		return
	}
	if err := pb.SetGain(p.volumes.EffectiveGain(audio.ChannelMusic)); err != nil {
		p.logger.Debug("music gain update failed", "error", err)
	}
}

// Close stops playback and releases the player.
func (p *Player) Close() {
	p.cancel()
	p.stop("user")
}

// startNext loads and starts the next track of the rotation. Load
// failures sideline the track for the current cycle and retry after the
// configured delay; playback stops only when every track failed.
func (p *Player) startNext(gen uint64, fadeIn bool) {
	for {
		p.mu.Lock()
		if gen != p.generation || p.rot == nil {
			p.mu.Unlock()
			return
		}
		track, idx, ok := p.rot.next()
		mood := p.mood
		if !ok {
			p.mu.Unlock()
			p.logger.Warn("music catalog exhausted", "mood", mood)
			p.stop("error")
			return
		}
		p.mu.Unlock()

		pcm, err := p.loadTrack(track)
		if err != nil {
			p.logger.Warn("music track failed to load, excluding it",
				"mood", mood, "track", track, "error", err)
			if p.events.OnError != nil {
				p.events.OnError(err)
			}
			p.mu.Lock()
			if gen == p.generation && p.rot != nil {
				p.rot.exclude(track)
			}
			p.mu.Unlock()

			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.cfg.RetryDelay):
			}
			continue
		}

		target := p.volumes.EffectiveGain(audio.ChannelMusic)
		initial := target
		if fadeIn {
			initial = 0
		}

		pb, err := p.output.Play(pcm, audio.PlayOptions{
			Gain: initial,
			OnComplete: func() {
				p.onTrackComplete(gen)
			},
			OnError: func(err error) {
				p.logger.Warn("music playback error", "track", track, "error", err)
				if p.events.OnError != nil {
					p.events.OnError(err)
				}
				p.onTrackComplete(gen)
			},
		})
		if err != nil {
			p.logger.Error("music playback failed to start", "track", track, "error", err)
			p.stop("error")
			return
		}

		p.mu.Lock()
		if gen != p.generation {
			p.mu.Unlock()
			_ = pb.Stop()
			return
		}
		p.current = pb
		p.currentPath = track
		p.mu.Unlock()

		if p.events.OnTrackChanged != nil {
			p.events.OnTrackChanged(mood, track, idx)
		}
		if fadeIn {
			p.fadeIn(pb, target)
		}
		return
	}
}

// onTrackComplete advances the rotation after a natural track end.
func (p *Player) onTrackComplete(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.sm.state() != StatePlaying {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.currentPath = ""
	p.mu.Unlock()

	go p.startNext(gen, false)
}

func (p *Player) loadTrack(path string) (*audio.PCM, error) {
	ctx, cancel := context.WithTimeout(p.ctx, 30*time.Second)
	defer cancel()

	data, err := p.loader.LoadAsset(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrAssetLoadFailed, err)
	}
	pcm, err := audio.ParseWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return pcm, nil
}

// fadeOut steps the playback gain to zero over the fade duration, then
// stops it. A zero fade duration stops immediately.
func (p *Player) fadeOut(pb audio.Playback) {
	if p.cfg.FadeDuration <= 0 {
		_ = pb.Stop()
		return
	}

	start := p.volumes.EffectiveGain(audio.ChannelMusic)
	step := p.cfg.FadeDuration / fadeSteps
	for i := fadeSteps - 1; i >= 0; i-- {
		select {
		case <-p.ctx.Done():
			_ = pb.Stop()
			return
		case <-time.After(step):
		}
		if err := pb.SetGain(start * float64(i) / fadeSteps); err != nil {
			break
		}
	}
	_ = pb.Stop()
}

// fadeIn steps the playback gain from zero to target over the fade
// duration.
func (p *Player) fadeIn(pb audio.Playback, target float64) {
	if p.cfg.FadeDuration <= 0 {
		_ = pb.SetGain(target)
		return
	}

	step := p.cfg.FadeDuration / fadeSteps
	for i := 1; i <= fadeSteps; i++ {
		select {
		case <-p.ctx.Done():
			return
		case <-time.After(step):
		}
		if err := pb.SetGain(target * float64(i) / fadeSteps); err != nil {
			return
		}
	}
}
