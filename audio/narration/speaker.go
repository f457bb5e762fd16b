// Package narration converts story text into audible speech. Remote
// synthesis is preferred; on any remote failure the same text is
// re-synthesized with the host's local engine. Utterances never queue:
// a new Speak call cancels whatever the pipeline was doing.
package narration

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/lorekeep/lorekeep/audio"
)

// Events are the speaker's outbound notifications. All callbacks are
// optional and fire outside the speaker's lock.
type Events struct {
	// OnSpeakingChanged fires when utterance audio starts or stops.
	OnSpeakingChanged func(speaking bool)
	// OnFallback fires when remote synthesis failed and local synthesis
	// took over for the current utterance.
	OnFallback func(reason string)
	// OnError fires when an utterance could not be spoken at all.
	OnError func(err error)
}

// Option configures a Speaker.
type Option func(*Speaker)

// WithEvents sets the speaker's notification callbacks.
func WithEvents(ev Events) Option {
	return func(s *Speaker) {
		s.events = ev
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Speaker) {
		s.logger = logger
	}
}

// Speaker is the narration pipeline. All methods are safe for
// concurrent use.
type Speaker struct {
	output  audio.Output
	volumes audio.VolumeSource
	remote  Synthesizer
	local   Synthesizer
	cfg     audio.NarrationConfig
	logger  *log.Logger
	events  Events

	enabled  atomic.Bool
	speaking atomic.Bool

	mu        sync.Mutex
	sm        *stateMachine
	cancel    context.CancelFunc
	current   audio.Playback
	profileID string
	tuning    [3]float64 // rate, pitch, volume multipliers

	// generation identifies the newest utterance; synthesis results and
	// playback callbacks carrying an older generation are discarded.
	generation uint64
}

// New creates a Speaker. remote may be nil, in which case every
// utterance goes straight to local synthesis; local may be nil when the
// host has no synthesis capability.
func New(output audio.Output, volumes audio.VolumeSource, remote, local Synthesizer, cfg audio.NarrationConfig, opts ...Option) *Speaker {
	s := &Speaker{
		output:    output,
		volumes:   volumes,
		remote:    remote,
		local:     local,
		cfg:       cfg,
		logger:    log.Default(),
		sm:        newStateMachine(),
		profileID: DefaultProfileID,
		tuning:    [3]float64{1, 1, 1},
	}
	s.enabled.Store(cfg.Enabled)
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetEnabled flips the global narration switch. Disabling stops any
// active utterance.
func (s *Speaker) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
	if !enabled {
		s.StopSpeaking()
	}
}

// Enabled reports whether narration is globally enabled.
func (s *Speaker) Enabled() bool {
	return s.enabled.Load()
}

// SetProfile selects the persisted voice profile by ID. It takes effect
// on the next utterance.
func (s *Speaker) SetProfile(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileID = ProfileByID(id).ID
}

// Profile returns the persisted voice profile.
func (s *Speaker) Profile() VoiceProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ProfileByID(s.profileID)
}

// SetTuning applies the player's persisted rate/pitch/volume multipliers
// on top of whatever profile each utterance resolves to. 1.0 leaves a
// parameter untouched; non-positive values are ignored.
func (s *Speaker) SetTuning(rate, pitch, volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate > 0 {
		s.tuning[0] = rate
	}
	if pitch > 0 {
		s.tuning[1] = pitch
	}
	if volume > 0 {
		s.tuning[2] = volume
	}
}

// IsSpeaking reports whether utterance audio is currently playing.
func (s *Speaker) IsSpeaking() bool {
	return s.speaking.Load()
}

// State returns the pipeline's current state.
func (s *Speaker) State() StateType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.state()
}

// SpeakOption adjusts a single Speak call.
type SpeakOption func(*speakConfig)

type speakConfig struct {
	profile   *VoiceProfile
	dominance map[string]float64
}

// WithProfile overrides voice resolution for this utterance.
func WithProfile(p VoiceProfile) SpeakOption {
	return func(c *speakConfig) {
		c.profile = &p
	}
}

// WithDominance supplies the game-state emotional dominance map. The
// strongest aspect overrides the persisted voice when it clears the
// dominance threshold. Not sticky: the override lasts one utterance.
func WithDominance(d map[string]float64) SpeakOption {
	return func(c *speakConfig) {
		c.dominance = d
	}
}

// Speak narrates text, superseding any in-flight or playing utterance.
// It returns immediately; synthesis and playback proceed in the
// background. When narration is disabled it is a no-op.
func (s *Speaker) Speak(text string, opts ...SpeakOption) {
	if !s.enabled.Load() {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	var cfg speakConfig
	for _, o := range opts {
		o(&cfg)
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	old := s.current
	s.current = nil
	s.sm.reset()
	s.sm.transition(StateRequesting)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	profile := resolveProfile(cfg.profile, cfg.dominance, s.profileID)
	profile.Rate *= s.tuning[0]
	profile.Pitch *= s.tuning[1]
	profile.Volume *= s.tuning[2]
	changed := s.setSpeakingLocked(false)
	s.mu.Unlock()

	if old != nil {
		_ = old.Stop()
	}
	if changed {
		s.notifySpeaking(false)
	}

	go s.run(ctx, gen, text, profile)
}

// StopSpeaking cancels any pending synthesis and stops any playing
// utterance, returning the pipeline to idle.
func (s *Speaker) StopSpeaking() {
	s.mu.Lock()
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	old := s.current
	s.current = nil
	s.sm.reset()
	changed := s.setSpeakingLocked(false)
	s.mu.Unlock()

	if old != nil {
		_ = old.Stop()
	}
	if changed {
		s.notifySpeaking(false)
	}
}

// run drives one utterance: remote synthesis, fallback, playback.
func (s *Speaker) run(ctx context.Context, gen uint64, text string, profile VoiceProfile) {
	pcm, err := s.synthesizeRemote(ctx, text, profile)
	if s.superseded(gen) {
		return
	}

	if err != nil {
		s.logger.Warn("remote synthesis failed, using local voice",
			"profile", profile.ID, "error", err)

		s.mu.Lock()
		ok := gen == s.generation && s.sm.transition(StateFallback)
		s.mu.Unlock()
		if !ok {
			return
		}
		if s.events.OnFallback != nil {
			s.events.OnFallback(err.Error())
		}

		pcm, err = s.synthesizeLocal(ctx, text, profile)
		if s.superseded(gen) {
			return
		}
		if err != nil {
			s.fail(gen, err)
			return
		}
	}

	s.play(gen, pcm)
}

func (s *Speaker) synthesizeRemote(ctx context.Context, text string, profile VoiceProfile) (*audio.PCM, error) {
	if s.remote == nil {
		return nil, audio.ErrSynthesisFailed
	}

	rctx, rcancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
	defer rcancel()

	data, err := s.remote.Synthesize(rctx, text, profile)
	if err != nil {
		return nil, err
	}
	return audio.ParseWAV(data)
}

func (s *Speaker) synthesizeLocal(ctx context.Context, text string, profile VoiceProfile) (*audio.PCM, error) {
	if s.local == nil {
		return nil, audio.ErrNoVoiceAvailable
	}
	data, err := s.local.Synthesize(ctx, text, profile)
	if err != nil {
		return nil, err
	}
	return audio.ParseWAV(data)
}

func (s *Speaker) play(gen uint64, pcm *audio.PCM) {
	if pcm.Empty() {
		s.fail(gen, audio.ErrEmptySynthesis)
		return
	}

	pb, err := s.output.Play(pcm, audio.PlayOptions{
		Gain: s.volumes.EffectiveGain(audio.ChannelVoice),
		OnComplete: func() {
			s.finish(gen)
		},
		OnError: func(err error) {
			s.logger.Warn("narration playback error", "error", err)
			s.finish(gen)
		},
	})
	if err != nil {
		s.fail(gen, err)
		return
	}

	// The flag flips inside the generation check so a concurrent
	// StopSpeaking cannot be overwritten after it already cleared it.
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		_ = pb.Stop()
		return
	}
	s.current = pb
	s.sm.transition(StatePlaying)
	changed := s.setSpeakingLocked(true)
	s.mu.Unlock()

	if changed {
		s.notifySpeaking(true)
	}
}

// finish returns the pipeline to idle after playback ends.
func (s *Speaker) finish(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.sm.reset()
	changed := s.setSpeakingLocked(false)
	s.mu.Unlock()

	if changed {
		s.notifySpeaking(false)
	}
}

// fail abandons the current utterance. Every error path lands here so
// the speaking flag can never stick.
func (s *Speaker) fail(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.sm.reset()
	changed := s.setSpeakingLocked(false)
	s.mu.Unlock()

	if changed {
		s.notifySpeaking(false)
	}
	s.logger.Error("narration failed", "error", err)
	if s.events.OnError != nil {
		s.events.OnError(err)
	}
}

func (s *Speaker) superseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.generation
}

// setSpeakingLocked flips the speaking flag while s.mu is held, so the
// flag always agrees with the newest generation. It reports whether the
// value changed; callers fire OnSpeakingChanged after unlocking.
func (s *Speaker) setSpeakingLocked(speaking bool) bool {
	return s.speaking.Swap(speaking) != speaking
}

func (s *Speaker) notifySpeaking(speaking bool) {
	if s.events.OnSpeakingChanged != nil {
		s.events.OnSpeakingChanged(speaking)
	}
}
