// Package engine assembles the audio subsystem: the channel volume
// store, host output device, backend client, and the four channel
// services (sound effects, mood music, narration, voice capture). The
// embedding Bubble Tea application owns one Engine per process and
// drains its message stream via Events.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/lorekeep/lorekeep/audio"
	"github.com/lorekeep/lorekeep/audio/capture"
	"github.com/lorekeep/lorekeep/audio/mixer"
	"github.com/lorekeep/lorekeep/audio/music"
	"github.com/lorekeep/lorekeep/audio/narration"
	"github.com/lorekeep/lorekeep/audio/output"
	"github.com/lorekeep/lorekeep/audio/sfx"
	"github.com/lorekeep/lorekeep/internal/backend"
	"github.com/lorekeep/lorekeep/internal/cache"
	"github.com/lorekeep/lorekeep/internal/settings"
)

// msgBuffer bounds the engine's message queue. Messages beyond it are
// dropped rather than blocking an audio callback.
const msgBuffer = 64

// assetCacheBytes bounds the in-memory cache of downloaded tracks and
// effects.
const assetCacheBytes = 64 << 20

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger   *log.Logger
	output   audio.Output
	settings *settings.Store
	client   *backend.Client
	recog    capture.Recognizer
	local    narration.Synthesizer
	cacheDir string
	cacheSet bool
}

// WithLogger sets the logger shared by the engine's services.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithOutput replaces the host audio device. Tests inject a mock.
func WithOutput(out audio.Output) Option {
	return func(o *options) { o.output = out }
}

// WithSettings replaces the persisted settings store.
func WithSettings(st *settings.Store) Option {
	return func(o *options) { o.settings = st }
}

// WithBackendClient replaces the backend client.
func WithBackendClient(c *backend.Client) Option {
	return func(o *options) { o.client = c }
}

// WithRecognizer replaces the speech recognizer.
func WithRecognizer(r capture.Recognizer) Option {
	return func(o *options) { o.recog = r }
}

// WithLocalSynthesizer replaces the host-local fallback synthesizer.
func WithLocalSynthesizer(s narration.Synthesizer) Option {
	return func(o *options) { o.local = s }
}

// WithCacheDir overrides the narration cache location. An empty string
// disables the cache.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
		o.cacheSet = true
	}
}

// Engine is the audio subsystem facade. One instance per process.
type Engine struct {
	cfg      audio.Config
	logger   *log.Logger
	volumes  *mixer.Store
	out      audio.Output
	client   *backend.Client
	settings *settings.Store

	// SFX, Music, Narration and Capture are the channel services. They
	// are exported for direct use; construction and cross-wiring stay
	// inside New.
	SFX       *sfx.Library
	Music     *music.Player
	Narration *narration.Speaker
	Capture   *capture.Service

	msgs       chan tea.Msg
	unlockOnce sync.Once
	closeOnce  sync.Once
}

// New builds the engine. Volumes, mute, the narration flag, and voice
// selection are restored from the settings store before any service
// starts.
func New(cfg audio.Config, opts ...Option) (*Engine, error) {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.settings == nil {
		st, err := settings.New(o.logger)
		if err != nil {
			return nil, err
		}
		o.settings = st
	}
	if o.client == nil {
		c, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.SessionID,
			backend.WithTimeout(cfg.Backend.Timeout),
			backend.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		o.client = c
	}
	if o.output == nil {
		ocfg := output.DefaultConfig()
		ocfg.SampleRate = cfg.SampleRate
		ocfg.Channels = cfg.Channels
		dev, err := output.NewDevice(ocfg)
		if err != nil {
			return nil, fmt.Errorf("engine: open audio device: %w", err)
		}
		o.output = dev
	}

	e := &Engine{
		cfg:      cfg,
		logger:   o.logger,
		volumes:  mixer.New(),
		out:      o.output,
		client:   o.client,
		settings: o.settings,
		msgs:     make(chan tea.Msg, msgBuffer),
	}

	e.restoreVolumes()

	assets := cache.NewLoader(e.client, cache.NewMemory(assetCacheBytes))

	e.SFX = sfx.New(e.out, e.volumes, assets, nil, o.logger)

	e.Music = music.New(e.out, e.volumes, assets, cfg.Music,
		music.WithLogger(o.logger),
		music.WithEvents(music.Events{
			OnTrackChanged: func(mood, path string, index int) {
				e.emit(audio.TrackChangedMsg{Mood: mood, Path: path, Index: index})
			},
			OnStopped: func(reason string) {
				e.emit(audio.MusicStoppedMsg{Reason: reason})
			},
			OnError: func(err error) {
				e.emit(audio.AudioErrorMsg{Component: "music", Err: err})
			},
		}))

	local := o.local
	if local == nil {
		l := narration.NewLocal(cfg.Narration.LocalBinary,
			e.settings.String(settings.KeyLocalVoice, cfg.Narration.LocalVoice))
		if l.Available() {
			local = l
		} else {
			o.logger.Warn("local speech synthesis unavailable",
				"binary", cfg.Narration.LocalBinary)
		}
	}

	var remote narration.Synthesizer = narration.NewRemote(e.client)
	if dir := narrationCacheDir(o); dir != "" {
		if disk, err := cache.NewDisk(dir); err == nil {
			remote = narration.NewCached(remote, disk)
		} else {
			o.logger.Debug("narration cache disabled", "error", err)
		}
	}

	ncfg := cfg.Narration
	ncfg.Enabled = e.settings.Bool(settings.KeyNarrationEnabled, cfg.Narration.Enabled)
	e.Narration = narration.New(e.out, e.volumes, remote, local, ncfg,
		narration.WithLogger(o.logger),
		narration.WithEvents(narration.Events{
			OnSpeakingChanged: func(speaking bool) {
				e.emit(audio.SpeakingChangedMsg{Speaking: speaking})
			},
			OnFallback: func(reason string) {
				e.emit(audio.NarrationFallbackMsg{Reason: reason})
			},
			OnError: func(err error) {
				e.emit(audio.AudioErrorMsg{Component: "narration", Err: err})
			},
		}))
	e.Narration.SetProfile(e.settings.String(settings.KeyVoiceProfile, narration.DefaultProfileID))
	e.Narration.SetTuning(
		e.settings.Float(settings.KeyVoiceRate, 1.0),
		e.settings.Float(settings.KeyVoicePitch, 1.0),
		e.settings.Float(settings.KeyVoiceVolume, 1.0),
	)

	recog := o.recog
	if recog == nil {
		recog = capture.NewCommand(cfg.Capture.Binary)
	}
	e.Capture = capture.New(recog, cfg.Capture,
		capture.WithLogger(o.logger),
		capture.WithEvents(capture.Events{
			OnTranscript: func(text string, at time.Time) {
				e.emit(audio.TranscriptMsg{Text: text, CapturedAt: at})
			},
			OnListeningChanged: func(listening bool) {
				e.emit(audio.ListeningChangedMsg{Listening: listening})
			},
			OnError: func(err error) {
				e.emit(audio.CaptureErrorMsg{Err: err})
			},
		}))

	// Volume changes reach playing music without a restart.
	e.volumes.Subscribe(func(mixer.Snapshot) {
		e.Music.ApplyGain()
	})

	return e, nil
}

// narrationCacheDir resolves where synthesized utterances are cached.
func narrationCacheDir(o options) string {
	if o.cacheSet {
		return o.cacheDir
	}
	dir, err := gap.NewScope(gap.User, "lorekeep").CacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "narration")
}

// restoreVolumes loads persisted channel volumes and the mute flag.
func (e *Engine) restoreVolumes() {
	for _, ch := range audio.Channels {
		e.volumes.SetVolume(ch, e.settings.Float(settings.VolumeKey(string(ch)), 1.0))
	}
	e.volumes.SetMuted(e.settings.Bool(settings.KeyMuted, false))
}

// Start fetches the music manifest and hands it to the music player.
// A manifest failure leaves music idle; everything else still works.
func (e *Engine) Start(ctx context.Context) error {
	manifest, err := e.client.FetchManifest(ctx)
	if err != nil {
		e.logger.Warn("music manifest unavailable", "error", err)
		return fmt.Errorf("engine: fetch manifest: %w", err)
	}
	e.Music.SetManifest(manifest)
	return nil
}

// PreloadEffects loads the named sound effects. Failures degrade the
// affected effects to tones; see the sfx package.
func (e *Engine) PreloadEffects(ctx context.Context, sources map[string][]string) {
	e.SFX.Preload(ctx, sources)
}

// Unlock plays an inaudible buffer to resume a suspended host audio
// context. The embedding UI calls it on the first user interaction; only
// the first call does anything.
func (e *Engine) Unlock() {
	e.unlockOnce.Do(func() {
		if _, err := e.out.Play(audio.Silence(0.05), audio.PlayOptions{Gain: 0}); err != nil {
			e.logger.Debug("audio unlock failed", "error", err)
		}
	})
}

// Volumes exposes the channel volume store for read access.
func (e *Engine) Volumes() audio.VolumeSource {
	return e.volumes
}

// Volume returns the stored (not composed) value for a channel.
func (e *Engine) Volume(ch audio.Channel) float64 {
	return e.volumes.Volume(ch)
}

// Muted returns the global mute flag.
func (e *Engine) Muted() bool {
	return e.volumes.Muted()
}

// SetVolume stores a channel volume, persists it, and mirrors it to the
// backend best-effort.
func (e *Engine) SetVolume(ch audio.Channel, value float64) {
	if !ch.Valid() {
		return
	}
	value = audio.ClampGain(value)
	e.volumes.SetVolume(ch, value)
	e.settings.Set(settings.VolumeKey(string(ch)), value)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Backend.Timeout)
		defer cancel()
		_ = e.client.SyncVolume(ctx, string(ch), value)
	}()

	e.emit(audio.VolumeChangedMsg{Channel: ch, Value: value})
}

// ToggleMute flips the global mute flag, persists it, and mirrors it to
// the backend best-effort.
func (e *Engine) ToggleMute() bool {
	muted := e.volumes.ToggleMute()
	e.settings.Set(settings.KeyMuted, muted)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Backend.Timeout)
		defer cancel()
		_ = e.client.SyncMute(ctx)
	}()

	e.emit(audio.MuteChangedMsg{Muted: muted})
	return muted
}

// SetNarrationEnabled flips and persists the narration switch.
func (e *Engine) SetNarrationEnabled(enabled bool) {
	e.Narration.SetEnabled(enabled)
	e.settings.Set(settings.KeyNarrationEnabled, enabled)
}

// SetVoiceProfile selects and persists the narration voice.
func (e *Engine) SetVoiceProfile(id string) {
	e.Narration.SetProfile(id)
	e.settings.Set(settings.KeyVoiceProfile, e.Narration.Profile().ID)
}

// Events returns a tea.Cmd that delivers the next engine message. The
// UI re-issues it from Update after every received message.
func (e *Engine) Events() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-e.msgs
		if !ok {
			return nil
		}
		return msg
	}
}

// Close shuts the engine down: narration and capture are cancelled,
// music stops, and the output device is released.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.Narration.StopSpeaking()
		e.Capture.Stop()
		e.Music.Close()
		err = e.out.Close()
		close(e.msgs)
	})
	return err
}

// emit queues a message for the UI, dropping it if the queue is full.
func (e *Engine) emit(msg tea.Msg) {
	select {
	case e.msgs <- msg:
	default:
		e.logger.Debug("engine message dropped", "msg", fmt.Sprintf("%T", msg))
	}
}
