// Package sfx implements the one-shot sound-effect library. Effects are
// preloaded once at startup; an effect whose asset cannot be retrieved
// degrades to a synthesized tone with the same fire-and-forget Play
// contract, so callers never see the difference.
package sfx

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lorekeep/lorekeep/audio"
)

// AssetLoader retrieves raw effect bytes by source path. The backend
// client implements it; tests inject a map-backed fake.
type AssetLoader interface {
	LoadAsset(ctx context.Context, path string) ([]byte, error)
}

// preloadConcurrency bounds parallel asset fetches during Preload.
const preloadConcurrency = 4

// Library holds decoded effects keyed by name.
type Library struct {
	output  audio.Output
	volumes audio.VolumeSource
	loader  AssetLoader
	tones   map[string]ToneSpec
	logger  *log.Logger

	mu      sync.RWMutex
	effects map[string]*audio.PCM
}

// New creates a Library. The tone table may be nil, in which case the
// default table is used.
func New(output audio.Output, volumes audio.VolumeSource, loader AssetLoader, tones map[string]ToneSpec, logger *log.Logger) *Library {
	if tones == nil {
		tones = DefaultToneTable()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Library{
		output:  output,
		volumes: volumes,
		loader:  loader,
		tones:   tones,
		logger:  logger,
		effects: make(map[string]*audio.PCM),
	}
}

// Preload attempts to load each named effect exactly once. For every
// effect the first source that loads and decodes wins. Per-effect
// failure is recorded and logged, never fatal: Play substitutes a tone
// for the missing effect.
func (l *Library) Preload(ctx context.Context, sources map[string][]string) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)

	for name, paths := range sources {
		g.Go(func() error {
			pcm, err := l.loadFirst(ctx, paths)
			if err != nil {
				l.logger.Warn("sound effect unavailable, will use tone fallback",
					"effect", name, "error", err)
				return nil
			}
			l.mu.Lock()
			l.effects[name] = pcm
			l.mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; ctx cancellation just cuts the work short.
	_ = g.Wait()
}

func (l *Library) loadFirst(ctx context.Context, paths []string) (*audio.PCM, error) {
	if len(paths) == 0 {
		return nil, audio.ErrAssetNotFound
	}
	var lastErr error
	for _, path := range paths {
		data, err := l.loader.LoadAsset(ctx, path)
		if err != nil {
			lastErr = err
			continue
		}
		pcm, err := audio.ParseWAV(data)
		if err != nil {
			lastErr = fmt.Errorf("decode %s: %w", path, err)
			continue
		}
		return pcm, nil
	}
	return nil, fmt.Errorf("%w: %v", audio.ErrAssetLoadFailed, lastErr)
}

// Loaded reports whether the named effect's asset decoded successfully.
func (l *Library) Loaded(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.effects[name]
	return ok
}

// PlayOption adjusts a single Play call.
type PlayOption func(*playConfig)

type playConfig struct {
	volumeOverride float64
}

// WithVolume scales this playback by v on top of the channel gain.
func WithVolume(v float64) PlayOption {
	return func(c *playConfig) {
		c.volumeOverride = audio.ClampGain(v)
	}
}

// Play fires the named effect. Muted or zero-gain playback is a silent
// no-op. A failed-to-load effect plays its substitute tone instead. Any
// playback error is logged and swallowed; the UI never blocks on sound.
func (l *Library) Play(name string, opts ...PlayOption) {
	cfg := playConfig{volumeOverride: 1}
	for _, o := range opts {
		o(&cfg)
	}

	gain := l.volumes.EffectiveGain(audio.ChannelAmbient) * cfg.volumeOverride
	if gain <= 0 {
		return
	}

	l.mu.RLock()
	pcm, ok := l.effects[name]
	l.mu.RUnlock()

	if !ok {
		spec, tok := l.tones[name]
		if !tok {
			spec = defaultTone
		}
		pcm = SynthesizeTone(spec)
	}

	_, err := l.output.Play(pcm, audio.PlayOptions{
		Gain: gain,
		OnError: func(err error) {
			l.logger.Debug("sound effect playback error", "effect", name, "error", err)
		},
	})
	if err != nil {
		l.logger.Debug("sound effect failed to start", "effect", name, "error", err)
	}
}
