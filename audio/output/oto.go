// Package output provides audio.Output implementations: a cross-platform
// device output backed by oto, and a mock used throughout the engine's
// tests.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/lorekeep/lorekeep/audio"
)

// Config contains configuration for the device output.
type Config struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BufferSize time.Duration
}

// DefaultConfig returns the default device configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: audio.DefaultSampleRate,
		Channels:   audio.DefaultChannels,
		BufferSize: 100 * time.Millisecond,
	}
}

// Device implements audio.Output on the host audio device via oto.
// A single oto context is shared by all playbacks; each Play call gets
// its own player so sound effects may overlap music and narration.
type Device struct {
	context *oto.Context

	mu     sync.Mutex
	closed bool
	active map[*devicePlayback]struct{}

	sampleRate int
	channels   int
}

// NewDevice opens the host audio device. It blocks until the device is
// ready. On platforms where the audio context starts suspended, the
// first Play after a user gesture will unblock it.
func NewDevice(cfg Config) (*Device, error) {
	if cfg.SampleRate != 44100 && cfg.SampleRate != 48000 {
		return nil, fmt.Errorf("output: sample rate must be 44100 or 48000 Hz, got %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("output: channels must be 1 or 2, got %d", cfg.Channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.BufferSize,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("output: create oto context: %w", err)
	}
	<-ready

	return &Device{
		context:    ctx,
		active:     make(map[*devicePlayback]struct{}),
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}, nil
}

// Play implements audio.Output.
func (d *Device) Play(pcm *audio.PCM, opts audio.PlayOptions) (audio.Playback, error) {
	if pcm.Empty() {
		return nil, audio.ErrNothingToPlay
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, audio.ErrOutputClosed
	}
	d.mu.Unlock()

	// The oto context is fixed to one format; sources keep theirs
	// (espeak-ng emits 22050 Hz, backend tracks vary).
	pcm = pcm.ConvertTo(d.sampleRate, d.channels)

	// Own the data for the lifetime of the playback; oto reads from the
	// reader asynchronously and the caller may reuse its buffer.
	data := make([]byte, len(pcm.Data))
	copy(data, pcm.Data)

	player := d.context.NewPlayer(bytes.NewReader(data))
	if player == nil {
		return nil, errors.New("output: failed to create oto player")
	}
	player.SetVolume(audio.ClampGain(opts.Gain))

	pb := &devicePlayback{
		device:   d,
		player:   player,
		data:     data,
		duration: pcm.Duration(),
		opts:     opts,
		done:     make(chan struct{}),
	}

	d.mu.Lock()
	d.active[pb] = struct{}{}
	d.mu.Unlock()

	pb.startedAt = time.Now()
	player.Play()
	go pb.watch()

	return pb, nil
}

// Close implements audio.Output. Active playbacks are stopped.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	playing := make([]*devicePlayback, 0, len(d.active))
	for pb := range d.active {
		playing = append(playing, pb)
	}
	d.mu.Unlock()

	for _, pb := range playing {
		_ = pb.Stop()
	}

	// oto.Context has no Close in v3; dropping the reference is enough.
	return nil
}

func (d *Device) release(pb *devicePlayback) {
	d.mu.Lock()
	delete(d.active, pb)
	d.mu.Unlock()
}

// devicePlayback is one active sound on the device.
type devicePlayback struct {
	device *Device
	player *oto.Player

	// data must stay referenced until playback ends or oto reads from a
	// garbage-collected buffer, which produces static.
	data     []byte
	duration time.Duration

	opts audio.PlayOptions
	done chan struct{}

	mu         sync.Mutex
	startedAt  time.Time
	pausedAt   time.Duration
	totalPause time.Duration
	paused     bool
	stopped    bool
	completed  bool
}

// watch polls the oto player and fires OnComplete once the buffer
// drains naturally.
func (pb *devicePlayback) watch() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-pb.done:
			return
		case <-ticker.C:
			pb.mu.Lock()
			if pb.stopped {
				pb.mu.Unlock()
				return
			}
			if pb.paused {
				pb.mu.Unlock()
				continue
			}
			// oto reports not-playing once the reader is drained.
			if !pb.player.IsPlaying() {
				pb.completed = true
				pb.finishLocked()
				pb.mu.Unlock()
				if pb.opts.OnComplete != nil {
					pb.opts.OnComplete()
				}
				return
			}
			pb.mu.Unlock()
		}
	}
}

// finishLocked releases device resources. Caller holds pb.mu.
func (pb *devicePlayback) finishLocked() {
	if pb.player != nil {
		_ = pb.player.Close()
		pb.player = nil
	}
	pb.data = nil
	pb.device.release(pb)
}

// Pause implements audio.Playback.
func (pb *devicePlayback) Pause() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.stopped || pb.completed {
		return audio.ErrNotPlaying
	}
	if pb.paused {
		return nil
	}
	pb.player.Pause()
	pb.pausedAt = pb.positionLocked()
	pb.paused = true
	return nil
}

// Resume implements audio.Playback.
func (pb *devicePlayback) Resume() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.stopped || pb.completed {
		return audio.ErrNotPlaying
	}
	if !pb.paused {
		return audio.ErrNotPaused
	}
	// Position at pause was since(start) - totalPause, so the cumulative
	// pause time is everything since start beyond that position.
	pb.totalPause = time.Since(pb.startedAt.Add(pb.pausedAt))
	pb.paused = false
	pb.player.Play()
	return nil
}

// Stop implements audio.Playback. OnComplete does not fire.
func (pb *devicePlayback) Stop() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.stopped || pb.completed {
		return nil
	}
	pb.stopped = true
	close(pb.done)
	if pb.player != nil {
		pb.player.Pause()
	}
	pb.finishLocked()
	return nil
}

// SetGain implements audio.Playback.
func (pb *devicePlayback) SetGain(gain float64) error {
	if gain < 0 || gain > 1 {
		return audio.ErrInvalidGain
	}
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.player != nil {
		pb.player.SetVolume(gain)
	}
	return nil
}

// IsPlaying implements audio.Playback.
func (pb *devicePlayback) IsPlaying() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return !pb.stopped && !pb.completed && !pb.paused
}

// Position implements audio.Playback.
func (pb *devicePlayback) Position() time.Duration {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.positionLocked()
}

func (pb *devicePlayback) positionLocked() time.Duration {
	switch {
	case pb.completed:
		return pb.duration
	case pb.stopped:
		return 0
	case pb.paused:
		return pb.pausedAt
	default:
		pos := time.Since(pb.startedAt) - pb.totalPause
		if pos > pb.duration {
			pos = pb.duration
		}
		return pos
	}
}

var _ audio.Output = (*Device)(nil)
