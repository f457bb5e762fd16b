package audio

import (
	"time"
)

// Channel identifies one of the engine's mixing channels.
type Channel string

const (
	// ChannelAmbient carries interface and world sound effects.
	ChannelAmbient Channel = "ambient"
	// ChannelMusic carries mood background music.
	ChannelMusic Channel = "music"
	// ChannelVoice carries spoken narration.
	ChannelVoice Channel = "voice"
	// ChannelMaster scales every other channel.
	ChannelMaster Channel = "master"
)

// Channels lists the mixing channels in a stable order.
var Channels = []Channel{ChannelAmbient, ChannelMusic, ChannelVoice, ChannelMaster}

// Valid reports whether c names a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelAmbient, ChannelMusic, ChannelVoice, ChannelMaster:
		return true
	}
	return false
}

// PCM is a buffer of 16-bit little-endian signed PCM samples.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns the playing time of the buffer.
func (p *PCM) Duration() time.Duration {
	if p == nil || p.SampleRate <= 0 || p.Channels <= 0 {
		return 0
	}
	samples := len(p.Data) / (2 * p.Channels)
	return time.Duration(samples) * time.Second / time.Duration(p.SampleRate)
}

// Empty reports whether the buffer holds no samples.
func (p *PCM) Empty() bool {
	return p == nil || len(p.Data) == 0
}

// VolumeSource exposes the composed gain for a channel. The mixer store
// implements it; channel managers read it immediately before and during
// playback so volume changes take effect without restarting audio.
type VolumeSource interface {
	// EffectiveGain returns channel * master * (muted ? 0 : 1), in [0, 1].
	EffectiveGain(ch Channel) float64
}

// PlayOptions configures a single playback started on an Output.
//
// OnComplete and OnError replace ad hoc host callbacks with an explicit
// observer per playback handle, so state transitions on completion can be
// driven by a fake output in tests.
type PlayOptions struct {
	// Gain is the initial linear gain in [0, 1].
	Gain float64

	// OnComplete fires once when playback reaches the natural end of the
	// buffer. It does not fire when the playback is stopped.
	OnComplete func()

	// OnError fires if the device fails mid-playback.
	OnError func(error)
}

// Output starts playbacks on some audio sink. Implementations must allow
// multiple concurrent playbacks; serialization within a channel is the
// responsibility of the channel manager, not the output.
type Output interface {
	// Play begins playing pcm and returns a handle for it.
	Play(pcm *PCM, opts PlayOptions) (Playback, error)

	// Close releases the underlying device. Playbacks started earlier are
	// stopped.
	Close() error
}

// Playback is a handle to one active sound.
type Playback interface {
	// Pause suspends playback, keeping the position.
	Pause() error

	// Resume continues a paused playback.
	Resume() error

	// Stop ends playback. OnComplete is not invoked. Stop is idempotent.
	Stop() error

	// SetGain adjusts the playback gain in [0, 1] while playing.
	SetGain(gain float64) error

	// IsPlaying reports whether samples are currently being consumed.
	IsPlaying() bool

	// Position returns the playback position within the buffer.
	Position() time.Duration
}
