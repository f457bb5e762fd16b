package sfx

import (
	"encoding/binary"
	"math"
	"math/rand"
	"time"

	"github.com/lorekeep/lorekeep/audio"
)

// Waveform selects the oscillator shape for a synthesized tone.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveSawtooth
	WaveNoise
)

// ToneSpec describes a synthesized substitute for an effect whose asset
// failed to load. Frequency is in Hz; Volume is a linear factor applied
// on top of the channel gain.
type ToneSpec struct {
	Frequency float64
	Duration  time.Duration
	Wave      Waveform
	Volume    float64
}

// defaultTone is used for effect names with no table entry.
var defaultTone = ToneSpec{Frequency: 440, Duration: 150 * time.Millisecond, Wave: WaveSine, Volume: 0.5}

// DefaultToneTable maps effect names to their substitute tones. The
// shapes are chosen so a degraded session still gives distinct audible
// feedback per interaction.
func DefaultToneTable() map[string]ToneSpec {
	return map[string]ToneSpec{
		"dice_roll":      {Frequency: 220, Duration: 200 * time.Millisecond, Wave: WaveNoise, Volume: 0.4},
		"page_turn":      {Frequency: 880, Duration: 120 * time.Millisecond, Wave: WaveSine, Volume: 0.35},
		"button_click":   {Frequency: 1200, Duration: 60 * time.Millisecond, Wave: WaveSquare, Volume: 0.3},
		"quest_complete": {Frequency: 660, Duration: 350 * time.Millisecond, Wave: WaveSine, Volume: 0.5},
		"item_pickup":    {Frequency: 520, Duration: 180 * time.Millisecond, Wave: WaveSquare, Volume: 0.4},
		"damage":         {Frequency: 110, Duration: 250 * time.Millisecond, Wave: WaveSawtooth, Volume: 0.5},
		"notification":   {Frequency: 990, Duration: 140 * time.Millisecond, Wave: WaveSine, Volume: 0.4},
	}
}

// Envelope fractions of the total duration. A minimum attack/release
// keeps the tone from clicking at its edges.
const (
	attackFraction  = 0.1
	releaseFraction = 0.3
)

// SynthesizeTone renders the spec to 16-bit mono PCM at the default
// sample rate.
func SynthesizeTone(spec ToneSpec) *audio.PCM {
	if spec.Frequency <= 0 {
		spec.Frequency = defaultTone.Frequency
	}
	if spec.Duration <= 0 {
		spec.Duration = defaultTone.Duration
	}
	if spec.Volume <= 0 || spec.Volume > 1 {
		spec.Volume = defaultTone.Volume
	}

	rate := audio.DefaultSampleRate
	samples := int(float64(rate) * spec.Duration.Seconds())
	if samples == 0 {
		samples = 1
	}
	data := make([]byte, samples*2)

	attack := int(float64(samples) * attackFraction)
	release := int(float64(samples) * releaseFraction)
	rng := rand.New(rand.NewSource(int64(spec.Frequency)))

	for i := 0; i < samples; i++ {
		phase := spec.Frequency * float64(i) / float64(rate)

		var v float64
		switch spec.Wave {
		case WaveSquare:
			if math.Mod(phase, 1) < 0.5 {
				v = 1
			} else {
				v = -1
			}
		case WaveSawtooth:
			v = 2*math.Mod(phase, 1) - 1
		case WaveNoise:
			v = rng.Float64()*2 - 1
		default:
			v = math.Sin(2 * math.Pi * phase)
		}

		// Linear attack/release envelope.
		env := 1.0
		if i < attack && attack > 0 {
			env = float64(i) / float64(attack)
		} else if i >= samples-release && release > 0 {
			env = float64(samples-i) / float64(release)
		}

		sample := int16(v * env * spec.Volume * math.MaxInt16)
		binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
	}

	return &audio.PCM{Data: data, SampleRate: rate, Channels: 1}
}
