package sfx

import (
	"testing"
	"time"

	"github.com/lorekeep/lorekeep/audio"
)

func TestSynthesizeToneLength(t *testing.T) {
	spec := ToneSpec{Frequency: 440, Duration: 100 * time.Millisecond, Wave: WaveSine, Volume: 0.5}
	pcm := SynthesizeTone(spec)

	wantSamples := audio.DefaultSampleRate / 10
	if got := len(pcm.Data) / 2; got != wantSamples {
		t.Errorf("samples = %d, want %d", got, wantSamples)
	}
	if pcm.SampleRate != audio.DefaultSampleRate || pcm.Channels != 1 {
		t.Errorf("format = %d Hz / %d ch", pcm.SampleRate, pcm.Channels)
	}
}

func TestSynthesizeToneNotSilent(t *testing.T) {
	waves := map[string]Waveform{
		"sine":     WaveSine,
		"square":   WaveSquare,
		"sawtooth": WaveSawtooth,
		"noise":    WaveNoise,
	}

	for name, wave := range waves {
		t.Run(name, func(t *testing.T) {
			pcm := SynthesizeTone(ToneSpec{Frequency: 220, Duration: 50 * time.Millisecond, Wave: wave, Volume: 0.5})
			for _, b := range pcm.Data {
				if b != 0 {
					return
				}
			}
			t.Error("tone is all zeros")
		})
	}
}

func TestSynthesizeToneDefaultsBadSpec(t *testing.T) {
	pcm := SynthesizeTone(ToneSpec{Frequency: -1, Duration: -time.Second, Volume: 9})
	if pcm.Empty() {
		t.Error("tone with defaulted spec is empty")
	}
}

func TestDefaultToneTableCoversKnownEffects(t *testing.T) {
	table := DefaultToneTable()
	for _, name := range []string{"dice_roll", "page_turn", "button_click", "quest_complete"} {
		spec, ok := table[name]
		if !ok {
			t.Errorf("tone table missing %q", name)
			continue
		}
		if spec.Frequency <= 0 || spec.Duration <= 0 {
			t.Errorf("tone %q has a degenerate spec: %+v", name, spec)
		}
	}
}
