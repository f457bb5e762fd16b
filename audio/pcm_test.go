package audio

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// buildWAV assembles a minimal RIFF/WAVE container around raw samples.
func buildWAV(sampleRate, channels, bitDepth int, samples []byte) []byte {
	var buf []byte
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(samples)))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate*channels*bitDepth/8))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels*bitDepth/8))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(bitDepth))

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(samples)))
	buf = append(buf, samples...)
	return buf
}

func TestParseWAV(t *testing.T) {
	samples := make([]byte, 200)
	for i := range samples {
		samples[i] = byte(i)
	}

	pcm, err := ParseWAV(buildWAV(44100, 1, 16, samples))
	if err != nil {
		t.Fatalf("ParseWAV() error = %v", err)
	}
	if pcm.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", pcm.SampleRate)
	}
	if pcm.Channels != 1 {
		t.Errorf("Channels = %d, want 1", pcm.Channels)
	}
	if len(pcm.Data) != len(samples) {
		t.Errorf("len(Data) = %d, want %d", len(pcm.Data), len(samples))
	}
}

func TestParseWAVSkipsExtraChunks(t *testing.T) {
	samples := make([]byte, 100)
	wav := buildWAV(48000, 2, 16, samples)

	// Splice a LIST chunk between the fmt and data chunks.
	var extra []byte
	extra = append(extra, "LIST"...)
	extra = binary.LittleEndian.AppendUint32(extra, 4)
	extra = append(extra, "INFO"...)

	spliced := append([]byte{}, wav[:36]...)
	spliced = append(spliced, extra...)
	spliced = append(spliced, wav[36:]...)

	pcm, err := ParseWAV(spliced)
	if err != nil {
		t.Fatalf("ParseWAV() error = %v", err)
	}
	if pcm.SampleRate != 48000 || pcm.Channels != 2 {
		t.Errorf("format = %d Hz / %d ch, want 48000 Hz / 2 ch", pcm.SampleRate, pcm.Channels)
	}
}

func TestParseWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		wav  []byte
	}{
		{"empty", nil},
		{"too short", []byte("RIFF")},
		{"not riff", append([]byte("JUNKxxxxJUNK"), make([]byte, 50)...)},
		{"8-bit samples", buildWAV(44100, 1, 8, make([]byte, 100))},
		{"no data chunk", buildWAV(44100, 1, 16, nil)[:36]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseWAV(tt.wav); !errors.Is(err, ErrInvalidWAV) {
				t.Errorf("ParseWAV() error = %v, want ErrInvalidWAV", err)
			}
		})
	}
}

func TestPCMDuration(t *testing.T) {
	// One second of 16-bit mono at 44.1 kHz.
	pcm := &PCM{Data: make([]byte, 44100*2), SampleRate: 44100, Channels: 1}
	if got := pcm.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}

	var nilPCM *PCM
	if got := nilPCM.Duration(); got != 0 {
		t.Errorf("nil Duration() = %v, want 0", got)
	}
}

func TestResampleMono16(t *testing.T) {
	src := make([]byte, 44100*2)
	out := ResampleMono16(src, 44100, 22050)
	if len(out) != 22050*2 {
		t.Errorf("len(out) = %d, want %d", len(out), 22050*2)
	}

	same := ResampleMono16(src, 44100, 44100)
	if len(same) != len(src) {
		t.Errorf("same-rate resample changed length: %d != %d", len(same), len(src))
	}
}

func TestClampGain(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}

	for _, tt := range tests {
		if got := ClampGain(tt.in); got != tt.want {
			t.Errorf("ClampGain(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSilence(t *testing.T) {
	pcm := Silence(0.5)
	if pcm.Empty() {
		t.Fatal("Silence() returned an empty buffer")
	}
	for _, b := range pcm.Data {
		if b != 0 {
			t.Fatal("Silence() buffer has non-zero samples")
		}
	}
}

// A 22050 Hz buffer (espeak-ng's output rate) must be brought up to the
// device rate, not played at double speed.
func TestConvertToResamples(t *testing.T) {
	src := &PCM{Data: make([]byte, 200), SampleRate: 22050, Channels: 1}

	got := src.ConvertTo(44100, 1)
	if got.SampleRate != 44100 || got.Channels != 1 {
		t.Fatalf("format = %d Hz / %d ch, want 44100 / 1", got.SampleRate, got.Channels)
	}
	if len(got.Data) != 400 {
		t.Errorf("len(Data) = %d, want 400", len(got.Data))
	}
	if src.Duration()-got.Duration() > time.Millisecond {
		t.Errorf("duration changed: %v -> %v", src.Duration(), got.Duration())
	}
}

func TestConvertToFoldsStereo(t *testing.T) {
	frames := []struct{ l, r, want int16 }{
		{100, 300, 200},
		{-200, 200, 0},
		{-100, -300, -200},
	}
	data := make([]byte, len(frames)*4)
	for i, f := range frames {
		binary.LittleEndian.PutUint16(data[i*4:], uint16(f.l))
		binary.LittleEndian.PutUint16(data[i*4+2:], uint16(f.r))
	}
	src := &PCM{Data: data, SampleRate: 44100, Channels: 2}

	got := src.ConvertTo(44100, 1)
	if got.Channels != 1 || len(got.Data) != len(frames)*2 {
		t.Fatalf("Channels = %d, len(Data) = %d", got.Channels, len(got.Data))
	}
	for i, f := range frames {
		if v := int16(binary.LittleEndian.Uint16(got.Data[i*2:])); v != f.want {
			t.Errorf("frame %d = %d, want %d", i, v, f.want)
		}
	}
}

func TestConvertToExpandsMono(t *testing.T) {
	data := make([]byte, 4)
	pos, neg := int16(1234), int16(-1234)
	binary.LittleEndian.PutUint16(data[0:], uint16(pos))
	binary.LittleEndian.PutUint16(data[2:], uint16(neg))
	src := &PCM{Data: data, SampleRate: 44100, Channels: 1}

	got := src.ConvertTo(44100, 2)
	if got.Channels != 2 || len(got.Data) != 8 {
		t.Fatalf("Channels = %d, len(Data) = %d", got.Channels, len(got.Data))
	}
	for i := 0; i < 2; i++ {
		l := int16(binary.LittleEndian.Uint16(got.Data[i*4:]))
		r := int16(binary.LittleEndian.Uint16(got.Data[i*4+2:]))
		if l != r {
			t.Errorf("frame %d channels differ: %d / %d", i, l, r)
		}
	}
}

func TestConvertToMatchingFormatIsIdentity(t *testing.T) {
	src := &PCM{Data: make([]byte, 100), SampleRate: 44100, Channels: 1}
	if got := src.ConvertTo(44100, 1); got != src {
		t.Error("matching format allocated a new buffer")
	}
}
