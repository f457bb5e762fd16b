package audio

import (
	"encoding/binary"
	"fmt"
)

// Default playback format. Remote and local synthesis output is converted
// to this format before it reaches the device.
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 1
	bytesPerSample    = 2 // 16-bit
)

// ParseWAV extracts the PCM payload from a RIFF/WAVE container. Only
// 16-bit integer PCM is supported. The fmt chunk is walked rather than
// assumed at a fixed offset because encoders vary its size.
func ParseWAV(wav []byte) (*PCM, error) {
	if len(wav) < 12 {
		return nil, fmt.Errorf("%w: too short for a RIFF header", ErrInvalidWAV)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE identifier", ErrInvalidWAV)
	}

	var (
		sampleRate int
		channels   int
		bitDepth   int
		foundFmt   bool
	)

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				bitDepth = int(binary.LittleEndian.Uint16(fmtData[14:16]))
				foundFmt = true
			}
		case "data":
			if !foundFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			if bitDepth != 16 {
				return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, bitDepth)
			}
			end := offset + 8 + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			return &PCM{
				Data:       wav[offset+8 : end],
				SampleRate: sampleRate,
				Channels:   channels,
			}, nil
		}

		// Chunks are word-aligned.
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return nil, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
}

// ResampleMono16 resamples 16-bit mono PCM using linear interpolation.
// Returns the input unchanged when rates already match.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 || len(pcm) < bytesPerSample {
		return pcm
	}
	srcSamples := len(pcm) / bytesPerSample
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*bytesPerSample)
	ratio := float64(srcRate) / float64(dstRate)

	for i := 0; i < dstSamples; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(binary.LittleEndian.Uint16(pcm[srcIdx*2:]))
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = int16(binary.LittleEndian.Uint16(pcm[(srcIdx+1)*2:]))
		}

		v := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// ConvertTo returns the buffer in the given playback format, folding
// stereo to mono, resampling, and duplicating mono to stereo as needed.
// The receiver is returned unchanged when it already matches. The device
// output calls this on every buffer; decoders keep the source format.
func (p *PCM) ConvertTo(sampleRate, channels int) *PCM {
	if p == nil || (p.SampleRate == sampleRate && p.Channels == channels) {
		return p
	}

	data := p.Data
	if p.Channels == 2 {
		data = stereoToMono16(data)
	}
	data = ResampleMono16(data, p.SampleRate, sampleRate)
	if channels == 2 {
		data = monoToStereo16(data)
	}
	return &PCM{Data: data, SampleRate: sampleRate, Channels: channels}
}

// stereoToMono16 averages interleaved 16-bit stereo frames to mono.
func stereoToMono16(pcm []byte) []byte {
	frames := len(pcm) / (2 * bytesPerSample)
	out := make([]byte, frames*bytesPerSample)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16((int32(l)+int32(r))/2)))
	}
	return out
}

// monoToStereo16 duplicates 16-bit mono samples into both channels.
func monoToStereo16(pcm []byte) []byte {
	samples := len(pcm) / bytesPerSample
	out := make([]byte, samples*2*bytesPerSample)
	for i := 0; i < samples; i++ {
		copy(out[i*4:], pcm[i*2:i*2+2])
		copy(out[i*4+2:], pcm[i*2:i*2+2])
	}
	return out
}

// Silence returns a silent PCM buffer of the given duration in the
// default playback format.
func Silence(seconds float64) *PCM {
	samples := int(seconds * DefaultSampleRate)
	return &PCM{
		Data:       make([]byte, samples*bytesPerSample*DefaultChannels),
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
	}
}

// ClampGain restricts g to [0, 1].
func ClampGain(g float64) float64 {
	if g < 0 {
		return 0
	}
	if g > 1 {
		return 1
	}
	return g
}
