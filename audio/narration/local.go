package narration

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/lorekeep/lorekeep/audio"
)

// espeak-ng parameter baselines. Profile Rate/Pitch/Volume are scaled
// against these defaults and clamped to the binary's accepted ranges.
const (
	espeakBaseSpeed  = 175 // words per minute
	espeakBasePitch  = 50  // 0..99
	espeakBaseVolume = 100 // 0..200
)

// Local synthesizes speech with a host espeak-ng process, one process
// per utterance. It is the fallback when remote synthesis fails.
type Local struct {
	binary string
	voice  string
}

// NewLocal creates a host-local synthesizer running the given binary
// with the preferred voice name. An empty voice uses the host default.
func NewLocal(binary, voice string) *Local {
	return &Local{binary: binary, voice: voice}
}

// Available reports whether the synthesis binary exists on the host.
// Checked once at startup so dependent controls can disable themselves.
func (l *Local) Available() bool {
	_, err := exec.LookPath(l.binary)
	return err == nil
}

// Synthesize implements Synthesizer. Output is WAV via --stdout;
// cancelling the context kills the process.
func (l *Local) Synthesize(ctx context.Context, text string, profile VoiceProfile) ([]byte, error) {
	args := []string{
		"--stdout",
		"-s", strconv.Itoa(scaleParam(profile.Rate, espeakBaseSpeed, 80, 450)),
		"-p", strconv.Itoa(scaleParam(profile.Pitch, espeakBasePitch, 0, 99)),
		"-a", strconv.Itoa(scaleParam(profile.Volume, espeakBaseVolume, 0, 200)),
	}
	if l.voice != "" {
		args = append(args, "-v", l.voice)
	}

	cmd := exec.CommandContext(ctx, l.binary, args...)
	cmd.Stdin = strings.NewReader(text + "\n")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v (%s)", audio.ErrSynthesisFailed,
			l.binary, err, strings.TrimSpace(stderr.String()))
	}
	if len(out) == 0 {
		return nil, audio.ErrEmptySynthesis
	}
	return out, nil
}

// scaleParam maps a 1.0-centered profile factor onto an espeak integer
// parameter range.
func scaleParam(factor, base float64, min, max int) int {
	if factor <= 0 {
		factor = 1
	}
	v := int(math.Round(factor * base))
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
