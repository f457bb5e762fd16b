// Package capture wraps host speech-to-text into start/stop/transcript
// semantics for populating the player's text input. Capture is
// single-shot: one Start yields at most one transcript.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/lorekeep/lorekeep/audio"
)

// Recognizer captures one utterance from the host microphone and
// returns its transcript.
type Recognizer interface {
	// Supported reports whether the host can capture speech at all.
	// Checked once at startup; dependent controls disable themselves
	// when it is false.
	Supported() bool

	// Listen blocks until one utterance is transcribed, the context is
	// cancelled, or capture fails.
	Listen(ctx context.Context) (string, error)
}

// Command is a Recognizer backed by a host speech-to-text binary that
// records from the default microphone and prints the transcript to
// stdout.
type Command struct {
	binary string
}

// NewCommand creates a Command recognizer. An empty binary name yields
// an unsupported recognizer.
func NewCommand(binary string) *Command {
	return &Command{binary: binary}
}

// Supported implements Recognizer.
func (c *Command) Supported() bool {
	if c.binary == "" {
		return false
	}
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// Listen implements Recognizer.
func (c *Command) Listen(ctx context.Context) (string, error) {
	if !c.Supported() {
		return "", audio.ErrCaptureUnsupported
	}

	cmd := exec.CommandContext(ctx, c.binary)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("capture: %s: %v (%s)", c.binary, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}

var _ Recognizer = (*Command)(nil)
