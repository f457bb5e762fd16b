package narration

import (
	"context"
	"fmt"

	"github.com/lorekeep/lorekeep/audio"
)

// Synthesizer converts text to WAV-encoded speech for a voice profile.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, profile VoiceProfile) ([]byte, error)
}

// SynthesisClient is the slice of the backend client the remote
// synthesizer needs.
type SynthesisClient interface {
	Synthesize(ctx context.Context, text, archetype string) ([]byte, error)
}

// Remote adapts the backend client to the Synthesizer interface. The
// profile's remote voice ID is sent as the character archetype.
type Remote struct {
	client SynthesisClient
}

// NewRemote wraps a backend synthesis client.
func NewRemote(client SynthesisClient) *Remote {
	return &Remote{client: client}
}

// Synthesize implements Synthesizer.
func (r *Remote) Synthesize(ctx context.Context, text string, profile VoiceProfile) ([]byte, error) {
	data, err := r.client.Synthesize(ctx, text, profile.RemoteVoiceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrSynthesisFailed, err)
	}
	if len(data) == 0 {
		return nil, audio.ErrEmptySynthesis
	}
	return data, nil
}
