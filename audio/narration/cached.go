package narration

import (
	"context"
	"fmt"
)

// Store is a key→bytes cache. The disk cache in internal/cache
// implements it.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Cached wraps a Synthesizer with a result cache. Narration frequently
// repeats lines (menu prompts, recurring descriptions); a hit skips the
// synthesis round-trip entirely.
type Cached struct {
	inner Synthesizer
	store Store
}

// NewCached wraps inner with the given store.
func NewCached(inner Synthesizer, store Store) *Cached {
	return &Cached{inner: inner, store: store}
}

// Synthesize implements Synthesizer. Only successful results are
// cached; cache write failures are ignored.
func (c *Cached) Synthesize(ctx context.Context, text string, profile VoiceProfile) ([]byte, error) {
	key := fmt.Sprintf("%s|%.2f|%.2f|%.2f|%s",
		profile.RemoteVoiceID, profile.Rate, profile.Pitch, profile.Volume, text)

	if data, ok := c.store.Get(key); ok {
		return data, nil
	}
	data, err := c.inner.Synthesize(ctx, text, profile)
	if err != nil {
		return nil, err
	}
	_ = c.store.Put(key, data)
	return data, nil
}

var _ Synthesizer = (*Cached)(nil)
