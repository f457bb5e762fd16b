package cache

import "context"

// Fetcher is the upstream asset source, usually the backend client.
type Fetcher interface {
	LoadAsset(ctx context.Context, path string) ([]byte, error)
}

// Loader is a read-through memory cache in front of a Fetcher. Music
// rotation re-requests the same tracks every cycle; the cache turns all
// but the first request per track into a map lookup.
type Loader struct {
	inner Fetcher
	mem   *Memory
}

// NewLoader wraps a Fetcher with a memory cache.
func NewLoader(inner Fetcher, mem *Memory) *Loader {
	return &Loader{inner: inner, mem: mem}
}

// LoadAsset implements the loader interfaces of the sfx and music
// packages.
func (l *Loader) LoadAsset(ctx context.Context, path string) ([]byte, error) {
	if data, ok := l.mem.Get(path); ok {
		return data, nil
	}
	data, err := l.inner.LoadAsset(ctx, path)
	if err != nil {
		return nil, err
	}
	// An oversized asset just bypasses the cache.
	_ = l.mem.Put(path, data)
	return data, nil
}
