package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Disk is a persistent key→bytes store with zstd compression. Values
// survive restarts, so a line of narration synthesized in one session
// is free in the next. Keys are hashed; callers may use arbitrary
// strings.
type Disk struct {
	basePath string
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	mu sync.Mutex
}

// NewDisk opens (creating if needed) a disk cache rooted at basePath.
func NewDisk(basePath string) (*Disk, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("cache: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: zstd decoder: %w", err)
	}
	return &Disk{basePath: basePath, encoder: enc, decoder: dec}, nil
}

// Get retrieves and decompresses a value. A corrupt entry reads as a
// miss and is removed.
func (d *Disk) Get(key string) ([]byte, bool) {
	path := d.pathFor(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	value, err := d.decoder.DecodeAll(compressed, nil)
	if err != nil {
		_ = os.Remove(path)
		return nil, false
	}
	return value, true
}

// Put compresses and stores a value. The write goes through a temp file
// so a crash never leaves a half-written entry.
func (d *Disk) Put(key string, value []byte) error {
	path := d.pathFor(key)
	compressed := d.encoder.EncodeAll(value, nil)

	d.mu.Lock()
	defer d.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("cache: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cache: rename: %w", err)
	}
	return nil
}

// Key builds a stable cache key from its parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (d *Disk) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.basePath, hex.EncodeToString(sum[:])+".zst")
}
