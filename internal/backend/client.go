// Package backend is the HTTP client for the game backend's audio
// endpoints: the music manifest, remote speech synthesis, and the
// best-effort volume mirror. Local state is always authoritative; the
// mirror endpoints exist so other clients of the same session see
// consistent volume settings.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	manifestEndpoint = "/music/manifest"
	ttsEndpoint      = "/audio/tts"
	volumeEndpoint   = "/audio/volume"
	muteEndpoint     = "/audio/mute"

	defaultTimeout = 10 * time.Second

	// maxAudioBytes bounds a single synthesis download.
	maxAudioBytes = 32 << 20
)

// ErrEmptyAudioURL is returned when synthesis succeeds at the HTTP level
// but the response carries no audio resource.
var ErrEmptyAudioURL = errors.New("backend: synthesis response missing audio_url")

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout. Defaults to 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. Useful in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for fire-and-forget failures.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client talks to the game backend. It is safe for concurrent use.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
	logger    *log.Logger
}

// New creates a Client for the backend at baseURL. sessionID identifies
// the player session in synthesis and volume-mirror calls.
func New(baseURL, sessionID string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend: baseURL must not be empty")
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: sessionID,
		http:      &http.Client{Timeout: defaultTimeout},
		logger:    log.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FetchManifest retrieves the music catalog: track paths grouped by mood.
func (c *Client) FetchManifest(ctx context.Context) (map[string][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+manifestEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: create manifest request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: GET %s: %w", manifestEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend: GET %s returned status %d", manifestEndpoint, resp.StatusCode)
	}

	var manifest map[string][]string
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("backend: decode manifest: %w", err)
	}
	return manifest, nil
}

// ttsRequest is the JSON body sent to POST /audio/tts.
type ttsRequest struct {
	SessionID          string `json:"session_id"`
	Text               string `json:"text"`
	CharacterArchetype string `json:"character_archetype"`
}

// ttsResponse is the JSON body returned by POST /audio/tts.
type ttsResponse struct {
	AudioURL string `json:"audio_url"`
}

// Synthesize requests remote speech synthesis for text using the given
// character archetype and downloads the resulting audio. A non-2xx
// status, a missing audio_url, and transport errors are all returned as
// errors; the caller treats every failure the same way (fall back to
// local synthesis).
func (c *Client) Synthesize(ctx context.Context, text, archetype string) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{
		SessionID:          c.sessionID,
		Text:               text,
		CharacterArchetype: archetype,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ttsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: POST %s: %w", ttsEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("backend: POST %s returned status %d", ttsEndpoint, resp.StatusCode)
	}

	var tts ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tts); err != nil {
		return nil, fmt.Errorf("backend: decode tts response: %w", err)
	}
	if tts.AudioURL == "" {
		return nil, ErrEmptyAudioURL
	}

	return c.fetch(ctx, tts.AudioURL)
}

// LoadAsset downloads an audio asset (music track or sound effect) by
// its manifest path.
func (c *Client) LoadAsset(ctx context.Context, path string) ([]byte, error) {
	return c.fetch(ctx, path)
}

// fetch downloads a resource that may be absolute or relative to the
// backend base URL.
func (c *Client) fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: create asset request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: GET %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend: GET %s returned status %d", ref, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", ref, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("backend: GET %s returned empty body", ref)
	}
	return data, nil
}

func (c *Client) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("backend: parse asset url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return ref, nil
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return c.baseURL + ref, nil
}

// volumeRequest is the JSON body sent to POST /audio/volume.
type volumeRequest struct {
	SessionID string  `json:"session_id"`
	Channel   string  `json:"channel"`
	Volume    float64 `json:"volume"`
}

// SyncVolume mirrors a channel volume to the backend. Callers may
// ignore the error; a failure is logged and local state stays
// authoritative.
func (c *Client) SyncVolume(ctx context.Context, channel string, volume float64) error {
	body, err := json.Marshal(volumeRequest{
		SessionID: c.sessionID,
		Channel:   channel,
		Volume:    volume,
	})
	if err != nil {
		return fmt.Errorf("backend: marshal volume request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+volumeEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backend: create volume request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("volume sync failed", "channel", channel, "error", err)
		return fmt.Errorf("backend: POST %s: %w", volumeEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("volume sync rejected", "channel", channel, "status", resp.StatusCode)
		return fmt.Errorf("backend: POST %s returned status %d", volumeEndpoint, resp.StatusCode)
	}
	return nil
}

// SyncMute mirrors a mute toggle to the backend. Same best-effort
// contract as SyncVolume.
func (c *Client) SyncMute(ctx context.Context) error {
	endpoint := muteEndpoint + "/" + url.PathEscape(c.sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("backend: create mute request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("mute sync failed", "error", err)
		return fmt.Errorf("backend: POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("mute sync rejected", "status", resp.StatusCode)
		return fmt.Errorf("backend: POST %s returned status %d", endpoint, resp.StatusCode)
	}
	return nil
}
