package audio

import "errors"

// Common errors for the audio engine.
var (
	// Output errors
	ErrOutputClosed  = errors.New("audio output is closed")
	ErrNothingToPlay = errors.New("no audio to play")
	ErrNotPlaying    = errors.New("no audio is playing")
	ErrNotPaused     = errors.New("audio is not paused")
	ErrInvalidGain   = errors.New("gain must be between 0.0 and 1.0")

	// Asset errors
	ErrAssetNotFound   = errors.New("audio asset not found")
	ErrAssetLoadFailed = errors.New("audio asset failed to load")
	ErrInvalidWAV      = errors.New("invalid WAV data")

	// Music errors
	ErrUnknownMood  = errors.New("unknown mood")
	ErrEmptyCatalog = errors.New("mood has no tracks")

	// Narration errors
	ErrSynthesisFailed  = errors.New("speech synthesis failed")
	ErrEmptySynthesis   = errors.New("synthesis returned no audio")
	ErrNoVoiceAvailable = errors.New("no synthesis voice available")

	// Capture errors
	ErrCaptureUnsupported = errors.New("speech capture not supported on this host")
	ErrAlreadyListening   = errors.New("capture already in progress")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)
