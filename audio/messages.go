package audio

import "time"

// Messages for Bubble Tea communication between the audio engine and the
// UI. The engine never calls into the UI directly; services report
// through callbacks that the embedding application converts into these
// messages (see the engine package for ready-made tea.Cmd constructors).

// SpeakingChangedMsg indicates narration started or finished speaking.
// The UI uses it to animate the speaking indicator.
type SpeakingChangedMsg struct {
	Speaking bool
}

// NarrationFallbackMsg indicates remote synthesis failed and host-local
// synthesis took over for the current utterance.
type NarrationFallbackMsg struct {
	Reason string
}

// TrackChangedMsg indicates the mood music player started a new track.
type TrackChangedMsg struct {
	Mood  string
	Path  string
	Index int // position within the current rotation cycle
}

// MusicStoppedMsg indicates mood music playback stopped.
type MusicStoppedMsg struct {
	Reason string // "user" or "error"
}

// VolumeChangedMsg indicates a channel volume changed.
type VolumeChangedMsg struct {
	Channel Channel
	Value   float64
}

// MuteChangedMsg indicates the global mute flag flipped.
type MuteChangedMsg struct {
	Muted bool
}

// TranscriptMsg carries a completed voice capture result.
type TranscriptMsg struct {
	Text       string
	CapturedAt time.Time
}

// ListeningChangedMsg indicates voice capture started or stopped.
type ListeningChangedMsg struct {
	Listening bool
}

// CaptureErrorMsg indicates a capture attempt failed. The partial
// transcript, if any, has been discarded.
type CaptureErrorMsg struct {
	Err error
}

// AudioErrorMsg carries a non-fatal engine error for optional display.
// Every error it wraps has already been logged and recovered from.
type AudioErrorMsg struct {
	Component string // "music", "narration", "sfx", "capture", "mixer"
	Err       error
}
