package narration

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lorekeep/lorekeep/audio"
	"github.com/lorekeep/lorekeep/audio/output"
)

type fakeGain float64

func (g fakeGain) EffectiveGain(audio.Channel) float64 { return float64(g) }

func wavFixture(samples int) []byte {
	payload := make([]byte, samples*2)
	var buf []byte
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(payload)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, 44100)
	buf = binary.LittleEndian.AppendUint32(buf, 44100*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	return buf
}

// mockSynth records calls and serves canned results. When gate is set,
// Synthesize blocks until the test releases it; ignoreCtx makes it
// deliver a result even after its context was cancelled, simulating a
// late-arriving response.
type mockSynth struct {
	mu        sync.Mutex
	calls     []string
	data      []byte
	err       error
	gate      chan struct{}
	ignoreCtx bool
}

func (m *mockSynth) Synthesize(ctx context.Context, text string, _ VoiceProfile) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		if m.ignoreCtx {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	} else if !m.ignoreCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

func (m *mockSynth) callTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testNarrationConfig() audio.NarrationConfig {
	return audio.NarrationConfig{
		Enabled:       true,
		RemoteTimeout: 2 * time.Second,
		LocalBinary:   "espeak-ng",
	}
}

func TestSpeakPlaysRemoteAudio(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: wavFixture(100)}
	s := New(mock, fakeGain(0.7), remote, nil, testNarrationConfig())

	s.Speak("Once upon a time")
	waitFor(t, "playback", func() bool { return mock.PlayCount() == 1 })

	if !s.IsSpeaking() {
		t.Error("IsSpeaking() = false during playback")
	}
	if s.State() != StatePlaying {
		t.Errorf("State() = %v, want playing", s.State())
	}
	if got := mock.Last().Gain; got != 0.7 {
		t.Errorf("playback gain = %v, want 0.7", got)
	}

	mock.Last().Complete()
	waitFor(t, "idle", func() bool { return !s.IsSpeaking() })
	if s.State() != StateIdle {
		t.Errorf("State() after completion = %v, want idle", s.State())
	}
}

func TestSpeakDisabledIsNoOp(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: wavFixture(100)}
	cfg := testNarrationConfig()
	cfg.Enabled = false
	s := New(mock, fakeGain(1), remote, nil, cfg)

	s.Speak("Hello")
	time.Sleep(50 * time.Millisecond)

	if s.IsSpeaking() {
		t.Error("IsSpeaking() = true with narration disabled")
	}
	if mock.PlayCount() != 0 {
		t.Errorf("PlayCount = %d, want 0", mock.PlayCount())
	}
	if len(remote.callTexts()) != 0 {
		t.Error("remote synthesis was called with narration disabled")
	}
}

// A remote failure triggers local synthesis exactly once, with the same
// text.
func TestRemoteFailureFallsBackToLocal(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{err: errors.New("status 500")}
	local := &mockSynth{data: wavFixture(80)}

	var (
		mu        sync.Mutex
		fallbacks int
	)
	s := New(mock, fakeGain(1), remote, local, testNarrationConfig(),
		WithEvents(Events{OnFallback: func(string) {
			mu.Lock()
			fallbacks++
			mu.Unlock()
		}}))

	s.Speak("The dragon stirs")
	waitFor(t, "fallback playback", func() bool { return mock.PlayCount() == 1 })

	if got := local.callTexts(); len(got) != 1 || got[0] != "The dragon stirs" {
		t.Errorf("local synthesis calls = %v, want exactly one with the original text", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if fallbacks != 1 {
		t.Errorf("fallback notifications = %d, want 1", fallbacks)
	}
}

// Empty remote audio is a failure like any other.
func TestEmptyRemoteAudioFallsBack(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: nil} // decodes to nothing
	local := &mockSynth{data: wavFixture(80)}
	s := New(mock, fakeGain(1), remote, local, testNarrationConfig())

	s.Speak("Silence answered")
	waitFor(t, "fallback playback", func() bool { return mock.PlayCount() == 1 })

	if len(local.callTexts()) != 1 {
		t.Errorf("local synthesis calls = %d, want 1", len(local.callTexts()))
	}
}

// speak(t1) then speak(t2) before t1's audio starts: only t2 plays.
func TestNewUtteranceSupersedesInFlightRequest(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: wavFixture(100), gate: make(chan struct{})}
	s := New(mock, fakeGain(1), remote, nil, testNarrationConfig())

	s.Speak("first")
	waitFor(t, "first request", func() bool { return len(remote.callTexts()) == 1 })

	s.Speak("second")
	close(remote.gate)
	waitFor(t, "playback", func() bool { return mock.PlayCount() == 1 })

	time.Sleep(50 * time.Millisecond)
	if mock.PlayCount() != 1 {
		t.Errorf("PlayCount = %d, want 1 (no double narration)", mock.PlayCount())
	}
	if got := remote.callTexts(); got[len(got)-1] != "second" {
		t.Errorf("last synthesized text = %q, want second", got[len(got)-1])
	}
}

// A response that arrives for a superseded request is discarded even if
// the transport ignored the cancellation.
func TestLateResponseForSupersededRequestIsDiscarded(t *testing.T) {
	mock := output.NewMock()
	gate := make(chan struct{})
	remote := &mockSynth{data: wavFixture(100), gate: gate, ignoreCtx: true}
	s := New(mock, fakeGain(1), remote, nil, testNarrationConfig())

	s.Speak("stale")
	waitFor(t, "first request", func() bool { return len(remote.callTexts()) == 1 })

	s.Speak("fresh")
	waitFor(t, "second request", func() bool { return len(remote.callTexts()) == 2 })

	// Both blocked calls resolve now; only the fresh one may play.
	close(gate)
	waitFor(t, "playback", func() bool { return mock.PlayCount() >= 1 })
	time.Sleep(50 * time.Millisecond)

	if mock.PlayCount() != 1 {
		t.Errorf("PlayCount = %d, want 1 (stale response must not play)", mock.PlayCount())
	}
}

// While t1 is audible, speak(t2) stops t1 before t2 becomes audible.
func TestSpeakInterruptsPlayingUtterance(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: wavFixture(100)}
	s := New(mock, fakeGain(1), remote, nil, testNarrationConfig())

	s.Speak("first")
	waitFor(t, "first playback", func() bool { return mock.PlayCount() == 1 })
	first := mock.Last()

	s.Speak("second")
	waitFor(t, "second playback", func() bool { return mock.PlayCount() == 2 })

	if !first.Stopped() {
		t.Error("first utterance still playing alongside the second")
	}
}

func TestStopSpeakingResetsEverything(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: wavFixture(100)}
	s := New(mock, fakeGain(1), remote, nil, testNarrationConfig())

	s.Speak("interrupted")
	waitFor(t, "playback", func() bool { return mock.PlayCount() == 1 })

	s.StopSpeaking()
	if s.IsSpeaking() {
		t.Error("IsSpeaking() = true after StopSpeaking")
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
	if !mock.Last().Stopped() {
		t.Error("utterance audio kept playing")
	}
}

// Total failure of both synthesis paths must never leave the speaking
// flag stuck.
func TestBothPathsFailingResetsSpeaking(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{err: errors.New("unreachable")}
	local := &mockSynth{err: errors.New("no voices")}

	errc := make(chan error, 1)
	s := New(mock, fakeGain(1), remote, local, testNarrationConfig(),
		WithEvents(Events{OnError: func(err error) { errc <- err }}))

	s.Speak("doomed")

	select {
	case <-errc:
	case <-time.After(2 * time.Second):
		t.Fatal("no error notification")
	}
	if s.IsSpeaking() {
		t.Error("IsSpeaking() = true after total failure")
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
}

// No remote and no local synthesizer: Speak degrades to a logged error.
func TestNoSynthesizersAvailable(t *testing.T) {
	mock := output.NewMock()
	errc := make(chan error, 1)
	s := New(mock, fakeGain(1), nil, nil, testNarrationConfig(),
		WithEvents(Events{OnError: func(err error) { errc <- err }}))

	s.Speak("void")

	select {
	case err := <-errc:
		if !errors.Is(err, audio.ErrNoVoiceAvailable) {
			t.Errorf("error = %v, want ErrNoVoiceAvailable", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error notification")
	}
}

func TestPlaybackErrorResetsSpeaking(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: wavFixture(100)}
	s := New(mock, fakeGain(1), remote, nil, testNarrationConfig())

	s.Speak("glitch")
	waitFor(t, "playback", func() bool { return mock.PlayCount() == 1 })

	mock.Last().Fail(errors.New("device lost"))
	waitFor(t, "reset", func() bool { return !s.IsSpeaking() })
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
}

// Racing Speak against StopSpeaking must never leave the speaking flag
// set once the pipeline has gone idle: the flag only flips inside the
// generation-checked critical section, so a playback start that lost the
// race cannot resurrect it.
func TestStopRacingPlaybackStartNeverSticksSpeaking(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: wavFixture(4)}
	s := New(mock, fakeGain(1), remote, nil, testNarrationConfig())

	for i := 0; i < 200; i++ {
		s.Speak("contested")
		s.StopSpeaking()
	}

	waitFor(t, "idle after stop", func() bool {
		return s.State() == StateIdle && !s.IsSpeaking()
	})
	time.Sleep(50 * time.Millisecond)
	if s.IsSpeaking() {
		t.Error("IsSpeaking() = true with the pipeline idle")
	}
}

func TestSetEnabledFalseStopsSpeech(t *testing.T) {
	mock := output.NewMock()
	remote := &mockSynth{data: wavFixture(100)}
	s := New(mock, fakeGain(1), remote, nil, testNarrationConfig())

	s.Speak("cut off")
	waitFor(t, "playback", func() bool { return mock.PlayCount() == 1 })

	s.SetEnabled(false)
	if s.IsSpeaking() {
		t.Error("IsSpeaking() = true after disabling narration")
	}
	if !mock.Last().Stopped() {
		t.Error("utterance audio kept playing after disable")
	}
}
