package capture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lorekeep/lorekeep/audio"
)

// recorder collects service events.
type recorder struct {
	mu          sync.Mutex
	transcripts []string
	listening   []bool
	errs        []error
}

func (r *recorder) events() Events {
	return Events{
		OnTranscript: func(text string, _ time.Time) {
			r.mu.Lock()
			r.transcripts = append(r.transcripts, text)
			r.mu.Unlock()
		},
		OnListeningChanged: func(l bool) {
			r.mu.Lock()
			r.listening = append(r.listening, l)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() ([]string, []bool, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.transcripts...),
		append([]bool{}, r.listening...),
		append([]error{}, r.errs...)
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

func testCaptureConfig() audio.CaptureConfig {
	return audio.CaptureConfig{MaxUtterance: 2 * time.Second}
}

func TestStartUnsupported(t *testing.T) {
	rec := NewMockRecognizer()
	rec.SupportedFlag = false
	s := New(rec, testCaptureConfig())

	if err := s.Start(); !errors.Is(err, audio.ErrCaptureUnsupported) {
		t.Errorf("Start() error = %v, want ErrCaptureUnsupported", err)
	}
	if s.IsListening() {
		t.Error("IsListening() = true on an unsupported host")
	}
}

func TestSingleShotCapture(t *testing.T) {
	rec := NewMockRecognizer()
	r := &recorder{}
	s := New(rec, testCaptureConfig(), WithEvents(r.events()))

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.IsListening() {
		t.Fatal("IsListening() = false after Start")
	}

	rec.Feed("open the door")
	waitFor(t, "transcript", func() bool {
		transcripts, _, _ := r.snapshot()
		return len(transcripts) == 1
	})

	transcripts, listening, _ := r.snapshot()
	if transcripts[0] != "open the door" {
		t.Errorf("transcript = %q", transcripts[0])
	}
	// Listening ended on its own: true then false, no second capture.
	if len(listening) != 2 || !listening[0] || listening[1] {
		t.Errorf("listening events = %v, want [true false]", listening)
	}
	if s.IsListening() {
		t.Error("IsListening() = true after a completed capture")
	}
}

func TestStartWhileListening(t *testing.T) {
	rec := NewMockRecognizer()
	s := New(rec, testCaptureConfig())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); !errors.Is(err, audio.ErrAlreadyListening) {
		t.Errorf("second Start() error = %v, want ErrAlreadyListening", err)
	}

	s.Stop()
}

// A capture error resets listening and publishes no transcript.
func TestCaptureErrorDiscardsTranscript(t *testing.T) {
	rec := NewMockRecognizer()
	r := &recorder{}
	s := New(rec, testCaptureConfig(), WithEvents(r.events()))

	_ = s.Start()
	rec.Fail(errors.New("microphone disconnected"))

	waitFor(t, "error event", func() bool {
		_, _, errs := r.snapshot()
		return len(errs) == 1
	})

	transcripts, _, _ := r.snapshot()
	if len(transcripts) != 0 {
		t.Errorf("transcripts = %v, want none", transcripts)
	}
	if s.IsListening() {
		t.Error("IsListening() = true after a capture error")
	}
}

// Stop discards whatever the recognizer eventually returns.
func TestStopDiscardsPendingResult(t *testing.T) {
	rec := NewMockRecognizer()
	r := &recorder{}
	s := New(rec, testCaptureConfig(), WithEvents(r.events()))

	_ = s.Start()
	s.Stop()

	if s.IsListening() {
		t.Fatal("IsListening() = true after Stop")
	}

	// The pending Listen resolves with a cancellation; nothing surfaces.
	time.Sleep(50 * time.Millisecond)
	transcripts, _, _ := r.snapshot()
	if len(transcripts) != 0 {
		t.Errorf("transcripts = %v, want none", transcripts)
	}
}

func TestStopWithoutStartIsNoOp(t *testing.T) {
	s := New(NewMockRecognizer(), testCaptureConfig())
	s.Stop()
	if s.IsListening() {
		t.Error("IsListening() = true")
	}
}
