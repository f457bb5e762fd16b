package capture

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lorekeep/lorekeep/audio"
)

// Events are the service's outbound notifications. All callbacks are
// optional and fire outside the service's lock.
type Events struct {
	// OnTranscript fires with a completed capture result.
	OnTranscript func(text string, capturedAt time.Time)
	// OnListeningChanged fires when capture starts or stops.
	OnListeningChanged func(listening bool)
	// OnError fires when a capture attempt failed. Any partial
	// transcript has been discarded.
	OnError func(err error)
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the service's notification callbacks.
func WithEvents(ev Events) Option {
	return func(s *Service) {
		s.events = ev
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service runs single-shot voice capture. It does not stop narration
// playback when listening starts; the two pipelines share hardware but
// not state.
type Service struct {
	rec    Recognizer
	cfg    audio.CaptureConfig
	logger *log.Logger
	events Events

	mu         sync.Mutex
	listening  bool
	cancel     context.CancelFunc
	generation uint64
}

// New creates a capture Service over the given recognizer.
func New(rec Recognizer, cfg audio.CaptureConfig, opts ...Option) *Service {
	s := &Service{
		rec:    rec,
		cfg:    cfg,
		logger: log.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Supported reports whether the host can capture speech.
func (s *Service) Supported() bool {
	return s.rec.Supported()
}

// IsListening reports whether a capture is in progress.
func (s *Service) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Start begins one capture. Already listening is a no-op; an
// unsupported host returns ErrCaptureUnsupported so the caller can
// disable its controls. One transcript at most is published, after
// which listening ends on its own.
func (s *Service) Start() error {
	if !s.rec.Supported() {
		return audio.ErrCaptureUnsupported
	}

	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return audio.ErrAlreadyListening
	}
	s.generation++
	gen := s.generation
	s.listening = true
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.MaxUtterance)
	s.cancel = cancel
	s.mu.Unlock()

	if s.events.OnListeningChanged != nil {
		s.events.OnListeningChanged(true)
	}

	go s.listen(ctx, gen)
	return nil
}

// Stop cancels the capture in progress. The partial transcript, if any,
// is discarded.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.listening = false
	s.mu.Unlock()

	if s.events.OnListeningChanged != nil {
		s.events.OnListeningChanged(false)
	}
}

func (s *Service) listen(ctx context.Context, gen uint64) {
	defer func() {
		s.mu.Lock()
		if s.cancel != nil && gen == s.generation {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	text, err := s.rec.Listen(ctx)

	s.mu.Lock()
	if gen != s.generation {
		// Stop won the race; its transcript is discarded.
		s.mu.Unlock()
		return
	}
	s.listening = false
	s.mu.Unlock()

	if s.events.OnListeningChanged != nil {
		s.events.OnListeningChanged(false)
	}

	if err != nil {
		s.logger.Warn("voice capture failed", "error", err)
		if s.events.OnError != nil {
			s.events.OnError(err)
		}
		return
	}

	if s.events.OnTranscript != nil {
		s.events.OnTranscript(text, time.Now())
	}
}
