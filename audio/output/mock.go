package output

import (
	"sync"
	"time"

	"github.com/lorekeep/lorekeep/audio"
)

// Mock implements audio.Output for testing. It records every playback
// and lets tests drive completion and failure explicitly, so state
// machine transitions can be exercised without real audio hardware.
type Mock struct {
	mu     sync.Mutex
	plays  []*MockPlayback
	closed bool

	// PlayErr, when set, is returned by every Play call.
	PlayErr error

	// Callbacks for test hooks.
	OnPlay func(pcm *audio.PCM, opts audio.PlayOptions)
}

// NewMock creates a mock output.
func NewMock() *Mock {
	return &Mock{}
}

// Play implements audio.Output.
func (m *Mock) Play(pcm *audio.PCM, opts audio.PlayOptions) (audio.Playback, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, audio.ErrOutputClosed
	}
	if m.PlayErr != nil {
		err := m.PlayErr
		m.mu.Unlock()
		return nil, err
	}

	pb := &MockPlayback{
		PCM:      pcm,
		Gain:     opts.Gain,
		opts:     opts,
		playing:  true,
		duration: pcm.Duration(),
	}
	m.plays = append(m.plays, pb)
	hook := m.OnPlay
	m.mu.Unlock()

	if hook != nil {
		hook(pcm, opts)
	}
	return pb, nil
}

// Close implements audio.Output.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, pb := range m.plays {
		pb.stopLocked()
	}
	return nil
}

// Playbacks returns every playback started so far.
func (m *Mock) Playbacks() []*MockPlayback {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockPlayback, len(m.plays))
	copy(out, m.plays)
	return out
}

// Last returns the most recent playback, or nil if none started.
func (m *Mock) Last() *MockPlayback {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.plays) == 0 {
		return nil
	}
	return m.plays[len(m.plays)-1]
}

// PlayCount returns how many playbacks were started.
func (m *Mock) PlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plays)
}

// ActiveCount returns how many playbacks are currently playing.
func (m *Mock) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, pb := range m.plays {
		if pb.IsPlaying() {
			n++
		}
	}
	return n
}

// MockPlayback is a recorded playback on a Mock output.
type MockPlayback struct {
	PCM  *audio.PCM
	Gain float64

	opts     audio.PlayOptions
	duration time.Duration

	mu        sync.Mutex
	playing   bool
	paused    bool
	stopped   bool
	completed bool

	stopCount   int
	pauseCount  int
	resumeCount int
	gains       []float64
}

// Complete simulates the natural end of playback, firing OnComplete.
// It is a no-op if the playback was stopped first.
func (pb *MockPlayback) Complete() {
	pb.mu.Lock()
	if pb.stopped || pb.completed {
		pb.mu.Unlock()
		return
	}
	pb.completed = true
	pb.playing = false
	fn := pb.opts.OnComplete
	pb.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Fail simulates a device failure, firing OnError.
func (pb *MockPlayback) Fail(err error) {
	pb.mu.Lock()
	if pb.stopped || pb.completed {
		pb.mu.Unlock()
		return
	}
	pb.stopped = true
	pb.playing = false
	fn := pb.opts.OnError
	pb.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// Pause implements audio.Playback.
func (pb *MockPlayback) Pause() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if !pb.playing {
		return audio.ErrNotPlaying
	}
	pb.playing = false
	pb.paused = true
	pb.pauseCount++
	return nil
}

// Resume implements audio.Playback.
func (pb *MockPlayback) Resume() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if !pb.paused {
		return audio.ErrNotPaused
	}
	pb.paused = false
	pb.playing = true
	pb.resumeCount++
	return nil
}

// Stop implements audio.Playback.
func (pb *MockPlayback) Stop() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.stopLocked()
	return nil
}

func (pb *MockPlayback) stopLocked() {
	if pb.stopped || pb.completed {
		return
	}
	pb.stopped = true
	pb.playing = false
	pb.stopCount++
}

// SetGain implements audio.Playback.
func (pb *MockPlayback) SetGain(gain float64) error {
	if gain < 0 || gain > 1 {
		return audio.ErrInvalidGain
	}
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.Gain = gain
	pb.gains = append(pb.gains, gain)
	return nil
}

// IsPlaying implements audio.Playback.
func (pb *MockPlayback) IsPlaying() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.playing
}

// Position implements audio.Playback. The mock reports the full
// duration once completed and zero otherwise.
func (pb *MockPlayback) Position() time.Duration {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.completed {
		return pb.duration
	}
	return 0
}

// Stopped reports whether Stop or Fail ended this playback.
func (pb *MockPlayback) Stopped() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.stopped
}

// Completed reports whether playback reached its natural end.
func (pb *MockPlayback) Completed() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.completed
}

// Paused reports whether the playback is paused.
func (pb *MockPlayback) Paused() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.paused
}

// GainHistory returns every gain applied via SetGain, in order.
func (pb *MockPlayback) GainHistory() []float64 {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	out := make([]float64, len(pb.gains))
	copy(out, pb.gains)
	return out
}

var _ audio.Output = (*Mock)(nil)
var _ audio.Playback = (*MockPlayback)(nil)
