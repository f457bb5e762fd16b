package capture

import "context"

// MockRecognizer implements Recognizer for testing. Listen blocks until
// the test feeds a result or the context is cancelled.
type MockRecognizer struct {
	// SupportedFlag is returned by Supported. Defaults to true for
	// NewMockRecognizer.
	SupportedFlag bool

	results chan mockResult
}

type mockResult struct {
	text string
	err  error
}

// NewMockRecognizer creates a supported mock recognizer.
func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{
		SupportedFlag: true,
		results:       make(chan mockResult, 1),
	}
}

// Supported implements Recognizer.
func (m *MockRecognizer) Supported() bool {
	return m.SupportedFlag
}

// Listen implements Recognizer.
func (m *MockRecognizer) Listen(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-m.results:
		return r.text, r.err
	}
}

// Feed completes the pending Listen with a transcript.
func (m *MockRecognizer) Feed(text string) {
	m.results <- mockResult{text: text}
}

// Fail completes the pending Listen with an error.
func (m *MockRecognizer) Fail(err error) {
	m.results <- mockResult{err: err}
}

var _ Recognizer = (*MockRecognizer)(nil)
