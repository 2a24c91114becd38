package tts

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for Provider that records calls.
type Mock struct {
	mu    sync.Mutex
	calls []Request

	// Response returned by Synthesize when Err is nil.
	Response *AudioResult

	// Err, if set, is returned by Synthesize and Health.
	Err error
}

// NewMock creates a mock provider that returns a small fixed MP3 payload.
func NewMock() *Mock {
	return &Mock{
		Response: &AudioResult{
			Audio:    []byte("mock-mp3-bytes"),
			Format:   MP3Format,
			Duration: 2 * time.Second,
		},
	}
}

// MockWithError creates a mock provider that always fails.
func MockWithError(err error) *Mock {
	return &Mock{Err: err}
}

// Synthesize records the call and returns the configured response.
func (m *Mock) Synthesize(ctx context.Context, sr Request) (*AudioResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, sr)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	r := *m.Response
	r.CharCount = len(sr.Text)
	return &r, nil
}

// Health returns the configured error.
func (m *Mock) Health(ctx context.Context) error {
	return m.Err
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

// Calls returns a copy of all recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Synthesize calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
