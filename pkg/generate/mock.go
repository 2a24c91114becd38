package generate

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, returns a fixed response.
	GenerateFunc func(ctx context.Context, req Request) (string, error)

	mu    sync.Mutex
	calls []Request
}

// NewMock creates a mock provider that echoes a fixed response.
func NewMock(response string) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, req Request) (string, error) {
			return response, nil
		},
	}
}

// MockWithError returns a mock provider that always fails.
func MockWithError(err error) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, req Request) (string, error) {
			return "", err
		},
	}
}

// Generate calls GenerateFunc and records the request.
func (m *Mock) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "mock response", nil
}

// Calls returns all recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Generate invocations.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
