package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoStreamKey is returned when the manual variant has no key to use.
var ErrNoStreamKey = errors.New("live: stream key required")

// ManualKey targets an RTMP ingest with a user-supplied stream key. The
// platform itself is untouched; the operator is expected to have created
// the broadcast in the platform's UI.
type ManualKey struct {
	rtmpBase string
	key      string

	mu     sync.Mutex
	active bool
}

// NewManualKey creates a manual-key control. rtmpBase is the ingest
// endpoint without the key, e.g. rtmp://a.rtmp.youtube.com/live2.
// key may be empty if every Start supplies one.
func NewManualKey(rtmpBase, key string) *ManualKey {
	return &ManualKey{
		rtmpBase: strings.TrimRight(rtmpBase, "/"),
		key:      key,
	}
}

// Start composes the ingest URL from the configured or supplied key.
func (m *ManualKey) Start(_ context.Context, opts StartOptions) (*StreamInfo, error) {
	key := opts.StreamKey
	if key == "" {
		key = m.key
	}
	if key == "" {
		return nil, ErrNoStreamKey
	}

	m.mu.Lock()
	m.active = true
	m.mu.Unlock()

	return &StreamInfo{
		IngestURL: fmt.Sprintf("%s/%s", m.rtmpBase, key),
	}, nil
}

// Stop marks the broadcast inactive.
func (m *ManualKey) Stop(context.Context) error {
	m.mu.Lock()
	m.active = false
	m.mu.Unlock()
	return nil
}

// Status reports the manual mode.
func (m *ManualKey) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Mode:          "manual",
		Authenticated: m.key != "",
		Active:        m.active,
	}
}

// Verify ManualKey implements Control at compile time.
var _ Control = (*ManualKey)(nil)
