// Package live controls the remote live platform a discussion streams to.
// Three variants sit behind one Control interface: no platform at all,
// a manually supplied stream key, and a managed YouTube account that
// creates and binds broadcasts through the Data API.
package live

import (
	"context"
	"errors"
)

// ErrNoPlatform is returned when no live target is configured.
var ErrNoPlatform = errors.New("live: no platform configured")

// StartOptions shapes a new broadcast. All fields are optional; variants
// use what applies to them and ignore the rest.
type StartOptions struct {
	// Title and Description label the broadcast on managed platforms.
	Title       string
	Description string

	// Privacy is the broadcast visibility: public, unlisted, private.
	Privacy string

	// StreamKey overrides the configured key for the manual variant.
	StreamKey string
}

// StreamInfo describes where to push and where to watch.
type StreamInfo struct {
	// IngestURL is the full RTMP target including the stream key.
	IngestURL string `json:"ingest_url"`

	// BroadcastID is the platform's broadcast identifier, empty for
	// unmanaged variants.
	BroadcastID string `json:"broadcast_id,omitempty"`

	// WatchURL is the public viewing page, if known.
	WatchURL string `json:"watch_url,omitempty"`
}

// Status is a snapshot of the platform connection.
type Status struct {
	// Mode identifies the variant: disabled, manual, youtube.
	Mode string `json:"mode"`

	// Authenticated reports whether the platform accepted credentials.
	Authenticated bool `json:"authenticated"`

	// Active reports whether a broadcast is currently open.
	Active bool `json:"active"`

	// BroadcastID and WatchURL mirror the active StreamInfo.
	BroadcastID string `json:"broadcast_id,omitempty"`
	WatchURL    string `json:"watch_url,omitempty"`
}

// Control manages the lifecycle of a broadcast on a live platform.
type Control interface {
	// Start opens a broadcast and returns where to push audio.
	Start(ctx context.Context, opts StartOptions) (*StreamInfo, error)

	// Stop ends the active broadcast. No-op when none is active.
	Stop(ctx context.Context) error

	// Status returns a snapshot of the connection.
	Status() Status
}

// Disabled is the no-platform variant: Start always fails, so egress
// stays local-only.
type Disabled struct{}

// NewDisabled creates the no-platform control.
func NewDisabled() Disabled { return Disabled{} }

// Start always returns ErrNoPlatform.
func (Disabled) Start(context.Context, StartOptions) (*StreamInfo, error) {
	return nil, ErrNoPlatform
}

// Stop is a no-op.
func (Disabled) Stop(context.Context) error { return nil }

// Status reports the disabled mode.
func (Disabled) Status() Status {
	return Status{Mode: "disabled"}
}

// Verify Disabled implements Control at compile time.
var _ Control = Disabled{}
