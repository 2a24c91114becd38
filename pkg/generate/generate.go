// Package generate produces one persona's next statement in the discussion.
//
// The package wraps a text-generation Provider with a canned-fallback policy:
// from the scheduler's point of view Generate never fails. A missing or broken
// provider degrades to template output, never to an error.
package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxlab/go-roundtable/pkg/persona"
)

// Sentinel errors for provider conditions.
var (
	// ErrNoAPIKey is returned when the provider has no credential configured.
	ErrNoAPIKey = errors.New("generate: API key required")

	// ErrEmptyCompletion is returned when the provider returns no usable text.
	ErrEmptyCompletion = errors.New("generate: provider returned empty completion")
)

// Request carries everything a provider needs to produce one utterance.
type Request struct {
	// Persona is the speaker identity used for prompt framing.
	Persona persona.Persona

	// Topic is the current discussion topic.
	Topic string

	// History holds the most recent prior utterances, oldest first,
	// each formatted as "Name: text". The caller bounds the window.
	History []string
}

// Provider is the text-generation collaborator.
// Implementations may fail; the Generator absorbs their errors.
type Provider interface {
	// Generate returns the persona's next statement for the topic.
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("generate [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
