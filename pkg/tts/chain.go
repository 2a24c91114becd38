package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Chain tries multiple TTS providers in order until one succeeds.
// Providers earlier in the chain are preferred; later ones are fallbacks.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain. Nil providers are skipped, so callers
// can pass the result of a failed constructor without checking.
func NewChain(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	kept := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: kept,
		logger:    logger.With("component", "tts.chain"),
	}, nil
}

// Synthesize tries each provider in order, returning the first success.
func (c *Chain) Synthesize(ctx context.Context, sr Request) (*AudioResult, error) {
	var errs []error

	for i, p := range c.providers {
		result, err := p.Synthesize(ctx, sr)
		if err == nil {
			if i > 0 {
				c.logger.Info("fell back to secondary provider", "index", i)
			}
			return result, nil
		}

		errs = append(errs, err)
		c.logger.Warn("provider failed, trying next",
			"index", i,
			"error", err,
		)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Health returns nil if any provider in the chain is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Health(ctx); err == nil {
			return nil
		} else {
			errs = append(errs, err)
		}
	}
	return &ChainError{Errors: errs}
}

// Close closes all providers, returning the first error encountered.
func (c *Chain) Close() error {
	var first error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int {
	return len(c.providers)
}

// ChainError aggregates the failures of every provider in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "tts: chain failed with no providers"
	}
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("tts: all %d providers failed: %s", len(e.Errors), strings.Join(parts, "; "))
}

// Unwrap exposes the underlying errors to errors.Is/As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}

// Is reports ErrProviderUnavailable when every provider failed.
func (e *ChainError) Is(target error) bool {
	return target == ErrProviderUnavailable && len(e.Errors) > 0
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
