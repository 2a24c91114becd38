package tts

import (
	"context"
	"log/slog"
	"time"
)

// Artifact is a synthesized utterance on disk, ready for playout.
type Artifact struct {
	// Path is the audio file location in the cache directory.
	Path string

	// Duration is the playback length. Zero means unknown; callers
	// should fall back to a word-count estimate.
	Duration time.Duration

	// Cached is true when the artifact was served from the cache
	// without calling a provider.
	Cached bool
}

// Synthesizer combines a provider (usually a Chain) with the on-disk
// cache. Every utterance goes through here: cache hit returns the
// existing file, cache miss synthesizes and stores it.
type Synthesizer struct {
	provider Provider
	cache    *Cache
	logger   *slog.Logger
}

// NewSynthesizer creates a caching synthesizer. The provider may be nil,
// in which case every Speak call fails with ErrProviderUnavailable and
// the caller runs in text-only mode.
func NewSynthesizer(provider Provider, cache *Cache, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		provider: provider,
		cache:    cache,
		logger:   logger.With("component", "tts.synthesizer"),
	}
}

// Degraded reports whether no provider is configured.
func (s *Synthesizer) Degraded() bool {
	return s.provider == nil
}

// Speak returns a playable artifact for (text, voiceID), synthesizing
// on a cache miss. Unknown voice ids resolve to the default profile.
func (s *Synthesizer) Speak(ctx context.Context, text, voiceID string) (*Artifact, error) {
	voice := ResolveVoice(voiceID)

	if path, duration, ok := s.cache.Get(text, voice.ID); ok {
		s.logger.Debug("cache hit", "voice", voice.ID, "chars", len(text))
		return &Artifact{Path: path, Duration: duration, Cached: true}, nil
	}

	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	result, err := s.provider.Synthesize(ctx, Request{Text: text, Voice: voice})
	if err != nil {
		return nil, err
	}

	path, err := s.cache.Put(text, voice.ID, result.Audio, result.Duration)
	if err != nil {
		return nil, err
	}

	return &Artifact{Path: path, Duration: result.Duration}, nil
}

// Health reports provider health; a nil provider is unhealthy.
func (s *Synthesizer) Health(ctx context.Context) error {
	if s.provider == nil {
		return ErrProviderUnavailable
	}
	return s.provider.Health(ctx)
}

// Close closes the underlying provider.
func (s *Synthesizer) Close() error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Close()
}
