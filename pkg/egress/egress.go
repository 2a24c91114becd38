// Package egress carries synthesized utterances out of the process: to an
// RTMP ingest endpoint through a managed ffmpeg child, to local speakers,
// or nowhere at all in text-only mode. Sinks also own playout pacing: Emit
// returns the duration the caller should hold the floor for.
package egress

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Utterance is one unit of playout.
type Utterance struct {
	// Text is the spoken content. Always set; used for duration
	// estimation when no audio exists.
	Text string

	// AudioPath is the synthesized audio file. Empty when synthesis
	// failed and the utterance plays as silence for its estimated
	// duration.
	AudioPath string

	// Duration is the known playback length, zero if unknown.
	Duration time.Duration
}

// Sink consumes utterances. Emit blocks only long enough to hand the
// audio off, not for playback; it returns the playout duration so the
// caller can pace the next turn.
type Sink interface {
	Emit(ctx context.Context, u Utterance) (time.Duration, error)
	Close() error
}

// TextSink is the no-audio sink: it logs the utterance and paces by the
// word-count estimate. Used when no synthesis provider is configured.
type TextSink struct {
	logger *slog.Logger
}

// NewTextSink creates a text-only sink.
func NewTextSink(logger *slog.Logger) *TextSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextSink{logger: logger.With("component", "egress.text")}
}

// Emit logs the utterance and returns its estimated spoken duration.
func (s *TextSink) Emit(_ context.Context, u Utterance) (time.Duration, error) {
	d := u.Duration
	if d <= 0 {
		d = EstimateSpeech(u.Text)
	}
	s.logger.Info("utterance", "chars", len(u.Text), "duration", d)
	return d, nil
}

// Close is a no-op.
func (s *TextSink) Close() error { return nil }

// MultiSink fans an utterance out to several sinks. The returned duration
// is the longest any sink reported, so pacing covers the slowest playout.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks; nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept}
}

// Emit sends the utterance to every sink. Failures are joined but do not
// stop delivery to the remaining sinks.
func (m *MultiSink) Emit(ctx context.Context, u Utterance) (time.Duration, error) {
	var longest time.Duration
	var errs []error

	for _, s := range m.sinks {
		d, err := s.Emit(ctx, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if d > longest {
			longest = d
		}
	}

	if longest == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return longest, errors.Join(errs...)
}

// Close closes all sinks, returning the joined errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
