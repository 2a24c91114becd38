package egress

import (
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// Player plays utterances on local speakers via ffplay. Playback runs in
// the background; Emit returns the playout duration immediately so the
// caller paces the same way it would against a stream.
type Player struct {
	logger *slog.Logger
}

// NewPlayer creates a local playback sink.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{logger: logger.With("component", "egress.player")}
}

// Emit starts playback of the utterance audio and returns its duration.
// Utterances without audio return the word-count estimate.
func (p *Player) Emit(ctx context.Context, u Utterance) (time.Duration, error) {
	duration := u.Duration

	if u.AudioPath != "" {
		if duration <= 0 {
			if d, err := ProbeDuration(ctx, u.AudioPath); err == nil {
				duration = d
			}
		}

		cmd := exec.Command("ffplay", "-nodisp", "-autoexit", "-loglevel", "error", u.AudioPath)
		if err := cmd.Start(); err != nil {
			return 0, err
		}
		go func() {
			if err := cmd.Wait(); err != nil {
				p.logger.Warn("playback failed", "path", u.AudioPath, "error", err)
			}
		}()
	}

	if duration <= 0 {
		duration = EstimateSpeech(u.Text)
	}
	return duration, nil
}

// Close is a no-op.
func (p *Player) Close() error { return nil }

// Verify Player implements Sink at compile time.
var _ Sink = (*Player)(nil)
