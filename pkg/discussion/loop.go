package discussion

import (
	"context"
	"errors"
	"time"
)

const (
	// idlePoll is how often the loop re-checks the enabled flag.
	idlePoll = time.Second

	// roundBackoff follows a failed round before the next attempt.
	roundBackoff = 5 * time.Second

	// startupGrace delays the first round after the loop starts.
	startupGrace = 2 * time.Second
)

// Run drives the unattended discussion loop until ctx is canceled. Each
// iteration runs one round when the scheduler is enabled; unexpected
// round failures are logged and retried after a backoff, so the
// discussion is self-healing.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("discussion loop started")
	sleepCtx(ctx, startupGrace)

	for {
		if ctx.Err() != nil {
			s.logger.Info("discussion loop stopped")
			return
		}

		if !s.enabled.Load() {
			sleepCtx(ctx, idlePoll)
			continue
		}

		err := s.RunRound(ctx)
		switch {
		case err == nil, errors.Is(err, ErrRoundActive):
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		default:
			s.logger.Error("round failed, backing off", "error", err)
			sleepCtx(ctx, roundBackoff)
		}
	}
}
