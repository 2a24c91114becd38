package generate

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Generator wraps a Provider with the fallback policy.
// Generate never returns an error: provider failures are absorbed and
// converted into degraded-but-valid canned output.
type Generator struct {
	provider Provider // nil means permanently degraded
	logger   *slog.Logger
	rng      *rand.Rand
}

// NewGenerator creates a generator around the given provider.
// Pass nil to run in permanently degraded (canned-output) mode, the
// behavior when no credential is configured.
func NewGenerator(provider Provider, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider: provider,
		logger:   logger.With("component", "generate"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Degraded reports whether the generator has no provider and always
// serves canned output.
func (g *Generator) Degraded() bool {
	return g.provider == nil
}

// Generate returns the persona's next statement. It always returns a
// non-empty string; provider errors are logged and replaced by fallback
// output.
func (g *Generator) Generate(ctx context.Context, req Request) string {
	if g.provider == nil {
		return FallbackUtterance(g.rng, req.Persona.Expertise, req.Topic)
	}

	text, err := g.provider.Generate(ctx, req)
	if err != nil {
		g.logger.Warn("provider failed, using fallback",
			"persona", req.Persona.ID,
			"error", err,
		)
		return FallbackUtterance(g.rng, req.Persona.Expertise, req.Topic)
	}
	if text == "" {
		g.logger.Warn("provider returned empty text, using fallback",
			"persona", req.Persona.ID,
		)
		return FallbackUtterance(g.rng, req.Persona.Expertise, req.Topic)
	}
	return text
}
