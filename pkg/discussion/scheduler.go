// Package discussion implements the turn-taking state machine at the core
// of the system: who speaks next, pacing between turns and rounds, failure
// absorption at turn granularity, and the event stream observers consume.
package discussion

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxlab/go-roundtable/pkg/egress"
	"github.com/voxlab/go-roundtable/pkg/generate"
	"github.com/voxlab/go-roundtable/pkg/persona"
	"github.com/voxlab/go-roundtable/pkg/tts"
)

// ErrRoundActive is returned by RunRound when a round is already
// executing. Callers treat it as a no-op, not a failure.
var ErrRoundActive = errors.New("discussion: round already running")

// Speaker synthesizes an utterance to a playable artifact.
// tts.Synthesizer satisfies this; tests use stubs.
type Speaker interface {
	Speak(ctx context.Context, text, voiceID string) (*tts.Artifact, error)
}

// Config tunes the scheduler's pacing and rotation behavior.
type Config struct {
	// HistoryWindow is how many prior utterances feed generation context.
	HistoryWindow int

	// InterTurnMin/Max bound the randomized pause between turns.
	InterTurnMin time.Duration
	InterTurnMax time.Duration

	// InterRoundDelay separates consecutive rounds.
	InterRoundDelay time.Duration

	// TopicRotateProb is the chance the topic is cleared after a round.
	TopicRotateProb float64

	// SettleBuffer is added to the playout duration before the next turn.
	SettleBuffer time.Duration
}

// DefaultConfig returns the standard pacing configuration.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:   3,
		InterTurnMin:    2 * time.Second,
		InterTurnMax:    4 * time.Second,
		InterRoundDelay: 10 * time.Second,
		TopicRotateProb: 0.3,
		SettleBuffer:    500 * time.Millisecond,
	}
}

// Scheduler drives the discussion: one round at a time, every persona
// speaking once per round in a fresh random order.
type Scheduler struct {
	cfg      Config
	logger   *slog.Logger
	registry *persona.Registry
	gen      *generate.Generator
	speaker  Speaker
	sink     egress.Sink
	events   EventSink
	state    *State
	topics   *TopicSet

	// running guards round mutual exclusion; enabled is the cooperative
	// start/stop switch checked at turn boundaries.
	running atomic.Bool
	enabled atomic.Bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a scheduler. events may be nil (NopSink).
func New(cfg Config, registry *persona.Registry, gen *generate.Generator, speaker Speaker, sink egress.Sink, events EventSink, logger *slog.Logger) *Scheduler {
	if events == nil {
		events = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		logger:   logger.With("component", "discussion"),
		registry: registry,
		gen:      gen,
		speaker:  speaker,
		sink:     sink,
		events:   events,
		state:    NewState(),
		topics:   NewTopicSet(nil),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetTopics replaces the topic set. Call before the loop starts.
func (s *Scheduler) SetTopics(topics []string) {
	s.topics = NewTopicSet(topics)
}

// State exposes the discussion state for snapshot reads.
func (s *Scheduler) State() *State {
	return s.state
}

// Start enables the discussion loop. Returns false when already enabled.
func (s *Scheduler) Start() bool {
	return s.enabled.CompareAndSwap(false, true)
}

// Stop requests a cooperative stop: the current turn finishes, no
// further persona starts. Returns false when already stopped.
func (s *Scheduler) Stop() bool {
	return s.enabled.CompareAndSwap(true, false)
}

// IsEnabled reports whether the loop should run rounds.
func (s *Scheduler) IsEnabled() bool {
	return s.enabled.Load()
}

// IsRoundActive reports whether a round is executing right now.
func (s *Scheduler) IsRoundActive() bool {
	return s.running.Load()
}

// ForceTopic sets the topic immediately, picking a random one when topic
// is empty, and announces the change. Safe during a running round; the
// in-flight round keeps the topic it captured at entry.
func (s *Scheduler) ForceTopic(topic string) string {
	if topic == "" {
		topic = s.pickTopic()
	}
	s.state.SetTopic(topic)
	s.events.Publish(EventTopicUpdate, TopicUpdate{
		Topic: topic,
		Round: s.state.Round(),
	})
	s.logger.Info("topic forced", "topic", topic)
	return topic
}

// RunRound executes one full round: every persona speaks once in a
// freshly randomized order. Returns ErrRoundActive when a round is
// already in flight. The running flag is cleared on every exit path.
func (s *Scheduler) RunRound(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRoundActive
	}
	defer s.running.Store(false)

	round := s.state.BeginRound()

	topic := s.state.Topic()
	if topic == "" {
		topic = s.pickTopic()
		s.state.SetTopic(topic)
	}
	s.events.Publish(EventTopicUpdate, TopicUpdate{Topic: topic, Round: round})
	s.logger.Info("round started", "round", round, "topic", topic)

	order := s.permutation()
	for i, p := range order {
		if !s.enabled.Load() {
			s.logger.Info("stop requested, ending round early", "round", round, "turns_done", i)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.takeTurn(ctx, p, topic)

		if i < len(order)-1 {
			sleepCtx(ctx, s.interTurnPause())
		}
	}

	total := s.state.MessageCount()
	s.events.Publish(EventRoundComplete, RoundComplete{
		Round:              round,
		TotalMessages:      total,
		NextRoundInSeconds: s.cfg.InterRoundDelay.Seconds(),
	})
	s.logger.Info("round complete", "round", round, "total_messages", total)

	sleepCtx(ctx, s.cfg.InterRoundDelay)

	if s.randFloat() < s.cfg.TopicRotateProb {
		s.state.SetTopic("")
		s.logger.Info("topic cleared for rotation", "round", round)
	}
	return nil
}

// takeTurn runs one persona's turn. Every failure inside is absorbed
// here: a broken generation, synthesis, or egress step degrades the turn
// but never the round.
func (s *Scheduler) takeTurn(ctx context.Context, p persona.Persona, topic string) {
	s.state.SetActive(p.ID)
	s.events.Publish(EventAgentStartSpeaking, AgentStartSpeaking{
		AgentID:   p.ID,
		AgentName: p.Name,
	})
	defer func() {
		s.state.ClearActive()
		s.events.Publish(EventAgentStopSpeaking, AgentStopSpeaking{AgentID: p.ID})
	}()

	text := s.gen.Generate(ctx, generate.Request{
		Persona: p,
		Topic:   topic,
		History: s.state.RecentContext(s.cfg.HistoryWindow),
	})

	count := s.state.Append(Message{
		AgentID:   p.ID,
		AgentName: p.Name,
		Text:      text,
		Round:     s.state.Round(),
		Time:      time.Now(),
	})
	s.events.Publish(EventNewMessage, NewMessage{
		AgentID:      p.ID,
		AgentName:    p.Name,
		Message:      text,
		Expertise:    p.Expertise,
		Avatar:       p.Avatar,
		Color:        p.Color,
		MessageCount: count,
	})

	u := egress.Utterance{Text: text}
	if artifact, err := s.speaker.Speak(ctx, text, p.Voice); err != nil {
		s.logger.Warn("synthesis failed, pacing by estimate",
			"persona", p.ID,
			"error", err,
		)
	} else {
		u.AudioPath = artifact.Path
		u.Duration = artifact.Duration
	}

	duration, err := s.sink.Emit(ctx, u)
	if err != nil {
		s.logger.Warn("egress failed", "persona", p.ID, "error", err)
	}
	if duration <= 0 {
		duration = egress.EstimateSpeech(text)
	}

	sleepCtx(ctx, duration+s.cfg.SettleBuffer)
}

// Snapshot builds the full state a late-joining observer receives.
func (s *Scheduler) Snapshot() Snapshot {
	active := s.state.ActiveAgent()
	roster := s.registry.All()

	agents := make([]AgentView, 0, len(roster))
	for _, p := range roster {
		agents = append(agents, AgentView{
			ID:         p.ID,
			Name:       p.Name,
			Expertise:  p.Expertise,
			Avatar:     p.Avatar,
			Color:      p.Color,
			IsSpeaking: p.ID == active,
		})
	}

	topic := s.state.Topic()
	return Snapshot{
		Topic:  topic,
		Agents: agents,
		Stats: Stats{
			MessageCount: s.state.MessageCount(),
			Round:        s.state.Round(),
			CurrentTopic: topic,
			IsActive:     s.enabled.Load(),
			ActiveAgent:  active,
			AgentsCount:  len(roster),
		},
	}
}

// permutation returns the roster in a fresh random order.
func (s *Scheduler) permutation() []persona.Persona {
	order := s.registry.All()
	s.rngMu.Lock()
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	s.rngMu.Unlock()
	return order
}

func (s *Scheduler) interTurnPause() time.Duration {
	span := s.cfg.InterTurnMax - s.cfg.InterTurnMin
	if span <= 0 {
		return s.cfg.InterTurnMin
	}
	return s.cfg.InterTurnMin + time.Duration(s.randFloat()*float64(span))
}

func (s *Scheduler) randFloat() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Scheduler) pickTopic() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.topics.Pick(s.rng)
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
