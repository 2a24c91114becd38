package discussion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxlab/go-roundtable/pkg/egress"
	"github.com/voxlab/go-roundtable/pkg/generate"
	"github.com/voxlab/go-roundtable/pkg/persona"
	"github.com/voxlab/go-roundtable/pkg/tts"
)

// recordedEvent is one published event with its kind.
type recordedEvent struct {
	kind    string
	payload any
}

// recorder captures events and optionally reacts to them.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
	onKind func(kind string)
}

func (r *recorder) Publish(kind string, payload any) {
	r.mu.Lock()
	r.events = append(r.events, recordedEvent{kind: kind, payload: payload})
	hook := r.onKind
	r.mu.Unlock()
	if hook != nil {
		hook(kind)
	}
}

func (r *recorder) byKind(kind string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// fakeSpeaker satisfies Speaker without touching disk or providers.
type fakeSpeaker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSpeaker) Speak(_ context.Context, text, voiceID string) (*tts.Artifact, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &tts.Artifact{Path: "fake.mp3", Duration: time.Millisecond}, nil
}

// fastSink paces turns in microseconds so rounds finish instantly.
type fastSink struct{}

func (fastSink) Emit(context.Context, egress.Utterance) (time.Duration, error) {
	return time.Millisecond, nil
}
func (fastSink) Close() error { return nil }

// failSink always fails, simulating a dead egress pipe.
type failSink struct{}

func (failSink) Emit(context.Context, egress.Utterance) (time.Duration, error) {
	return time.Millisecond, errors.New("pipe broken")
}
func (failSink) Close() error { return nil }

func fastConfig() Config {
	return Config{
		HistoryWindow:   3,
		InterTurnMin:    0,
		InterTurnMax:    0,
		InterRoundDelay: 0,
		TopicRotateProb: 0,
		SettleBuffer:    0,
	}
}

func newTestScheduler(t *testing.T, events EventSink, speaker Speaker, sink egress.Sink) *Scheduler {
	t.Helper()
	reg, err := persona.NewRegistry(persona.DefaultRoster())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	gen := generate.NewGenerator(generate.NewMock("stub response"), nil)
	s := New(fastConfig(), reg, gen, speaker, sink, events, nil)
	s.Start()
	return s
}

func TestRunRound(t *testing.T) {
	ctx := context.Background()

	t.Run("every persona speaks exactly once per round", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{}, fastSink{})

		if err := s.RunRound(ctx); err != nil {
			t.Fatalf("RunRound: %v", err)
		}

		starts := rec.byKind(EventAgentStartSpeaking)
		seen := map[string]int{}
		for _, e := range starts {
			seen[e.payload.(AgentStartSpeaking).AgentID]++
		}

		roster := persona.DefaultRoster()
		if len(starts) != len(roster) {
			t.Fatalf("expected %d turns, got %d", len(roster), len(starts))
		}
		for _, p := range roster {
			if seen[p.ID] != 1 {
				t.Errorf("persona %s spoke %d times, expected 1", p.ID, seen[p.ID])
			}
		}
	})

	t.Run("messages carry stub text and metadata", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{}, fastSink{})

		if err := s.RunRound(ctx); err != nil {
			t.Fatalf("RunRound: %v", err)
		}

		msgs := rec.byKind(EventNewMessage)
		if len(msgs) != 4 {
			t.Fatalf("expected 4 new_message events, got %d", len(msgs))
		}
		ids := map[string]bool{}
		for i, e := range msgs {
			m := e.payload.(NewMessage)
			if m.Message != "stub response" {
				t.Errorf("message %d: expected stub response, got %q", i, m.Message)
			}
			if m.MessageCount != i+1 {
				t.Errorf("message %d: expected count %d, got %d", i, i+1, m.MessageCount)
			}
			if m.Expertise == "" || m.Avatar == "" || m.Color == "" {
				t.Errorf("message %d: missing persona metadata: %+v", i, m)
			}
			ids[m.AgentID] = true
		}
		if len(ids) != 4 {
			t.Errorf("expected 4 distinct agent ids, got %d", len(ids))
		}

		completes := rec.byKind(EventRoundComplete)
		if len(completes) != 1 {
			t.Fatalf("expected 1 round_complete, got %d", len(completes))
		}
		rc := completes[0].payload.(RoundComplete)
		if rc.TotalMessages != 4 {
			t.Errorf("expected total_messages 4, got %d", rc.TotalMessages)
		}
		if rc.Round != 1 {
			t.Errorf("expected round 1, got %d", rc.Round)
		}
	})

	t.Run("events are ordered topic then turns then complete", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{}, fastSink{})

		if err := s.RunRound(ctx); err != nil {
			t.Fatalf("RunRound: %v", err)
		}

		rec.mu.Lock()
		kinds := make([]string, len(rec.events))
		for i, e := range rec.events {
			kinds[i] = e.kind
		}
		rec.mu.Unlock()

		if kinds[0] != EventTopicUpdate {
			t.Errorf("first event should be topic_update, got %s", kinds[0])
		}
		if kinds[len(kinds)-1] != EventRoundComplete {
			t.Errorf("last event should be round_complete, got %s", kinds[len(kinds)-1])
		}
		// Each turn is start -> message -> stop, in sequence.
		for i := 1; i+2 < len(kinds); i += 3 {
			if kinds[i] != EventAgentStartSpeaking || kinds[i+1] != EventNewMessage || kinds[i+2] != EventAgentStopSpeaking {
				t.Fatalf("turn %d out of order: %v", i/3, kinds[i:i+3])
			}
		}
	})

	t.Run("concurrent invocations run exactly one round", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{}, fastSink{})

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- s.RunRound(ctx)
			}()
		}
		wg.Wait()
		close(results)

		var noops, runs int
		for err := range results {
			if errors.Is(err, ErrRoundActive) {
				noops++
			} else if err == nil {
				runs++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}
		// The loser of the CAS may also run a full round if the winner
		// already finished; either way no two rounds overlap and each
		// completed round has exactly 4 messages.
		msgs := rec.byKind(EventNewMessage)
		if len(msgs)%4 != 0 || len(msgs) == 0 {
			t.Errorf("expected a whole number of 4-turn rounds, got %d messages", len(msgs))
		}
		if runs == 0 {
			t.Error("at least one invocation should have run a round")
		}
	})

	t.Run("failing synthesis still completes all turns", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{err: errors.New("provider down")}, fastSink{})

		if err := s.RunRound(ctx); err != nil {
			t.Fatalf("RunRound: %v", err)
		}
		if got := len(rec.byKind(EventNewMessage)); got != 4 {
			t.Errorf("expected 4 messages despite synthesis failure, got %d", got)
		}
		if got := len(rec.byKind(EventRoundComplete)); got != 1 {
			t.Errorf("expected round to complete, got %d round_complete events", got)
		}
	})

	t.Run("failing egress still completes all turns", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{}, failSink{})

		if err := s.RunRound(ctx); err != nil {
			t.Fatalf("RunRound: %v", err)
		}
		if got := len(rec.byKind(EventNewMessage)); got != 4 {
			t.Errorf("expected 4 messages despite egress failure, got %d", got)
		}
	})

	t.Run("stop mid-round ends at the turn boundary", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{}, fastSink{})
		rec.onKind = func(kind string) {
			if kind == EventAgentStartSpeaking {
				s.Stop()
			}
		}

		if err := s.RunRound(ctx); err != nil {
			t.Fatalf("RunRound: %v", err)
		}
		if got := len(rec.byKind(EventAgentStartSpeaking)); got != 1 {
			t.Errorf("expected 1 turn before stop took effect, got %d", got)
		}
		if got := len(rec.byKind(EventRoundComplete)); got != 0 {
			t.Errorf("stopped round must not emit round_complete, got %d", got)
		}

		// A fresh start begins a new round with a full permutation.
		rec.onKind = nil
		if !s.Start() {
			t.Fatal("Start should succeed after Stop")
		}
		if err := s.RunRound(ctx); err != nil {
			t.Fatalf("RunRound: %v", err)
		}
		if got := len(rec.byKind(EventAgentStartSpeaking)); got != 5 {
			t.Errorf("expected 1+4 turns total, got %d", got)
		}
	})

	t.Run("round counter increments once per round start", func(t *testing.T) {
		s := newTestScheduler(t, &recorder{}, &fakeSpeaker{}, fastSink{})
		for i := 1; i <= 3; i++ {
			if err := s.RunRound(ctx); err != nil {
				t.Fatalf("round %d: %v", i, err)
			}
			if s.State().Round() != i {
				t.Errorf("expected round %d, got %d", i, s.State().Round())
			}
		}
	})
}

func TestTopicSelection(t *testing.T) {
	t.Run("never empty", func(t *testing.T) {
		s := newTestScheduler(t, &recorder{}, &fakeSpeaker{}, fastSink{})
		for i := 0; i < 100; i++ {
			if s.ForceTopic("") == "" {
				t.Fatal("forced topic must never be empty")
			}
		}
	})

	t.Run("covers the full set over many trials", func(t *testing.T) {
		s := newTestScheduler(t, &recorder{}, &fakeSpeaker{}, fastSink{})
		s.SetTopics([]string{"alpha", "beta", "gamma"})

		seen := map[string]bool{}
		for i := 0; i < 200; i++ {
			seen[s.ForceTopic("")] = true
		}
		if len(seen) != 3 {
			t.Errorf("expected all 3 topics seen, got %d", len(seen))
		}
	})

	t.Run("explicit topic wins", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{}, fastSink{})
		if got := s.ForceTopic("quantum computing"); got != "quantum computing" {
			t.Errorf("expected explicit topic, got %q", got)
		}
		if s.State().Topic() != "quantum computing" {
			t.Errorf("state topic not updated: %q", s.State().Topic())
		}
		updates := rec.byKind(EventTopicUpdate)
		if len(updates) != 1 {
			t.Fatalf("expected 1 topic_update, got %d", len(updates))
		}
	})

	t.Run("rotation clears the topic after a round", func(t *testing.T) {
		s := newTestScheduler(t, &recorder{}, &fakeSpeaker{}, fastSink{})
		s.cfg.TopicRotateProb = 1.0

		if err := s.RunRound(context.Background()); err != nil {
			t.Fatalf("RunRound: %v", err)
		}
		if s.State().Topic() != "" {
			t.Errorf("expected topic cleared, got %q", s.State().Topic())
		}
	})
}

func TestSnapshot(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, rec, &fakeSpeaker{}, fastSink{})

	snap := s.Snapshot()
	if len(snap.Agents) != 4 {
		t.Fatalf("expected 4 agents, got %d", len(snap.Agents))
	}
	if snap.Stats.AgentsCount != 4 {
		t.Errorf("expected agents_count 4, got %d", snap.Stats.AgentsCount)
	}
	if !snap.Stats.IsActive {
		t.Error("expected is_active after Start")
	}
	for _, a := range snap.Agents {
		if a.IsSpeaking {
			t.Errorf("no agent should be speaking while idle: %s", a.ID)
		}
	}

	if err := s.RunRound(context.Background()); err != nil {
		t.Fatalf("RunRound: %v", err)
	}
	snap = s.Snapshot()
	if snap.Stats.MessageCount != 4 {
		t.Errorf("expected message_count 4, got %d", snap.Stats.MessageCount)
	}
	if snap.Stats.Round != 1 {
		t.Errorf("expected round 1, got %d", snap.Stats.Round)
	}
	if snap.Topic == "" {
		t.Error("expected a topic after a round")
	}
}

func TestStateHistory(t *testing.T) {
	st := NewState()
	for i := 0; i < 5; i++ {
		st.Append(Message{AgentID: "a", AgentName: "Alice", Text: "line", Round: 1})
	}

	if got := len(st.RecentContext(3)); got != 3 {
		t.Errorf("expected window of 3, got %d", got)
	}
	if got := len(st.RecentContext(10)); got != 5 {
		t.Errorf("expected all 5 entries, got %d", got)
	}
	if got := len(st.History()); got != 5 {
		t.Errorf("expected full log of 5, got %d", got)
	}
	if st.RecentContext(1)[0] != "Alice: line" {
		t.Errorf("unexpected context format: %q", st.RecentContext(1)[0])
	}
}

func TestLoop(t *testing.T) {
	t.Run("disabled loop runs no rounds", func(t *testing.T) {
		rec := &recorder{}
		s := newTestScheduler(t, rec, &fakeSpeaker{}, fastSink{})
		s.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		s.Run(ctx)

		if got := len(rec.byKind(EventNewMessage)); got != 0 {
			t.Errorf("expected no messages while stopped, got %d", got)
		}
	})
}
