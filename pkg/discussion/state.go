package discussion

import (
	"fmt"
	"sync"
	"time"
)

// Message is one utterance in the conversation log.
type Message struct {
	AgentID   string    `json:"agent_id"`
	AgentName string    `json:"agent_name"`
	Text      string    `json:"text"`
	Round     int       `json:"round"`
	Time      time.Time `json:"time"`
}

// State is the single mutable aggregate the scheduler owns. All writes
// come from the round-execution goroutine; the mutex exists so control
// surface and snapshot reads never wait on an in-flight turn.
type State struct {
	mu           sync.Mutex
	topic        string
	round        int
	messageCount int
	activeAgent  string
	history      []Message
}

// NewState creates an empty discussion state: no topic, round 0.
func NewState() *State {
	return &State{}
}

// Topic returns the current topic, empty meaning unset.
func (s *State) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

// SetTopic overwrites the current topic. Empty clears it so the next
// round picks a fresh one.
func (s *State) SetTopic(topic string) {
	s.mu.Lock()
	s.topic = topic
	s.mu.Unlock()
}

// Round returns the round counter.
func (s *State) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// BeginRound increments the round counter exactly once per round start
// and returns the new round number.
func (s *State) BeginRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round++
	return s.round
}

// MessageCount returns the cumulative utterance count.
func (s *State) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}

// ActiveAgent returns the persona id currently speaking, empty if none.
func (s *State) ActiveAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeAgent
}

// SetActive marks a persona's turn in flight.
func (s *State) SetActive(agentID string) {
	s.mu.Lock()
	s.activeAgent = agentID
	s.mu.Unlock()
}

// ClearActive ends the in-flight turn.
func (s *State) ClearActive() {
	s.mu.Lock()
	s.activeAgent = ""
	s.mu.Unlock()
}

// Append records an utterance and returns the new cumulative count.
func (s *State) Append(msg Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageCount++
	s.history = append(s.history, msg)
	return s.messageCount
}

// RecentContext returns the last n history entries formatted as
// "Name: text", oldest first, for use as generation context.
func (s *State) RecentContext(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(s.history)-start)
	for _, m := range s.history[start:] {
		out = append(out, fmt.Sprintf("%s: %s", m.AgentName, m.Text))
	}
	return out
}

// History returns a copy of the full conversation log.
func (s *State) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}
