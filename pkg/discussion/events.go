package discussion

// Event kinds published by the scheduler. Payload shapes are the typed
// structs below; observers receive them JSON-encoded with snake_case keys.
const (
	EventTopicUpdate        = "topic_update"
	EventAgentStartSpeaking = "agent_start_speaking"
	EventNewMessage         = "new_message"
	EventAgentStopSpeaking  = "agent_stop_speaking"
	EventRoundComplete      = "round_complete"
	EventConnected          = "connected"
)

// EventSink receives scheduler state-change events. Publish is
// fire-and-forget: implementations must not block the caller, and
// delivery is at-most-once per connected observer.
type EventSink interface {
	Publish(kind string, payload any)
}

// NopSink discards all events.
type NopSink struct{}

// Publish discards the event.
func (NopSink) Publish(string, any) {}

// TopicUpdate announces the topic at every round start and on forced
// topic changes.
type TopicUpdate struct {
	Topic string `json:"topic"`
	Round int    `json:"round"`
}

// AgentStartSpeaking marks the beginning of a persona's turn.
type AgentStartSpeaking struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

// NewMessage carries a completed utterance with persona display metadata.
type NewMessage struct {
	AgentID      string `json:"agent_id"`
	AgentName    string `json:"agent_name"`
	Message      string `json:"message"`
	Expertise    string `json:"expertise"`
	Avatar       string `json:"avatar"`
	Color        string `json:"color"`
	MessageCount int    `json:"message_count"`
}

// AgentStopSpeaking marks the end of a persona's turn.
type AgentStopSpeaking struct {
	AgentID string `json:"agent_id"`
}

// RoundComplete closes a round.
type RoundComplete struct {
	Round              int     `json:"round"`
	TotalMessages      int     `json:"total_messages"`
	NextRoundInSeconds float64 `json:"next_round_in_seconds"`
}

// AgentView is one roster entry in a snapshot.
type AgentView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expertise  string `json:"expertise"`
	Avatar     string `json:"avatar"`
	Color      string `json:"color"`
	IsSpeaking bool   `json:"is_speaking"`
}

// Stats is the aggregate counters block of a snapshot.
type Stats struct {
	MessageCount int    `json:"message_count"`
	Round        int    `json:"round"`
	CurrentTopic string `json:"current_topic"`
	IsActive     bool   `json:"is_active"`
	ActiveAgent  string `json:"active_agent,omitempty"`
	AgentsCount  int    `json:"agents_count"`
}

// Snapshot is the full state a late-joining observer receives.
type Snapshot struct {
	Topic  string      `json:"topic"`
	Agents []AgentView `json:"agents"`
	Stats  Stats       `json:"stats"`
}
