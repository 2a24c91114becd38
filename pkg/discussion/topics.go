package discussion

import "math/rand"

// DefaultTopics is the built-in topic set the scheduler draws from when
// no topic has been forced. Non-empty by construction.
var DefaultTopics = []string{
	"The future of artificial intelligence in everyday life",
	"Should social media platforms be regulated like utilities",
	"The ethics of genetic engineering in humans",
	"Remote work and the future of cities",
	"Can renewable energy fully replace fossil fuels",
	"The role of space exploration in solving Earth's problems",
	"Universal basic income in an automated economy",
	"Privacy versus security in the digital age",
	"The impact of streaming on music and film culture",
	"How should schools change for the next generation",
	"The psychology of online communities",
	"Are we alone in the universe",
}

// TopicSet selects discussion topics uniformly at random.
type TopicSet struct {
	topics []string
}

// NewTopicSet creates a topic set; falls back to DefaultTopics when
// topics is empty so selection can never fail.
func NewTopicSet(topics []string) *TopicSet {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	return &TopicSet{topics: topics}
}

// Pick returns a uniformly random topic.
func (t *TopicSet) Pick(rng *rand.Rand) string {
	return t.topics[rng.Intn(len(t.topics))]
}

// Topics returns a copy of the configured set.
func (t *TopicSet) Topics() []string {
	out := make([]string, len(t.topics))
	copy(out, t.topics)
	return out
}
