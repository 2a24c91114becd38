package generate

import (
	"fmt"
	"math/rand"
	"strings"
)

// fallbackTemplates produce a valid utterance when no provider is available
// or a provider call fails. Parameterized by expertise and topic so the
// degraded output still reads as on-subject.
var fallbackTemplates = []string{
	"As an expert in %s, I believe %s is an important topic worth careful discussion.",
	"From the perspective of %s, there are several key aspects of this problem worth highlighting.",
	"My research in %s suggests some interesting directions on %s.",
	"Speaking from %s, I'd caution against easy answers here; %s deserves a closer look.",
}

// FallbackUtterance returns a canned statement for the persona and topic.
// It always returns a non-empty string.
func FallbackUtterance(rng *rand.Rand, expertise, topic string) string {
	expertise = strings.ToLower(strings.TrimSpace(expertise))
	if expertise == "" {
		expertise = "my field"
	}
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		topic = "this question"
	}

	tmpl := fallbackTemplates[rng.Intn(len(fallbackTemplates))]
	if strings.Count(tmpl, "%s") == 1 {
		return fmt.Sprintf(tmpl, expertise)
	}
	return fmt.Sprintf(tmpl, expertise, topic)
}
