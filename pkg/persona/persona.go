// Package persona defines the fixed roster of discussion participants.
//
// Personas are immutable: they are built once at process start and referenced
// by id everywhere else. The scheduler never holds a persona pointer across
// rounds, only ids resolved through the Registry.
package persona

import "fmt"

// Persona is a single discussion participant identity.
type Persona struct {
	// ID is the stable identifier used in events and lookups.
	ID string `json:"id"`

	// Name is the display name shown to viewers.
	Name string `json:"name"`

	// Expertise is a short label for the persona's field.
	Expertise string `json:"expertise"`

	// Personality describes speaking style, used for prompt framing.
	Personality string `json:"personality"`

	// Avatar is a display glyph (emoji).
	Avatar string `json:"avatar"`

	// Color is the display color (hex).
	Color string `json:"color"`

	// Voice is the synthesis voice id (see pkg/tts voice profiles).
	Voice string `json:"voice"`
}

// Registry holds the immutable persona roster.
type Registry struct {
	personas []Persona
	byID     map[string]Persona
}

// NewRegistry builds a registry from the given roster.
// Duplicate ids are rejected.
func NewRegistry(personas []Persona) (*Registry, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("persona: roster is empty")
	}

	byID := make(map[string]Persona, len(personas))
	for _, p := range personas {
		if p.ID == "" {
			return nil, fmt.Errorf("persona: %q has empty id", p.Name)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("persona: duplicate id %q", p.ID)
		}
		byID[p.ID] = p
	}

	roster := make([]Persona, len(personas))
	copy(roster, personas)

	return &Registry{personas: roster, byID: byID}, nil
}

// All returns the roster in registration order.
// The returned slice is a copy and safe to retain.
func (r *Registry) All() []Persona {
	out := make([]Persona, len(r.personas))
	copy(out, r.personas)
	return out
}

// Get returns the persona for the given id.
func (r *Registry) Get(id string) (Persona, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// IDs returns all persona ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.personas))
	for i, p := range r.personas {
		ids[i] = p.ID
	}
	return ids
}

// Count returns the roster size.
func (r *Registry) Count() int {
	return len(r.personas)
}

// DefaultRoster returns the built-in cast of four panelists.
func DefaultRoster() []Persona {
	return []Persona{
		{
			ID:          "volkov",
			Name:        "Dr. Alexei Volkov",
			Expertise:   "Quantum Physics",
			Personality: "precise, fond of thought experiments, gently contrarian",
			Avatar:      "⚛️",
			Color:       "#4a69ff",
			Voice:       "male_deep",
		},
		{
			ID:          "sokolova",
			Name:        "Prof. Maria Sokolova",
			Expertise:   "Neurobiology",
			Personality: "warm, empirical, connects everything back to the brain",
			Avatar:      "🧠",
			Color:       "#ff6b9d",
			Voice:       "female_warm",
		},
		{
			ID:          "petrov",
			Name:        "Dr. Ivan Petrov",
			Expertise:   "Climatology",
			Personality: "measured, data-driven, quietly alarmed",
			Avatar:      "🌍",
			Color:       "#2ecc71",
			Voice:       "male_standard",
		},
		{
			ID:          "kovaleva",
			Name:        "Sofia Kovaleva",
			Expertise:   "AI and Robotics",
			Personality: "enthusiastic, speculative, loves edge cases",
			Avatar:      "🤖",
			Color:       "#f39c12",
			Voice:       "female_bright",
		},
	}
}
