// Voice profiles mapping roster voice ids to provider voices and prosody.
package tts

// VoiceSettings controls voice characteristics for providers that support it.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	// Lower values = more expressive/variable, higher = more consistent.
	Stability float64

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64

	// Style controls style exaggeration (0.0-1.0).
	Style float64

	// SpeakerBoost enhances speaker clarity.
	SpeakerBoost bool
}

// DefaultVoiceSettings returns sensible defaults for voice synthesis.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		SpeakerBoost:    true,
	}
}

// Voice is a resolved voice profile: one roster voice id mapped to the
// concrete voice each provider should use, plus prosody adjustments.
type Voice struct {
	// ID is the roster-facing voice id (persona.Voice).
	ID string

	// ElevenLabsID is the ElevenLabs voice ID.
	ElevenLabsID string

	// OpenAIVoice is the OpenAI speech API voice name.
	OpenAIVoice string

	// Speed is the playback rate multiplier (1.0 = normal).
	Speed float64

	// Settings holds provider voice characteristics.
	Settings VoiceSettings
}

// DefaultVoiceID is used when a persona references an unknown voice.
const DefaultVoiceID = "male_standard"

// voiceProfiles maps roster voice ids to provider voices. The deep and
// soft variants reuse a base voice with adjusted speed/prosody, the same
// trick the prosody profiles in the original voice map used.
var voiceProfiles = map[string]Voice{
	"male_standard": {
		ID:           "male_standard",
		ElevenLabsID: "pNInz6obpgDQGcFmaJgB", // Adam: American male, deep
		OpenAIVoice:  "onyx",
		Speed:        1.0,
		Settings:     DefaultVoiceSettings(),
	},
	"male_deep": {
		ID:           "male_deep",
		ElevenLabsID: "TxGEqnHWrfWFTfGW9XjX", // Josh: American male, deep
		OpenAIVoice:  "onyx",
		Speed:        0.9,
		Settings: VoiceSettings{
			Stability:       0.7,
			SimilarityBoost: 0.75,
			SpeakerBoost:    true,
		},
	},
	"female_warm": {
		ID:           "female_warm",
		ElevenLabsID: "XB0fDUnXU5powFXDhCwa", // Charlotte: British female, warm
		OpenAIVoice:  "nova",
		Speed:        1.0,
		Settings:     DefaultVoiceSettings(),
	},
	"female_bright": {
		ID:           "female_bright",
		ElevenLabsID: "9BWtsMINqrJLrRacOk9x", // Aria: American female, expressive
		OpenAIVoice:  "shimmer",
		Speed:        1.05,
		Settings: VoiceSettings{
			Stability:       0.4,
			SimilarityBoost: 0.75,
			Style:           0.2,
			SpeakerBoost:    true,
		},
	},
}

// ResolveVoice returns the profile for a roster voice id, falling back to
// DefaultVoiceID for unknown ids so synthesis never fails on a bad config.
func ResolveVoice(id string) Voice {
	if v, ok := voiceProfiles[id]; ok {
		return v
	}
	return voiceProfiles[DefaultVoiceID]
}

// IsKnownVoice returns true if the id has an explicit profile.
func IsKnownVoice(id string) bool {
	_, ok := voiceProfiles[id]
	return ok
}

// VoiceIDs lists all configured voice ids.
func VoiceIDs() []string {
	ids := make([]string, 0, len(voiceProfiles))
	for id := range voiceProfiles {
		ids = append(ids, id)
	}
	return ids
}
