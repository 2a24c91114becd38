// Package tts turns discussion utterances into playable audio.
//
// The package supports multiple synthesis backends (ElevenLabs, OpenAI) behind
// one Provider interface, with a fallback Chain and a content-addressed disk
// cache. Callers normally go through Synthesizer, which resolves a voice
// profile, consults the cache, and only reaches a provider on a miss.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")))
//	cache, _ := tts.NewCache("audio_cache", nil)
//
//	synth := tts.NewSynthesizer(provider, cache, nil)
//	defer synth.Close()
//
//	artifact, err := synth.Speak(ctx, "Hello world", "male_deep")
//	// artifact.Path holds the MP3 on disk, artifact.Duration its length
package tts

import (
	"context"
	"time"
)

// Provider defines the synthesis provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Synthesize converts text to audio with the given voice profile,
	// returning the complete audio buffer.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request is a single synthesis request.
type Request struct {
	// Text is the utterance to synthesize.
	Text string

	// Voice is the resolved voice profile.
	Voice Voice
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec.
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 44100).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitrateKbps for compressed formats.
	BitrateKbps int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// EncodingMP3 is MP3 at 44.1kHz / 128kbps, the cache's on-disk format.
	EncodingMP3 Encoding = "mp3_44100_128"

	// EncodingPCM24 is 24kHz mono PCM16.
	EncodingPCM24 Encoding = "pcm_24000"
)

// MP3Format is the format both bundled providers are configured to emit.
var MP3Format = AudioFormat{
	Encoding:    EncodingMP3,
	SampleRate:  44100,
	Channels:    2,
	BitrateKbps: 128,
}

// EstimateMP3Duration estimates playback length from the byte size of an
// MP3 buffer at the given bitrate. Used when the provider reports nothing.
func EstimateMP3Duration(sizeBytes, bitrateKbps int) time.Duration {
	if bitrateKbps <= 0 {
		bitrateKbps = 128
	}
	seconds := float64(sizeBytes*8) / float64(bitrateKbps*1000)
	return time.Duration(seconds * float64(time.Second))
}
