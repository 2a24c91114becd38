// Package config provides environment-based configuration helpers
// for the roundtable daemon.
package config

import (
	"os"
	"strconv"
	"time"
)

// Default service configuration.
const (
	DefaultPort        = "5000"
	DefaultAudioCache  = "audio_cache"
	DefaultCacheMaxAge = 24 * time.Hour
	DefaultRTMPBase    = "rtmp://a.rtmp.youtube.com/live2"
)

// String returns the value of an env var, or the default if unset.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Duration returns an env var parsed as a duration, or the default.
func Duration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Float returns an env var parsed as a float64, or the default.
func Float(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// OpenAIKey returns the OpenAI API key, or "" when not configured.
// The generator and the OpenAI speech provider degrade to fallbacks
// without it.
func OpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// ElevenLabsKey returns the ElevenLabs API key, or "" when not configured.
func ElevenLabsKey() string {
	return os.Getenv("ELEVENLABS_API_KEY")
}

// StreamKey returns a manually provisioned RTMP stream key, if any.
func StreamKey() string {
	return os.Getenv("STREAM_KEY")
}

// GoogleClientID returns the OAuth client ID for the managed YouTube flow.
func GoogleClientID() string {
	return os.Getenv("GOOGLE_CLIENT_ID")
}

// GoogleClientSecret returns the OAuth client secret for the managed
// YouTube flow.
func GoogleClientSecret() string {
	return os.Getenv("GOOGLE_CLIENT_SECRET")
}
