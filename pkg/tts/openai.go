package tts

import (
	"context"
	"io"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAI implements Provider for the OpenAI speech API.
// It is the usual fallback behind ElevenLabs in a Chain: built-in voices
// only, but no custom-voice quota to run out of.
type OpenAI struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = string(openai.TTSModel1)
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

// Synthesize converts text to audio with the requested voice profile.
func (o *OpenAI) Synthesize(ctx context.Context, sr Request) (*AudioResult, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	speed := sr.Voice.Speed
	if speed <= 0 {
		speed = 1.0
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.config.ModelID),
		Input:          sr.Text,
		Voice:          openai.SpeechVoice(sr.Voice.OpenAIVoice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}
	if len(audio) == 0 {
		return nil, WrapError(providerOpenAI, ErrEmptyAudio)
	}

	latency := time.Since(start).Milliseconds()

	o.logger.Debug("synthesized audio",
		"chars", len(sr.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", sr.Voice.ID,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    MP3Format,
		CharCount: len(sr.Text),
		LatencyMs: latency,
		Duration:  EstimateMP3Duration(len(audio), MP3Format.BitrateKbps),
	}, nil
}

// Health verifies the API key by listing models.
func (o *OpenAI) Health(ctx context.Context) error {
	_, err := o.client.ListModels(ctx)
	return WrapError(providerOpenAI, err)
}

// Close releases resources held by the provider.
func (o *OpenAI) Close() error {
	return nil
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
