package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveVoice(t *testing.T) {
	t.Run("known voice", func(t *testing.T) {
		v := ResolveVoice("male_deep")
		if v.ID != "male_deep" {
			t.Errorf("expected male_deep, got %s", v.ID)
		}
		if v.Speed != 0.9 {
			t.Errorf("expected speed 0.9, got %v", v.Speed)
		}
		if v.ElevenLabsID == "" || v.OpenAIVoice == "" {
			t.Error("expected provider voice mappings to be set")
		}
	})

	t.Run("unknown voice falls back to default", func(t *testing.T) {
		v := ResolveVoice("no_such_voice")
		if v.ID != DefaultVoiceID {
			t.Errorf("expected %s, got %s", DefaultVoiceID, v.ID)
		}
	})

	t.Run("all roster voices are known", func(t *testing.T) {
		for _, id := range []string{"male_standard", "male_deep", "female_warm", "female_bright"} {
			if !IsKnownVoice(id) {
				t.Errorf("voice %s should be known", id)
			}
		}
	})
}

func TestEstimateMP3Duration(t *testing.T) {
	// 128 kbps = 16000 bytes/sec
	d := EstimateMP3Duration(32000, 128)
	if d != 2*time.Second {
		t.Errorf("expected 2s, got %v", d)
	}

	t.Run("zero bitrate uses default", func(t *testing.T) {
		if d := EstimateMP3Duration(16000, 0); d != time.Second {
			t.Errorf("expected 1s, got %v", d)
		}
	})
}

func TestProviderConstructors(t *testing.T) {
	t.Run("elevenlabs requires api key", func(t *testing.T) {
		_, err := NewElevenLabs()
		if !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("openai requires api key", func(t *testing.T) {
		_, err := NewOpenAI()
		if !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("options are applied", func(t *testing.T) {
		p, err := NewElevenLabs(
			WithAPIKey("test-key"),
			WithModel(ModelMultilingualV2),
			WithTimeout(5*time.Second),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer p.Close()

		if p.config.ModelID != ModelMultilingualV2 {
			t.Errorf("expected model %s, got %s", ModelMultilingualV2, p.config.ModelID)
		}
		if p.config.Timeout != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", p.config.Timeout)
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	req := Request{Text: "hello", Voice: ResolveVoice(DefaultVoiceID)}

	t.Run("empty chain is an error", func(t *testing.T) {
		_, err := NewChain(nil)
		if !errors.Is(err, ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("nil providers are skipped", func(t *testing.T) {
		chain, err := NewChain(nil, nil, NewMock())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chain.Len() != 1 {
			t.Errorf("expected 1 provider, got %d", chain.Len())
		}
	})

	t.Run("first provider wins", func(t *testing.T) {
		primary := NewMock()
		secondary := NewMock()
		chain, _ := NewChain(nil, primary, secondary)

		if _, err := chain.Synthesize(ctx, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if primary.CallCount() != 1 {
			t.Errorf("primary should be called once, got %d", primary.CallCount())
		}
		if secondary.CallCount() != 0 {
			t.Errorf("secondary should not be called, got %d", secondary.CallCount())
		}
	})

	t.Run("falls back on failure", func(t *testing.T) {
		primary := MockWithError(errors.New("quota exceeded"))
		secondary := NewMock()
		chain, _ := NewChain(nil, primary, secondary)

		result, err := chain.Synthesize(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil || len(result.Audio) == 0 {
			t.Fatal("expected audio from fallback provider")
		}
		if secondary.CallCount() != 1 {
			t.Errorf("secondary should be called once, got %d", secondary.CallCount())
		}
	})

	t.Run("all providers failing aggregates errors", func(t *testing.T) {
		chain, _ := NewChain(nil,
			MockWithError(errors.New("first down")),
			MockWithError(errors.New("second down")),
		)

		_, err := chain.Synthesize(ctx, req)
		if err == nil {
			t.Fatal("expected error")
		}
		var chainErr *ChainError
		if !errors.As(err, &chainErr) {
			t.Fatalf("expected ChainError, got %T", err)
		}
		if len(chainErr.Errors) != 2 {
			t.Errorf("expected 2 errors, got %d", len(chainErr.Errors))
		}
	})

	t.Run("health passes if any provider is up", func(t *testing.T) {
		chain, _ := NewChain(nil, MockWithError(errors.New("down")), NewMock())
		if err := chain.Health(ctx); err != nil {
			t.Errorf("expected healthy chain, got %v", err)
		}
	})
}

func TestCache(t *testing.T) {
	newCache := func(t *testing.T) *Cache {
		t.Helper()
		c, err := NewCache(t.TempDir(), nil)
		if err != nil {
			t.Fatalf("NewCache: %v", err)
		}
		return c
	}

	t.Run("miss then hit", func(t *testing.T) {
		c := newCache(t)

		if _, _, ok := c.Get("hello", "male_deep"); ok {
			t.Fatal("expected miss on empty cache")
		}

		path, err := c.Put("hello", "male_deep", []byte("audio"), 3*time.Second)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, dur, ok := c.Get("hello", "male_deep")
		if !ok {
			t.Fatal("expected hit after Put")
		}
		if got != path {
			t.Errorf("path mismatch: %s vs %s", got, path)
		}
		if dur != 3*time.Second {
			t.Errorf("expected 3s duration, got %v", dur)
		}
	})

	t.Run("key depends on voice", func(t *testing.T) {
		c := newCache(t)
		if c.Key("hello", "male_deep") == c.Key("hello", "female_warm") {
			t.Error("same text with different voices must have different keys")
		}
		if c.Key("hello", "male_deep") != c.Key("hello", "male_deep") {
			t.Error("key must be deterministic")
		}
	})

	t.Run("missing sidecar is a miss", func(t *testing.T) {
		c := newCache(t)
		if _, err := c.Put("hello", "male_deep", []byte("audio"), time.Second); err != nil {
			t.Fatalf("Put: %v", err)
		}

		key := c.Key("hello", "male_deep")
		if err := os.Remove(filepath.Join(c.Dir(), key+".json")); err != nil {
			t.Fatalf("remove sidecar: %v", err)
		}

		if _, _, ok := c.Get("hello", "male_deep"); ok {
			t.Error("expected miss when sidecar is gone")
		}
	})

	t.Run("prune removes old entries", func(t *testing.T) {
		c := newCache(t)
		if _, err := c.Put("old", "male_deep", []byte("audio"), time.Second); err != nil {
			t.Fatalf("Put: %v", err)
		}

		key := c.Key("old", "male_deep")
		old := time.Now().Add(-48 * time.Hour)
		for _, name := range []string{key + ".mp3", key + ".json"} {
			if err := os.Chtimes(filepath.Join(c.Dir(), name), old, old); err != nil {
				t.Fatalf("chtimes: %v", err)
			}
		}
		if _, err := c.Put("fresh", "male_deep", []byte("audio"), time.Second); err != nil {
			t.Fatalf("Put: %v", err)
		}

		removed, err := c.Prune(24 * time.Hour)
		if err != nil {
			t.Fatalf("Prune: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 removed, got %d", removed)
		}
		if _, _, ok := c.Get("old", "male_deep"); ok {
			t.Error("old entry should be gone")
		}
		if _, _, ok := c.Get("fresh", "male_deep"); !ok {
			t.Error("fresh entry should survive")
		}
	})
}

func TestSynthesizer(t *testing.T) {
	ctx := context.Background()

	newSynth := func(t *testing.T, p Provider) *Synthesizer {
		t.Helper()
		cache, err := NewCache(t.TempDir(), nil)
		if err != nil {
			t.Fatalf("NewCache: %v", err)
		}
		return NewSynthesizer(p, cache, nil)
	}

	t.Run("synthesizes once per text voice pair", func(t *testing.T) {
		mock := NewMock()
		synth := newSynth(t, mock)

		first, err := synth.Speak(ctx, "good evening", "female_warm")
		if err != nil {
			t.Fatalf("Speak: %v", err)
		}
		if first.Cached {
			t.Error("first call should not be cached")
		}

		second, err := synth.Speak(ctx, "good evening", "female_warm")
		if err != nil {
			t.Fatalf("Speak: %v", err)
		}
		if !second.Cached {
			t.Error("second call should be cached")
		}
		if first.Path != second.Path {
			t.Errorf("paths differ: %s vs %s", first.Path, second.Path)
		}
		if mock.CallCount() != 1 {
			t.Errorf("provider should be called once, got %d", mock.CallCount())
		}
	})

	t.Run("unknown voice resolves to default", func(t *testing.T) {
		mock := NewMock()
		synth := newSynth(t, mock)

		if _, err := synth.Speak(ctx, "hello", "made_up_voice"); err != nil {
			t.Fatalf("Speak: %v", err)
		}
		calls := mock.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		if calls[0].Voice.ID != DefaultVoiceID {
			t.Errorf("expected %s, got %s", DefaultVoiceID, calls[0].Voice.ID)
		}
	})

	t.Run("nil provider is degraded", func(t *testing.T) {
		synth := newSynth(t, nil)
		if !synth.Degraded() {
			t.Error("expected degraded mode")
		}
		_, err := synth.Speak(ctx, "hello", "male_deep")
		if !errors.Is(err, ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("provider error is surfaced", func(t *testing.T) {
		boom := errors.New("boom")
		synth := newSynth(t, MockWithError(boom))
		_, err := synth.Speak(ctx, "hello", "male_deep")
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})

	t.Run("artifact file exists on disk", func(t *testing.T) {
		synth := newSynth(t, NewMock())
		a, err := synth.Speak(ctx, "hello", "male_deep")
		if err != nil {
			t.Fatalf("Speak: %v", err)
		}
		data, err := os.ReadFile(a.Path)
		if err != nil {
			t.Fatalf("read artifact: %v", err)
		}
		if string(data) != "mock-mp3-bytes" {
			t.Errorf("unexpected artifact bytes: %q", data)
		}
	})
}

func TestAPIError(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{401, false},
		{429, true},
		{500, true},
		{503, true},
		{400, false},
	}
	for _, tc := range cases {
		err := &APIError{StatusCode: tc.status, Provider: "test"}
		if err.IsRetryable() != tc.retryable {
			t.Errorf("status %d: retryable should be %v", tc.status, tc.retryable)
		}
	}
}
