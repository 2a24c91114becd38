package egress

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEstimateSpeech(t *testing.T) {
	t.Run("clamps short text to minimum", func(t *testing.T) {
		if d := EstimateSpeech("hi"); d != minSpeechLength {
			t.Errorf("expected %v, got %v", minSpeechLength, d)
		}
	})

	t.Run("clamps long text to maximum", func(t *testing.T) {
		long := strings.Repeat("word ", 100)
		if d := EstimateSpeech(long); d != maxSpeechLength {
			t.Errorf("expected %v, got %v", maxSpeechLength, d)
		}
	})

	t.Run("scales with word count in between", func(t *testing.T) {
		// 20 words * 0.3s = 6s
		text := strings.Repeat("word ", 20)
		if d := EstimateSpeech(text); d != 6*time.Second {
			t.Errorf("expected 6s, got %v", d)
		}
	})

	t.Run("empty text gets minimum", func(t *testing.T) {
		if d := EstimateSpeech(""); d != minSpeechLength {
			t.Errorf("expected %v, got %v", minSpeechLength, d)
		}
	})
}

func TestTextSink(t *testing.T) {
	sink := NewTextSink(nil)
	defer sink.Close()

	t.Run("paces by estimate without duration", func(t *testing.T) {
		d, err := sink.Emit(context.Background(), Utterance{Text: "a short line"})
		if err != nil {
			t.Fatalf("Emit: %v", err)
		}
		if d != EstimateSpeech("a short line") {
			t.Errorf("expected estimate, got %v", d)
		}
	})

	t.Run("prefers known duration", func(t *testing.T) {
		d, err := sink.Emit(context.Background(), Utterance{Text: "hi", Duration: 7 * time.Second})
		if err != nil {
			t.Fatalf("Emit: %v", err)
		}
		if d != 7*time.Second {
			t.Errorf("expected 7s, got %v", d)
		}
	})
}

// recordSink is a test sink capturing emitted utterances.
type recordSink struct {
	mu       sync.Mutex
	got      []Utterance
	duration time.Duration
	err      error
}

func (r *recordSink) Emit(_ context.Context, u Utterance) (time.Duration, error) {
	r.mu.Lock()
	r.got = append(r.got, u)
	r.mu.Unlock()
	return r.duration, r.err
}

func (r *recordSink) Close() error { return nil }

func (r *recordSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestMultiSink(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to all sinks and returns longest duration", func(t *testing.T) {
		a := &recordSink{duration: 2 * time.Second}
		b := &recordSink{duration: 5 * time.Second}
		m := NewMultiSink(a, nil, b)

		d, err := m.Emit(ctx, Utterance{Text: "hello"})
		if err != nil {
			t.Fatalf("Emit: %v", err)
		}
		if d != 5*time.Second {
			t.Errorf("expected 5s, got %v", d)
		}
		if a.count() != 1 || b.count() != 1 {
			t.Error("both sinks should receive the utterance")
		}
	})

	t.Run("one failing sink does not block the other", func(t *testing.T) {
		bad := &recordSink{err: errors.New("pipe broken")}
		good := &recordSink{duration: 3 * time.Second}
		m := NewMultiSink(bad, good)

		d, err := m.Emit(ctx, Utterance{Text: "hello"})
		if d != 3*time.Second {
			t.Errorf("expected 3s from surviving sink, got %v", d)
		}
		if err == nil {
			t.Error("expected joined error to be reported")
		}
		if good.count() != 1 {
			t.Error("healthy sink should still receive the utterance")
		}
	})

	t.Run("all sinks failing returns error", func(t *testing.T) {
		m := NewMultiSink(&recordSink{err: errors.New("down")})
		if _, err := m.Emit(ctx, Utterance{Text: "hello"}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestStreamLifecycle(t *testing.T) {
	t.Run("emit before start fails", func(t *testing.T) {
		s := NewStream(nil)
		_, err := s.Emit(context.Background(), Utterance{Text: "hi"})
		if !errors.Is(err, ErrNotStreaming) {
			t.Errorf("expected ErrNotStreaming, got %v", err)
		}
	})

	t.Run("stop when not running is a no-op", func(t *testing.T) {
		s := NewStream(nil)
		if err := s.Stop(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("status reflects idle state", func(t *testing.T) {
		s := NewStream(nil)
		st := s.Status()
		if st.Running {
			t.Error("expected not running")
		}
		if st.URL != "" || st.QueueDepth != 0 {
			t.Errorf("unexpected idle status: %+v", st)
		}
	})

	t.Run("pipe failure kills the feeder and fails enqueue fast", func(t *testing.T) {
		s := NewStream(nil)
		queue := make(chan []byte, 1)
		queue <- make([]byte, 4) // full, nobody draining
		done := make(chan struct{})

		feedDone := make(chan struct{})
		go func() {
			s.feed(brokenPipe{}, queue, done)
			close(feedDone)
		}()

		select {
		case <-feedDone:
		case <-time.After(2 * time.Second):
			t.Fatal("feeder never exited on write failure")
		}
		select {
		case <-done:
		default:
			t.Fatal("session not marked dead after pipe failure")
		}

		// Refill so the queue is full again with no feeder draining it.
		// The producer must not hang even with a context that never
		// cancels.
		queue <- make([]byte, 4)
		errc := make(chan error, 1)
		go func() {
			errc <- enqueue(context.Background(), queue, done, make([]byte, 4))
		}()
		select {
		case err := <-errc:
			if !errors.Is(err, ErrNotStreaming) {
				t.Errorf("expected ErrNotStreaming, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("enqueue blocked on a dead session")
		}
	})

	t.Run("enqueue honors context cancellation on a full queue", func(t *testing.T) {
		queue := make(chan []byte, 1)
		queue <- make([]byte, 4)
		done := make(chan struct{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := enqueue(ctx, queue, done, make([]byte, 4)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// brokenPipe fails every write, like the stdin of a dead ffmpeg child.
type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
func (brokenPipe) Close() error              { return nil }

func TestSilenceChunk(t *testing.T) {
	// 100ms of s16le 44.1kHz stereo
	want := pipeSampleRate * pipeChannels * 2 / 10
	if len(silenceChunk) != want {
		t.Errorf("expected %d bytes, got %d", want, len(silenceChunk))
	}
	for _, b := range silenceChunk {
		if b != 0 {
			t.Fatal("silence chunk must be zeroed")
		}
	}
}
