package egress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// Audio pipe format fed to ffmpeg's stdin: signed 16-bit little-endian,
// 44.1kHz stereo. The silence chunk is 100ms of that format, pushed
// whenever no utterance is queued so the RTMP connection never starves.
const (
	pipeSampleRate = 44100
	pipeChannels   = 2
	pipeBytesPS    = pipeSampleRate * pipeChannels * 2

	silenceChunkLen = pipeBytesPS / 10 // 100ms

	convertTimeout = 30 * time.Second
	queueCapacity  = 32
)

var silenceChunk = make([]byte, silenceChunkLen)

// ErrNotStreaming is returned by Emit when the stream is not running.
var ErrNotStreaming = errors.New("egress: stream not running")

// StreamStatus is a snapshot of the RTMP stream state.
type StreamStatus struct {
	Running    bool      `json:"running"`
	URL        string    `json:"url,omitempty"`
	QueueDepth int       `json:"queue_depth"`
	Utterances int64     `json:"utterances"`
	StartedAt  time.Time `json:"started_at,omitempty"`
}

// Stream pushes a continuous audio feed to an RTMP ingest endpoint via a
// managed ffmpeg child process. Video is a synthesized still frame; audio
// comes from a stdin pipe fed by a goroutine that interleaves queued
// utterances with silence. A watcher goroutine reaps the child: if ffmpeg
// dies, the session is torn down and Emit fails fast with ErrNotStreaming
// instead of blocking a turn on a queue nobody drains.
type Stream struct {
	logger *slog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	queue     chan []byte
	done      chan struct{}
	exited    chan struct{}
	stopping  bool
	url       string
	startedAt time.Time

	utterances atomic.Int64
}

// NewStream creates an RTMP stream manager. Call Start before Emit.
func NewStream(logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{logger: logger.With("component", "egress.stream")}
}

// Start launches the ffmpeg child targeting url and begins feeding
// silence. Returns an error if already running or ffmpeg fails to spawn.
func (s *Stream) Start(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("egress: stream already running")
	}

	cmd := exec.Command("ffmpeg",
		"-re",
		"-f", "lavfi", "-i", "color=c=0x101826:s=1280x720:r=30",
		"-f", "s16le",
		"-ar", fmt.Sprint(pipeSampleRate),
		"-ac", fmt.Sprint(pipeChannels),
		"-i", "pipe:0",
		"-c:v", "libx264", "-preset", "veryfast", "-b:v", "2500k", "-g", "60",
		"-c:a", "aac", "-b:a", "128k", "-ar", fmt.Sprint(pipeSampleRate),
		"-f", "flv",
		url,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("egress: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("egress: start ffmpeg: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.queue = make(chan []byte, queueCapacity)
	s.done = make(chan struct{})
	s.exited = make(chan struct{})
	s.stopping = false
	s.url = url
	s.startedAt = time.Now()

	go s.feed(s.stdin, s.queue, s.done)
	go s.watch(cmd)

	s.logger.Info("rtmp stream started", "url", url, "pid", cmd.Process.Pid)
	return nil
}

// feed writes queued PCM buffers to the pipe, padding with 100ms silence
// chunks when the queue is empty. ffmpeg's -re input keeps writes paced
// at realtime, so the default branch does not spin. A failed write marks
// the session dead so producers stop enqueuing.
func (s *Stream) feed(w io.WriteCloser, queue chan []byte, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case buf := <-queue:
			if _, err := w.Write(buf); err != nil {
				s.logger.Error("audio pipe write failed", "error", err)
				s.markDead(done)
				return
			}
		default:
			if _, err := w.Write(silenceChunk); err != nil {
				s.logger.Error("silence pipe write failed", "error", err)
				s.markDead(done)
				return
			}
		}
	}
}

// watch reaps the ffmpeg child and tears the session down when it
// exits, whether from Stop or a crash mid-stream.
func (s *Stream) watch(cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	if s.cmd != cmd {
		s.mu.Unlock()
		return
	}
	expected := s.stopping
	closeIfOpen(s.done)
	url := s.url
	s.teardownLocked()
	s.mu.Unlock()

	if expected {
		// ffmpeg exits non-zero when its stdin closes; that is a
		// normal stop.
		s.logger.Info("rtmp stream stopped",
			"url", url,
			"utterances", s.utterances.Load(),
		)
		return
	}
	s.logger.Error("ffmpeg exited unexpectedly", "url", url, "error", err)
}

// markDead closes the session's done channel so the feeder stops and
// every pending or future enqueue fails fast.
func (s *Stream) markDead(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	closeIfOpen(done)
}

// teardownLocked clears the session fields. Caller holds s.mu.
func (s *Stream) teardownLocked() {
	s.cmd = nil
	s.stdin = nil
	s.queue = nil
	s.done = nil
	s.stopping = false
	s.url = ""
	s.startedAt = time.Time{}
	closeIfOpen(s.exited)
}

func closeIfOpen(ch chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Emit decodes the utterance audio to raw PCM and queues it for playout.
// Utterances without audio pace as silence for their estimated duration.
func (s *Stream) Emit(ctx context.Context, u Utterance) (time.Duration, error) {
	s.mu.Lock()
	queue, done := s.queue, s.done
	running := s.cmd != nil
	s.mu.Unlock()

	if !running {
		return 0, ErrNotStreaming
	}

	duration := u.Duration

	if u.AudioPath != "" {
		pcm, err := decodePCM(ctx, u.AudioPath)
		if err != nil {
			return 0, err
		}
		if duration <= 0 {
			duration = time.Duration(float64(len(pcm)) / pipeBytesPS * float64(time.Second))
		}
		if err := enqueue(ctx, queue, done, pcm); err != nil {
			return 0, err
		}
	}

	if duration <= 0 {
		duration = EstimateSpeech(u.Text)
	}

	s.utterances.Add(1)
	return duration, nil
}

// enqueue hands a PCM buffer to the feeder. It never blocks past the
// session's lifetime: a dead session fails with ErrNotStreaming even
// when the queue is full and the caller's context never cancels.
func enqueue(ctx context.Context, queue chan []byte, done chan struct{}, pcm []byte) error {
	select {
	case <-done:
		return ErrNotStreaming
	default:
	}

	select {
	case queue <- pcm:
		return nil
	case <-done:
		return ErrNotStreaming
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodePCM converts an audio file to the pipe's raw PCM format.
func decodePCM(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, convertTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "s16le",
		"-ar", fmt.Sprint(pipeSampleRate),
		"-ac", fmt.Sprint(pipeChannels),
		"pipe:1",
	)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("egress: decode %s: %w", path, err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("egress: decode %s: empty output", path)
	}
	return out.Bytes(), nil
}

// Stop terminates the ffmpeg child and waits for the watcher to reap it.
// Safe to call when not running.
func (s *Stream) Stop() error {
	s.mu.Lock()
	if s.cmd == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	closeIfOpen(s.done)
	s.stdin.Close()
	exited := s.exited
	s.mu.Unlock()

	<-exited
	return nil
}

// Close implements Sink.
func (s *Stream) Close() error { return s.Stop() }

// Status returns a snapshot of the stream state.
func (s *Stream) Status() StreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := StreamStatus{
		Running:    s.cmd != nil,
		URL:        s.url,
		Utterances: s.utterances.Load(),
		StartedAt:  s.startedAt,
	}
	if s.queue != nil {
		st.QueueDepth = len(s.queue)
	}
	return st
}

// Verify Stream implements Sink at compile time.
var _ Sink = (*Stream)(nil)
