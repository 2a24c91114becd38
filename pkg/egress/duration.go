package egress

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Speech duration estimation. Used whenever no audio exists or ffprobe
// cannot measure it: roughly 0.3s per word, clamped so a one-word
// utterance still holds the floor and a monologue does not stall a round.
const (
	secondsPerWord  = 0.3
	minSpeechLength = 3 * time.Second
	maxSpeechLength = 10 * time.Second

	probeTimeout = 5 * time.Second
)

// EstimateSpeech estimates how long a text takes to speak.
func EstimateSpeech(text string) time.Duration {
	words := len(strings.Fields(text))
	d := time.Duration(float64(words) * secondsPerWord * float64(time.Second))
	if d < minSpeechLength {
		return minSpeechLength
	}
	if d > maxSpeechLength {
		return maxSpeechLength
	}
	return d
}

// ProbeDuration measures an audio file's playback length with ffprobe.
// When ffprobe is unavailable or fails, it falls back to a bitrate-based
// size estimate (128kbps MP3).
func ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err == nil {
		if secs, perr := strconv.ParseFloat(strings.TrimSpace(string(out)), 64); perr == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second)), nil
		}
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return 0, fmt.Errorf("egress: probe %s: %w", path, statErr)
	}
	// 128kbps = 16000 bytes per second
	return time.Duration(float64(info.Size()) / 16000.0 * float64(time.Second)), nil
}
