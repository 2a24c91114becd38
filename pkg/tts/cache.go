package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Cache is a content-addressed audio cache on the local filesystem.
// The key is derived from (text, voice id), so identical utterances by the
// same voice are synthesized once and replayed from disk afterwards.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// cacheMeta is the sidecar record written next to each audio file.
type cacheMeta struct {
	Text      string        `json:"text"`
	VoiceID   string        `json:"voice_id"`
	Duration  time.Duration `json:"duration_ns"`
	CharCount int           `json:"char_count"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewCache creates the cache directory if needed and returns the cache.
func NewCache(dir string, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tts: create cache dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		dir:    dir,
		logger: logger.With("component", "tts.cache"),
	}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key derives the cache key for a text/voice pair.
func (c *Cache) Key(text, voiceID string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(voiceID))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) audioPath(key string) string {
	return filepath.Join(c.dir, key+".mp3")
}

func (c *Cache) metaPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached audio path and duration for a text/voice pair,
// or ok=false on a miss. A cached file with a missing or unreadable
// sidecar counts as a miss so the entry gets rewritten.
func (c *Cache) Get(text, voiceID string) (path string, duration time.Duration, ok bool) {
	key := c.Key(text, voiceID)
	path = c.audioPath(key)

	if _, err := os.Stat(path); err != nil {
		return "", 0, false
	}

	raw, err := os.ReadFile(c.metaPath(key))
	if err != nil {
		return "", 0, false
	}
	var meta cacheMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", 0, false
	}

	return path, meta.Duration, true
}

// Put stores audio bytes for a text/voice pair and returns the final path.
// Both files are written to temp names and renamed, so a crash mid-write
// never leaves a partial entry that Get would serve.
func (c *Cache) Put(text, voiceID string, audio []byte, duration time.Duration) (string, error) {
	key := c.Key(text, voiceID)
	path := c.audioPath(key)

	if err := writeAtomic(path, audio); err != nil {
		return "", fmt.Errorf("tts: cache write: %w", err)
	}

	meta := cacheMeta{
		Text:      text,
		VoiceID:   voiceID,
		Duration:  duration,
		CharCount: len(text),
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("tts: cache meta: %w", err)
	}
	if err := writeAtomic(c.metaPath(key), raw); err != nil {
		return "", fmt.Errorf("tts: cache meta write: %w", err)
	}

	c.logger.Debug("cached audio",
		"key", key[:12],
		"bytes", len(audio),
		"duration", duration,
	)
	return path, nil
}

// Prune removes entries older than maxAge. Returns the number of audio
// files removed. Errors on individual files are logged and skipped.
func (c *Cache) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("tts: prune: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".mp3" && ext != ".json" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			c.logger.Warn("prune failed", "path", path, "error", err)
			continue
		}
		if ext == ".mp3" {
			removed++
		}
	}

	if removed > 0 {
		c.logger.Info("pruned audio cache", "removed", removed, "max_age", maxAge)
	}
	return removed, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
