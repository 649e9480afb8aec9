// Package transcript persists finished dictations as a JSON history file so
// the user can review, re-copy, or delete past transcriptions.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MrWong99/voxtype/internal/config"
)

// Entry is one saved transcription.
type Entry struct {
	// Timestamp is the Unix save time and doubles as the entry's identity
	// for deletion.
	Timestamp int64 `json:"timestamp"`

	// Datetime is the human-readable local save time.
	Datetime string `json:"datetime"`

	// Text is the transcribed content.
	Text string `json:"text"`

	// ProcessTimeMs is how long whisper inference took.
	ProcessTimeMs int64 `json:"process_time_ms,omitempty"`
}

// Store reads and writes the transcript history file. The zero value is not
// usable; create one with New or Open.
//
// Store methods are not safe for concurrent use. The coordinator is the only
// writer and serialises access.
type Store struct {
	path string
	now  func() time.Time
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithClock replaces the wall clock. Tests use this for stable timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store backed by the given file path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open creates a Store at the default history location.
func Open(opts ...Option) *Store {
	return New(config.TranscriptsPath(), opts...)
}

// LoadAll returns every saved entry, oldest first. A missing or unreadable
// history file yields an empty list; dictation must work before any history
// exists.
func (s *Store) LoadAll() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read transcript history", "path", s.path, "error", err)
		}
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("transcript history is corrupt, starting fresh", "path", s.path, "error", err)
		return nil
	}
	return entries
}

// Save appends a transcription to the history, trimming the oldest entries
// when max is exceeded. A max of zero keeps everything. Empty text is
// ignored.
func (s *Store) Save(text string, max int, processTime time.Duration) error {
	if text == "" {
		return nil
	}
	now := s.now()
	entry := Entry{
		Timestamp:     now.Unix(),
		Datetime:      now.Format("2006-01-02 15:04:05"),
		Text:          text,
		ProcessTimeMs: processTime.Milliseconds(),
	}

	all := append(s.LoadAll(), entry)
	if max > 0 && len(all) > max {
		all = all[len(all)-max:]
	}
	return s.saveAll(all)
}

// Delete removes the entry with the given timestamp. Reports whether an
// entry was removed.
func (s *Store) Delete(timestamp int64) (bool, error) {
	all := s.LoadAll()
	kept := all[:0]
	for _, e := range all {
		if e.Timestamp != timestamp {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(all) {
		return false, nil
	}
	return true, s.saveAll(kept)
}

// EnforceMax trims the history to at most max entries, dropping the oldest.
// A max of zero is unlimited and leaves the file untouched.
func (s *Store) EnforceMax(max int) error {
	if max <= 0 {
		return nil
	}
	all := s.LoadAll()
	if len(all) <= max {
		return nil
	}
	return s.saveAll(all[len(all)-max:])
}

// Clear removes all history.
func (s *Store) Clear() error {
	return s.saveAll([]Entry{})
}

func (s *Store) saveAll(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("transcript: create history dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("transcript: encode history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("transcript: write history: %w", err)
	}
	return nil
}
