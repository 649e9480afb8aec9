package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/voxtype/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "use_vad: false\n")

	changed := make(chan config.Config, 1)
	w := config.NewWatcher(path, func(_, new config.Config) {
		changed <- new
	}, config.WithInterval(10*time.Millisecond))
	defer w.Stop()

	if w.Current().UseVAD {
		t.Fatal("initial Current().UseVAD = true, want false")
	}

	// Rewrite with different content and a bumped mtime.
	time.Sleep(20 * time.Millisecond)
	writeFile(t, path, "use_vad: true\n")
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case cfg := <-changed:
		if !cfg.UseVAD {
			t.Error("onChange config UseVAD = false, want true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	if !w.Current().UseVAD {
		t.Error("Current().UseVAD = false after change, want true")
	}
}

func TestWatcher_IgnoresTouchWithoutContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "use_vad: true\n")

	changed := make(chan struct{}, 1)
	w := config.NewWatcher(path, func(_, _ config.Config) {
		changed <- struct{}{}
	}, config.WithInterval(10*time.Millisecond))
	defer w.Stop()

	// Touch the file without changing its content.
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case <-changed:
		t.Fatal("onChange fired for identical content")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_KeepsOldConfigOnInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "max_transcripts: 25\n")

	w := config.NewWatcher(path, nil, config.WithInterval(10*time.Millisecond))
	defer w.Stop()

	writeFile(t, path, "max_transcripts: [broken\n")
	now := time.Now().Add(time.Second)
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := w.Current().MaxTranscripts; got != 25 {
		t.Errorf("Current().MaxTranscripts = %d after invalid rewrite, want 25", got)
	}
}
