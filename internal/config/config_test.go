package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/voxtype/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Model != config.DefaultModelFilename {
		t.Errorf("Model = %q, want %q", cfg.Model, config.DefaultModelFilename)
	}
	if !cfg.ClipboardAutoCopy {
		t.Error("ClipboardAutoCopy = false, want true")
	}
	if cfg.UseVAD {
		t.Error("UseVAD = true, want false (chunk mode needs no model download)")
	}
	if cfg.RecordingMode != config.ModePushToTalk {
		t.Errorf("RecordingMode = %q, want %q", cfg.RecordingMode, config.ModePushToTalk)
	}
	if cfg.MaxTranscripts != 0 {
		t.Errorf("MaxTranscripts = %d, want 0 (unbounded)", cfg.MaxTranscripts)
	}

	if err := config.Validate(&cfg); err != nil {
		t.Errorf("Validate(Default()) error = %v, want nil", err)
	}
}

func TestChunkSamples(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkDurationSecs = 3.0

	if got, want := cfg.ChunkSamples(), 3*config.SampleRate; got != want {
		t.Errorf("ChunkSamples() = %d, want %d", got, want)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.LogLevel = "verbose" },
			wantErr: "log_level",
		},
		{
			name:    "bad recording mode",
			mutate:  func(c *config.Config) { c.RecordingMode = "hold" },
			wantErr: "recording_mode",
		},
		{
			name:    "negative max transcripts",
			mutate:  func(c *config.Config) { c.MaxTranscripts = -1 },
			wantErr: "max_transcripts",
		},
		{
			name:    "duck volume out of range",
			mutate:  func(c *config.Config) { c.DuckVolume = 150 },
			wantErr: "duck_volume",
		},
		{
			name:    "shortcut without modifier",
			mutate:  func(c *config.Config) { c.Shortcut = "a" },
			wantErr: "shortcut",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			err := config.Validate(&cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ClampsChunkDuration(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkDurationSecs = 60

	if err := config.Validate(&cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.ChunkDurationSecs != config.ChunkDurationMax {
		t.Errorf("ChunkDurationSecs = %v, want clamped to %v", cfg.ChunkDurationSecs, config.ChunkDurationMax)
	}

	cfg.ChunkDurationSecs = 0.5
	if err := config.Validate(&cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.ChunkDurationSecs != config.ChunkDurationMin {
		t.Errorf("ChunkDurationSecs = %v, want clamped to %v", cfg.ChunkDurationSecs, config.ChunkDurationMin)
	}
}

func TestValidateShortcut(t *testing.T) {
	tests := []struct {
		shortcut string
		wantOK   bool
	}{
		{"ctrl+space", true},
		{"ctrl+shift+l", true},
		{"super+z", true},
		{"f8", true},
		{"scrolllock", true},
		{"a", false},
		{"", false},
		{"ctrl+shift", false}, // modifiers only
	}

	for _, tt := range tests {
		err := config.ValidateShortcut(tt.shortcut)
		if (err == nil) != tt.wantOK {
			t.Errorf("ValidateShortcut(%q) error = %v, want ok=%v", tt.shortcut, err, tt.wantOK)
		}
	}
}

func TestIsDangerousShortcut(t *testing.T) {
	if !config.IsDangerousShortcut("Ctrl+C") {
		t.Error("IsDangerousShortcut(Ctrl+C) = false, want true")
	}
	if config.IsDangerousShortcut("ctrl+space") {
		t.Error("IsDangerousShortcut(ctrl+space) = true, want false")
	}
}

func TestDisplayShortcut(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ctrl+shift+a", "Ctrl + Shift + A"},
		{"ctrl+space", "Ctrl + Space"},
		{"scrolllock", "Scroll Lock"},
		{"super+leftbracket", "Super + ["},
	}

	for _, tt := range tests {
		if got := config.DisplayShortcut(tt.in); got != tt.want {
			t.Errorf("DisplayShortcut(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
