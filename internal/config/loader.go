package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
// Unknown fields are rejected so typos surface instead of silently
// falling back to defaults.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault loads the config from the default location, falling back to
// [Default] when the file is missing or unparsable. Parse failures are
// logged once per call but never fatal: the daemon must stay usable with a
// corrupt config file.
func LoadOrDefault() Config {
	cfg, err := Load(Path())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to load config, using defaults", "err", err)
		}
		return Default()
	}
	return cfg
}

// Validate checks that cfg contains a coherent set of values, normalising
// out-of-range ones in place. It returns a joined error listing all hard
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.RecordingMode != "" && !cfg.RecordingMode.IsValid() {
		errs = append(errs, fmt.Errorf("recording_mode %q is invalid; valid values: toggle, push_to_talk", cfg.RecordingMode))
	}
	if cfg.MaxTranscripts < 0 {
		errs = append(errs, fmt.Errorf("max_transcripts %d must not be negative", cfg.MaxTranscripts))
	}
	if cfg.DuckVolume < 0 || cfg.DuckVolume > 100 {
		errs = append(errs, fmt.Errorf("duck_volume %d is out of range [0, 100]", cfg.DuckVolume))
	}

	// Chunk duration is clamped rather than rejected: the settings UI writes
	// arbitrary floats and an out-of-range value should not brick the daemon.
	if cfg.ChunkDurationSecs < ChunkDurationMin {
		if cfg.ChunkDurationSecs != 0 {
			slog.Warn("chunk_duration_secs below minimum, clamping",
				"value", cfg.ChunkDurationSecs, "min", ChunkDurationMin)
		}
		cfg.ChunkDurationSecs = ChunkDurationMin
	} else if cfg.ChunkDurationSecs > ChunkDurationMax {
		slog.Warn("chunk_duration_secs above maximum, clamping",
			"value", cfg.ChunkDurationSecs, "max", ChunkDurationMax)
		cfg.ChunkDurationSecs = ChunkDurationMax
	}

	for _, sc := range []struct {
		key, value string
	}{
		{"shortcut", cfg.Shortcut},
		{"transcript_shortcut", cfg.TranscriptShortcut},
		{"always_listen_shortcut", cfg.AlwaysListenShortcut},
	} {
		if sc.value == "" {
			continue
		}
		if err := ValidateShortcut(sc.value); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", sc.key, sc.value, err))
		} else if IsDangerousShortcut(sc.value) {
			slog.Warn("shortcut collides with a common application binding",
				"key", sc.key, "shortcut", sc.value)
		}
	}

	return errors.Join(errs...)
}

// Save writes cfg to the default config location, creating parent
// directories as needed. The daemon calls this once on first run so the
// settings UI has a file to edit.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}
