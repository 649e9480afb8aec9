// Package config provides the configuration schema, loader, and file watcher
// for the voxtype dictation daemon, plus the pipeline constants shared by the
// capture, segmentation, and transcription stages.
package config

// LogLevel controls log verbosity for the daemon.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// RecordingMode selects how the primary shortcut drives a session.
type RecordingMode string

const (
	// ModeToggle starts recording on one press and stops on the next.
	ModeToggle RecordingMode = "toggle"

	// ModePushToTalk records only while the shortcut is physically held.
	ModePushToTalk RecordingMode = "push_to_talk"
)

// IsValid reports whether m is a recognised recording mode.
func (m RecordingMode) IsValid() bool {
	return m == ModeToggle || m == ModePushToTalk
}

// Config is the root configuration for voxtype, loaded from a YAML file via
// [Load]. Every field has a usable default; a missing config file is not an
// error (see [LoadOrDefault]).
//
// The daemon never holds a live shared Config: each stage re-reads the file
// when it processes a reload command, so no cross-goroutine locking is needed.
type Config struct {
	// Model is the whisper model filename inside the models directory
	// (e.g. "ggml-base.en-q8_0.bin").
	Model string `yaml:"model"`

	// ClipboardAutoCopy copies each finished transcript to the clipboard.
	ClipboardAutoCopy bool `yaml:"clipboard_auto_copy"`

	// UseVAD selects voice-activity segmentation instead of fixed chunks.
	UseVAD bool `yaml:"use_vad"`

	// ChunkDurationSecs is the fixed-chunk length in seconds. Only used when
	// UseVAD is false. Clamped to [ChunkDurationMin, ChunkDurationMax].
	ChunkDurationSecs float32 `yaml:"chunk_duration_secs"`

	// RecordingMode selects toggle or push-to-talk for the primary shortcut.
	RecordingMode RecordingMode `yaml:"recording_mode"`

	// Shortcut is the primary record binding (e.g. "ctrl+space").
	Shortcut string `yaml:"shortcut"`

	// TranscriptShortcut opens the transcript list.
	TranscriptShortcut string `yaml:"transcript_shortcut"`

	// AlwaysListenShortcut toggles hands-free always-listen mode.
	AlwaysListenShortcut string `yaml:"always_listen_shortcut"`

	// MaxTranscripts caps the persisted transcript history. Zero keeps
	// everything.
	MaxTranscripts int `yaml:"max_transcripts"`

	// LogLevel controls slog verbosity. Empty means "info".
	LogLevel LogLevel `yaml:"log_level"`

	// DuckEnabled lowers the output sink volume while recording so playback
	// audio does not bleed into the microphone.
	DuckEnabled bool `yaml:"duck_enabled"`

	// DuckVolume is the ducked output volume percentage (0-100).
	DuckVolume int `yaml:"duck_volume"`

	// MetricsAddr is the listen address for the Prometheus /metrics endpoint.
	// Empty disables the metrics listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when no config file exists yet.
func Default() Config {
	return Config{
		Model:                DefaultModelFilename,
		ClipboardAutoCopy:    true,
		UseVAD:               false,
		ChunkDurationSecs:    DefaultChunkDurationSecs,
		RecordingMode:        ModePushToTalk,
		Shortcut:             DefaultShortcut,
		TranscriptShortcut:   DefaultTranscriptShortcut,
		AlwaysListenShortcut: DefaultAlwaysListenShortcut,
		MaxTranscripts:       0,
		LogLevel:             LogInfo,
		DuckEnabled:          false,
		DuckVolume:           30,
	}
}

// ChunkSamples returns the fixed-chunk length in samples at the pipeline
// sample rate, derived from ChunkDurationSecs.
func (c Config) ChunkSamples() int {
	return int(c.ChunkDurationSecs * float32(SampleRate))
}
