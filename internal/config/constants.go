package config

import (
	"runtime"
	"time"
)

// SampleRate is the pipeline-wide mono sample rate in Hz. Whisper and the VAD
// scorer both expect 16 kHz input, so capture is opened at this rate and no
// resampling happens anywhere in the pipeline.
const SampleRate = 16000

// Fixed-chunk segmentation.
const (
	ChunkDurationMin         float32 = 2.0
	ChunkDurationMax         float32 = 10.0
	DefaultChunkDurationSecs float32 = 3.0

	// SilenceRMSThreshold is the root-mean-square level below which a chunk
	// is considered silent and discarded.
	SilenceRMSThreshold float32 = 0.01

	// ChunkMinFlushSamples is the smallest partial chunk worth transcribing
	// when the session stops mid-chunk (0.3 s).
	ChunkMinFlushSamples = SampleRate * 3 / 10
)

// Voice-activity segmentation.
const (
	// VADFrameSize is the analysis frame length in samples (16 ms at 16 kHz).
	// The scorer operates on frames of exactly this size.
	VADFrameSize = 256

	// VADThreshold is the speech probability at or above which an analysis
	// frame counts as speech.
	VADThreshold float32 = 0.5

	// VADPreSpeechSamples is the ring-buffer capacity retained before a
	// detected speech onset (300 ms).
	VADPreSpeechSamples = SampleRate * 300 / 1000

	// VADPostSpeechSamples is the sustained silence that ends an utterance
	// (600 ms).
	VADPostSpeechSamples = SampleRate * 600 / 1000

	// VADMinSpeechSamples is the emission floor; shorter segments are
	// discarded as noise. Whisper needs at least one second of audio anyway.
	VADMinSpeechSamples = SampleRate * 1000 / 1000

	// VADMaxSpeechSamples is the force-flush ceiling for continuous speech
	// (20 s), keeping segments inside whisper's practical window.
	VADMaxSpeechSamples = SampleRate * 20
)

// Transcription.
const (
	// MinTranscribeSamples is whisper's minimum supported input (1 s).
	// Shorter segments are zero-padded, never dropped.
	MinTranscribeSamples = SampleRate
)

// Coordinator timing. Fixed constants carried over from the reference
// behaviour; they are deliberately not config keys.
const (
	// DrainTimeout bounds the stop-and-drain wait on the transcription
	// channel. On expiry the session finalises anyway and a lost-audio
	// warning is logged.
	DrainTimeout = 10 * time.Second

	// MuteNotifyInterval rate-limits the "microphone is muted" notification.
	MuteNotifyInterval = 3 * time.Second
)

// Hotkey timing.
const (
	// PTTReleaseDebounce is how long a push-to-talk release is held pending;
	// a new press inside this window is OS auto-repeat and cancels it.
	PTTReleaseDebounce = 50 * time.Millisecond

	// TypingGrace suppresses release events arriving just after synthetic
	// typing finished, for the window-system backend only.
	TypingGrace = 200 * time.Millisecond
)

// WhisperThreads returns the inference thread hint: all cores minus two,
// but never fewer than two.
func WhisperThreads() int {
	n := runtime.NumCPU() - 2
	if n < 2 {
		n = 2
	}
	return n
}

// ModelInfo describes one downloadable whisper model.
type ModelInfo struct {
	Filename    string
	Label       string
	Size        string
	Description string
	URL         string
}

// DefaultModelFilename is the model selected on first run.
const DefaultModelFilename = "ggml-base.en-q8_0.bin"

// AvailableModels lists the whisper models the settings UI offers for
// download, smallest first.
var AvailableModels = []ModelInfo{
	{
		Filename:    "ggml-base.en-q8_0.bin",
		Label:       "Base",
		Size:        "82 MB",
		Description: "Fast, good for most use",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en-q8_0.bin",
	},
	{
		Filename:    "ggml-small.en-q8_0.bin",
		Label:       "Small",
		Size:        "180 MB",
		Description: "More accurate",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.en-q8_0.bin",
	},
	{
		Filename:    "ggml-medium.en-q8_0.bin",
		Label:       "Medium",
		Size:        "460 MB",
		Description: "Most accurate",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.en-q8_0.bin",
	},
}

// Default shortcut bindings.
const (
	DefaultShortcut             = "ctrl+space"
	DefaultTranscriptShortcut   = "ctrl+shift+t"
	DefaultAlwaysListenShortcut = "ctrl+shift+l"
)
