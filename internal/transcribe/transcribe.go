// Package transcribe runs whisper inference on segmented utterances.
//
// The stage reads segments from the segmentation stage and emits one Result
// per recognised utterance. The zero-length drain sentinel is forwarded
// unconditionally as an empty-text Result, whether or not a model is loaded,
// so the coordinator's stop sequence can always complete.
//
// The model is loaded lazily: when the configured model file is missing the
// stage stays up and drops segments, and a later ReloadModel brings it live
// without restarting the pipeline. Reloading to a broken or missing file
// keeps the current model.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/observe"
	"github.com/MrWong99/voxtype/pkg/audio"
	"github.com/MrWong99/voxtype/pkg/provider/stt"
	"github.com/MrWong99/voxtype/pkg/provider/stt/whisper"
)

// Result is one transcription outcome. Empty Text marks the drain sentinel.
type Result struct {
	Text        string
	ProcessTime time.Duration
}

// Stage is the transcription pipeline stage. Create with New, run Run in its
// own goroutine; ReloadModel is safe to call from any goroutine while the
// loop is running.
type Stage struct {
	segments <-chan []float32
	out      chan<- Result
	reloads  chan string

	newTranscriber func(modelPath string) (stt.Transcriber, error)
	metrics        *observe.Metrics
}

// Option is a functional option for configuring a Stage.
type Option func(*Stage)

// WithTranscriberFactory replaces the whisper-backed factory. Tests use this
// to inject mocks; the factory is handed the resolved model file path.
func WithTranscriberFactory(fn func(modelPath string) (stt.Transcriber, error)) Option {
	return func(s *Stage) { s.newTranscriber = fn }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Stage) { s.metrics = m }
}

// New creates a transcription stage reading segments and writing Results.
func New(segments <-chan []float32, out chan<- Result, opts ...Option) *Stage {
	s := &Stage{
		segments:       segments,
		out:            out,
		reloads:        make(chan string, 4),
		newTranscriber: newWhisper,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// newWhisper loads the whisper.cpp model at path, failing fast when the file
// does not exist so the stage can keep running without one.
func newWhisper(modelPath string) (stt.Transcriber, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file unavailable: %w", err)
	}
	return whisper.New(modelPath,
		whisper.WithLanguage("en"),
		whisper.WithThreads(uint(config.WhisperThreads())),
	)
}

// ReloadModel asks the stage to switch to the given model filename (resolved
// inside the models directory). Processed in order with incoming segments, so
// segments queued before the reload still use the old model.
func (s *Stage) ReloadModel(filename string) { s.reloads <- filename }

// Run executes the stage loop until ctx is cancelled or the segments channel
// closes. Always returns nil; inference errors are logged and the segment
// skipped.
func (s *Stage) Run(ctx context.Context) error {
	tr := s.tryLoad(config.ModelPath())
	if tr == nil {
		slog.Warn("whisper model not found, transcription idle until a model is downloaded")
	}
	defer func() {
		if tr != nil {
			_ = tr.Close()
		}
	}()

	slog.Info("transcription stage ready")

	emit := func(r Result) {
		select {
		case s.out <- r:
		case <-ctx.Done():
		}
	}

	reload := func(filename string) {
		next := s.tryLoad(config.ModelPathFor(filename))
		if next == nil {
			if tr != nil {
				slog.Warn("keeping current whisper model", "requested", filename)
			}
			return
		}
		if tr != nil {
			_ = tr.Close()
		}
		tr = next
		slog.Info("whisper model reloaded", "model", filename)
	}

	for {
		// A pending model switch applies before the next queued segment.
		select {
		case filename := <-s.reloads:
			reload(filename)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return nil

		case segment, ok := <-s.segments:
			if !ok {
				return nil
			}
			if len(segment) == 0 {
				// Drain sentinel, forwarded even without a model.
				emit(Result{})
				continue
			}
			if tr == nil {
				continue
			}
			if r, ok := s.transcribe(ctx, tr, segment); ok {
				emit(r)
			}

		case filename := <-s.reloads:
			reload(filename)
		}
	}
}

func (s *Stage) tryLoad(path string) stt.Transcriber {
	tr, err := s.newTranscriber(path)
	if err != nil {
		slog.Error("failed to load whisper model", "path", path, "error", err)
		return nil
	}
	return tr
}

// transcribe runs one inference, pads short segments to whisper's minimum
// input, and filters hallucinated filler so silence never types "Thank you."
// into the focused window.
func (s *Stage) transcribe(ctx context.Context, tr stt.Transcriber, segment []float32) (Result, bool) {
	if len(segment) < config.MinTranscribeSamples {
		padded := make([]float32, config.MinTranscribeSamples)
		copy(padded, segment)
		segment = padded
	}

	start := time.Now()
	text, err := tr.Transcribe(ctx, segment)
	elapsed := time.Since(start)
	if err != nil {
		slog.Error("transcription failed", "error", err)
		return Result{}, false
	}

	text = strings.TrimSpace(text)
	slog.Debug("segment transcribed",
		"secs", audio.DurationSecs(len(segment), config.SampleRate),
		"took", elapsed,
		"chars", len(text),
	)

	if text == "" {
		return Result{}, false
	}
	if isHallucination(text) {
		slog.Debug("dropping hallucinated text", "text", text)
		s.metrics.RecordTranscription(ctx, elapsed, "filtered")
		return Result{}, false
	}

	s.metrics.RecordTranscription(ctx, elapsed, "ok")
	return Result{Text: text, ProcessTime: elapsed}, true
}

// isHallucination reports whether text is one of whisper's well-known
// fabrications on silent or near-silent audio.
func isHallucination(text string) bool {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
		return true
	}
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		return true
	}
	switch t {
	case "you", "Thank you.", "Thanks for watching!", "Bye.", "...":
		return true
	}
	return false
}
