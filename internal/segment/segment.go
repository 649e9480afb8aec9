// Package segment turns the raw capture stream into discrete utterances for
// transcription.
//
// The stage runs as a single goroutine that multiplexes raw audio buffers and
// control commands. Two segmentation strategies exist: voice-activity
// detection (emit one segment per spoken utterance) and fixed-duration chunks
// (emit every N seconds, skipping silent chunks). The active strategy and its
// parameters come from the configuration and can change at runtime via
// ReloadConfig.
//
// Downstream contract: a zero-length segment is the drain sentinel. Flush
// emits any pending audio worth transcribing and then exactly one sentinel,
// so the coordinator can wait for the matching empty transcription outcome to
// know the pipeline has fully drained.
package segment

import (
	"context"
	"log/slog"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/observe"
	"github.com/MrWong99/voxtype/pkg/audio"
	"github.com/MrWong99/voxtype/pkg/provider/vad"
)

type command int

const (
	cmdFlush command = iota
	cmdReloadModel
	cmdReloadConfig
)

// segmenter is the strategy behind the stage loop. Implementations are owned
// by the loop goroutine and never shared.
type segmenter interface {
	// push consumes one raw capture buffer and calls emit for every segment
	// that became complete.
	push(samples []float32, emit func([]float32))

	// flush emits any pending audio worth transcribing and resets all
	// internal state.
	flush(emit func([]float32))
}

// Stage is the segmentation pipeline stage. Create with New, then run the
// loop with Run; the command methods are safe to call from any goroutine
// while the loop is running.
type Stage struct {
	frames <-chan []float32
	out    chan<- []float32
	cmds   chan command

	newScorer func() (vad.Scorer, error)
	loadCfg   func() config.Config
	metrics   *observe.Metrics
}

// Option is a functional option for configuring a Stage.
type Option func(*Stage)

// WithConfigLoader replaces the on-disk config loader. Tests use this to
// drive reloads without touching the filesystem.
func WithConfigLoader(load func() config.Config) Option {
	return func(s *Stage) { s.loadCfg = load }
}

// WithMetrics replaces the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Stage) { s.metrics = m }
}

// New creates a segmentation stage reading raw buffers from frames and
// writing segments to out. newScorer constructs the VAD backend; it is only
// invoked when voice-activity mode is active, and a failure leaves the stage
// ignoring audio until a ReloadModel succeeds (mirroring the behaviour of a
// missing model file).
func New(frames <-chan []float32, out chan<- []float32, newScorer func() (vad.Scorer, error), opts ...Option) *Stage {
	s := &Stage{
		frames:    frames,
		out:       out,
		cmds:      make(chan command, 16),
		newScorer: newScorer,
		loadCfg:   config.LoadOrDefault,
		metrics:   observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Flush asks the stage to emit pending audio followed by the drain sentinel.
func (s *Stage) Flush() { s.cmds <- cmdFlush }

// ReloadModel retries VAD scorer construction if it previously failed.
func (s *Stage) ReloadModel() { s.cmds <- cmdReloadModel }

// ReloadConfig re-reads the configuration and switches strategy or chunk
// length if they changed. An unchanged configuration leaves all in-progress
// segmentation state intact.
func (s *Stage) ReloadConfig() { s.cmds <- cmdReloadConfig }

// Run executes the stage loop until ctx is cancelled or the frames channel
// closes. It always returns nil; segmentation errors are logged and the
// offending frame skipped, because one bad frame must not kill dictation.
func (s *Stage) Run(ctx context.Context) error {
	cfg := s.loadCfg()
	useVAD := cfg.UseVAD
	chunkSamples := cfg.ChunkSamples()

	var scorer vad.Scorer
	if useVAD {
		scorer = s.tryNewScorer()
	}

	seg := s.buildSegmenter(useVAD, chunkSamples, scorer)

	mode := func(v bool) string {
		if v {
			return "vad"
		}
		return "chunk"
	}

	emit := func(segment []float32) {
		if len(segment) > 0 {
			secs := audio.DurationSecs(len(segment), config.SampleRate)
			s.metrics.RecordSegment(ctx, float64(secs), mode(useVAD))
		}
		select {
		case s.out <- segment:
		case <-ctx.Done():
		}
	}

	slog.Info("segmentation stage ready", "mode", mode(useVAD))

	for {
		select {
		case <-ctx.Done():
			return nil

		case samples, ok := <-s.frames:
			if !ok {
				return nil
			}
			if useVAD && scorer == nil {
				continue
			}
			seg.push(samples, emit)

		case cmd := <-s.cmds:
			switch cmd {
			case cmdFlush:
				seg.flush(emit)
				if useVAD && scorer != nil {
					scorer.Reset()
				}
				// The sentinel tells the coordinator everything before it
				// has been handed to transcription.
				emit(nil)

			case cmdReloadModel:
				if useVAD && scorer == nil {
					if scorer = s.tryNewScorer(); scorer != nil {
						seg = s.buildSegmenter(useVAD, chunkSamples, scorer)
					}
				}

			case cmdReloadConfig:
				newCfg := s.loadCfg()
				if newCfg.UseVAD == useVAD && newCfg.ChunkSamples() == chunkSamples {
					continue
				}
				slog.Info("segmentation stage config reloaded",
					"mode", mode(newCfg.UseVAD),
					"chunk_secs", newCfg.ChunkDurationSecs,
				)
				useVAD = newCfg.UseVAD
				chunkSamples = newCfg.ChunkSamples()
				if useVAD && scorer == nil {
					scorer = s.tryNewScorer()
				}
				if scorer != nil {
					scorer.Reset()
				}
				seg = s.buildSegmenter(useVAD, chunkSamples, scorer)
			}
		}
	}
}

func (s *Stage) tryNewScorer() vad.Scorer {
	scorer, err := s.newScorer()
	if err != nil {
		slog.Error("voice activity scorer unavailable", "error", err)
		return nil
	}
	slog.Info("voice activity scorer loaded")
	return scorer
}

func (s *Stage) buildSegmenter(useVAD bool, chunkSamples int, scorer vad.Scorer) segmenter {
	if useVAD {
		return newVADSegmenter(scorer)
	}
	return newChunkSegmenter(chunkSamples)
}

// rms is a local alias so the segmenters read naturally.
func rms(samples []float32) float32 { return audio.RMS(samples) }
