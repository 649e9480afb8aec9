package segment_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/observe"
	"github.com/MrWong99/voxtype/internal/segment"
	"github.com/MrWong99/voxtype/pkg/provider/vad"
	vadmock "github.com/MrWong99/voxtype/pkg/provider/vad/mock"
)

const frameSize = config.VADFrameSize

// newStage spins up a running stage with an unbuffered output channel so the
// test synchronises with the loop by reading segments.
func newStage(t *testing.T, cfg config.Config, newScorer func() (vad.Scorer, error)) (chan<- []float32, <-chan []float32, *segment.Stage) {
	t.Helper()

	frames := make(chan []float32, 2048)
	out := make(chan []float32)

	s := segment.New(frames, out, newScorer,
		segment.WithConfigLoader(func() config.Config { return cfg }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return frames, out, s
}

func scorerFactory(sc *vadmock.Scorer) func() (vad.Scorer, error) {
	return func() (vad.Scorer, error) { return sc, nil }
}

// recv reads one segment with a timeout so a broken stage fails the test
// instead of hanging it.
func recv(t *testing.T, out <-chan []float32) []float32 {
	t.Helper()
	select {
	case seg := <-out:
		return seg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for segment")
		return nil
	}
}

// frame returns one analysis frame filled with the given value.
func frame(value float32) []float32 {
	f := make([]float32, frameSize)
	for i := range f {
		f[i] = value
	}
	return f
}

// speechPattern scores speech for frame indices in [start, end) and silence
// everywhere else.
func speechPattern(start, end int) func(call int, _ []float32) (float64, error) {
	return func(call int, _ []float32) (float64, error) {
		if call >= start && call < end {
			return 1.0, nil
		}
		return 0.0, nil
	}
}

func loudSamples(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.5
	}
	return s
}

func TestVAD_EmitsUtteranceWithPreRollAndTrailingSilence(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = true

	sc := &vadmock.Scorer{ScoreFunc: speechPattern(50, 130)}
	frames, out, _ := newStage(t, cfg, scorerFactory(sc))

	// 50 frames silence, 80 frames speech, then silence until the utterance
	// closes. Sample values distinguish pre-roll from speech.
	for i := 0; i < 50; i++ {
		frames <- frame(0.01)
	}
	for i := 0; i < 80; i++ {
		frames <- frame(0.5)
	}
	for i := 0; i < 40; i++ {
		frames <- frame(0.01)
	}

	seg := recv(t, out)

	// Pre-roll ring, then all 80 speech frames starting with the one that
	// triggered the transition, then trailing silence until the closing
	// threshold is crossed.
	trailing := ((config.VADPostSpeechSamples + frameSize - 1) / frameSize) * frameSize
	want := config.VADPreSpeechSamples + 80*frameSize + trailing
	if len(seg) != want {
		t.Errorf("segment length = %d, want %d", len(seg), want)
	}
	if seg[0] != 0.01 {
		t.Errorf("segment does not start with pre-roll audio: first sample = %v", seg[0])
	}
	if seg[config.VADPreSpeechSamples-1] != 0.01 {
		t.Errorf("pre-roll ring was truncated: sample before onset = %v", seg[config.VADPreSpeechSamples-1])
	}
	if seg[config.VADPreSpeechSamples] != 0.5 {
		t.Errorf("onset frame does not follow the pre-roll ring: sample = %v", seg[config.VADPreSpeechSamples])
	}
	if seg[len(seg)-1] != 0.01 {
		t.Errorf("segment does not end with trailing silence: last sample = %v", seg[len(seg)-1])
	}
}

func TestVAD_EmitsConsecutiveUtterances(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = true

	// Two spoken bursts separated by enough silence to close the first one.
	sc := &vadmock.Scorer{ScoreFunc: func(call int, _ []float32) (float64, error) {
		if (call >= 0 && call < 80) || (call >= 120 && call < 200) {
			return 1.0, nil
		}
		return 0.0, nil
	}}
	frames, out, _ := newStage(t, cfg, scorerFactory(sc))

	for i := 0; i < 240; i++ {
		frames <- frame(0.5)
	}

	if seg := recv(t, out); len(seg) == 0 {
		t.Error("first utterance was not emitted")
	}
	if seg := recv(t, out); len(seg) == 0 {
		t.Error("second utterance was not emitted")
	}
}

func TestVAD_DiscardsUtteranceBelowMinimumLength(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = true

	sc := &vadmock.Scorer{ScoreFunc: speechPattern(0, 10)}
	frames, out, s := newStage(t, cfg, scorerFactory(sc))

	for i := 0; i < 10; i++ {
		frames <- frame(0.5)
	}
	for i := 0; i < 40; i++ {
		frames <- frame(0.0)
	}
	s.Flush()

	// Under a second of audio is below the minimum, so only the sentinel
	// arrives.
	if seg := recv(t, out); len(seg) != 0 {
		t.Fatalf("expected sentinel only, got segment of %d samples", len(seg))
	}
}

func TestVAD_ForceEmitsAtMaxDurationAndStaysInSpeech(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = true

	sc := &vadmock.Scorer{ScoreResult: 1.0}
	frames, out, s := newStage(t, cfg, scorerFactory(sc))

	total := config.VADMaxSpeechSamples/frameSize + 50
	for i := 0; i < total; i++ {
		frames <- frame(0.5)
	}

	seg := recv(t, out)
	if len(seg) < config.VADMaxSpeechSamples {
		t.Errorf("force-emitted segment length = %d, want >= %d", len(seg), config.VADMaxSpeechSamples)
	}

	// The leftover 50 frames stay in the speech buffer but are under the
	// minimum length, so a flush yields only the sentinel.
	s.Flush()
	if seg := recv(t, out); len(seg) != 0 {
		t.Fatalf("expected sentinel after flush, got segment of %d samples", len(seg))
	}
}

func TestVAD_MissingScorerIgnoresAudio(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = true

	factory := func() (vad.Scorer, error) { return nil, errors.New("no model") }
	frames, out, s := newStage(t, cfg, factory)

	for i := 0; i < 80; i++ {
		frames <- frame(0.5)
	}
	s.Flush()

	if seg := recv(t, out); len(seg) != 0 {
		t.Fatalf("audio was processed without a scorer: got %d samples", len(seg))
	}
}

func TestVAD_ReloadModelRecoversScorer(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = true

	sc := &vadmock.Scorer{ScoreFunc: speechPattern(0, 80)}
	var calls atomic.Int32
	factory := func() (vad.Scorer, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("no model")
		}
		return sc, nil
	}

	frames, out, s := newStage(t, cfg, factory)

	// Commands are processed in order, so the sentinel from this flush
	// proves the reload went through before any audio is sent.
	s.ReloadModel()
	s.Flush()
	if seg := recv(t, out); len(seg) != 0 {
		t.Fatalf("unexpected segment from reload flush: %d samples", len(seg))
	}

	for i := 0; i < 80; i++ {
		frames <- frame(0.5)
	}
	for i := 0; i < 40; i++ {
		frames <- frame(0.0)
	}
	if seg := recv(t, out); len(seg) == 0 {
		t.Error("audio was not processed after scorer reload")
	}
}

func TestChunk_EmitsFixedChunksAndFlushesRemainder(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = false
	cfg.ChunkDurationSecs = 2.0

	frames, out, s := newStage(t, cfg, scorerFactory(&vadmock.Scorer{}))

	chunkLen := cfg.ChunkSamples()
	frames <- loudSamples(chunkLen + chunkLen/2)

	if seg := recv(t, out); len(seg) != chunkLen {
		t.Errorf("chunk length = %d, want %d", len(seg), chunkLen)
	}

	s.Flush()
	if seg := recv(t, out); len(seg) != chunkLen/2 {
		t.Errorf("flushed remainder length = %d, want %d", len(seg), chunkLen/2)
	}
	if seg := recv(t, out); len(seg) != 0 {
		t.Error("sentinel did not follow the flushed remainder")
	}
}

func TestChunk_SkipsSilentChunks(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = false
	cfg.ChunkDurationSecs = 2.0

	frames, out, s := newStage(t, cfg, scorerFactory(&vadmock.Scorer{}))

	quiet := make([]float32, cfg.ChunkSamples())
	for i := range quiet {
		quiet[i] = 0.001
	}
	frames <- quiet
	s.Flush()

	if seg := recv(t, out); len(seg) != 0 {
		t.Fatalf("silent chunk was emitted: %d samples", len(seg))
	}
}

func TestChunk_DropsShortRemainderOnFlush(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = false
	cfg.ChunkDurationSecs = 2.0

	frames, out, s := newStage(t, cfg, scorerFactory(&vadmock.Scorer{}))

	frames <- loudSamples(config.ChunkMinFlushSamples - 1)
	s.Flush()

	if seg := recv(t, out); len(seg) != 0 {
		t.Fatalf("short remainder was emitted: %d samples", len(seg))
	}
}

func TestFlush_AlwaysEmitsExactlyOneSentinel(t *testing.T) {
	cfg := config.Default()

	_, out, s := newStage(t, cfg, scorerFactory(&vadmock.Scorer{}))

	s.Flush()
	s.Flush()

	for i := 0; i < 2; i++ {
		if seg := recv(t, out); len(seg) != 0 {
			t.Fatalf("flush %d emitted a non-sentinel segment of %d samples", i, len(seg))
		}
	}
}

func TestReloadConfig_UnchangedConfigKeepsBufferedAudio(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = false
	cfg.ChunkDurationSecs = 2.0

	frames, out, s := newStage(t, cfg, scorerFactory(&vadmock.Scorer{}))

	frames <- loudSamples(cfg.ChunkSamples() / 2)
	s.ReloadConfig()
	frames <- loudSamples(cfg.ChunkSamples() / 2)

	// The two halves only add up to a full chunk if the reload preserved
	// the partial buffer.
	if seg := recv(t, out); len(seg) != cfg.ChunkSamples() {
		t.Errorf("chunk length after no-op reload = %d, want %d", len(seg), cfg.ChunkSamples())
	}
}

func TestEmit_CountsSegmentsButNotSentinels(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = false
	cfg.ChunkDurationSecs = 2.0

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	frames := make(chan []float32, 2048)
	out := make(chan []float32)
	s := segment.New(frames, out, scorerFactory(&vadmock.Scorer{}),
		segment.WithConfigLoader(func() config.Config { return cfg }),
		segment.WithMetrics(metrics),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// One full chunk, then a flush with nothing pending: one real segment
	// plus one sentinel. The instrument is recorded before the channel send,
	// so receiving the segment guarantees the count is visible.
	frames <- loudSamples(cfg.ChunkSamples())
	if seg := recv(t, out); len(seg) != cfg.ChunkSamples() {
		t.Fatalf("chunk length = %d, want %d", len(seg), cfg.ChunkSamples())
	}
	s.Flush()
	if seg := recv(t, out); len(seg) != 0 {
		t.Fatalf("expected sentinel, got segment of %d samples", len(seg))
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "voxtype.segments" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected counter data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 1 {
		t.Errorf("segments counter = %d, want 1 (sentinel must not count)", total)
	}
}

func TestReloadConfig_ChangedChunkDurationTakesEffect(t *testing.T) {
	cfg := config.Default()
	cfg.UseVAD = false
	cfg.ChunkDurationSecs = 2.0

	var mu sync.Mutex
	current := cfg
	load := func() config.Config {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	frames := make(chan []float32, 2048)
	out := make(chan []float32)
	s := segment.New(frames, out, scorerFactory(&vadmock.Scorer{}),
		segment.WithConfigLoader(load),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	mu.Lock()
	current.ChunkDurationSecs = 3.0
	want := current.ChunkSamples()
	mu.Unlock()
	s.ReloadConfig()

	// Synchronise: the sentinel from this flush proves the new size is
	// active before the audio goes in.
	s.Flush()
	if seg := recv(t, out); len(seg) != 0 {
		t.Fatalf("unexpected segment before audio: %d samples", len(seg))
	}

	frames <- loudSamples(want)
	if seg := recv(t, out); len(seg) != want {
		t.Errorf("chunk length after reload = %d, want %d", len(seg), want)
	}
}
