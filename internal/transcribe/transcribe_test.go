package transcribe_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/observe"
	"github.com/MrWong99/voxtype/internal/transcribe"
	"github.com/MrWong99/voxtype/pkg/provider/stt"
	sttmock "github.com/MrWong99/voxtype/pkg/provider/stt/mock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// newStage runs a transcription stage whose factory is test-controlled. The
// unbuffered output channel synchronises the test with the loop.
func newStage(t *testing.T, factory func(modelPath string) (stt.Transcriber, error)) (chan<- []float32, <-chan transcribe.Result, *transcribe.Stage) {
	t.Helper()

	segments := make(chan []float32, 64)
	out := make(chan transcribe.Result)

	s := transcribe.New(segments, out,
		transcribe.WithTranscriberFactory(factory),
		transcribe.WithMetrics(testMetrics(t)),
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

	return segments, out, s
}

func recv(t *testing.T, out <-chan transcribe.Result) transcribe.Result {
	t.Helper()
	select {
	case r := <-out:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return transcribe.Result{}
	}
}

func fixedFactory(tr stt.Transcriber) func(string) (stt.Transcriber, error) {
	return func(string) (stt.Transcriber, error) { return tr, nil }
}

func samples(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 0.1
	}
	return s
}

func TestForwardsSentinelAsEmptyResult(t *testing.T) {
	mock := &sttmock.Transcriber{Result: "hello"}
	segments, out, _ := newStage(t, fixedFactory(mock))

	segments <- nil

	r := recv(t, out)
	if r.Text != "" {
		t.Errorf("sentinel result text = %q, want empty", r.Text)
	}
}

func TestForwardsSentinelWithoutModel(t *testing.T) {
	factory := func(string) (stt.Transcriber, error) {
		return nil, errors.New("no model file")
	}
	segments, out, _ := newStage(t, factory)

	segments <- samples(config.SampleRate)
	segments <- nil

	// The audio segment is dropped; the sentinel still arrives.
	r := recv(t, out)
	if r.Text != "" {
		t.Errorf("result text = %q, want empty sentinel", r.Text)
	}
}

func TestTranscribesSegment(t *testing.T) {
	mock := &sttmock.Transcriber{Result: "hello world"}
	segments, out, _ := newStage(t, fixedFactory(mock))

	segments <- samples(2 * config.SampleRate)

	r := recv(t, out)
	if r.Text != "hello world" {
		t.Errorf("result text = %q, want %q", r.Text, "hello world")
	}
	if r.ProcessTime < 0 {
		t.Errorf("process time = %v, want >= 0", r.ProcessTime)
	}
}

func TestPadsShortSegmentsToMinimumInput(t *testing.T) {
	mock := &sttmock.Transcriber{Result: "hi"}
	segments, out, _ := newStage(t, fixedFactory(mock))

	segments <- samples(config.SampleRate / 2)
	recv(t, out)

	if len(mock.TranscribeCalls) != 1 {
		t.Fatalf("transcribe calls = %d, want 1", len(mock.TranscribeCalls))
	}
	got := mock.TranscribeCalls[0].Samples
	if len(got) != config.MinTranscribeSamples {
		t.Errorf("padded length = %d, want %d", len(got), config.MinTranscribeSamples)
	}
	if got[0] != 0.1 {
		t.Error("padding overwrote the original audio")
	}
	if got[len(got)-1] != 0 {
		t.Error("padding is not silence")
	}
}

func TestFiltersHallucinatedText(t *testing.T) {
	hallucinations := []string{
		"[BLANK_AUDIO]",
		"(wind blowing)",
		"you",
		"Thank you.",
		"Thanks for watching!",
		"Bye.",
		"...",
		"   ",
	}

	mock := &sttmock.Transcriber{ResultFunc: func(call int, _ []float32) (string, error) {
		return hallucinations[call], nil
	}}
	segments, out, _ := newStage(t, fixedFactory(mock))

	for range hallucinations {
		segments <- samples(config.SampleRate)
	}
	segments <- nil

	// Every filtered segment produces nothing; only the sentinel arrives.
	r := recv(t, out)
	if r.Text != "" {
		t.Fatalf("hallucinated text leaked through: %q", r.Text)
	}
}

func TestReloadKeepsCurrentModelOnFailure(t *testing.T) {
	mock := &sttmock.Transcriber{Result: "still here"}
	factory := func(path string) (stt.Transcriber, error) {
		if strings.Contains(path, "broken") {
			return nil, errors.New("corrupt model")
		}
		return mock, nil
	}
	segments, out, s := newStage(t, factory)

	s.ReloadModel("ggml-broken.bin")
	// Commands and segments share the loop; the sentinel proves the reload
	// was processed before the real audio goes in.
	segments <- nil
	recv(t, out)

	segments <- samples(config.SampleRate)
	if r := recv(t, out); r.Text != "still here" {
		t.Errorf("result text after failed reload = %q, want %q", r.Text, "still here")
	}
}

func TestReloadBringsUpModelWhenNoneLoaded(t *testing.T) {
	mock := &sttmock.Transcriber{Result: "finally"}
	var loads int
	factory := func(string) (stt.Transcriber, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("no model file")
		}
		return mock, nil
	}
	segments, out, s := newStage(t, factory)

	s.ReloadModel(config.DefaultModelFilename)
	segments <- nil
	recv(t, out)

	segments <- samples(config.SampleRate)
	if r := recv(t, out); r.Text != "finally" {
		t.Errorf("result text after reload = %q, want %q", r.Text, "finally")
	}
}
