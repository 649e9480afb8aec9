// Package mock provides test doubles for the stt package interfaces.
//
// Use Transcriber to inject text responses and inspect the segments that
// were submitted for inference.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxtype/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Samples is a copy of the audio passed to Transcribe.
	Samples []float32
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call when ResultFunc is nil.
	Result string

	// ResultFunc, if non-nil, computes the result for each Transcribe call.
	// The call index (0-based) and samples are passed in.
	ResultFunc func(call int, samples []float32) (string, error)

	// Err, if non-nil, is returned by every Transcribe call when ResultFunc
	// is nil.
	Err error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Transcribe records the call and returns the configured result.
func (t *Transcriber) Transcribe(_ context.Context, samples []float32) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	idx := len(t.TranscribeCalls)
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Samples: cp})
	if t.ResultFunc != nil {
		return t.ResultFunc(idx, samples)
	}
	if t.Err != nil {
		return "", t.Err
	}
	return t.Result, nil
}

// Close increments CloseCallCount and returns CloseErr.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CloseCallCount++
	return t.CloseErr
}

// Clear discards all recorded calls. Thread-safe.
func (t *Transcriber) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranscribeCalls = nil
	t.CloseCallCount = 0
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)
