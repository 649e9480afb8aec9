// Package mock provides test doubles for the vad package interfaces.
//
// Use Scorer to inject probability responses and inspect the frames that were
// submitted for scoring.
//
// Example:
//
//	sc := &mock.Scorer{ScoreResult: 0.9}
//	p, _ := sc.Score(frame)
package mock

import (
	"sync"

	"github.com/MrWong99/voxtype/pkg/provider/vad"
)

// ScoreCall records a single invocation of Scorer.Score.
type ScoreCall struct {
	// Frame is a copy of the samples passed to Score.
	Frame []float32
}

// Scorer is a mock implementation of vad.Scorer.
type Scorer struct {
	mu sync.Mutex

	// ScoreResult is returned by every Score call when ScoreFunc is nil.
	ScoreResult float64

	// ScoreFunc, if non-nil, computes the result for each Score call. The
	// call index (0-based) and frame are passed in.
	ScoreFunc func(call int, frame []float32) (float64, error)

	// ScoreErr, if non-nil, is returned by every Score call when ScoreFunc
	// is nil.
	ScoreErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// ScoreCalls records every call to Score in order.
	ScoreCalls []ScoreCall

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Score records the call and returns the configured result.
func (s *Scorer) Score(frame []float32) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]float32, len(frame))
	copy(cp, frame)
	idx := len(s.ScoreCalls)
	s.ScoreCalls = append(s.ScoreCalls, ScoreCall{Frame: cp})
	if s.ScoreFunc != nil {
		return s.ScoreFunc(idx, frame)
	}
	if s.ScoreErr != nil {
		return 0, s.ScoreErr
	}
	return s.ScoreResult, nil
}

// Reset increments ResetCallCount.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCallCount++
}

// Close increments CloseCallCount and returns CloseErr.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Clear discards all recorded calls. Thread-safe.
func (s *Scorer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScoreCalls = nil
	s.ResetCallCount = 0
	s.CloseCallCount = 0
}

// Ensure Scorer implements vad.Scorer at compile time.
var _ vad.Scorer = (*Scorer)(nil)
