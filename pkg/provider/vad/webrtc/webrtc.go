// Package webrtc implements vad.Scorer on top of the WebRTC voice activity
// detector.
//
// The WebRTC detector classifies fixed windows of 10, 20 or 30 ms of 16-bit
// PCM and returns a binary voiced/unvoiced decision. The segmentation layer
// feeds arbitrary float32 frames, so this scorer accumulates samples
// internally and classifies complete 10 ms windows as they fill up, reporting
// 1.0 for a voiced window and 0.0 otherwise. When a frame does not complete a
// window, the probability of the most recent window is returned.
package webrtc

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"github.com/MrWong99/voxtype/pkg/audio"
	"github.com/MrWong99/voxtype/pkg/provider/vad"
)

// DefaultMode is the detector aggressiveness used by New. Range 0 (least
// aggressive, most speech passes) to 3 (most aggressive). Mode 2 keeps false
// positives low without clipping quiet speech.
const DefaultMode = 2

// Compile-time assertion that Scorer satisfies vad.Scorer.
var _ vad.Scorer = (*Scorer)(nil)

// Scorer classifies audio using the WebRTC VAD. Not safe for concurrent use.
type Scorer struct {
	detector   *webrtcvad.VAD
	sampleRate int
	windowSize int

	pending []int16
	last    float64
	closed  bool
}

// New creates a Scorer for the given sample rate with DefaultMode
// aggressiveness. Valid rates are 8000, 16000, 32000 and 48000 Hz.
func New(sampleRate int) (*Scorer, error) {
	return NewWithMode(sampleRate, DefaultMode)
}

// NewWithMode creates a Scorer with an explicit aggressiveness mode (0-3).
func NewWithMode(sampleRate, mode int) (*Scorer, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("webrtc vad: unsupported sample rate %d", sampleRate)
	}
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("webrtc vad: mode %d out of range [0, 3]", mode)
	}

	detector, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("webrtc vad: create detector: %w", err)
	}
	if err := detector.SetMode(mode); err != nil {
		return nil, fmt.Errorf("webrtc vad: set mode %d: %w", mode, err)
	}

	return &Scorer{
		detector:   detector,
		sampleRate: sampleRate,
		windowSize: sampleRate / 100, // 10 ms
	}, nil
}

// Score appends the frame to the internal window buffer, classifies every
// complete 10 ms window, and returns 1.0 if any of them was voiced. Leftover
// samples stay buffered for the next call.
func (s *Scorer) Score(frame []float32) (float64, error) {
	if s.closed {
		return 0, fmt.Errorf("webrtc vad: scorer is closed")
	}

	s.pending = append(s.pending, audio.Float32ToInt16(frame)...)

	scored := false
	voiced := false
	for len(s.pending) >= s.windowSize {
		window := s.pending[:s.windowSize]
		active, err := s.detector.Process(s.sampleRate, audio.Int16ToBytes(window))
		if err != nil {
			return 0, fmt.Errorf("webrtc vad: process window: %w", err)
		}
		scored = true
		voiced = voiced || active
		s.pending = s.pending[s.windowSize:]
	}

	if scored {
		if voiced {
			s.last = 1.0
		} else {
			s.last = 0.0
		}
	}
	return s.last, nil
}

// Reset discards buffered samples and the last window score.
func (s *Scorer) Reset() {
	if s.closed {
		return
	}
	s.pending = s.pending[:0]
	s.last = 0
}

// Close releases the detector. The WebRTC detector itself requires no
// explicit cleanup; Close only marks the scorer unusable.
func (s *Scorer) Close() error {
	s.closed = true
	s.pending = nil
	return nil
}
