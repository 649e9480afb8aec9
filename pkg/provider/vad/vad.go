// Package vad defines the Scorer interface for voice activity detection
// backends.
//
// A scorer wraps a frame-level speech detector and reports a speech
// probability per audio frame. Scorers are stateful: detectors typically keep
// smoothing history across frames, so the segmentation layer must call Reset
// at each utterance boundary to avoid stale state bleeding into the next one.
//
// Scoring is synchronous by design: Score returns immediately, making it
// suitable for the low-latency pipeline stage that gates transcription input.
// A Scorer is owned by a single goroutine and need not be safe for concurrent
// use.
package vad

// Scorer classifies audio frames as speech or silence.
type Scorer interface {
	// Score analyses one frame of mono float32 PCM samples in [-1, 1] and
	// returns the speech probability in [0, 1]. Implementations that buffer
	// internally may return the probability of the most recently completed
	// detector window when the frame does not align with the detector's
	// native window size.
	//
	// Score must not block.
	Score(frame []float32) (float64, error)

	// Reset clears all accumulated detection state without closing the
	// scorer. Call this at utterance boundaries so the previous segment's
	// smoothing history does not affect the next one.
	Reset()

	// Close releases all resources. After Close, Score must return an error
	// and Reset must be a no-op. Calling Close more than once is safe and
	// returns nil.
	Close() error
}
