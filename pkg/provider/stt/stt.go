// Package stt defines the Transcriber interface for speech-to-text backends.
//
// Transcription here is batch-oriented: the segmentation layer hands over one
// complete utterance at a time, and the backend returns its full text. This
// matches local inference engines like whisper.cpp, which produce the best
// results on whole utterances rather than streaming partials.
package stt

import "context"

// Transcriber converts a complete speech segment into text.
//
// Implementations need not be safe for concurrent use; the transcription
// stage owns a single instance and calls it from one goroutine.
type Transcriber interface {
	// Transcribe runs inference on one utterance of mono float32 PCM samples
	// in [-1, 1] at 16 kHz and returns the recognised text with surrounding
	// whitespace trimmed. An empty string with a nil error means the engine
	// recognised no words.
	//
	// Inference can take seconds on large models; the context allows the
	// caller to abandon a run during shutdown.
	Transcribe(ctx context.Context, samples []float32) (string, error)

	// Close releases the underlying model. Calling Close more than once is
	// safe and returns nil.
	Close() error
}
