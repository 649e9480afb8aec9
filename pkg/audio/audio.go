// Package audio defines the sample types and helpers shared by the capture,
// segmentation, and transcription stages.
//
// All pipeline audio is normalised mono float32 in [-1, 1] at a fixed sample
// rate. Buffers are moved, never shared: once a stage sends a slice down a
// channel it must not touch it again.
package audio

import "math"

// Source is a start/stoppable producer of raw capture buffers. The buffers
// arrive on the channel returned by Frames as arbitrary-length mono float32
// slices owned by the receiver.
//
// Implementations must never block inside the capture callback: when the
// outbound channel is full the newest buffer is dropped instead. Glitching
// live capture is worse than losing one buffer under backpressure.
type Source interface {
	// Start begins delivering buffers on Frames.
	Start() error

	// Stop pauses delivery. The Source can be started again afterwards.
	Stop() error

	// Frames returns the outbound buffer channel. It is closed by Close.
	Frames() <-chan []float32

	// Close releases the device. The Source cannot be restarted afterwards.
	Close() error
}

// RMS returns the root-mean-square level of samples, or 0 for an empty slice.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

// Float32ToInt16 converts normalised float32 samples to 16-bit signed PCM,
// clamping out-of-range values. The VAD scorer consumes this format.
func Float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32767.0
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// Int16ToBytes packs 16-bit samples as little-endian PCM bytes.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// DurationSecs returns the playback duration of n samples at the given rate.
func DurationSecs(n, sampleRate int) float32 {
	if sampleRate <= 0 {
		return 0
	}
	return float32(n) / float32(sampleRate)
}
