// Package portaudio implements the audio.Source interface on top of the
// PortAudio capture API. It opens the default input device as 16 kHz mono
// float32 and delivers fixed-size buffers on a bounded channel.
package portaudio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/MrWong99/voxtype/pkg/audio"
)

// DefaultFramesPerBuffer is the capture buffer size handed to PortAudio.
// At 16 kHz this is 32 ms per callback.
const DefaultFramesPerBuffer = 512

// Compile-time assertion that Capture satisfies audio.Source.
var _ audio.Source = (*Capture)(nil)

// Capture reads microphone audio through PortAudio. Create with New, then
// Start/Stop around each recording session; Close releases the device and
// terminates PortAudio.
type Capture struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	buffer  []float32
	out     chan []float32
	running bool
	closed  bool

	// onDrop is called (outside the callback path, non-blocking) whenever a
	// buffer is discarded because the outbound channel is full. Used for the
	// frames-dropped metric; may be nil.
	onDrop func()
}

// Option configures a Capture.
type Option func(*Capture)

// WithDropCallback registers a function invoked once per dropped buffer.
// The callback must be fast and non-blocking.
func WithDropCallback(fn func()) Option {
	return func(c *Capture) { c.onDrop = fn }
}

// New initialises PortAudio and opens the default input device at the given
// sample rate. The stream stays paused until Start is called.
//
// An error here means no recording capability at all: the caller should treat
// it as fatal for the pipeline.
func New(sampleRate int, opts ...Option) (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	c := &Capture{
		buffer: make([]float32, DefaultFramesPerBuffer),
		out:    make(chan []float32, 32),
	}
	for _, o := range opts {
		o(c)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), DefaultFramesPerBuffer, c.callback)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: open default input stream: %w", err)
	}
	c.stream = stream

	if info := stream.Info(); info != nil {
		slog.Info("audio capture ready",
			"sample_rate", sampleRate,
			"input_latency", info.InputLatency,
		)
	}
	return c, nil
}

// callback runs on the PortAudio capture thread. It must never block: a full
// outbound channel drops the buffer instead.
func (c *Capture) callback(in []float32) {
	samples := make([]float32, len(in))
	copy(samples, in)

	select {
	case c.out <- samples:
	default:
		if c.onDrop != nil {
			c.onDrop()
		}
	}
}

// Start begins audio delivery. Starting an already running capture is a no-op.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("portaudio: capture is closed")
	}
	if c.running {
		return nil
	}
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start stream: %w", err)
	}
	c.running = true
	slog.Debug("audio capture started")
	return nil
}

// Stop pauses audio delivery without releasing the device.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("portaudio: stop stream: %w", err)
	}
	slog.Debug("audio capture stopped")
	return nil
}

// Frames returns the outbound buffer channel. Closed by Close.
func (c *Capture) Frames() <-chan []float32 {
	return c.out
}

// Close stops the stream, closes the outbound channel, and terminates
// PortAudio. The Capture cannot be used afterwards.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.running = false

	var firstErr error
	if err := c.stream.Close(); err != nil {
		firstErr = fmt.Errorf("portaudio: close stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("portaudio: terminate: %w", err)
	}
	close(c.out)
	return firstErr
}
