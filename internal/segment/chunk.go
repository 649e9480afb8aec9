package segment

import (
	"log/slog"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/pkg/audio"
)

// chunkSegmenter emits fixed-duration segments regardless of speech content,
// skipping chunks whose level is below the silence threshold. It needs no
// model, which makes it the safe default strategy.
type chunkSegmenter struct {
	size int
	buf  []float32
}

func newChunkSegmenter(size int) *chunkSegmenter {
	return &chunkSegmenter{size: size}
}

func (c *chunkSegmenter) push(samples []float32, emit func([]float32)) {
	c.buf = append(c.buf, samples...)

	for len(c.buf) >= c.size {
		chunk := make([]float32, c.size)
		copy(chunk, c.buf[:c.size])
		c.buf = c.buf[c.size:]

		level := rms(chunk)
		if level < config.SilenceRMSThreshold {
			slog.Debug("skipping silent chunk", "rms", level)
			continue
		}
		slog.Debug("chunk complete",
			"secs", audio.DurationSecs(len(chunk), config.SampleRate),
			"rms", level,
		)
		emit(chunk)
	}
}

// flush emits the partial chunk when it is long enough to be worth
// transcribing and loud enough to contain speech; anything else is dropped.
func (c *chunkSegmenter) flush(emit func([]float32)) {
	defer func() { c.buf = nil }()

	if len(c.buf) < config.ChunkMinFlushSamples {
		return
	}
	level := rms(c.buf)
	if level < config.SilenceRMSThreshold {
		return
	}
	slog.Info("flushing partial chunk",
		"secs", audio.DurationSecs(len(c.buf), config.SampleRate))
	segment := c.buf
	c.buf = nil
	emit(segment)
}
