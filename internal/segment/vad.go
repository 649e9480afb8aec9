package segment

import (
	"log/slog"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/pkg/audio"
	"github.com/MrWong99/voxtype/pkg/provider/vad"
)

type vadState int

const (
	stateSilence vadState = iota
	stateSpeech
)

// vadSegmenter emits one segment per spoken utterance. It scores fixed
// analysis frames, keeps a short pre-speech ring so the first syllable is not
// clipped, and ends an utterance after sustained trailing silence.
//
// The state machine:
//
//	Silence: frames feed the pre-speech ring. A speech frame starts a new
//	         segment seeded with the ring contents followed by that frame.
//	Speech:  every frame is appended. Sustained silence of
//	         VADPostSpeechSamples ends the utterance; a buffer reaching
//	         VADMaxSpeechSamples is force-emitted without leaving Speech, so
//	         a monologue keeps flowing as multiple segments.
//
// Segments shorter than VADMinSpeechSamples are discarded as noise. The
// scorer is reset at every utterance boundary so smoothing history never
// bleeds into the next one.
type vadSegmenter struct {
	scorer vad.Scorer

	state     vadState
	pending   []float32 // samples not yet forming a full analysis frame
	preSpeech []float32 // ring of at most VADPreSpeechSamples
	speech    []float32
	silence   int // consecutive trailing silence samples in Speech
}

func newVADSegmenter(scorer vad.Scorer) *vadSegmenter {
	return &vadSegmenter{
		scorer:    scorer,
		// One frame of slack: a frame is appended before the ring is trimmed.
		preSpeech: make([]float32, 0, config.VADPreSpeechSamples+config.VADFrameSize),
	}
}

func (v *vadSegmenter) push(samples []float32, emit func([]float32)) {
	v.pending = append(v.pending, samples...)

	for len(v.pending) >= config.VADFrameSize {
		frame := v.pending[:config.VADFrameSize]

		score, err := v.scorer.Score(frame)
		if err != nil {
			slog.Error("voice activity scoring failed", "error", err)
			v.pending = v.pending[config.VADFrameSize:]
			continue
		}
		isSpeech := float32(score) >= config.VADThreshold

		switch v.state {
		case stateSilence:
			if isSpeech {
				// Seed the segment with the ring so the onset is intact,
				// then the frame that triggered the transition.
				v.speech = append(v.speech[:0], v.preSpeech...)
				v.speech = append(v.speech, frame...)
				v.preSpeech = v.preSpeech[:0]
				v.silence = 0
				v.state = stateSpeech
			} else {
				v.preSpeech = append(v.preSpeech, frame...)
				if excess := len(v.preSpeech) - config.VADPreSpeechSamples; excess > 0 {
					v.preSpeech = v.preSpeech[excess:]
				}
			}

		case stateSpeech:
			v.speech = append(v.speech, frame...)
			if isSpeech {
				v.silence = 0
			} else {
				v.silence += config.VADFrameSize
			}

			if len(v.speech) >= config.VADMaxSpeechSamples {
				slog.Info("utterance force-emitted at max duration",
					"secs", audio.DurationSecs(len(v.speech), config.SampleRate))
				v.emitSpeech(emit)
				v.silence = 0
			} else if v.silence >= config.VADPostSpeechSamples {
				v.emitSpeech(emit)
				v.silence = 0
				v.state = stateSilence
				v.scorer.Reset()
			}
		}

		v.pending = v.pending[config.VADFrameSize:]
	}
}

func (v *vadSegmenter) flush(emit func([]float32)) {
	if len(v.speech) > 0 {
		slog.Info("flushing in-progress utterance",
			"secs", audio.DurationSecs(len(v.speech), config.SampleRate))
		v.emitSpeech(emit)
	}
	v.state = stateSilence
	v.pending = v.pending[:0]
	v.preSpeech = v.preSpeech[:0]
	v.speech = nil
	v.silence = 0
}

// emitSpeech hands off the accumulated buffer if it clears the minimum
// length, otherwise discards it. Either way the buffer ends up empty.
func (v *vadSegmenter) emitSpeech(emit func([]float32)) {
	if len(v.speech) < config.VADMinSpeechSamples {
		slog.Debug("discarding short utterance",
			"secs", audio.DurationSecs(len(v.speech), config.SampleRate))
		v.speech = v.speech[:0]
		return
	}

	slog.Debug("utterance complete",
		"secs", audio.DurationSecs(len(v.speech), config.SampleRate))
	segment := v.speech
	v.speech = nil
	emit(segment)
}
