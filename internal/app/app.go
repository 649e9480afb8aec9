// Package app wires all voxtype subsystems into a running daemon.
//
// The App struct owns the full lifecycle: New creates and connects the
// pipeline stages, Run drives them until quit, and Shutdown tears the
// device-facing pieces down in order.
//
// For testing, inject doubles via functional options (WithCapture,
// WithScorerFactory, etc.). When an option is not provided, New creates the
// real implementation.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/coordinator"
	"github.com/MrWong99/voxtype/internal/duck"
	"github.com/MrWong99/voxtype/internal/hotkey"
	"github.com/MrWong99/voxtype/internal/micmute"
	"github.com/MrWong99/voxtype/internal/observe"
	"github.com/MrWong99/voxtype/internal/output"
	"github.com/MrWong99/voxtype/internal/segment"
	"github.com/MrWong99/voxtype/internal/transcribe"
	"github.com/MrWong99/voxtype/internal/transcript"
	"github.com/MrWong99/voxtype/pkg/audio"
	"github.com/MrWong99/voxtype/pkg/audio/portaudio"
	"github.com/MrWong99/voxtype/pkg/provider/stt"
	"github.com/MrWong99/voxtype/pkg/provider/vad"
	"github.com/MrWong99/voxtype/pkg/provider/vad/webrtc"
)

// HotkeyRunner is the shortcut listener surface the app drives.
type HotkeyRunner interface {
	Run(ctx context.Context) error
	ReloadConfig()
}

// App owns all subsystem lifetimes.
type App struct {
	capture     audio.Source
	segments    *segment.Stage
	transcriber *transcribe.Stage
	coord       *coordinator.Coordinator
	hotkeys     HotkeyRunner
	mute        *micmute.Monitor
	watcher     *config.Watcher
	store       *transcript.Store
	notifier    *output.Notifier

	cmds       chan coordinator.Command
	tray       chan coordinator.TrayUpdate
	typingMark atomic.Int64

	newScorer      func() (vad.Scorer, error)
	newTranscriber func(modelPath string) (stt.Transcriber, error)

	// closers are called in reverse order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCapture injects an audio source instead of opening the default
// microphone through portaudio.
func WithCapture(src audio.Source) Option {
	return func(a *App) { a.capture = src }
}

// WithScorerFactory injects the voice-activity scorer factory.
func WithScorerFactory(fn func() (vad.Scorer, error)) Option {
	return func(a *App) { a.newScorer = fn }
}

// WithTranscriberFactory injects the transcriber factory instead of loading
// whisper models from disk.
func WithTranscriberFactory(fn func(modelPath string) (stt.Transcriber, error)) Option {
	return func(a *App) { a.newTranscriber = fn }
}

// WithHotkeys injects a shortcut listener instead of probing input devices.
func WithHotkeys(h HotkeyRunner) Option {
	return func(a *App) { a.hotkeys = h }
}

// WithMuteMonitor injects a mic mute monitor.
func WithMuteMonitor(m *micmute.Monitor) Option {
	return func(a *App) { a.mute = m }
}

// New creates an App by wiring capture, segmentation, transcription, the
// coordinator and all desktop integrations together.
func New(opts ...Option) (*App, error) {
	a := &App{
		cmds: make(chan coordinator.Command, 64),
		tray: make(chan coordinator.TrayUpdate, 16),
	}
	for _, o := range opts {
		o(a)
	}

	metrics := observe.DefaultMetrics()

	// ── 1. Audio capture ─────────────────────────────────────────────────
	if a.capture == nil {
		capture, err := portaudio.New(config.SampleRate,
			portaudio.WithDropCallback(func() {
				metrics.FramesDropped.Add(context.Background(), 1)
			}))
		if err != nil {
			return nil, fmt.Errorf("app: init audio capture: %w", err)
		}
		a.capture = capture
	}
	a.closers = append(a.closers, func() error {
		// Closing the source closes its frames channel; discard whatever
		// buffered audio the stopped segmenter never picked up.
		err := a.capture.Close()
		audio.Drain(a.capture.Frames())
		return err
	})

	// ── 2. Pipeline stages ───────────────────────────────────────────────
	segments := make(chan []float32, 8)
	results := make(chan transcribe.Result, 16)

	if a.newScorer == nil {
		a.newScorer = func() (vad.Scorer, error) {
			return webrtc.New(config.SampleRate)
		}
	}
	a.segments = segment.New(a.capture.Frames(), segments, a.newScorer,
		segment.WithMetrics(metrics))

	var topts []transcribe.Option
	if a.newTranscriber != nil {
		topts = append(topts, transcribe.WithTranscriberFactory(a.newTranscriber))
	}
	a.transcriber = transcribe.New(segments, results, topts...)

	// ── 3. Desktop integrations ──────────────────────────────────────────
	a.store = transcript.Open()
	a.notifier = output.NewNotifier()
	a.closers = append(a.closers, a.notifier.Close)

	if a.hotkeys == nil {
		a.hotkeys = hotkey.New(a.cmds, &a.typingMark)
	}
	if a.mute == nil {
		a.mute = micmute.NewMonitor()
	}

	// ── 4. Coordinator ───────────────────────────────────────────────────
	deps := coordinator.Deps{
		Audio:       a.capture,
		Segments:    a.segments,
		Transcriber: a.transcriber,
		Hotkeys:     a.hotkeys,
		Typer:       output.NewTyper(),
		Clipboard:   output.NewClipboard(),
		Notifier:    a.notifier,
		Ducker:      duck.New(),
		Transcripts: a.store,
		TypingMark:  &a.typingMark,
	}
	a.coord = coordinator.New(a.cmds, results, deps,
		coordinator.WithTray(a.tray),
		coordinator.WithMetrics(metrics))

	// ── 5. Config file watcher ───────────────────────────────────────────
	a.watcher = config.NewWatcher(config.Path(), func(old, new config.Config) {
		a.Send(coordinator.ReloadConfig())
	})
	a.closers = append(a.closers, func() error {
		a.watcher.Stop()
		return nil
	})

	return a, nil
}

// Send injects a command into the coordinator, used by the D-Bus service and
// the config watcher.
func (a *App) Send(cmd coordinator.Command) {
	a.cmds <- cmd
}

// Commands exposes the command channel for the tray frontend.
func (a *App) Commands() chan<- coordinator.Command {
	return a.cmds
}

// TrayUpdates is the channel the tray frontend consumes.
func (a *App) TrayUpdates() <-chan coordinator.TrayUpdate {
	return a.tray
}

// TranscriptCount reports how many transcripts are stored, for the tray
// menu.
func (a *App) TranscriptCount() int {
	return len(a.store.LoadAll())
}

// Run starts every subsystem and blocks until the coordinator quits or ctx
// is cancelled. A clean quit returns nil.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error { return a.segments.Run(gctx) })
	g.Go(func() error { return a.transcriber.Run(gctx) })
	g.Go(func() error { return a.hotkeys.Run(gctx) })
	g.Go(func() error { return a.mute.Run(gctx) })
	g.Go(func() error { return a.forwardMuteChanges(gctx) })
	g.Go(func() error {
		// Coordinator quit ends the whole group.
		defer cancel()
		return a.coord.Run(gctx)
	})

	slog.Info("voxtype running")
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// forwardMuteChanges bridges mute transitions onto the command channel.
func (a *App) forwardMuteChanges(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case muted := <-a.mute.Changes():
			select {
			case a.cmds <- coordinator.MicMuteChanged(muted):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Shutdown releases device-facing resources. Safe to call more than once.
func (a *App) Shutdown() error {
	var errs []error
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
