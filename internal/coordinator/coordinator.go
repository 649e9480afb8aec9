package coordinator

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/observe"
	"github.com/MrWong99/voxtype/internal/transcribe"
)

// AudioControl starts and stops the capture stream.
type AudioControl interface {
	Start() error
	Stop() error
}

// SegmentControl is the command surface of the segmentation stage.
type SegmentControl interface {
	Flush()
	ReloadModel()
	ReloadConfig()
}

// TranscribeControl swaps the transcription model at runtime.
type TranscribeControl interface {
	ReloadModel(filename string)
}

// ShortcutControl pushes config changes to the hotkey listener.
type ShortcutControl interface {
	ReloadConfig()
}

// TextOutput types text into the focused window.
type TextOutput interface {
	Type(text string) error
}

// ClipboardOutput writes text to the system clipboard.
type ClipboardOutput interface {
	Copy(text string) error
}

// NotifySender shows a desktop notification.
type NotifySender interface {
	Notify(summary, body, icon string)
}

// VolumeDucker lowers and restores the playback volume around a session.
type VolumeDucker interface {
	Duck(target int) bool
	Restore()
}

// TranscriptSaver persists finished transcripts.
type TranscriptSaver interface {
	Save(text string, max int, processTime time.Duration) error
}

// Deps bundles everything the coordinator drives. Audio and Segments are
// required; every other dependency degrades to a no-op when nil so tests and
// stripped-down environments can leave parts unwired.
type Deps struct {
	Audio       AudioControl
	Segments    SegmentControl
	Transcriber TranscribeControl
	Hotkeys     ShortcutControl
	Typer       TextOutput
	Clipboard   ClipboardOutput
	Notifier    NotifySender
	Ducker      VolumeDucker
	Transcripts TranscriptSaver

	// TypingMark, when set, receives the epoch-millisecond timestamp of the
	// last synthetic typing burst. The window-system hotkey backend reads it
	// to ignore release events the typing tool itself produced.
	TypingMark *atomic.Int64
}

// Coordinator owns the session state machine. All methods on it run on the
// Run goroutine; producers only ever touch the command channel.
type Coordinator struct {
	cmds    <-chan Command
	results <-chan transcribe.Result
	tray    chan<- TrayUpdate
	deps    Deps

	loadCfg      func() config.Config
	drainTimeout time.Duration
	now          func() time.Time
	metrics      *observe.Metrics

	cfg            config.Config
	state          State
	backend        Backend
	micMuted       bool
	lastMuteNotify time.Time
	sessionText    []string
	sessionProcess time.Duration
	ducked         bool
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithConfigLoader replaces the config source. Defaults to
// config.LoadOrDefault.
func WithConfigLoader(load func() config.Config) Option {
	return func(c *Coordinator) { c.loadCfg = load }
}

// WithTray attaches the channel state updates are pushed to. Sends never
// block; updates are dropped when the tray is not keeping up.
func WithTray(tray chan<- TrayUpdate) Option {
	return func(c *Coordinator) { c.tray = tray }
}

// WithDrainTimeout overrides how long a stop waits for in-flight
// transcriptions. Defaults to config.DrainTimeout.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.drainTimeout = d }
}

// WithClock replaces the wall clock, used by tests to exercise the mute
// notification rate limit.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithMetrics replaces the metric instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New builds a Coordinator reading commands from cmds and transcription
// results from results.
func New(cmds <-chan Command, results <-chan transcribe.Result, deps Deps, opts ...Option) *Coordinator {
	c := &Coordinator{
		cmds:         cmds,
		results:      results,
		deps:         deps,
		loadCfg:      config.LoadOrDefault,
		drainTimeout: config.DrainTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	// Allow an immediate first muted notification.
	c.lastMuteNotify = c.now().Add(-config.MuteNotifyInterval)
	return c
}

// Run processes commands and results until a quit command arrives or ctx is
// cancelled. An active session is finalised on the way out.
func (c *Coordinator) Run(ctx context.Context) error {
	c.cfg = c.loadCfg()
	slog.Info("coordinator ready")
	for {
		select {
		case <-ctx.Done():
			if c.state.Recording() {
				c.stopRecording(ctx)
			}
			return ctx.Err()
		case cmd := <-c.cmds:
			if quit := c.handleCommand(ctx, cmd); quit {
				return nil
			}
		case res := <-c.results:
			c.handleResult(res)
		}
	}
}

// handleCommand dispatches one command. It returns true for quit.
func (c *Coordinator) handleCommand(ctx context.Context, cmd Command) bool {
	switch cmd.Kind {
	case KindToggleRecording:
		slog.Debug("toggle recording", "state", c.state)
		if c.state == StateIdle {
			c.startRecording(ctx, StateAlwaysListen)
		} else {
			c.stopRecording(ctx)
		}

	case KindToggleAlwaysListen:
		switch c.state {
		case StateIdle:
			c.startRecording(ctx, StateAlwaysListen)
		case StateAlwaysListen:
			c.stopRecording(ctx)
		case StatePushToTalk:
			// Never interrupt a held push-to-talk session.
		}

	case KindStartRecording:
		if c.state == StateIdle {
			c.startRecording(ctx, StatePushToTalk)
		}

	case KindStopRecording:
		if c.state == StatePushToTalk {
			c.stopRecording(ctx)
		}

	case KindOpenTranscripts:
		c.sendTray(TrayUpdate{Kind: TrayOpenTranscripts})

	case KindOpenSettings:
		c.sendTray(TrayUpdate{Kind: TrayOpenSettings})

	case KindReloadConfig:
		c.reloadConfig()

	case KindBackendResolved:
		c.backend = cmd.Backend
		c.sendTray(TrayUpdate{Kind: TrayBackend, Backend: cmd.Backend})
		slog.Info("hotkey backend resolved", "backend", cmd.Backend)

	case KindMicMuteChanged:
		c.micMuted = cmd.Muted
		c.sendTray(TrayUpdate{Kind: TrayMicMuted, Muted: cmd.Muted})

	case KindCopyTranscript:
		c.copyText(cmd.Text)

	case KindQuit:
		if c.state.Recording() {
			c.stopRecording(ctx)
		}
		slog.Info("quit command received")
		c.sendTray(TrayUpdate{Kind: TrayQuit})
		return true
	}
	return false
}

// startRecording opens a session in the target state. A muted microphone
// blocks new sessions; the user is told why, rate limited so a mashed hotkey
// does not flood the notification daemon.
func (c *Coordinator) startRecording(ctx context.Context, target State) {
	if c.micMuted {
		if c.now().Sub(c.lastMuteNotify) >= config.MuteNotifyInterval {
			c.notify("Microphone is muted", "Unmute your mic to start recording")
			c.lastMuteNotify = c.now()
		}
		return
	}

	c.sessionText = c.sessionText[:0]
	c.sessionProcess = 0

	if c.cfg.DuckEnabled && c.deps.Ducker != nil {
		c.ducked = c.deps.Ducker.Duck(c.cfg.DuckVolume)
	}

	if err := c.deps.Audio.Start(); err != nil {
		slog.Error("failed to start capture", "error", err)
		c.restoreDuck()
		return
	}

	c.state = target
	c.metrics.ActiveSessions.Add(ctx, 1)
	c.sendTray(TrayUpdate{Kind: TrayState, State: target})
	slog.Info("recording started", "state", target)
}

// stopRecording closes the active session: capture is paused, the pipeline
// flushed and drained, and the session text finalised.
//
// How text leaves the daemon depends on the session:
//   - Hands-free and push-to-talk on the kernel backend type live, so drain
//     segments go straight to the typer.
//   - Push-to-talk on the window-system backend buffers, and the whole
//     session is typed at once here after the drain.
//   - Hands-free segments were already persisted one by one; everything else
//     is stored as a single transcript.
func (c *Coordinator) stopRecording(ctx context.Context) {
	prev := c.state
	if err := c.deps.Audio.Stop(); err != nil {
		slog.Error("failed to stop capture", "error", err)
	}
	c.deps.Segments.Flush()
	c.state = StateIdle

	wasBuffered := prev == StatePushToTalk && c.backend == BackendWindowSystem
	wasAlwaysListen := prev == StateAlwaysListen

	c.drain(ctx, wasBuffered, wasAlwaysListen)
	c.restoreDuck()

	full := strings.Join(c.sessionText, " ")
	if wasAlwaysListen {
		if full != "" {
			slog.Info("session finished", "text", full)
		}
	} else if full != "" {
		if wasBuffered {
			c.typeText(full)
		}
		c.saveTranscript(full, c.sessionProcess)
		if c.cfg.ClipboardAutoCopy {
			c.copyText(full)
		}
		c.sendTray(TrayUpdate{Kind: TrayRefreshTranscripts})
		slog.Info("session finished", "text", full)
	}

	c.metrics.ActiveSessions.Add(ctx, -1)
	c.sendTray(TrayUpdate{Kind: TrayState, State: StateIdle})
	slog.Info("recording stopped")
}

// drain consumes results until the flush sentinel (an empty Result) arrives.
// The deadline applies per message and resets on every received segment; a
// stalled pipeline is abandoned with a warning rather than hanging the stop.
func (c *Coordinator) drain(ctx context.Context, wasBuffered, wasAlwaysListen bool) {
	timer := time.NewTimer(c.drainTimeout)
	defer timer.Stop()

	for {
		select {
		case res := <-c.results:
			if res.Text == "" {
				return
			}
			slog.Debug("drained segment",
				"process_ms", res.ProcessTime.Milliseconds(), "text", res.Text)
			c.sessionText = append(c.sessionText, res.Text)
			c.sessionProcess += res.ProcessTime
			if !wasBuffered {
				c.typeText(res.Text)
			}
			if wasAlwaysListen {
				c.saveTranscript(res.Text, res.ProcessTime)
				c.sendTray(TrayUpdate{Kind: TrayRefreshTranscripts})
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(c.drainTimeout)

		case <-timer.C:
			slog.Warn("drain timeout, transcription may have been lost")
			c.metrics.DrainTimeouts.Add(ctx, 1)
			return

		case <-ctx.Done():
			// The pipeline is being torn down with us and will never send
			// the sentinel.
			return
		}
	}
}

// handleResult processes a live transcription segment.
func (c *Coordinator) handleResult(res transcribe.Result) {
	if !c.state.Recording() || res.Text == "" {
		return
	}
	c.sessionText = append(c.sessionText, res.Text)
	c.sessionProcess += res.ProcessTime

	shouldBuffer := c.state == StatePushToTalk && c.backend == BackendWindowSystem
	if shouldBuffer {
		slog.Debug("buffered segment",
			"process_ms", res.ProcessTime.Milliseconds(), "text", res.Text)
	} else {
		slog.Debug("typed segment",
			"process_ms", res.ProcessTime.Milliseconds(), "text", res.Text)
		c.typeText(res.Text)
	}

	if c.state == StateAlwaysListen {
		c.saveTranscript(res.Text, res.ProcessTime)
		if c.cfg.ClipboardAutoCopy {
			c.copyText(res.Text)
		}
		c.sendTray(TrayUpdate{Kind: TrayRefreshTranscripts})
	}
}

// reloadConfig re-reads the config file and propagates what changed. The
// transcription model only reloads when the filename actually changed; the
// segmentation stage decides on its own whether a rebuild is needed.
func (c *Coordinator) reloadConfig() {
	old := c.cfg
	c.cfg = c.loadCfg()
	slog.Info("config reloaded",
		"model", c.cfg.Model,
		"clipboard", c.cfg.ClipboardAutoCopy,
		"use_vad", c.cfg.UseVAD,
		"mode", c.cfg.RecordingMode,
		"shortcut", c.cfg.Shortcut,
		"max_transcripts", c.cfg.MaxTranscripts)

	if c.deps.Transcriber != nil && c.cfg.Model != old.Model {
		c.deps.Transcriber.ReloadModel(c.cfg.Model)
	}
	c.deps.Segments.ReloadModel()
	c.deps.Segments.ReloadConfig()
	if c.deps.Hotkeys != nil {
		c.deps.Hotkeys.ReloadConfig()
	}
}

func (c *Coordinator) typeText(text string) {
	if c.deps.Typer == nil {
		return
	}
	if err := c.deps.Typer.Type(text); err != nil {
		slog.Error("typing failed", "error", err)
	}
	if c.deps.TypingMark != nil {
		c.deps.TypingMark.Store(c.now().UnixMilli())
	}
}

func (c *Coordinator) copyText(text string) {
	if c.deps.Clipboard == nil || text == "" {
		return
	}
	if err := c.deps.Clipboard.Copy(text); err != nil {
		slog.Error("clipboard copy failed", "error", err)
	}
}

func (c *Coordinator) saveTranscript(text string, processTime time.Duration) {
	if c.deps.Transcripts == nil {
		return
	}
	if err := c.deps.Transcripts.Save(text, c.cfg.MaxTranscripts, processTime); err != nil {
		slog.Error("failed to save transcript", "error", err)
	}
}

func (c *Coordinator) notify(summary, body string) {
	if c.deps.Notifier == nil {
		return
	}
	c.deps.Notifier.Notify(summary, body, "microphone-sensitivity-muted-symbolic")
}

func (c *Coordinator) restoreDuck() {
	if c.ducked && c.deps.Ducker != nil {
		c.deps.Ducker.Restore()
	}
	c.ducked = false
}

// sendTray pushes an update without ever blocking the state machine.
func (c *Coordinator) sendTray(u TrayUpdate) {
	if c.tray == nil {
		return
	}
	select {
	case c.tray <- u:
	default:
		slog.Debug("tray update dropped", "kind", u.Kind)
	}
}
