// Package tray renders the desktop status icon and menu. Menu clicks become
// coordinator commands; state flows the other way over the tray update
// channel, so the tray never touches the recording machinery directly.
package tray

import (
	"fmt"
	"log/slog"
	"os/exec"

	"fyne.io/systray"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/coordinator"
)

// App is the systray frontend. Create with New, then call Run from the main
// goroutine; it blocks until the coordinator sends TrayQuit.
type App struct {
	cmds    chan<- coordinator.Command
	updates <-chan coordinator.TrayUpdate

	loadCfg     func() config.Config
	transcripts func() int
	openPath    func(path string)

	menuStatus      *systray.MenuItem
	menuToggle      *systray.MenuItem
	menuListen      *systray.MenuItem
	menuTranscripts *systray.MenuItem
	menuSettings    *systray.MenuItem
	menuQuit        *systray.MenuItem

	state   coordinator.State
	backend coordinator.Backend
	muted   bool
}

// Option customises an App.
type Option func(*App)

// WithConfigLoader replaces the config source used for tooltip text.
func WithConfigLoader(load func() config.Config) Option {
	return func(a *App) { a.loadCfg = load }
}

// WithTranscriptCount supplies the stored transcript count shown in the
// menu.
func WithTranscriptCount(count func() int) Option {
	return func(a *App) { a.transcripts = count }
}

// New builds the tray frontend. Clicks go into cmds; state arrives on
// updates.
func New(cmds chan<- coordinator.Command, updates <-chan coordinator.TrayUpdate, opts ...Option) *App {
	a := &App{
		cmds:     cmds,
		updates:  updates,
		loadCfg:  config.LoadOrDefault,
		openPath: xdgOpen,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the tray main loop. Blocking; call from the main goroutine.
func (a *App) Run() {
	systray.Run(a.onReady, func() {})
}

// Quit ends the tray main loop, used when the daemon stops on a signal
// instead of through the menu.
func (a *App) Quit() {
	systray.Quit()
}

func (a *App) onReady() {
	systray.SetIcon(iconBytes(coordinator.StateIdle, false))
	a.setTooltip()

	a.menuStatus = systray.AddMenuItem(statusLabel(coordinator.StateIdle, false), "Daemon state")
	a.menuStatus.Disable()
	systray.AddSeparator()

	a.menuToggle = systray.AddMenuItem("Start recording", "Toggle a dictation session")
	a.menuListen = systray.AddMenuItem("Always listen", "Toggle hands-free mode")
	systray.AddSeparator()

	a.menuTranscripts = systray.AddMenuItem(a.transcriptsLabel(), "Open the transcript history")
	a.menuSettings = systray.AddMenuItem("Edit config", "Open the config file")
	systray.AddSeparator()

	a.menuQuit = systray.AddMenuItem("Quit", "Stop the daemon")

	go a.handleClicks()
	go a.handleUpdates()
}

// handleClicks forwards menu activations as commands. Quitting also goes
// through the coordinator so an active session is finalised first; the
// coordinator answers with TrayQuit when it is done.
func (a *App) handleClicks() {
	for {
		select {
		case <-a.menuToggle.ClickedCh:
			a.cmds <- coordinator.ToggleRecording()
		case <-a.menuListen.ClickedCh:
			a.cmds <- coordinator.ToggleAlwaysListen()
		case <-a.menuTranscripts.ClickedCh:
			a.cmds <- coordinator.OpenTranscripts()
		case <-a.menuSettings.ClickedCh:
			a.cmds <- coordinator.OpenSettings()
		case <-a.menuQuit.ClickedCh:
			a.cmds <- coordinator.Quit()
		}
	}
}

func (a *App) handleUpdates() {
	for u := range a.updates {
		switch u.Kind {
		case coordinator.TrayState:
			a.state = u.State
			a.applyState()
		case coordinator.TrayBackend:
			a.backend = u.Backend
			a.setTooltip()
		case coordinator.TrayMicMuted:
			a.muted = u.Muted
			a.applyState()
		case coordinator.TrayRefreshTranscripts:
			a.menuTranscripts.SetTitle(a.transcriptsLabel())
		case coordinator.TrayOpenTranscripts:
			a.openPath(config.TranscriptsPath())
		case coordinator.TrayOpenSettings:
			a.openPath(config.Path())
		case coordinator.TrayQuit:
			systray.Quit()
			return
		}
	}
}

func (a *App) applyState() {
	systray.SetIcon(iconBytes(a.state, a.muted))
	a.menuStatus.SetTitle(statusLabel(a.state, a.muted))
	if a.state.Recording() {
		a.menuToggle.SetTitle("Stop recording")
	} else {
		a.menuToggle.SetTitle("Start recording")
	}
}

func (a *App) setTooltip() {
	cfg := a.loadCfg()
	systray.SetTooltip(fmt.Sprintf("voxtype — %s (%s)",
		config.DisplayShortcut(cfg.Shortcut), a.backend))
}

func (a *App) transcriptsLabel() string {
	if a.transcripts == nil {
		return "Transcripts"
	}
	return fmt.Sprintf("Transcripts (%d)", a.transcripts())
}

// statusLabel is the disabled first menu row describing the daemon state.
func statusLabel(state coordinator.State, muted bool) string {
	switch state {
	case coordinator.StateAlwaysListen:
		return "Status: listening"
	case coordinator.StatePushToTalk:
		return "Status: recording"
	default:
		if muted {
			return "Status: mic muted"
		}
		return "Status: idle"
	}
}

// xdgOpen hands a path to the desktop's default handler.
func xdgOpen(path string) {
	if err := exec.Command("xdg-open", path).Start(); err != nil {
		slog.Error("could not open path", "path", path, "error", err)
	}
}
