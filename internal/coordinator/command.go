// Package coordinator drives the recording session state machine. It is the
// single consumer of the application command channel: hotkeys, the tray, the
// D-Bus service and the mic mute monitor all funnel their events here, and
// the coordinator alone touches the capture device, the segmentation
// pipeline and the text output path.
package coordinator

// Backend identifies which hotkey capture mechanism ended up active. The
// coordinator needs to know because push-to-talk text output differs between
// the two (see Coordinator.handleResult).
type Backend int

const (
	// BackendWindowSystem registers shortcuts through the display server.
	// Synthetic key events from the typing tool are visible to it, so text
	// must be buffered while the push-to-talk key is held.
	BackendWindowSystem Backend = iota

	// BackendKernel reads physical key state from /dev/input, below the
	// display server. Synthetic events never reach it and text can be typed
	// live.
	BackendKernel
)

func (b Backend) String() string {
	if b == BackendKernel {
		return "kernel"
	}
	return "window-system"
}

// State is the recording session state.
type State int

const (
	// StateIdle means no session is active.
	StateIdle State = iota

	// StateAlwaysListen is a hands-free session started by toggle: each
	// segment is typed and persisted on its own as it is transcribed.
	StateAlwaysListen

	// StatePushToTalk is held open for as long as the record shortcut is
	// pressed.
	StatePushToTalk
)

// Recording reports whether a session is active.
func (s State) Recording() bool { return s != StateIdle }

func (s State) String() string {
	switch s {
	case StateAlwaysListen:
		return "always-listen"
	case StatePushToTalk:
		return "push-to-talk"
	default:
		return "idle"
	}
}

// CommandKind enumerates the events the coordinator reacts to.
type CommandKind int

const (
	// KindToggleRecording starts a hands-free session when idle and stops
	// whatever session is active otherwise.
	KindToggleRecording CommandKind = iota

	// KindStartRecording opens a push-to-talk session. Ignored while any
	// session is already active.
	KindStartRecording

	// KindStopRecording closes a push-to-talk session. Ignored in any other
	// state so a stray release cannot kill a hands-free session.
	KindStopRecording

	// KindToggleAlwaysListen toggles the hands-free session. It never
	// interrupts push-to-talk.
	KindToggleAlwaysListen

	// KindOpenTranscripts asks the tray to show the transcript history.
	KindOpenTranscripts

	// KindOpenSettings asks the tray to open the settings surface.
	KindOpenSettings

	// KindReloadConfig re-reads the config file and propagates changes to
	// the pipeline stages and the hotkey listener.
	KindReloadConfig

	// KindBackendResolved reports which hotkey backend won at startup.
	KindBackendResolved

	// KindMicMuteChanged reports a source mute transition.
	KindMicMuteChanged

	// KindCopyTranscript copies a stored transcript to the clipboard.
	KindCopyTranscript

	// KindQuit shuts the daemon down, finalising any active session first.
	KindQuit
)

// Command is one event on the application command channel. Only the field
// matching the Kind is meaningful.
type Command struct {
	Kind    CommandKind
	Muted   bool    // KindMicMuteChanged
	Backend Backend // KindBackendResolved
	Text    string  // KindCopyTranscript
}

// ToggleRecording builds the primary toggle command.
func ToggleRecording() Command { return Command{Kind: KindToggleRecording} }

// StartRecording builds the push-to-talk press command.
func StartRecording() Command { return Command{Kind: KindStartRecording} }

// StopRecording builds the push-to-talk release command.
func StopRecording() Command { return Command{Kind: KindStopRecording} }

// ToggleAlwaysListen builds the hands-free toggle command.
func ToggleAlwaysListen() Command { return Command{Kind: KindToggleAlwaysListen} }

// OpenTranscripts builds the transcript history command.
func OpenTranscripts() Command { return Command{Kind: KindOpenTranscripts} }

// OpenSettings builds the settings command.
func OpenSettings() Command { return Command{Kind: KindOpenSettings} }

// ReloadConfig builds the config reload command.
func ReloadConfig() Command { return Command{Kind: KindReloadConfig} }

// Quit builds the shutdown command.
func Quit() Command { return Command{Kind: KindQuit} }

// MicMuteChanged builds a mute transition command.
func MicMuteChanged(muted bool) Command {
	return Command{Kind: KindMicMuteChanged, Muted: muted}
}

// BackendResolved builds the hotkey backend announcement.
func BackendResolved(b Backend) Command {
	return Command{Kind: KindBackendResolved, Backend: b}
}

// CopyTranscript builds a clipboard copy command for a stored transcript.
func CopyTranscript(text string) Command {
	return Command{Kind: KindCopyTranscript, Text: text}
}

// TrayUpdateKind enumerates state pushed from the coordinator to the tray.
type TrayUpdateKind int

const (
	// TrayState carries a recording state change.
	TrayState TrayUpdateKind = iota

	// TrayBackend carries the resolved hotkey backend for the tooltip.
	TrayBackend

	// TrayMicMuted carries a source mute transition.
	TrayMicMuted

	// TrayRefreshTranscripts signals that the transcript store changed.
	TrayRefreshTranscripts

	// TrayOpenTranscripts asks the tray to present the transcript history.
	TrayOpenTranscripts

	// TrayOpenSettings asks the tray to present the settings surface.
	TrayOpenSettings

	// TrayQuit ends the tray main loop.
	TrayQuit
)

// TrayUpdate is one message on the coordinator-to-tray channel.
type TrayUpdate struct {
	Kind    TrayUpdateKind
	State   State   // TrayState
	Backend Backend // TrayBackend
	Muted   bool    // TrayMicMuted
}
