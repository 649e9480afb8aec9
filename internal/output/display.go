// Package output delivers finished transcriptions to the desktop: synthetic
// typing into the focused window, clipboard copies, and desktop
// notifications.
//
// Typing goes through external tools (xdotool on X11, wtype or ydotool on
// Wayland) because synthesising keystrokes portably requires compositor
// cooperation that no in-process library provides on both display servers.
package output

import "os"

// DisplayServer identifies the session's display protocol, which decides the
// typing tool chain.
type DisplayServer int

const (
	X11 DisplayServer = iota
	Wayland
)

// DetectDisplayServer reads XDG_SESSION_TYPE. Anything that is not
// explicitly a Wayland session is treated as X11, where xdotool also covers
// XWayland setups without the variable set.
func DetectDisplayServer() DisplayServer {
	if os.Getenv("XDG_SESSION_TYPE") == "wayland" {
		return Wayland
	}
	return X11
}

func (d DisplayServer) String() string {
	if d == Wayland {
		return "Wayland"
	}
	return "X11"
}
