package output

import (
	"log/slog"
	"os/exec"

	"github.com/godbus/dbus/v5"
)

// appName is the identity shown in desktop notifications.
const appName = "voxtype"

// Notifier sends desktop notifications, preferring the
// org.freedesktop.Notifications D-Bus interface and falling back to
// notify-send when no session bus is reachable.
type Notifier struct {
	conn *dbus.Conn
}

// NewNotifier opens a private session bus connection so Close does not pull
// the shared one out from under other users. A missing bus is not an error;
// the notifier silently downgrades to notify-send.
func NewNotifier() *Notifier {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		slog.Debug("session bus unavailable, using notify-send", "error", err)
		return &Notifier{}
	}
	return &Notifier{conn: conn}
}

// Notify shows a transient notification. Failures are logged, never
// returned; a missed notification must not interrupt dictation.
func (n *Notifier) Notify(summary, body, icon string) {
	if n.conn != nil {
		obj := n.conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
		call := obj.Call("org.freedesktop.Notifications.Notify", 0,
			appName,              // app_name
			uint32(0),            // replaces_id
			icon,                 // app_icon
			summary,              // summary
			body,                 // body
			[]string{},           // actions
			map[string]dbus.Variant{}, // hints
			int32(-1),            // expire_timeout
		)
		if call.Err == nil {
			return
		}
		slog.Debug("notification via session bus failed", "error", call.Err)
	}

	if err := exec.Command("notify-send",
		"--app-name="+appName, "--icon="+icon, summary, body,
	).Start(); err != nil {
		slog.Warn("failed to send notification", "summary", summary, "error", err)
	}
}

// Close releases the session bus connection.
func (n *Notifier) Close() error {
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
