// Package ipc exposes the daemon on the session bus so a second invocation
// of the binary can toggle recording or stop the running instance. The bus
// name doubles as the single-instance lock: only one process can own it.
package ipc

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// BusName is the well-known name claimed by the daemon.
	BusName = "org.voxtype.Daemon"

	objectPath = "/org/voxtype/Daemon"
	ifaceName  = "org.voxtype.Daemon"
)

const introXML = `<node>
	<interface name="` + ifaceName + `">
		<method name="Toggle">
			<arg direction="out" type="s"/>
		</method>
		<method name="Quit">
			<arg direction="out" type="s"/>
		</method>
	</interface>` + introspect.IntrospectDataString + `</node>`

// Handler receives the daemon-side callbacks for bus method calls. The
// callbacks run on the bus dispatch goroutine and must not block.
type Handler struct {
	// OnToggle starts or stops recording.
	OnToggle func()

	// OnQuit shuts the daemon down.
	OnQuit func()
}

// Toggle implements org.voxtype.Daemon.Toggle.
func (h *Handler) Toggle() (string, *dbus.Error) {
	if h.OnToggle != nil {
		h.OnToggle()
	}
	return "ok", nil
}

// Quit implements org.voxtype.Daemon.Quit.
func (h *Handler) Quit() (string, *dbus.Error) {
	if h.OnQuit != nil {
		h.OnQuit()
	}
	return "ok", nil
}

// Server owns the daemon's session bus connection. Keep it alive for the
// process lifetime; closing it releases the bus name.
type Server struct {
	conn *dbus.Conn
}

// StartServer claims the bus name and exports the daemon interface. Failing
// to become the primary owner means another instance holds the name.
func StartServer(h *Handler) (*Server, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("ipc: connect session bus: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ipc: request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		_ = conn.Close()
		return nil, fmt.Errorf("ipc: bus name %s already taken, another instance is running", BusName)
	}

	if err := conn.Export(h, objectPath, ifaceName); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ipc: export interface: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introXML), objectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ipc: export introspection: %w", err)
	}

	slog.Info("session bus service registered", "name", BusName)
	return &Server{conn: conn}, nil
}

// Close releases the bus name and connection.
func (s *Server) Close() error {
	return s.conn.Close()
}

// SendCommand calls a method ("Toggle" or "Quit") on the running daemon.
func SendCommand(method string) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("ipc: connect session bus: %w", err)
	}
	defer conn.Close()

	call := conn.Object(BusName, objectPath).Call(ifaceName+"."+method, 0)
	if call.Err != nil {
		return fmt.Errorf("ipc: call %s: %w", method, call.Err)
	}
	return nil
}

// StopExistingInstance asks a previously running daemon to quit and gives it
// a moment to release the bus name. Reports whether an instance was found.
func StopExistingInstance() bool {
	if err := SendCommand("Quit"); err != nil {
		return false
	}
	slog.Info("stopped existing instance")
	time.Sleep(500 * time.Millisecond)
	return true
}
