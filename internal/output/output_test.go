package output

import (
	"errors"
	"testing"
)

// captureRunner records every invocation and fails the commands named in
// failing.
type captureRunner struct {
	calls   [][]string
	stdins  []string
	failing map[string]bool
}

func (c *captureRunner) run(stdin, name string, args ...string) error {
	c.calls = append(c.calls, append([]string{name}, args...))
	c.stdins = append(c.stdins, stdin)
	if c.failing[name] {
		return errors.New(name + " failed")
	}
	return nil
}

func TestTyper_X11UsesXdotoolWithClearModifiers(t *testing.T) {
	r := &captureRunner{}
	typer := &Typer{display: X11, run: r.run}

	if err := typer.Type("hello"); err != nil {
		t.Fatalf("Type: %v", err)
	}
	if len(r.calls) != 1 {
		t.Fatalf("ran %d commands, want 1", len(r.calls))
	}
	got := r.calls[0]
	if got[0] != "xdotool" {
		t.Errorf("command = %q, want xdotool", got[0])
	}
	found := false
	for _, arg := range got {
		if arg == "--clearmodifiers" {
			found = true
		}
	}
	if !found {
		t.Error("xdotool was not given --clearmodifiers")
	}
	if got[len(got)-1] != "hello" {
		t.Errorf("last arg = %q, want the text", got[len(got)-1])
	}
}

func TestTyper_WaylandFallsBackToYdotool(t *testing.T) {
	r := &captureRunner{failing: map[string]bool{"wtype": true}}
	typer := &Typer{display: Wayland, run: r.run}

	if err := typer.Type("hi"); err != nil {
		t.Fatalf("Type: %v", err)
	}
	if len(r.calls) != 2 {
		t.Fatalf("ran %d commands, want 2", len(r.calls))
	}
	if r.calls[0][0] != "wtype" || r.calls[1][0] != "ydotool" {
		t.Errorf("command order = %q, %q; want wtype then ydotool", r.calls[0][0], r.calls[1][0])
	}
}

func TestTyper_EmptyTextIsNoOp(t *testing.T) {
	r := &captureRunner{}
	typer := &Typer{display: X11, run: r.run}

	if err := typer.Type(""); err != nil {
		t.Fatalf("Type: %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("ran %d commands for empty text", len(r.calls))
	}
}

func TestClipboard_NativeWriterPreferred(t *testing.T) {
	r := &captureRunner{}
	var wrote string
	cb := &Clipboard{
		run:      r.run,
		writeAll: func(text string) error { wrote = text; return nil },
	}

	if err := cb.Copy("snippet"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if wrote != "snippet" {
		t.Errorf("native writer got %q", wrote)
	}
	if len(r.calls) != 0 {
		t.Error("fallback tools ran despite native success")
	}
}

func TestClipboard_FallsBackThroughCLITools(t *testing.T) {
	r := &captureRunner{failing: map[string]bool{"wl-copy": true}}
	cb := &Clipboard{
		run:      r.run,
		writeAll: func(string) error { return errors.New("no native clipboard") },
	}

	if err := cb.Copy("snippet"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if len(r.calls) != 2 {
		t.Fatalf("ran %d commands, want 2", len(r.calls))
	}
	if r.calls[1][0] != "xclip" {
		t.Errorf("final tool = %q, want xclip", r.calls[1][0])
	}
	if r.stdins[1] != "snippet" {
		t.Errorf("xclip stdin = %q, want the text", r.stdins[1])
	}
}

func TestClipboard_ErrorWhenEverythingFails(t *testing.T) {
	r := &captureRunner{failing: map[string]bool{"wl-copy": true, "xclip": true}}
	cb := &Clipboard{
		run:      r.run,
		writeAll: func(string) error { return errors.New("no native clipboard") },
	}

	if err := cb.Copy("snippet"); err == nil {
		t.Error("Copy succeeded with no working clipboard path")
	}
}

func TestDetectDisplayServer(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "wayland")
	if got := DetectDisplayServer(); got != Wayland {
		t.Errorf("DetectDisplayServer = %v, want Wayland", got)
	}

	t.Setenv("XDG_SESSION_TYPE", "x11")
	if got := DetectDisplayServer(); got != X11 {
		t.Errorf("DetectDisplayServer = %v, want X11", got)
	}

	t.Setenv("XDG_SESSION_TYPE", "")
	if got := DetectDisplayServer(); got != X11 {
		t.Errorf("DetectDisplayServer with empty env = %v, want X11", got)
	}
}

func TestNotifier_DowngradesWithoutSessionBus(t *testing.T) {
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path=/nonexistent")

	n := NewNotifier()
	if n.conn != nil {
		t.Error("expected no private bus connection with an unreachable address")
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
