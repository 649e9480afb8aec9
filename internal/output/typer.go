package output

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// runCommand executes an external tool, optionally feeding stdin, and fails
// on a non-zero exit. Replaced in tests.
type runCommand func(stdin string, name string, args ...string) error

func execRun(stdin string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Typer injects text into the currently focused window via the display
// server's typing tool.
type Typer struct {
	display DisplayServer
	run     runCommand
}

// NewTyper creates a Typer for the detected display server.
func NewTyper() *Typer {
	return &Typer{
		display: DetectDisplayServer(),
		run:     execRun,
	}
}

// Type writes text into the focused window. Empty text is a no-op.
//
// On X11, --clearmodifiers temporarily releases held modifier keys so the
// characters arrive unmodified (a held Ctrl would otherwise turn every
// character into Ctrl+<char>). The window-system hotkey backend sees that
// release as the record key going up, which is why the coordinator only
// types after the key is physically released in push-to-talk mode.
func (t *Typer) Type(text string) error {
	if text == "" {
		return nil
	}

	switch t.display {
	case Wayland:
		if err := t.run("", "wtype", "--", text); err != nil {
			slog.Debug("wtype unavailable, falling back to ydotool", "error", err)
			if err := t.run("", "ydotool", "type", "--", text); err != nil {
				return fmt.Errorf("output: type text on Wayland: %w", err)
			}
		}
	default:
		if err := t.run("", "xdotool", "type", "--clearmodifiers", "--delay", "0", "--", text); err != nil {
			return fmt.Errorf("output: type text on X11: %w", err)
		}
	}
	return nil
}
