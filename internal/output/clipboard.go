package output

import (
	"fmt"
	"log/slog"

	"github.com/atotto/clipboard"
)

// Clipboard copies text to the system clipboard, falling back to the CLI
// tools when the native path fails (common on Wayland without a selection
// bridge).
type Clipboard struct {
	run runCommand

	// writeAll is the native clipboard writer. Replaced in tests.
	writeAll func(text string) error
}

// NewClipboard creates a Clipboard using the native writer with the wl-copy
// and xclip fallbacks.
func NewClipboard() *Clipboard {
	return &Clipboard{
		run:      execRun,
		writeAll: clipboard.WriteAll,
	}
}

// Copy places text on the clipboard. Empty text is a no-op.
func (c *Clipboard) Copy(text string) error {
	if text == "" {
		return nil
	}

	if err := c.writeAll(text); err == nil {
		slog.Debug("copied to clipboard", "chars", len(text))
		return nil
	}

	fallbacks := [][]string{
		{"wl-copy"},
		{"xclip", "-selection", "clipboard"},
	}
	for _, cmd := range fallbacks {
		if err := c.run(text, cmd[0], cmd[1:]...); err == nil {
			slog.Debug("copied to clipboard", "via", cmd[0], "chars", len(text))
			return nil
		}
	}

	return fmt.Errorf("output: no clipboard tool available, install wl-copy or xclip")
}
