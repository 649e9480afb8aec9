// Package duck lowers the default output sink volume while a session is
// recording so playback audio does not bleed into the microphone, and
// restores it afterwards.
//
// Everything degrades gracefully: without pactl no ducking happens and
// dictation continues unaffected.
package duck

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Ducker saves, lowers, and restores the default sink volume via pactl.
type Ducker struct {
	getOutput func() (string, error)
	setVolume func(percent int) error

	saved int // volume to restore, -1 when not ducked
}

// New creates a pactl-backed Ducker.
func New() *Ducker {
	return &Ducker{
		getOutput: func() (string, error) {
			out, err := exec.Command("pactl", "get-sink-volume", "@DEFAULT_SINK@").Output()
			return string(out), err
		},
		setVolume: func(percent int) error {
			return exec.Command("pactl", "set-sink-volume", "@DEFAULT_SINK@",
				strconv.Itoa(percent)+"%").Run()
		},
		saved: -1,
	}
}

// Duck lowers the sink to target percent, remembering the current volume.
// Ducking twice without a Restore keeps the first saved volume. Returns
// false when the current volume cannot be read, in which case nothing is
// changed.
func (d *Ducker) Duck(target int) bool {
	current, ok := d.volume()
	if !ok {
		return false
	}
	if d.saved < 0 {
		d.saved = current
	}
	if err := d.setVolume(target); err != nil {
		slog.Debug("failed to duck sink volume", "error", err)
		d.saved = -1
		return false
	}
	slog.Info("audio ducked", "from", current, "to", target)
	return true
}

// Restore raises the sink back to the volume saved by Duck. A no-op when not
// ducked.
func (d *Ducker) Restore() {
	if d.saved < 0 {
		return
	}
	if err := d.setVolume(d.saved); err != nil {
		slog.Debug("failed to restore sink volume", "error", err)
	} else {
		slog.Info("audio restored", "volume", d.saved)
	}
	d.saved = -1
}

func (d *Ducker) volume() (int, bool) {
	out, err := d.getOutput()
	if err != nil {
		return 0, false
	}
	v, err := parseVolume(out)
	if err != nil {
		slog.Debug("could not parse sink volume", "error", err)
		return 0, false
	}
	return v, true
}

// parseVolume extracts the first percentage from pactl get-sink-volume
// output, e.g. "Volume: front-left: 49152 / 75% / -7.50 dB, ...".
func parseVolume(output string) (int, error) {
	for _, part := range strings.Split(output, "/") {
		trimmed := strings.TrimSpace(part)
		pct, found := strings.CutSuffix(trimmed, "%")
		if !found {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil {
			continue
		}
		return v, nil
	}
	return 0, fmt.Errorf("duck: no percentage in %q", output)
}
