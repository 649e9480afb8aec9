// Package micmute watches the system microphone mute switch through
// PulseAudio so the coordinator can refuse to start a session that would
// record nothing.
package micmute

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// pollInterval is how often the mute state is re-queried.
const pollInterval = time.Second

// queryMute asks pactl for the default source mute state. Replaced in tests.
type queryMute func() (muted bool, ok bool)

func pactlQuery() (bool, bool) {
	out, err := exec.Command("pactl", "get-source-mute", "@DEFAULT_SOURCE@").Output()
	if err != nil {
		return false, false
	}
	s := string(out)
	switch {
	case strings.Contains(s, "yes"):
		return true, true
	case strings.Contains(s, "no"):
		return false, true
	}
	return false, false
}

// Monitor polls the microphone mute state and reports transitions.
type Monitor struct {
	changes chan bool
	query   queryMute
	tick    time.Duration
}

// Option is a functional option for configuring a Monitor.
type Option func(*Monitor)

// WithQuery replaces the pactl query. Tests use this to simulate mute
// transitions.
func WithQuery(q func() (muted bool, ok bool)) Option {
	return func(m *Monitor) { m.query = q }
}

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.tick = d }
}

// NewMonitor creates a Monitor. Run must be called to start polling.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		changes: make(chan bool, 4),
		query:   pactlQuery,
		tick:    pollInterval,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Changes delivers the mute state: the initial reading first, then one value
// per transition.
func (m *Monitor) Changes() <-chan bool { return m.changes }

// Run polls until ctx is cancelled. When pactl is unavailable at startup the
// feature disables itself and Run returns nil immediately; a transient pactl
// failure mid-run is skipped and polling continues.
func (m *Monitor) Run(ctx context.Context) error {
	prev, ok := m.query()
	if !ok {
		slog.Info("microphone mute detection disabled, pactl unavailable")
		return nil
	}
	slog.Info("microphone mute detection active", "muted", prev)

	select {
	case m.changes <- prev:
	case <-ctx.Done():
		return nil
	}

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			muted, ok := m.query()
			if !ok || muted == prev {
				continue
			}
			slog.Info("microphone mute changed", "muted", muted)
			prev = muted
			select {
			case m.changes <- muted:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
