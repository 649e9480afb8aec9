// Package hotkey turns global keyboard shortcuts into coordinator commands.
//
// Two backends exist. The kernel backend reads physical key state from
// /dev/input, below the display server, which makes it immune to the
// synthetic events the typing tool produces; it is preferred whenever at
// least one keyboard device is readable. The window-system backend registers
// shortcuts with the display server and is the fallback for setups where the
// user is not in the input group. The coordinator is told which backend won
// because push-to-talk text output depends on it.
package hotkey

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/coordinator"
)

// Listener owns the hotkey goroutine. Create with New, then call Run.
type Listener struct {
	cmds       chan<- coordinator.Command
	reloads    chan struct{}
	typingMark *atomic.Int64

	loadCfg func() config.Config
	now     func() time.Time
	probe   func() []keyEventSource
}

// Option customises a Listener.
type Option func(*Listener)

// WithConfigLoader replaces the config source. Defaults to
// config.LoadOrDefault.
func WithConfigLoader(load func() config.Config) Option {
	return func(l *Listener) { l.loadCfg = load }
}

// WithClock replaces the wall clock used for debounce deadlines.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) { l.now = now }
}

// WithDeviceProbe replaces keyboard discovery, used by tests to force a
// backend.
func WithDeviceProbe(probe func() []keyEventSource) Option {
	return func(l *Listener) { l.probe = probe }
}

// New builds a Listener that sends commands into cmds. typingMark carries
// the epoch-millisecond timestamp of the last synthetic typing burst; the
// window-system backend reads it to defer releases the typing tool caused.
// It may be nil on the kernel backend.
func New(cmds chan<- coordinator.Command, typingMark *atomic.Int64, opts ...Option) *Listener {
	l := &Listener{
		cmds:       cmds,
		reloads:    make(chan struct{}, 4),
		typingMark: typingMark,
		loadCfg:    config.LoadOrDefault,
		now:        time.Now,
		probe:      openKeyboards,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ReloadConfig asks the running backend to re-parse and re-register its
// shortcuts. Never blocks; a reload is already queued when the channel is
// full.
func (l *Listener) ReloadConfig() {
	select {
	case l.reloads <- struct{}{}:
	default:
	}
}

// Run probes for readable keyboards, announces the winning backend and
// serves shortcuts until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	if devices := l.probe(); len(devices) > 0 {
		l.emit(ctx, coordinator.BackendResolved(coordinator.BackendKernel))
		return l.runKernel(ctx, devices)
	}
	l.emit(ctx, coordinator.BackendResolved(coordinator.BackendWindowSystem))
	return l.runWindowSystem(ctx)
}

func (l *Listener) emit(ctx context.Context, cmd coordinator.Command) {
	select {
	case l.cmds <- cmd:
	case <-ctx.Done():
	}
}
