package hotkey

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"syscall"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/coordinator"
)

// pollInterval is the kernel backend sampling rate. 100Hz is responsive
// enough for key input while keeping the idle cost negligible.
const pollInterval = 10 * time.Millisecond

// keyEventSource is the readable surface of an input device.
type keyEventSource interface {
	ReadOne() (*evdev.InputEvent, error)
	Close() error
}

// openKeyboards opens every accessible /dev/input device that looks like a
// keyboard. Permission failures are reported once with the fix; an empty
// result makes the listener fall back to the window-system backend.
func openKeyboards() []keyEventSource {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		slog.Warn("could not enumerate input devices", "error", err)
		return nil
	}

	var (
		keyboards []keyEventSource
		denied    bool
	)
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			if os.IsPermission(err) {
				denied = true
			}
			continue
		}
		if !supportsKey(dev, evdev.KEY_SPACE) {
			dev.Close()
			continue
		}
		if err := dev.NonBlock(); err != nil {
			slog.Debug("could not switch device to non-blocking reads",
				"device", p.Name, "error", err)
			dev.Close()
			continue
		}
		keyboards = append(keyboards, dev)
	}

	if len(keyboards) == 0 {
		if denied {
			slog.Warn("keyboard devices exist but are not readable; " +
				"add the user to the 'input' group and log out and in")
		} else {
			slog.Info("no keyboard devices found under /dev/input")
		}
		return nil
	}
	slog.Info("opened keyboard devices", "count", len(keyboards))
	return keyboards
}

// supportsKey reports whether the device emits the given key, used to filter
// keyboards from mice, jog wheels and power buttons.
func supportsKey(dev *evdev.InputDevice, code evdev.EvCode) bool {
	for _, t := range dev.CapableTypes() {
		if t != evdev.EV_KEY {
			continue
		}
		for _, c := range dev.CapableEvents(t) {
			if c == code {
				return true
			}
		}
	}
	return false
}

// matcher tracks physical key state across all keyboards and turns edges in
// the combined state into coordinator commands. It is driven from a single
// goroutine: handleKey for every kernel event, then tick once per poll.
type matcher struct {
	mode       config.RecordingMode
	record     []evdev.EvCode
	transcript []evdev.EvCode
	listen     []evdev.EvCode

	pressed       map[evdev.EvCode]struct{}
	recordWas     bool
	transcriptWas bool
	listenWas     bool

	// pendingRelease holds the deadline after which a push-to-talk release
	// fires. A re-press inside the window cancels it, which filters key
	// auto-repeat.
	pendingRelease time.Time

	now  func() time.Time
	send func(coordinator.Command)
}

func newMatcher(cfg config.Config, now func() time.Time, send func(coordinator.Command)) *matcher {
	m := &matcher{
		pressed: make(map[evdev.EvCode]struct{}),
		now:     now,
		send:    send,
	}
	m.reload(cfg)
	return m
}

// reload re-parses the three shortcuts. An unparseable shortcut falls back
// to its default so the daemon never ends up without a binding.
func (m *matcher) reload(cfg config.Config) {
	m.mode = cfg.RecordingMode
	m.record = parseOrDefault(cfg.Shortcut, config.DefaultShortcut)
	m.transcript = parseOrDefault(cfg.TranscriptShortcut, config.DefaultTranscriptShortcut)
	m.listen = parseOrDefault(cfg.AlwaysListenShortcut, config.DefaultAlwaysListenShortcut)
}

func parseOrDefault(shortcut, fallback string) []evdev.EvCode {
	keys, err := evdevKeys(shortcut)
	if err != nil {
		slog.Warn("unparseable shortcut, using default",
			"shortcut", shortcut, "default", fallback, "error", err)
		keys, _ = evdevKeys(fallback)
	}
	return keys
}

// handleKey folds one kernel key event into the pressed set. Value 1 is a
// press, 2 an auto-repeat, 0 a release.
func (m *matcher) handleKey(code evdev.EvCode, value int32) {
	key := normalizeKey(code)
	switch value {
	case 1, 2:
		m.pressed[key] = struct{}{}
	case 0:
		delete(m.pressed, key)
	}
}

func (m *matcher) matched(keys []evdev.EvCode) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if _, ok := m.pressed[k]; !ok {
			return false
		}
	}
	return true
}

// tick evaluates the combined key state once and emits commands on edges.
func (m *matcher) tick() {
	transcript := m.matched(m.transcript)
	if transcript && !m.transcriptWas {
		m.send(coordinator.OpenTranscripts())
	}
	m.transcriptWas = transcript

	listen := m.matched(m.listen)
	if listen && !m.listenWas {
		m.send(coordinator.ToggleAlwaysListen())
	}
	m.listenWas = listen

	record := m.matched(m.record)
	switch m.mode {
	case config.ModePushToTalk:
		if record && !m.recordWas {
			if !m.pendingRelease.IsZero() {
				slog.Debug("press cancelled pending release")
			}
			m.pendingRelease = time.Time{}
			m.send(coordinator.StartRecording())
		} else if !record && m.recordWas {
			m.pendingRelease = m.now().Add(config.PTTReleaseDebounce)
		}
	case config.ModeToggle:
		if record && !m.recordWas {
			m.send(coordinator.ToggleRecording())
		}
	}
	m.recordWas = record

	if !m.pendingRelease.IsZero() && !m.now().Before(m.pendingRelease) {
		m.pendingRelease = time.Time{}
		m.send(coordinator.StopRecording())
	}
}

// runKernel polls the opened keyboards until ctx is cancelled.
func (l *Listener) runKernel(ctx context.Context, devices []keyEventSource) error {
	defer func() {
		for _, dev := range devices {
			dev.Close()
		}
	}()

	cfg := l.loadCfg()
	m := newMatcher(cfg, l.now, func(cmd coordinator.Command) { l.emit(ctx, cmd) })
	slog.Info("kernel hotkey backend ready",
		"shortcut", cfg.Shortcut, "mode", cfg.RecordingMode)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.reloads:
			m.reload(l.loadCfg())
		case <-ticker.C:
			for _, dev := range devices {
				drainDevice(dev, m)
			}
			m.tick()
		}
	}
}

// drainDevice reads every queued event off a non-blocking device.
func drainDevice(dev keyEventSource, m *matcher) {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if !errors.Is(err, syscall.EAGAIN) && !errors.Is(err, syscall.EWOULDBLOCK) {
				slog.Debug("input device read failed", "error", err)
			}
			return
		}
		if ev.Type == evdev.EV_KEY {
			m.handleKey(ev.Code, ev.Value)
		}
	}
}
