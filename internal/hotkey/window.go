package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	xhotkey "golang.design/x/hotkey"

	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/coordinator"
)

// windowHotkeys bundles the three display-server registrations. Any of them
// may be nil when parsing or registration failed; the select below treats a
// nil hotkey as a nil channel.
type windowHotkeys struct {
	mode       config.RecordingMode
	record     *xhotkey.Hotkey
	transcript *xhotkey.Hotkey
	listen     *xhotkey.Hotkey
}

func registerBinding(shortcut, purpose string) *xhotkey.Hotkey {
	hk, err := newBinding(shortcut)
	if err != nil {
		slog.Warn("could not register shortcut",
			"shortcut", shortcut, "purpose", purpose, "error", err)
		return nil
	}
	slog.Info("registered shortcut", "shortcut", shortcut, "purpose", purpose)
	return hk
}

func newBinding(shortcut string) (*xhotkey.Hotkey, error) {
	mods, key, err := windowBinding(shortcut)
	if err != nil {
		return nil, err
	}
	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register %q: %w", shortcut, err)
	}
	return hk, nil
}

func (w *windowHotkeys) registerAll(cfg config.Config) {
	w.mode = cfg.RecordingMode
	w.record = registerBinding(cfg.Shortcut, "record")
	w.transcript = registerBinding(cfg.TranscriptShortcut, "open transcripts")
	w.listen = registerBinding(cfg.AlwaysListenShortcut, "always listen")
}

func (w *windowHotkeys) unregisterAll() {
	for _, hk := range []*xhotkey.Hotkey{w.record, w.transcript, w.listen} {
		if hk != nil {
			hk.Unregister()
		}
	}
	w.record, w.transcript, w.listen = nil, nil, nil
}

func keydown(hk *xhotkey.Hotkey) <-chan xhotkey.Event {
	if hk == nil {
		return nil
	}
	return hk.Keydown()
}

func keyup(hk *xhotkey.Hotkey) <-chan xhotkey.Event {
	if hk == nil {
		return nil
	}
	return hk.Keyup()
}

// runWindowSystem serves shortcuts registered through the display server.
//
// Synthetic key events from the typing tool are visible at this level, so a
// push-to-talk release arriving right after a typing burst is deferred by
// the remaining grace period on top of the usual debounce. A genuine
// re-press inside the window cancels the release either way.
func (l *Listener) runWindowSystem(ctx context.Context) error {
	var hks windowHotkeys
	hks.registerAll(l.loadCfg())
	defer hks.unregisterAll()

	release := time.NewTimer(time.Hour)
	if !release.Stop() {
		<-release.C
	}
	defer release.Stop()
	releasePending := false

	cancelRelease := func() {
		if releasePending && !release.Stop() {
			<-release.C
		}
		releasePending = false
	}

	slog.Info("window-system hotkey backend ready")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-l.reloads:
			hks.unregisterAll()
			cancelRelease()
			hks.registerAll(l.loadCfg())

		case <-keydown(hks.record):
			if hks.mode == config.ModePushToTalk {
				if releasePending {
					slog.Debug("press cancelled pending release")
				}
				cancelRelease()
				l.emit(ctx, coordinator.StartRecording())
			} else {
				l.emit(ctx, coordinator.ToggleRecording())
			}

		case <-keyup(hks.record):
			if hks.mode != config.ModePushToTalk {
				continue
			}
			delay := config.PTTReleaseDebounce
			if l.typingMark != nil {
				since := time.Duration(l.now().UnixMilli()-l.typingMark.Load()) * time.Millisecond
				if since < config.TypingGrace {
					delay += config.TypingGrace - since
					slog.Debug("release deferred by typing grace", "delay", delay)
				}
			}
			cancelRelease()
			release.Reset(delay)
			releasePending = true

		case <-release.C:
			releasePending = false
			l.emit(ctx, coordinator.StopRecording())

		case <-keydown(hks.transcript):
			l.emit(ctx, coordinator.OpenTranscripts())

		case <-keydown(hks.listen):
			l.emit(ctx, coordinator.ToggleAlwaysListen())
		}
	}
}
