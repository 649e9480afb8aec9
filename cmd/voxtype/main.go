// Command voxtype is the voice dictation daemon and its control client.
//
// Run without arguments it starts the daemon: microphone capture, speech
// segmentation, local whisper transcription and text output into the focused
// window. With an argument it acts as a client and forwards the command to
// the running daemon over D-Bus, which is how desktop keyboard shortcut
// settings are expected to drive it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/voxtype/internal/app"
	"github.com/MrWong99/voxtype/internal/config"
	"github.com/MrWong99/voxtype/internal/coordinator"
	"github.com/MrWong99/voxtype/internal/health"
	"github.com/MrWong99/voxtype/internal/ipc"
	"github.com/MrWong99/voxtype/internal/observe"
	"github.com/MrWong99/voxtype/internal/output"
	"github.com/MrWong99/voxtype/internal/tray"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = usage
	flag.Parse()

	if cmd := flag.Arg(0); cmd != "" {
		return runClient(cmd)
	}
	return runDaemon()
}

// ── Client mode ───────────────────────────────────────────────────────────────

func runClient(cmd string) int {
	var method string
	switch cmd {
	case "toggle":
		method = "Toggle"
	case "quit":
		method = "Quit"
	case "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "voxtype: unknown command %q\n", cmd)
		usage()
		return 1
	}

	if err := ipc.SendCommand(method); err != nil {
		fmt.Fprintf(os.Stderr, "voxtype: %v (is the daemon running?)\n", err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: voxtype [command]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands (sent to the running daemon):")
	fmt.Fprintln(os.Stderr, "  toggle  Toggle recording on/off")
	fmt.Fprintln(os.Stderr, "  quit    Quit the daemon")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "No command starts the daemon.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Bind 'voxtype toggle' to a key in your desktop's keyboard")
	fmt.Fprintln(os.Stderr, "shortcut settings as an alternative to the built-in hotkey.")
}

// ── Daemon mode ───────────────────────────────────────────────────────────────

func runDaemon() int {
	cfg := config.LoadOrDefault()

	// First run: persist the defaults so the user has a file to edit.
	if _, err := os.Stat(config.Path()); errors.Is(err, os.ErrNotExist) {
		if err := config.Save(cfg); err != nil {
			slog.Warn("could not write default config", "error", err)
		}
	}

	slog.SetDefault(newLogger(cfg.LogLevel))

	// A previous instance gives way to this one.
	ipc.StopExistingInstance()

	slog.Info("voxtype starting",
		"config", config.Path(),
		"model", cfg.Model,
		"display_server", output.DetectDisplayServer(),
	)
	if _, err := os.Stat(config.ModelPath()); err == nil {
		slog.Info("whisper model ready", "path", config.ModelPath())
	} else {
		slog.Warn("whisper model not found, transcription disabled until it appears",
			"path", config.ModelPath())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "voxtype",
		MetricsAddr: cfg.MetricsAddr,
		HealthCheckers: []health.Checker{
			{Name: "model", Check: func(context.Context) error {
				_, err := os.Stat(config.ModelPath())
				return err
			}},
		},
	})
	if err != nil {
		slog.Warn("metrics disabled", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Warn("metrics shutdown error", "error", err)
			}
		}()
	}

	// ── Application ───────────────────────────────────────────────────────
	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialise", "error", err)
		return 1
	}
	defer application.Shutdown()

	// The D-Bus name doubles as the single-instance lock.
	server, err := ipc.StartServer(&ipc.Handler{
		OnToggle: func() { application.Send(coordinator.ToggleRecording()) },
		OnQuit:   func() { application.Send(coordinator.Quit()) },
	})
	if err != nil {
		slog.Error("failed to start D-Bus service", "error", err)
		slog.Error("another voxtype instance is probably running; stop it with 'voxtype quit'")
		return 1
	}
	defer server.Close()

	// The pipeline runs in the background; systray needs the main goroutine.
	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(ctx) }()

	trayApp := tray.New(application.Commands(), application.TrayUpdates(),
		tray.WithTranscriptCount(application.TranscriptCount))
	go func() {
		// A signal must also end the tray loop; menu quits go through the
		// coordinator and arrive as a TrayQuit update instead.
		<-ctx.Done()
		trayApp.Quit()
	}()

	slog.Info("voxtype ready",
		"shortcut", config.DisplayShortcut(cfg.Shortcut),
		"mode", cfg.RecordingMode,
	)
	trayApp.Run()
	stop()

	select {
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("run error", "error", err)
			return 1
		}
	case <-time.After(15 * time.Second):
		slog.Error("shutdown timed out")
		return 1
	}

	slog.Info("goodbye")
	return 0
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
