package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/health"
	"github.com/rbright/murmur/internal/history"
	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/indicator"
	"github.com/rbright/murmur/internal/ipc"
	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/transcribe"
	"github.com/rbright/murmur/internal/window"
)

const (
	acquireProbeTimeout = 180 * time.Millisecond
	acquireRetries      = 8
	healthPollInterval  = time.Second
)

func (r Runner) commandServe(ctx context.Context, loaded config.Loaded, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, acquireProbeTimeout, acquireRetries)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	if err := serve(ctx, loaded, listener, logger); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("daemon stopped", "error", err.Error())
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}

// serve builds every runtime component from cfg and runs them until ctx is
// done or one of them fails.
func serve(ctx context.Context, loaded config.Loaded, listener net.Listener, logger *slog.Logger) error {
	cfg := loaded.Config

	binding, err := hotkey.ParseBinding(cfg.Hotkey.Binding)
	if err != nil {
		return err
	}
	sources, err := hotkey.NewSources(cfg.Hotkey.Backend, cfg.Hotkey.RawWatcher, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sources.Closer(); err != nil {
			logger.Warn("close hotkey sources failed", "error", err.Error())
		}
	}()

	notifier := indicator.New(cfg.Indicator, logger)
	defer notifier.Wait()

	coordinator := hotkey.NewCoordinator(sources.Registered, sources.Raw, logger)
	defer coordinator.Close()
	bound, err := activate(ctx, coordinator, binding, notifier, logger)
	if err != nil {
		return fmt.Errorf("register hotkey %q: %w", cfg.Hotkey.Binding, err)
	}

	tracker, err := window.NewTracker(cfg.Window.Backend, logger)
	if err != nil {
		return err
	}

	inserter, closeInserter, err := newInserter(ctx, cfg.Insert, logger)
	if err != nil {
		return err
	}
	defer closeInserter()

	var runs history.Recorder
	if cfg.History.Enable && strings.TrimSpace(cfg.History.Path) != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("history disabled", "path", cfg.History.Path, "error", err.Error())
		} else {
			defer func() { _ = store.Close() }()
			runs = store
		}
	}

	rl := &reloader{path: loaded.Path, hotkeys: coordinator, logger: logger, binding: bound}
	controller := session.NewController(session.Deps{
		Hotkeys:     coordinator,
		Recorder:    audio.NewRecorder(audio.PulseBackend{}, cfg.Capture.Dir, logger),
		Pipeline:    transcribe.New(engineOptions(cfg), logger),
		Inserter:    inserter,
		Windows:     tracker,
		Indicator:   notifier,
		History:     runs,
		Selector:    audio.Selector{Index: cfg.Capture.DeviceIndex, Input: cfg.Capture.Input, Fallback: cfg.Capture.Fallback},
		Language:    cfg.Engine.Language,
		FocusSettle: cfg.Insert.FocusSettle(),
		Logger:      logger,
		IPC:         sources.IPC,
		Reload:      rl.reload,
	})
	rl.language = controller

	logger.Info("daemon ready",
		"binding", cfg.Hotkey.Binding,
		"hotkey_registered", !bound.IsZero(),
		"hotkey_backend", cfg.Hotkey.Backend,
		"injector", cfg.Insert.Injector,
		"window_backend", cfg.Window.Backend,
		"history", runs != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return controller.Run(gctx) })
	g.Go(func() error { return ipc.Serve(gctx, listener, controller) })
	if loaded.Exists {
		g.Go(func() error {
			return config.Watch(gctx, loaded.Path, func(next config.Loaded) { _ = rl.apply(gctx, next) }, logger)
		})
	}
	if addr := strings.TrimSpace(cfg.Health.Listen); addr != "" {
		reporter := health.NewReporter()
		g.Go(func() error {
			reporter.Follow(gctx, func() bool { return coordinator.State() != hotkey.Idle }, healthPollInterval)
			return nil
		})
		g.Go(func() error { return health.Serve(gctx, addr, reporter, logger) })
	}
	return g.Wait()
}

type activator interface {
	Activate(ctx context.Context, b hotkey.Binding) error
}

type errorShower interface {
	ShowError(ctx context.Context, text string)
}

// activate registers b. An unavailable hotkey is not fatal: the daemon keeps
// serving in Idle and returns the zero binding so a reload retries it.
func activate(ctx context.Context, hk activator, b hotkey.Binding, ui errorShower, logger *slog.Logger) (hotkey.Binding, error) {
	err := hk.Activate(ctx, b)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, hotkey.ErrUnavailable):
		logger.Error("hotkey unavailable, serving without it until reload", "binding", b.String(), "error", err.Error())
		ui.ShowError(ctx, "Hotkey unavailable: "+b.String())
		return hotkey.Binding{}, nil
	default:
		return hotkey.Binding{}, err
	}
}

type rebinder interface {
	Rebind(ctx context.Context, b hotkey.Binding) error
}

type languageSetter interface {
	SetLanguage(string)
}

// reloader applies the settings that can change while the daemon runs: the
// hotkey binding and the language hint. Everything else needs a restart.
type reloader struct {
	path     string
	hotkeys  rebinder
	language languageSetter
	logger   *slog.Logger

	mu      sync.Mutex
	binding hotkey.Binding
}

func (rl *reloader) reload(ctx context.Context) error {
	loaded, err := config.Load(rl.path)
	if err != nil {
		return err
	}
	return rl.apply(ctx, loaded)
}

func (rl *reloader) apply(ctx context.Context, loaded config.Loaded) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.language != nil {
		rl.language.SetLanguage(loaded.Config.Engine.Language)
	}

	next, err := hotkey.ParseBinding(loaded.Config.Hotkey.Binding)
	if err != nil {
		rl.logger.Warn("hotkey binding not applied", "error", err.Error())
		return err
	}
	if next.Equal(rl.binding) {
		return nil
	}
	if err := rl.hotkeys.Rebind(ctx, next); err != nil {
		rl.logger.Error("hotkey rebind failed, previous binding kept", "binding", loaded.Config.Hotkey.Binding, "error", err.Error())
		return fmt.Errorf("rebind hotkey %q: %w", loaded.Config.Hotkey.Binding, err)
	}
	rl.binding = next
	rl.logger.Info("hotkey rebound", "binding", loaded.Config.Hotkey.Binding)
	return nil
}
