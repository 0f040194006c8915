package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rbright/murmur/internal/logging"
)

const watchDebounce = 100 * time.Millisecond

// Watch reloads path whenever it is written or recreated and hands each valid
// result to onChange. Invalid reloads are logged and skipped. Watch blocks
// until ctx is done.
//
// The parent directory is watched rather than the file so editors that
// replace the file by rename keep triggering reloads.
func Watch(ctx context.Context, path string, onChange func(Loaded), logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config dir %q: %w", dir, err)
	}
	name := filepath.Base(path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		loaded, err := Load(path)
		if err != nil {
			logger.Warn("config reload rejected", "path", path, "error", err.Error())
			return
		}
		for _, w := range loaded.Warnings {
			logger.Warn("config warning", "line", w.Line, "message", w.Message)
		}
		logger.Info("config reloaded", "path", path)
		onChange(loaded)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err.Error())
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, reload)
			mu.Unlock()
		}
	}
}
