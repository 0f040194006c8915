package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/logging"
)

var (
	hotkeyBackends    = []string{hotkey.BackendIPC, hotkey.BackendNative, hotkey.BackendEvdev}
	rawWatcherModes   = []string{"auto", "evdev", "none"}
	structuredModes   = []string{"auto", "off"}
	clipboardBackends = []string{"command", "system"}
	injectorBackends  = []string{"hypr", "uinput", "command", "native"}
	windowBackends    = []string{"hypr", "x11", "native", "none"}
	indicatorBackends = []string{"hypr", "desktop"}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	var warnings []Warning

	if _, err := hotkey.ParseBinding(cfg.Hotkey.Binding); err != nil {
		return nil, fmt.Errorf("hotkey.binding: %w", err)
	}
	if err := oneOf("hotkey.backend", cfg.Hotkey.Backend, hotkeyBackends); err != nil {
		return nil, err
	}
	if err := oneOf("hotkey.raw_watcher", cfg.Hotkey.RawWatcher, rawWatcherModes); err != nil {
		return nil, err
	}

	if cfg.Capture.DeviceIndex < -1 {
		return nil, fmt.Errorf("capture.device_index must be >= -1")
	}

	if strings.TrimSpace(cfg.Engine.Binary) == "" {
		return nil, fmt.Errorf("engine.binary must not be empty")
	}
	if strings.TrimSpace(cfg.Engine.Model) == "" {
		return nil, fmt.Errorf("engine.model must not be empty")
	}
	if cfg.Engine.SidecarAttempts <= 0 {
		return nil, fmt.Errorf("engine.sidecar_attempts must be > 0")
	}
	if cfg.Engine.SidecarIntervalMS <= 0 {
		return nil, fmt.Errorf("engine.sidecar_interval_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Engine.FFmpeg) == "" {
		warnings = append(warnings, Warning{Message: "engine.ffmpeg is empty; only 16 kHz PCM WAV input can be transcribed"})
	}

	ins := cfg.Insert
	if err := oneOf("insert.structured", ins.Structured, structuredModes); err != nil {
		return nil, err
	}
	if err := oneOf("insert.clipboard", ins.Clipboard, clipboardBackends); err != nil {
		return nil, err
	}
	if err := oneOf("insert.injector", ins.Injector, injectorBackends); err != nil {
		return nil, err
	}
	if strings.EqualFold(ins.Clipboard, "command") {
		if len(ins.ClipboardCmd.Argv) == 0 {
			return nil, fmt.Errorf("insert.clipboard_cmd must not be empty when insert.clipboard=command")
		}
		if len(ins.ClipboardReadCmd.Argv) == 0 {
			return nil, fmt.Errorf("insert.clipboard_read_cmd must not be empty when insert.clipboard=command")
		}
	}
	switch strings.ToLower(ins.Injector) {
	case "command":
		if len(ins.PasteCmd.Argv) == 0 {
			return nil, fmt.Errorf("insert.paste_cmd must not be empty when insert.injector=command")
		}
	case "hypr":
		if strings.TrimSpace(ins.PasteShortcut) == "" {
			return nil, fmt.Errorf("insert.paste_shortcut must not be empty when insert.injector=hypr")
		}
	}
	if ins.RestoreDelayMS < 0 {
		return nil, fmt.Errorf("insert.restore_delay_ms must be >= 0")
	}
	if ins.FocusSettleMS < 0 {
		return nil, fmt.Errorf("insert.focus_settle_ms must be >= 0")
	}

	if err := oneOf("window.backend", cfg.Window.Backend, windowBackends); err != nil {
		return nil, err
	}

	if err := oneOf("indicator.backend", cfg.Indicator.Backend, indicatorBackends); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Indicator.Backend, "desktop") && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.History.Enable && strings.TrimSpace(cfg.History.Path) == "" {
		return nil, fmt.Errorf("history.path must not be empty when history.enable=true")
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	if strings.EqualFold(cfg.Hotkey.Backend, hotkey.BackendIPC) && strings.EqualFold(cfg.Hotkey.RawWatcher, "none") {
		warnings = append(warnings, Warning{Message: "hotkey.raw_watcher=none with the ipc backend: release relies on the release command alone"})
	}
	return warnings, nil
}

func oneOf(key string, value string, allowed []string) error {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	if !slices.Contains(allowed, v) {
		return fmt.Errorf("%s must be one of: %s", key, strings.Join(allowed, ", "))
	}
	return nil
}
