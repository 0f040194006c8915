package config

import (
	"path/filepath"
	"runtime"

	"github.com/rbright/murmur/internal/xdg"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	cfg := Config{
		Hotkey: HotkeyConfig{
			Binding:    "ctrl+shift+space",
			Backend:    "native",
			RawWatcher: "auto",
		},
		Capture: CaptureConfig{
			DeviceIndex: -1,
			Input:       "default",
			Fallback:    "default",
		},
		Engine: EngineConfig{
			Binary:            "whisper-cli",
			Model:             "ggml-base.bin",
			SidecarAttempts:   10,
			SidecarIntervalMS: 100,
			FFmpeg:            "ffmpeg",
		},
		Transcript: TranscriptConfig{TrailingSpace: true},
		Insert: InsertConfig{
			Structured:     "auto",
			Clipboard:      "system",
			Injector:       "native",
			PasteShortcut:  "CTRL,V",
			RestoreDelayMS: 2000,
			FocusSettleMS:  180,
		},
		Window: WindowConfig{Backend: "native"},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "murmur",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		History: HistoryConfig{Enable: true},
		Log:     LogConfig{Level: "info"},
	}

	if runtime.GOOS == "linux" {
		cfg.Hotkey.Backend = "ipc"
		cfg.Insert.Clipboard = "command"
		cfg.Insert.Injector = "hypr"
		cfg.Window.Backend = "hypr"
	} else {
		cfg.Indicator.Enable = false
	}

	cfg.Insert.ClipboardCmd = mustCommand("wl-copy --trim-newline")
	cfg.Insert.ClipboardReadCmd = mustCommand("wl-paste --no-newline")
	cfg.Insert.ClipboardClearCmd = mustCommand("wl-copy --clear")

	if dir, err := xdg.DataDir(); err == nil {
		cfg.Engine.ModelsDir = filepath.Join(dir, "models")
	}
	if dir, err := xdg.StateDir(); err == nil {
		cfg.History.Path = filepath.Join(dir, "history.db")
	}
	return cfg
}

func mustCommand(raw string) CommandConfig {
	return CommandConfig{Raw: raw, Argv: mustParseArgv(raw)}
}
