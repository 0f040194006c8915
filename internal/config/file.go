package config

import (
	"fmt"
	"strings"
)

// fileConfig is the on-disk shape shared by the JSONC and TOML parsers.
// Pointer fields distinguish "unset" from zero values.
type fileConfig struct {
	Hotkey     *fileHotkey     `json:"hotkey" toml:"hotkey"`
	Capture    *fileCapture    `json:"capture" toml:"capture"`
	Engine     *fileEngine     `json:"engine" toml:"engine"`
	Transcript *fileTranscript `json:"transcript" toml:"transcript"`
	Insert     *fileInsert     `json:"insert" toml:"insert"`
	Window     *fileWindow     `json:"window" toml:"window"`
	Indicator  *fileIndicator  `json:"indicator" toml:"indicator"`
	History    *fileHistory    `json:"history" toml:"history"`
	Health     *fileHealth     `json:"health" toml:"health"`
	Log        *fileLog        `json:"log" toml:"log"`
}

type fileHotkey struct {
	Binding    *string `json:"binding" toml:"binding"`
	Backend    *string `json:"backend" toml:"backend"`
	RawWatcher *string `json:"raw_watcher" toml:"raw_watcher"`
}

type fileCapture struct {
	DeviceIndex *int    `json:"device_index" toml:"device_index"`
	Input       *string `json:"input" toml:"input"`
	Fallback    *string `json:"fallback" toml:"fallback"`
	Dir         *string `json:"dir" toml:"dir"`
}

type fileEngine struct {
	Binary            *string  `json:"binary" toml:"binary"`
	Model             *string  `json:"model" toml:"model"`
	ModelsDir         *string  `json:"models_dir" toml:"models_dir"`
	Language          *string  `json:"language" toml:"language"`
	ExtraArgs         []string `json:"extra_args" toml:"extra_args"`
	SidecarAttempts   *int     `json:"sidecar_attempts" toml:"sidecar_attempts"`
	SidecarIntervalMS *int     `json:"sidecar_interval_ms" toml:"sidecar_interval_ms"`
	FFmpeg            *string  `json:"ffmpeg" toml:"ffmpeg"`
}

type fileTranscript struct {
	TrailingSpace *bool `json:"trailing_space" toml:"trailing_space"`
}

type fileInsert struct {
	Structured        *string `json:"structured" toml:"structured"`
	Clipboard         *string `json:"clipboard" toml:"clipboard"`
	ClipboardCmd      *string `json:"clipboard_cmd" toml:"clipboard_cmd"`
	ClipboardReadCmd  *string `json:"clipboard_read_cmd" toml:"clipboard_read_cmd"`
	ClipboardClearCmd *string `json:"clipboard_clear_cmd" toml:"clipboard_clear_cmd"`
	Injector          *string `json:"injector" toml:"injector"`
	PasteCmd          *string `json:"paste_cmd" toml:"paste_cmd"`
	PasteShortcut     *string `json:"paste_shortcut" toml:"paste_shortcut"`
	RestoreDelayMS    *int    `json:"restore_delay_ms" toml:"restore_delay_ms"`
	FocusSettleMS     *int    `json:"focus_settle_ms" toml:"focus_settle_ms"`
}

type fileWindow struct {
	Backend *string `json:"backend" toml:"backend"`
}

type fileIndicator struct {
	Enable            *bool   `json:"enable" toml:"enable"`
	Backend           *string `json:"backend" toml:"backend"`
	DesktopAppName    *string `json:"desktop_app_name" toml:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable" toml:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file" toml:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file" toml:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file" toml:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file" toml:"sound_cancel_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms" toml:"error_timeout_ms"`
}

type fileHistory struct {
	Enable *bool   `json:"enable" toml:"enable"`
	Path   *string `json:"path" toml:"path"`
}

type fileHealth struct {
	Listen *string `json:"listen" toml:"listen"`
}

type fileLog struct {
	Level *string `json:"level" toml:"level"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setCommand(dst *CommandConfig, src *string, key string) error {
	if src == nil {
		return nil
	}
	argv, err := parseArgv(*src)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = CommandConfig{Raw: *src, Argv: argv}
	return nil
}

func (f fileConfig) applyTo(cfg *Config) error {
	if h := f.Hotkey; h != nil {
		setString(&cfg.Hotkey.Binding, h.Binding)
		setString(&cfg.Hotkey.Backend, h.Backend)
		setString(&cfg.Hotkey.RawWatcher, h.RawWatcher)
	}

	if c := f.Capture; c != nil {
		setInt(&cfg.Capture.DeviceIndex, c.DeviceIndex)
		setString(&cfg.Capture.Input, c.Input)
		setString(&cfg.Capture.Fallback, c.Fallback)
		setString(&cfg.Capture.Dir, c.Dir)
	}

	if e := f.Engine; e != nil {
		setString(&cfg.Engine.Binary, e.Binary)
		setString(&cfg.Engine.Model, e.Model)
		setString(&cfg.Engine.ModelsDir, e.ModelsDir)
		setString(&cfg.Engine.Language, e.Language)
		if e.ExtraArgs != nil {
			cfg.Engine.ExtraArgs = append([]string(nil), e.ExtraArgs...)
		}
		setInt(&cfg.Engine.SidecarAttempts, e.SidecarAttempts)
		setInt(&cfg.Engine.SidecarIntervalMS, e.SidecarIntervalMS)
		setString(&cfg.Engine.FFmpeg, e.FFmpeg)
	}

	if t := f.Transcript; t != nil {
		setBool(&cfg.Transcript.TrailingSpace, t.TrailingSpace)
	}

	if i := f.Insert; i != nil {
		setString(&cfg.Insert.Structured, i.Structured)
		setString(&cfg.Insert.Clipboard, i.Clipboard)
		setString(&cfg.Insert.Injector, i.Injector)
		setString(&cfg.Insert.PasteShortcut, i.PasteShortcut)
		setInt(&cfg.Insert.RestoreDelayMS, i.RestoreDelayMS)
		setInt(&cfg.Insert.FocusSettleMS, i.FocusSettleMS)
		for _, c := range []struct {
			dst *CommandConfig
			src *string
			key string
		}{
			{&cfg.Insert.ClipboardCmd, i.ClipboardCmd, "insert.clipboard_cmd"},
			{&cfg.Insert.ClipboardReadCmd, i.ClipboardReadCmd, "insert.clipboard_read_cmd"},
			{&cfg.Insert.ClipboardClearCmd, i.ClipboardClearCmd, "insert.clipboard_clear_cmd"},
			{&cfg.Insert.PasteCmd, i.PasteCmd, "insert.paste_cmd"},
		} {
			if err := setCommand(c.dst, c.src, c.key); err != nil {
				return err
			}
		}
	}

	if w := f.Window; w != nil {
		setString(&cfg.Window.Backend, w.Backend)
	}

	if ind := f.Indicator; ind != nil {
		setBool(&cfg.Indicator.Enable, ind.Enable)
		setString(&cfg.Indicator.Backend, ind.Backend)
		setString(&cfg.Indicator.DesktopAppName, ind.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, ind.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, ind.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, ind.SoundCompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, ind.SoundCancelFile)
		setInt(&cfg.Indicator.ErrorTimeoutMS, ind.ErrorTimeoutMS)
	}

	if h := f.History; h != nil {
		setBool(&cfg.History.Enable, h.Enable)
		setString(&cfg.History.Path, h.Path)
	}

	if h := f.Health; h != nil {
		setString(&cfg.Health.Listen, h.Listen)
	}

	if l := f.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
	}
	return nil
}
