// Package config resolves, parses, validates, and defaults murmur configuration.
package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config is the fully materialized runtime configuration used by murmur.
type Config struct {
	Hotkey     HotkeyConfig
	Capture    CaptureConfig
	Engine     EngineConfig
	Transcript TranscriptConfig
	Insert     InsertConfig
	Window     WindowConfig
	Indicator  IndicatorConfig
	History    HistoryConfig
	Health     HealthConfig
	Log        LogConfig
}

// HotkeyConfig selects the push-to-talk chord and how it is observed.
type HotkeyConfig struct {
	Binding    string
	Backend    string
	RawWatcher string
}

// CaptureConfig controls input-device selection and where recordings land.
type CaptureConfig struct {
	DeviceIndex int
	Input       string
	Fallback    string
	Dir         string
}

// EngineConfig describes the external transcription engine.
type EngineConfig struct {
	Binary            string
	Model             string
	ModelsDir         string
	Language          string
	ExtraArgs         []string
	SidecarAttempts   int
	SidecarIntervalMS int
	FFmpeg            string
}

// ModelPath joins Model onto ModelsDir unless Model is already a path.
func (e EngineConfig) ModelPath() string {
	model := strings.TrimSpace(e.Model)
	if model == "" || filepath.IsAbs(model) || strings.ContainsRune(model, filepath.Separator) {
		return model
	}
	if strings.TrimSpace(e.ModelsDir) == "" {
		return model
	}
	return filepath.Join(e.ModelsDir, model)
}

// SidecarInterval is SidecarIntervalMS as a duration.
func (e EngineConfig) SidecarInterval() time.Duration {
	return time.Duration(e.SidecarIntervalMS) * time.Millisecond
}

// TranscriptConfig controls transcript cleanup.
type TranscriptConfig struct {
	TrailingSpace bool
}

// InsertConfig controls how text reaches the focused application.
type InsertConfig struct {
	Structured        string
	Clipboard         string
	ClipboardCmd      CommandConfig
	ClipboardReadCmd  CommandConfig
	ClipboardClearCmd CommandConfig
	Injector          string
	PasteCmd          CommandConfig
	PasteShortcut     string
	RestoreDelayMS    int
	FocusSettleMS     int
}

// RestoreDelay is RestoreDelayMS as a duration.
func (i InsertConfig) RestoreDelay() time.Duration {
	return time.Duration(i.RestoreDelayMS) * time.Millisecond
}

// FocusSettle is FocusSettleMS as a duration.
func (i InsertConfig) FocusSettle() time.Duration {
	return time.Duration(i.FocusSettleMS) * time.Millisecond
}

// WindowConfig selects the foreground-window tracker.
type WindowConfig struct {
	Backend string
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	ErrorTimeoutMS    int
}

// HistoryConfig controls the sqlite run log.
type HistoryConfig struct {
	Enable bool
	Path   string
}

// HealthConfig controls the gRPC health endpoint. Empty Listen disables it.
type HealthConfig struct {
	Listen string
}

// LogConfig controls the runtime log.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
