// Package doctor runs readiness diagnostics for config, engine, audio, hotkey,
// insertion and health.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/health"
	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/insert"
	"github.com/rbright/murmur/internal/transcribe"
)

const healthTimeout = 2 * time.Second

// Probes are swapped out by tests.
var (
	selectDevice     = audio.SelectDevice
	findKeyboards    = hotkey.FindKeyboardDevices
	checkHealth      = health.Check
	systemClipboard  = insert.SystemClipboardSupported
	uinputDevicePath = "/dev/uinput"
	goos             = runtime.GOOS
	nativeHotkeys    = hotkey.NativeSupported
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkEngine(cfg.Engine)...)
	checks = append(checks, checkAudioSelection(ctx, cfg.Capture))
	checks = append(checks, checkHotkey(cfg.Hotkey))
	checks = append(checks, checkClipboard(cfg.Insert)...)
	checks = append(checks, checkInjector(cfg.Insert))
	checks = append(checks, checkWindow(cfg.Window))
	if strings.TrimSpace(cfg.Health.Listen) != "" {
		checks = append(checks, checkHealthEndpoint(ctx, cfg.Health.Listen))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found, using defaults", loaded.Path)}
	}
	msg := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		msg = fmt.Sprintf("%s with %d warning(s)", msg, n)
	}
	return Check{Name: "config", Pass: true, Message: msg}
}

func checkEngine(cfg config.EngineConfig) []Check {
	pipeline := transcribe.New(transcribe.Options{Binary: cfg.Binary, ModelPath: cfg.ModelPath()}, nil)
	binary, err := pipeline.CheckEngine()

	var checks []Check
	switch {
	case errors.Is(err, transcribe.ErrMissingBinary):
		checks = append(checks,
			Check{Name: "engine.binary", Pass: false, Message: err.Error()},
			Check{Name: "engine.model", Pass: false, Message: "skipped until the engine binary is found"},
		)
	case errors.Is(err, transcribe.ErrMissingModel):
		checks = append(checks,
			Check{Name: "engine.binary", Pass: true, Message: fmt.Sprintf("found %s", cfg.Binary)},
			Check{Name: "engine.model", Pass: false, Message: err.Error()},
		)
	case err != nil:
		checks = append(checks, Check{Name: "engine", Pass: false, Message: err.Error()})
	default:
		checks = append(checks,
			Check{Name: "engine.binary", Pass: true, Message: fmt.Sprintf("found at %s", binary)},
			Check{Name: "engine.model", Pass: true, Message: cfg.ModelPath()},
		)
	}

	if ffmpeg := strings.TrimSpace(cfg.FFmpeg); ffmpeg != "" {
		checks = append(checks, checkBinary(ffmpeg, "converts non-wav input"))
	}
	return checks
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.CaptureConfig) Check {
	selection, err := selectDevice(ctx, audio.Selector{Index: cfg.DeviceIndex, Input: cfg.Input, Fallback: cfg.Fallback})
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkHotkey(cfg config.HotkeyConfig) Check {
	const name = "hotkey.backend"
	switch cfg.Backend {
	case hotkey.BackendIPC:
		if strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")) == "" {
			return Check{Name: name, Pass: false, Message: "ipc backend needs XDG_RUNTIME_DIR for the daemon socket"}
		}
		return Check{Name: name, Pass: true, Message: "ipc: bind `murmur press` and `murmur release` in the compositor"}
	case hotkey.BackendEvdev:
		return checkKeyboards(name)
	case hotkey.BackendNative:
		if !nativeHotkeys() {
			return Check{Name: name, Pass: false, Message: "native backend is not compiled in (rebuild with -tags x11hotkey)"}
		}
		if goos == "linux" && strings.TrimSpace(os.Getenv("DISPLAY")) == "" {
			return Check{Name: name, Pass: false, Message: "native backend needs an X display (DISPLAY is empty)"}
		}
		return Check{Name: name, Pass: true, Message: "native global hotkey"}
	default:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

func checkKeyboards(name string) Check {
	paths, err := findKeyboards()
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if len(paths) == 0 {
		return Check{Name: name, Pass: false, Message: "no keyboard event devices found"}
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		_ = f.Close()
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("evdev: reading %s", path)}
	}
	return Check{Name: name, Pass: false, Message: fmt.Sprintf("no readable keyboard device among %s (is the user in the input group?)", strings.Join(paths, ", "))}
}

func checkClipboard(cfg config.InsertConfig) []Check {
	if cfg.Clipboard == "system" {
		if !systemClipboard() {
			return []Check{{Name: "clipboard", Pass: false, Message: "no system clipboard utility available"}}
		}
		return []Check{{Name: "clipboard", Pass: true, Message: "system clipboard"}}
	}

	checks := []Check{checkCommand(cfg.ClipboardCmd.Argv, "clipboard_cmd")}
	if len(cfg.ClipboardReadCmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.ClipboardReadCmd.Argv, "clipboard_read_cmd"))
	}
	return checks
}

func checkInjector(cfg config.InsertConfig) Check {
	const name = "insert.injector"
	switch cfg.Injector {
	case "hypr":
		return named(name, checkBinary("hyprctl", "hyprland paste shortcut"))
	case "command":
		return named(name, checkCommand(cfg.PasteCmd.Argv, "paste_cmd"))
	case "uinput":
		f, err := os.OpenFile(uinputDevicePath, os.O_WRONLY, 0)
		if err != nil {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("cannot open %s: %v", uinputDevicePath, err)}
		}
		_ = f.Close()
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is writable", uinputDevicePath)}
	case "native":
		if goos != "windows" {
			return Check{Name: name, Pass: false, Message: "native injection is only available on windows"}
		}
		return Check{Name: name, Pass: true, Message: "SendInput"}
	default:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("unknown injector %q", cfg.Injector)}
	}
}

func checkWindow(cfg config.WindowConfig) Check {
	const name = "window.backend"
	switch cfg.Backend {
	case "hypr":
		return named(name, checkBinary("hyprctl", "hyprland window tracking"))
	case "x11":
		return named(name, checkBinary("xdotool", "x11 window tracking"))
	case "native":
		if goos != "windows" {
			return Check{Name: name, Pass: false, Message: "native window tracking is only available on windows"}
		}
		return Check{Name: name, Pass: true, Message: "win32 foreground window"}
	case "none", "":
		return Check{Name: name, Pass: true, Message: "disabled, text goes to whatever is focused"}
	default:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

func checkHealthEndpoint(ctx context.Context, addr string) Check {
	status, err := checkHealth(ctx, addr, healthTimeout)
	if err != nil {
		return Check{Name: "health", Pass: false, Message: fmt.Sprintf("%s: %v", addr, err)}
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "health", Pass: false, Message: fmt.Sprintf("%s reports %s", addr, status)}
	}
	return Check{Name: "health", Pass: true, Message: fmt.Sprintf("%s is serving", addr)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func named(name string, c Check) Check {
	c.Name = name
	return c
}
