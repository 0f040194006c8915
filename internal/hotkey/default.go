package hotkey

import (
	"fmt"
	"log/slog"
	"runtime"
)

// Backend names accepted by NewSource.
const (
	BackendIPC    = "ipc"
	BackendNative = "native"
	BackendEvdev  = "evdev"
)

// Sources is the pair a Coordinator is built from. IPC is set when the
// registration is driven by IPCSource. Closer releases backend resources.
type Sources struct {
	Registered RegisteredHotkey
	Raw        RawKeyWatcher
	IPC        *IPCSource
	Closer     func() error
}

// NewSources builds the registration backend and raw watcher for the given
// config values. rawMode is "auto", "evdev", or "none".
func NewSources(backend, rawMode string, logger *slog.Logger) (Sources, error) {
	var s Sources
	var evdev *EvdevSource
	getEvdev := func() *EvdevSource {
		if evdev == nil {
			evdev = NewEvdevSource(logger)
		}
		return evdev
	}

	switch backend {
	case BackendIPC:
		s.IPC = NewIPCSource()
		s.Registered = s.IPC
	case BackendNative:
		s.Registered = NewNativeSource()
	case BackendEvdev:
		s.Registered = getEvdev()
	default:
		return Sources{}, fmt.Errorf("unknown hotkey backend %q", backend)
	}

	switch rawMode {
	case "none":
	case "evdev":
		s.Raw = getEvdev()
	case "", "auto":
		s.Raw = defaultRawWatcher(backend, getEvdev)
	default:
		return Sources{}, fmt.Errorf("unknown raw watcher %q", rawMode)
	}

	s.Closer = func() error {
		if evdev != nil {
			return evdev.Close()
		}
		return nil
	}
	return s, nil
}

// defaultRawWatcher picks the platform tap for "auto". IPC bindings get their
// releases from the compositor's bindr, so they need no tap on Linux.
func defaultRawWatcher(backend string, evdev func() *EvdevSource) RawKeyWatcher {
	if w := platformRawWatcher(); w != nil {
		return w
	}
	if runtime.GOOS == "linux" && backend == BackendEvdev {
		return evdev()
	}
	return nil
}
