//go:build linux

package hotkey

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

func openKeyboards() ([]io.ReadCloser, error) {
	paths, err := FindKeyboardDevices()
	if err != nil {
		return nil, err
	}

	var (
		readers []io.ReadCloser
		lastErr error
	)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			lastErr = err
			continue
		}
		readers = append(readers, f)
	}
	if len(readers) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return readers, nil
}

// FindKeyboardDevices lists /dev/input event nodes that report key
// capabilities, resolved and de-duplicated.
func FindKeyboardDevices() ([]string, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	devices, err := parseInputDevices(f)
	if err != nil {
		return nil, err
	}

	matches, _ := filepath.Glob("/dev/input/by-id/*-event-kbd")
	devices = append(devices, matches...)

	seen := map[string]bool{}
	out := make([]string, 0, len(devices))
	for _, dev := range devices {
		resolved, err := filepath.EvalSymlinks(dev)
		if err != nil {
			resolved = dev
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	if len(out) == 0 {
		return nil, errors.New("no keyboard devices found")
	}
	return out, nil
}
