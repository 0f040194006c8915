//go:build !linux

package hotkey

import (
	"errors"
	"io"
)

func openKeyboards() ([]io.ReadCloser, error) {
	return nil, errors.New("evdev input is only available on linux")
}

func FindKeyboardDevices() ([]string, error) {
	return nil, errors.New("evdev input is only available on linux")
}
