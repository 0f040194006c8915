//go:build !linux && !windows

package insert

import (
	"errors"
	"log/slog"
)

func newPlatformStructured(*slog.Logger) (Structured, error) {
	return nil, errors.New("no accessibility backend on this platform")
}
